package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabRoomRepositoryListForConfigSelected(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLabRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_config_labs cl")).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_code", "name", "is_active"}).
			AddRow("lab-1", "LAB1", "Systems Lab", true))

	labs, err := repo.ListForConfig(context.Background(), nil, "cfg-1")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "LAB1", labs[0].RoomCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRoomRepositoryListForConfigFallsBackToAllActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLabRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_config_labs cl")).
		WithArgs("cfg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_code", "name", "is_active"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_code, name, is_active FROM lab_rooms WHERE is_active = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_code", "name", "is_active"}).
			AddRow("lab-1", "LAB1", "Systems Lab", true).
			AddRow("lab-2", "LAB2", "Networks Lab", true))

	labs, err := repo.ListForConfig(context.Background(), nil, "cfg-1")
	require.NoError(t, err)
	assert.Len(t, labs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLabRoomRepositoryListRestrictions(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewLabRoomRepository(db)

	restrictions, err := repo.ListRestrictions(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, restrictions)

	mock.ExpectQuery(regexp.QuoteMeta("FROM lab_restrictions lr")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "lab_id", "program_id", "year_of_study", "course_code"}).
			AddRow("r-1", "lab-1", "prog-cse", 2, nil))

	restrictions, err = repo.ListRestrictions(context.Background(), nil, []string{"lab-1"})
	require.NoError(t, err)
	require.Len(t, restrictions, 1)
	assert.Equal(t, "prog-cse", *restrictions[0].ProgramID)
	assert.Equal(t, 2, *restrictions[0].YearOfStudy)
	assert.Nil(t, restrictions[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
