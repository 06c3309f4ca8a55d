package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFacultyBusyIgnoresEmptyID(t *testing.T) {
	busy := NewFacultyBusy()
	busy.Book("", Monday, 1)

	assert.False(t, busy.Busy("", Monday, 1))
	assert.False(t, busy.BusyAny("", Monday, []int{1, 2}))
}

func TestFacultyBusyBookAndQuery(t *testing.T) {
	busy := NewFacultyBusy()
	busy.Book("fac-1", Tuesday, 3)
	busy.Book("fac-1", Tuesday, 3)
	busy.Book("fac-1", Friday, 8)
	busy.Book("fac-1", Day(9), 1)

	assert.True(t, busy.Busy("fac-1", Tuesday, 3))
	assert.False(t, busy.Busy("fac-1", Tuesday, 4))
	assert.False(t, busy.Busy("fac-2", Tuesday, 3))
	assert.True(t, busy.BusyAny("fac-1", Friday, []int{7, 8}))
	assert.False(t, busy.BusyAny("fac-1", Friday, []int{5, 6}))
}

func TestLabBusyFourPeriodWindowCoversBothPairs(t *testing.T) {
	labs := NewLabBusy()
	holder := LabOccupant{BatchID: "b-1", Label: "A"}
	labs.Book("lab-1", Wednesday, FourPeriodWindows[0], holder)

	assert.False(t, labs.Free("lab-1", Wednesday, Window{1, 2}))
	assert.False(t, labs.Free("lab-1", Wednesday, Window{3, 4}))
	assert.True(t, labs.Free("lab-1", Wednesday, Window{5, 6}))
	assert.True(t, labs.Free("lab-2", Wednesday, Window{1, 2}))
	assert.Equal(t, holder, labs.Occupant("lab-1", Wednesday, 1))
	assert.True(t, labs.Occupant("lab-1", Wednesday, 7).IsZero())
}

func TestTrackerSeedBooksLabPairOfPeriod(t *testing.T) {
	tracker := NewTracker()
	tracker.Seed([]Commitment{
		{FacultyID: "fac-1", LabRoomID: "lab-1", BatchID: "b-ece", Day: Thursday, Period: 6},
		{FacultyID: "fac-2", Day: Thursday, Period: 1},
		{LabRoomID: "lab-1", BatchID: "b-ece", Day: Thursday, Period: 0},
	})

	assert.True(t, tracker.Faculty.Busy("fac-1", Thursday, 6))
	assert.True(t, tracker.Faculty.Busy("fac-2", Thursday, 1))
	assert.False(t, tracker.Labs.Free("lab-1", Thursday, Window{5, 6}))
	assert.True(t, tracker.Labs.Free("lab-1", Thursday, Window{1, 2}))
	assert.Equal(t, "b-ece", tracker.Labs.Occupant("lab-1", Thursday, 2).BatchID)
}
