package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// LabRoomRepository reads labs and their restrictions.
type LabRoomRepository struct {
	db *sqlx.DB
}

// NewLabRoomRepository constructs the repository.
func NewLabRoomRepository(db *sqlx.DB) *LabRoomRepository {
	return &LabRoomRepository{db: db}
}

func (r *LabRoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListForConfig returns the active labs selected for a config. A config
// without a selection uses every active lab.
func (r *LabRoomRepository) ListForConfig(ctx context.Context, exec sqlx.ExtContext, configID string) ([]models.LabRoom, error) {
	target := r.exec(exec)

	const selectedQuery = `
SELECT l.id, l.room_code, l.name, l.is_active
FROM timetable_config_labs cl
JOIN lab_rooms l ON l.id = cl.lab_id
WHERE cl.config_id = $1 AND l.is_active = TRUE
ORDER BY l.room_code ASC`
	var labs []models.LabRoom
	if err := sqlx.SelectContext(ctx, target, &labs, selectedQuery, configID); err != nil {
		return nil, fmt.Errorf("list selected labs: %w", err)
	}
	if len(labs) > 0 {
		return labs, nil
	}

	const allQuery = `SELECT id, room_code, name, is_active FROM lab_rooms WHERE is_active = TRUE ORDER BY room_code ASC`
	if err := sqlx.SelectContext(ctx, target, &labs, allQuery); err != nil {
		return nil, fmt.Errorf("list active labs: %w", err)
	}
	return labs, nil
}

// ListRestrictions returns the restriction rows of the given labs.
func (r *LabRoomRepository) ListRestrictions(ctx context.Context, exec sqlx.ExtContext, labIDs []string) ([]models.LabRestriction, error) {
	if len(labIDs) == 0 {
		return nil, nil
	}
	const query = `
SELECT lr.id, lr.lab_id, lr.program_id, lr.year_of_study, c.course_code
FROM lab_restrictions lr
LEFT JOIN courses c ON c.id = lr.course_id
WHERE lr.lab_id = ANY($1)`
	var restrictions []models.LabRestriction
	if err := sqlx.SelectContext(ctx, r.exec(exec), &restrictions, query, pq.Array(labIDs)); err != nil {
		return nil, fmt.Errorf("list lab restrictions: %w", err)
	}
	return restrictions, nil
}
