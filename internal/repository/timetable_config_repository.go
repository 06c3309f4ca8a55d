package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// TimetableConfigRepository reads generation configs.
type TimetableConfigRepository struct {
	db *sqlx.DB
}

// NewTimetableConfigRepository constructs the repository.
func NewTimetableConfigRepository(db *sqlx.DB) *TimetableConfigRepository {
	return &TimetableConfigRepository{db: db}
}

func (r *TimetableConfigRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a config together with its program code.
func (r *TimetableConfigRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimetableConfig, error) {
	const query = `
SELECT tc.id, tc.academic_year_id, tc.semester_id, tc.program_id, p.code AS program_code, tc.year_of_study,
       tc.created_by, tc.is_generated, tc.created_at, tc.updated_at
FROM timetable_configs tc
JOIN programs p ON p.id = tc.program_id
WHERE tc.id = $1`
	var cfg models.TimetableConfig
	if err := sqlx.GetContext(ctx, r.exec(exec), &cfg, query, id); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MarkGenerated flags configs whose timetables were written by a run.
func (r *TimetableConfigRepository) MarkGenerated(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE timetable_configs SET is_generated = TRUE, updated_at = $1 WHERE id = ANY($2)`
	result, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark timetable configs generated: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable config rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
