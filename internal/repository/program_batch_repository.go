package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// ProgramBatchRepository reads student batches.
type ProgramBatchRepository struct {
	db *sqlx.DB
}

// NewProgramBatchRepository constructs the repository.
func NewProgramBatchRepository(db *sqlx.DB) *ProgramBatchRepository {
	return &ProgramBatchRepository{db: db}
}

func (r *ProgramBatchRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActive returns the active batches of a program and year ordered by name.
func (r *ProgramBatchRepository) ListActive(ctx context.Context, exec sqlx.ExtContext, academicYearID, programID string, yearOfStudy int) ([]models.ProgramBatch, error) {
	const query = `SELECT id, academic_year_id, program_id, year_of_study, batch_name, is_active
FROM program_batches
WHERE academic_year_id = $1 AND program_id = $2 AND year_of_study = $3 AND is_active = TRUE
ORDER BY batch_name ASC`
	var batches []models.ProgramBatch
	if err := sqlx.SelectContext(ctx, r.exec(exec), &batches, query, academicYearID, programID, yearOfStudy); err != nil {
		return nil, fmt.Errorf("list program batches: %w", err)
	}
	return batches, nil
}
