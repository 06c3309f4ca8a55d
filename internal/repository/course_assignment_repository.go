package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// CourseAssignmentRepository reads who teaches what to which batch.
type CourseAssignmentRepository struct {
	db *sqlx.DB
}

// NewCourseAssignmentRepository constructs the repository.
func NewCourseAssignmentRepository(db *sqlx.DB) *CourseAssignmentRepository {
	return &CourseAssignmentRepository{db: db}
}

// ListActiveForBatch returns the active assignments of a batch in a semester
// joined with their course hours.
func (r *CourseAssignmentRepository) ListActiveForBatch(ctx context.Context, exec sqlx.ExtContext, academicYearID, semesterID, batchID string) ([]models.CourseAssignmentDetail, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `
SELECT ca.id, ca.batch_id, ca.course_id, ca.faculty_id, ca.lab_assistant_id,
       c.course_code, c.title AS course_title, c.course_type,
       COALESCE(c.lecture_hours, 0) AS lecture_hours,
       COALESCE(c.tutorial_hours, 0) AS tutorial_hours,
       COALESCE(c.practical_hours, 0) AS practical_hours
FROM course_assignments ca
JOIN courses c ON c.id = ca.course_id
WHERE ca.academic_year_id = $1 AND ca.semester_id = $2 AND ca.batch_id = $3 AND ca.is_active = TRUE
ORDER BY c.course_code ASC`
	var assignments []models.CourseAssignmentDetail
	if err := sqlx.SelectContext(ctx, exec, &assignments, query, academicYearID, semesterID, batchID); err != nil {
		return nil, fmt.Errorf("list course assignments: %w", err)
	}
	return assignments, nil
}
