package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// TimetableRepository persists generated batch timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert creates the timetable of a batch or refreshes its header when one
// already exists for the (academic year, semester, year, batch) tuple. The
// stored id is written back into the payload.
func (r *TimetableRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.ProgramBatchID == "" || timetable.SemesterID == "" {
		return fmt.Errorf("program_batch_id and semester_id are required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const query = `
INSERT INTO timetables (id, academic_year_id, semester_id, year, program_batch_id, batch, effective_from, created_by, is_active, created_at, updated_at)
VALUES (:id, :academic_year_id, :semester_id, :year, :program_batch_id, :batch, :effective_from, :created_by, :is_active, :created_at, :updated_at)
ON CONFLICT (academic_year_id, semester_id, year, program_batch_id) DO UPDATE
SET batch = EXCLUDED.batch,
    effective_from = EXCLUDED.effective_from,
    created_by = EXCLUDED.created_by,
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at
RETURNING id`

	target := r.exec(exec)
	bound, args, err := target.BindNamed(query, timetable)
	if err != nil {
		return fmt.Errorf("bind timetable upsert: %w", err)
	}
	if err := sqlx.GetContext(ctx, target, &timetable.ID, bound, args...); err != nil {
		return fmt.Errorf("upsert timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable header.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, academic_year_id, semester_id, year, program_batch_id, batch, effective_from, created_by, is_active, created_at, updated_at
FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ActiveCommitments returns faculty, lab assistant and lab bookings held by
// active timetables of batches outside excludeBatchIDs.
func (r *TimetableRepository) ActiveCommitments(ctx context.Context, exec sqlx.ExtContext, excludeBatchIDs []string) ([]models.FacultyCommitment, error) {
	const query = `
SELECT t.program_batch_id AS batch_id, e.faculty_id, e.lab_assistant_id, e.lab_room_id, e.day, e.slot_number
FROM timetable_entries e
JOIN timetables t ON t.id = e.timetable_id
WHERE t.is_active = TRUE
  AND (e.faculty_id IS NOT NULL OR e.lab_assistant_id IS NOT NULL OR e.lab_room_id IS NOT NULL)
  AND NOT (t.program_batch_id = ANY($1))`
	if excludeBatchIDs == nil {
		excludeBatchIDs = []string{}
	}
	var commitments []models.FacultyCommitment
	if err := sqlx.SelectContext(ctx, r.exec(exec), &commitments, query, pq.Array(excludeBatchIDs)); err != nil {
		return nil, fmt.Errorf("list active commitments: %w", err)
	}
	return commitments, nil
}

// DeleteEntries removes every entry of a timetable.
func (r *TimetableRepository) DeleteEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string) error {
	const query = `DELETE FROM timetable_entries WHERE timetable_id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, timetableID); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	return nil
}

// InsertEntries stores entries one row at a time.
func (r *TimetableRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_entries (id, timetable_id, day, slot_number, course_id, faculty_id, lab_assistant_id, lab_room_id, is_lab, lab_end_slot, special_note, is_blocked, block_reason, created_at)
VALUES (:id, :timetable_id, :day, :slot_number, :course_id, :faculty_id, :lab_assistant_id, :lab_room_id, :is_lab, :lab_end_slot, :special_note, :is_blocked, :block_reason, :created_at)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry %s/%d: %w", entry.Day, entry.SlotNumber, err)
		}
	}
	return nil
}

// ListEntries returns the entries of a timetable ordered by day then period.
func (r *TimetableRepository) ListEntries(ctx context.Context, timetableID string) ([]models.TimetableEntry, error) {
	const query = `
SELECT e.id, e.timetable_id, e.day, e.slot_number, e.course_id, c.course_code, e.faculty_id, e.lab_assistant_id, e.lab_room_id,
       e.is_lab, e.lab_end_slot, e.special_note, e.is_blocked, e.block_reason, e.created_at
FROM timetable_entries e
LEFT JOIN courses c ON c.id = e.course_id
WHERE e.timetable_id = $1
ORDER BY array_position(ARRAY['MON','TUE','WED','THU','FRI']::text[], e.day::text), e.slot_number`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
