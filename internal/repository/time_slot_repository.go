package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// TimeSlotRepository reads the daily period grid.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns every slot ordered by number. Times are rendered as HH:MM.
func (r *TimeSlotRepository) List(ctx context.Context, exec sqlx.ExtContext) ([]models.TimeSlot, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT id, slot_number, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, is_break
FROM time_slots ORDER BY slot_number ASC`
	var slots []models.TimeSlot
	if err := sqlx.SelectContext(ctx, exec, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
