package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/erp-timetable-api/internal/models"
)

// ReservationRepository reads fixed slot reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListByConfigBatch returns the reservations of one batch within a config.
func (r *ReservationRepository) ListByConfigBatch(ctx context.Context, exec sqlx.ExtContext, configID, batchID string) ([]models.FixedSlotReservation, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `
SELECT rs.id, rs.config_id, rs.batch_id, rs.day, rs.slot_number, rs.course_id, c.course_code, rs.faculty_id,
       rs.special_note, rs.is_blocked, rs.block_reason
FROM fixed_slot_reservations rs
LEFT JOIN courses c ON c.id = rs.course_id
WHERE rs.config_id = $1 AND rs.batch_id = $2
ORDER BY rs.day, rs.slot_number`
	var reservations []models.FixedSlotReservation
	if err := sqlx.SelectContext(ctx, exec, &reservations, query, configID, batchID); err != nil {
		return nil, fmt.Errorf("list fixed slot reservations: %w", err)
	}
	return reservations, nil
}
