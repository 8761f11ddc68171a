package database

import (
	"context"
	"time"

	"gameroom-backend/internal/models"
)

const shiftColumns = `id, owner_id, employee_name, start_time, end_time, machines, images,
	total_in, total_out, profit_or_loss, total_matched_amount, net_impact, carry_forward, notes, created_at`

func (s *Store) GetShift(ctx context.Context, ownerID, id string) (*models.ShiftRecord, error) {
	var record models.ShiftRecord
	err := s.q.GetContext(ctx, &record,
		`SELECT `+shiftColumns+` FROM shifts WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

func (s *Store) InsertShift(ctx context.Context, r *models.ShiftRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO shifts (
			id, owner_id, employee_name, start_time, end_time, machines, images,
			total_in, total_out, profit_or_loss, total_matched_amount, net_impact, carry_forward, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.OwnerID, r.EmployeeName, r.StartTime, r.EndTime, r.Machines, r.Images,
		r.TotalIn, r.TotalOut, r.ProfitOrLoss, r.TotalMatchedAmount, r.NetImpact, r.CarryForward, r.Notes, r.CreatedAt)
	return err
}

// ListShiftsEndedBetween returns shifts with from <= end_time < to, newest first
func (s *Store) ListShiftsEndedBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.ShiftRecord, error) {
	records := []models.ShiftRecord{}
	err := s.q.SelectContext(ctx, &records, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE owner_id = $1 AND end_time >= $2 AND end_time < $3
		ORDER BY end_time DESC`, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return records, nil
}
