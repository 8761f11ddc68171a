package database

import (
	"context"
	"time"

	"gameroom-backend/internal/models"
)

const expenseColumns = `id, owner_id, amount, notes, expense_date, created_at`

func (s *Store) GetExpense(ctx context.Context, ownerID, id string) (*models.Expense, error) {
	var e models.Expense
	err := s.q.GetContext(ctx, &e,
		`SELECT `+expenseColumns+` FROM daily_expenses WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *Store) InsertExpense(ctx context.Context, e *models.Expense) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO daily_expenses (id, owner_id, amount, notes, expense_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.OwnerID, e.Amount, e.Notes, e.Date, e.Timestamp)
	return err
}

func (s *Store) UpdateExpense(ctx context.Context, e *models.Expense) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE daily_expenses SET amount = $1, notes = $2, expense_date = $3
		WHERE owner_id = $4 AND id = $5`,
		e.Amount, e.Notes, e.Date, e.OwnerID, e.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteExpense(ctx context.Context, ownerID, id string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM daily_expenses WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ListExpensesBetween returns expenses dated within [firstDay, lastDay], newest day first
func (s *Store) ListExpensesBetween(ctx context.Context, ownerID string, firstDay, lastDay time.Time) ([]models.Expense, error) {
	expenses := []models.Expense{}
	err := s.q.SelectContext(ctx, &expenses, `
		SELECT `+expenseColumns+` FROM daily_expenses
		WHERE owner_id = $1 AND expense_date BETWEEN $2 AND $3
		ORDER BY expense_date DESC, created_at DESC`,
		ownerID, firstDay.Format(models.DayLayout), lastDay.Format(models.DayLayout))
	if err != nil {
		return nil, err
	}
	return expenses, nil
}
