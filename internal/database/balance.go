package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"gameroom-backend/internal/models"
)

const balanceEntryColumns = `id, owner_id, created_at, amount, new_balance, entry_type, notes, reference_id`

// GetCachedBalance reads the cached balance without locking. No row means zero.
func (s *Store) GetCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.q.GetContext(ctx, &balance, `SELECT balance FROM owner_balances WHERE owner_id = $1`, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// LockCachedBalance creates the cache row if missing and locks it for the
// rest of the transaction.
func (s *Store) LockCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO owner_balances (owner_id, balance) VALUES ($1, 0)
		ON CONFLICT (owner_id) DO NOTHING`, ownerID); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.q.GetContext(ctx, &balance,
		`SELECT balance FROM owner_balances WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *Store) SetCachedBalance(ctx context.Context, ownerID string, balance decimal.Decimal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO owner_balances (owner_id, balance, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`,
		ownerID, balance)
	return err
}

func (s *Store) AppendBalanceEntry(ctx context.Context, e *models.BalanceEntry) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bank_balance_history (id, owner_id, created_at, amount, new_balance, entry_type, notes, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OwnerID, e.Timestamp, e.Amount, e.NewBalance, e.Type, e.Notes, e.ReferenceID)
	return err
}

// ListBalanceEntries pages the history newest first by seq. A limit of 0 returns everything.
func (s *Store) ListBalanceEntries(ctx context.Context, ownerID string, limit, offset int) ([]models.BalanceEntry, error) {
	entries := []models.BalanceEntry{}
	query := `SELECT ` + balanceEntryColumns + ` FROM bank_balance_history
		WHERE owner_id = $1
		ORDER BY seq DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	if err := s.q.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAllBalanceEntriesAscending returns the history in append order. seq is
// assigned under the balance row lock, so wall clock timestamps never reorder it.
func (s *Store) ListAllBalanceEntriesAscending(ctx context.Context, ownerID string) ([]models.BalanceEntry, error) {
	entries := []models.BalanceEntry{}
	err := s.q.SelectContext(ctx, &entries, `
		SELECT `+balanceEntryColumns+` FROM bank_balance_history
		WHERE owner_id = $1
		ORDER BY seq ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
