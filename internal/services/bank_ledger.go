package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/models"
)

// BankLedger owns the cached bank balance and its append-only history.
// Nothing else writes the cached balance, and every write appends an entry.
type BankLedger struct {
	repo     database.Repository
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewBankLedger(repo database.Repository, notifier Notifier, log *logrus.Logger) *BankLedger {
	return &BankLedger{
		repo:     repo,
		notifier: notifierOrNop(notifier),
		log:      log,
		now:      time.Now,
	}
}

// ApplyTx moves the balance by delta inside the caller's transaction and
// appends the matching history entry. tx must come from Repository.InTx.
func (l *BankLedger) ApplyTx(ctx context.Context, tx database.Repository, ownerID string, delta decimal.Decimal, entryType models.BalanceEntryType, notes string, referenceID *string) (*models.BalanceEntry, error) {
	cached, err := tx.LockCachedBalance(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached balance: %w", err)
	}
	return l.append(ctx, tx, ownerID, cached, delta, entryType, notes, referenceID)
}

func (l *BankLedger) append(ctx context.Context, tx database.Repository, ownerID string, cached, delta decimal.Decimal, entryType models.BalanceEntryType, notes string, referenceID *string) (*models.BalanceEntry, error) {
	// Stored at cent scale: new_balance must still equal previous + amount after storage
	delta = delta.Round(models.MoneyPlaces)
	newBalance := cached.Add(delta)
	if err := tx.SetCachedBalance(ctx, ownerID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update cached balance: %w", err)
	}

	entry := &models.BalanceEntry{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Timestamp:   l.now().UTC(),
		Amount:      delta,
		NewBalance:  newBalance,
		Type:        entryType,
		Notes:       notes,
		ReferenceID: referenceID,
	}
	if err := tx.AppendBalanceEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append balance history: %w", err)
	}
	return entry, nil
}

// AdjustBalance applies a signed delta and returns the new balance
func (l *BankLedger) AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal, entryType models.BalanceEntryType, notes string) (decimal.Decimal, error) {
	if !entryType.IsValid() {
		return decimal.Zero, newValidationError(CodeInvalidRequest, fmt.Sprintf("unknown balance entry type %q", entryType))
	}
	if err := validateCents(delta, "amount"); err != nil {
		return decimal.Zero, err
	}

	var entry *models.BalanceEntry
	err := l.repo.InTx(ctx, func(tx database.Repository) error {
		var err error
		entry, err = l.ApplyTx(ctx, tx, ownerID, delta, entryType, notes, nil)
		return err
	})
	if err != nil {
		logger.LogError(l.log, "BankLedger", "AdjustBalance", "Error adjusting balance", logrus.Fields{"owner_id": ownerID, "delta": delta.String()}, err)
		return decimal.Zero, err
	}

	l.log.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"amount":      delta.String(),
		"new_balance": entry.NewBalance.String(),
		"type":        entryType,
	}).Info("💰 Bank balance adjusted")
	l.NotifyBalance(ownerID, entry)
	return entry.NewBalance, nil
}

// SetBalance sets the balance to an absolute value. The entry records the
// difference so the history still sums to the cached value.
func (l *BankLedger) SetBalance(ctx context.Context, ownerID string, target decimal.Decimal, notes string) (decimal.Decimal, error) {
	if err := validateCents(target, "amount"); err != nil {
		return decimal.Zero, err
	}
	var entry *models.BalanceEntry
	err := l.repo.InTx(ctx, func(tx database.Repository) error {
		cached, err := tx.LockCachedBalance(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to read cached balance: %w", err)
		}
		entry, err = l.append(ctx, tx, ownerID, cached, target.Sub(cached), models.BalanceEntrySet, notes, nil)
		return err
	})
	if err != nil {
		logger.LogError(l.log, "BankLedger", "SetBalance", "Error setting balance", logrus.Fields{"owner_id": ownerID, "target": target.String()}, err)
		return decimal.Zero, err
	}

	l.log.WithFields(logrus.Fields{
		"owner_id":    ownerID,
		"amount":      entry.Amount.String(),
		"new_balance": entry.NewBalance.String(),
	}).Info("💰 Bank balance set")
	l.NotifyBalance(ownerID, entry)
	return entry.NewBalance, nil
}

// Balance returns the cached current balance
func (l *BankLedger) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	return l.repo.GetCachedBalance(ctx, ownerID)
}

// History returns entries newest first. A limit of 0 returns all of them.
func (l *BankLedger) History(ctx context.Context, ownerID string, limit, offset int) ([]models.BalanceEntry, error) {
	if limit < 0 || offset < 0 {
		return nil, newValidationError(CodeInvalidRequest, "limit and offset must not be negative")
	}
	return l.repo.ListBalanceEntries(ctx, ownerID, limit, offset)
}

// Reconcile replays the full history from zero and compares it with the
// cached balance. Divergence is reported, never repaired.
func (l *BankLedger) Reconcile(ctx context.Context, ownerID string) (*models.Reconciliation, error) {
	var (
		cached  decimal.Decimal
		entries []models.BalanceEntry
	)
	err := l.repo.InTx(ctx, func(tx database.Repository) error {
		var err error
		if cached, err = tx.GetCachedBalance(ctx, ownerID); err != nil {
			return err
		}
		entries, err = tx.ListAllBalanceEntriesAscending(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load balance history: %w", err)
	}

	replayed, divergent := models.ReplayBalance(entries)
	result := &models.Reconciliation{
		OwnerID:         ownerID,
		CachedBalance:   cached,
		ReplayedBalance: replayed,
		EntryCount:      len(entries),
		Consistent:      divergent == nil && replayed.Equal(cached),
	}
	if divergent != nil {
		id := divergent.ID
		result.FirstDivergentID = &id
	}

	if !result.Consistent {
		l.log.WithFields(logrus.Fields{
			"owner_id": ownerID,
			"cached":   cached.String(),
			"replayed": replayed.String(),
			"entries":  len(entries),
		}).Warn("⚠️  Bank balance does not match its history")
	}
	return result, nil
}

// NotifyBalance pushes balance_updated for a committed entry
func (l *BankLedger) NotifyBalance(ownerID string, entry *models.BalanceEntry) {
	if entry == nil {
		return
	}
	l.notifier.Notify(ownerID, EventBalanceUpdated, map[string]interface{}{
		"balance": entry.NewBalance,
		"entry":   entry,
	})
}
