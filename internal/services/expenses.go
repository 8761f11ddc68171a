package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/models"
)

type ExpenseInput struct {
	Amount decimal.Decimal
	Notes  string
	Date   string // YYYY-MM-DD, empty means today
}

// ExpenseUpdate carries only the fields being changed
type ExpenseUpdate struct {
	Amount *decimal.Decimal
	Notes  *string
	Date   *string
}

// ExpenseService keeps daily expenses and the bank ledger in step. Every
// mutation writes the expense row and its ledger entry in one transaction.
type ExpenseService struct {
	repo     database.Repository
	ledger   *BankLedger
	guard    SubmitGuard
	notifier Notifier
	log      *logrus.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewExpenseService(repo database.Repository, ledger *BankLedger, guard SubmitGuard, notifier Notifier, log *logrus.Logger, loc *time.Location) *ExpenseService {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{
		repo:     repo,
		ledger:   ledger,
		guard:    guard,
		notifier: notifierOrNop(notifier),
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *ExpenseService) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return models.DayOf(s.now(), s.loc), nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return time.Time{}, newValidationError(CodeInvalidDate, "date must be YYYY-MM-DD", "date")
	}
	return d, nil
}

func validateExpenseAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return newValidationError(CodeInvalidAmount, "expense amount must be greater than zero", "amount")
	}
	return validateCents(amount, "amount")
}

func expenseNote(prefix, notes string) string {
	if notes == "" {
		return prefix
	}
	return prefix + ": " + notes
}

// Add records an expense and debits the bank balance by its amount
func (s *ExpenseService) Add(ctx context.Context, ownerID string, in ExpenseInput) (*models.Expense, error) {
	if err := validateExpenseAmount(in.Amount); err != nil {
		return nil, err
	}
	date, err := s.parseDate(in.Date)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, expenseGuardKey(ownerID))
	if err != nil {
		return nil, err
	}
	defer release()

	expense := &models.Expense{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Amount:    in.Amount,
		Notes:     in.Notes,
		Date:      date,
		Timestamp: s.now().UTC(),
	}

	var entry *models.BalanceEntry
	err = s.repo.InTx(ctx, func(tx database.Repository) error {
		if err := tx.InsertExpense(ctx, expense); err != nil {
			return fmt.Errorf("failed to save expense: %w", err)
		}
		var err error
		entry, err = s.ledger.ApplyTx(ctx, tx, ownerID, expense.Amount.Neg(), models.BalanceEntryExpense, expenseNote("Expense", expense.Notes), &expense.ID)
		return err
	})
	if err != nil {
		logger.LogError(s.log, "ExpenseService", "Add", "Error adding expense", logrus.Fields{"owner_id": ownerID, "amount": in.Amount.String()}, err)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"owner_id": ownerID, "expense_id": expense.ID, "amount": expense.Amount.String()}).Info("🧾 Expense added")
	s.afterChange(ownerID, "added", expense, entry)
	return expense, nil
}

// Edit changes an expense. The balance moves by old-new and the single
// expenseEdit entry carries that same delta.
func (s *ExpenseService) Edit(ctx context.Context, ownerID, id string, upd ExpenseUpdate) (*models.Expense, error) {
	if upd.Amount != nil {
		if err := validateExpenseAmount(*upd.Amount); err != nil {
			return nil, err
		}
	}
	var newDate *time.Time
	if upd.Date != nil {
		// Empty only means today on Add; an edit must name the day
		if strings.TrimSpace(*upd.Date) == "" {
			return nil, newValidationError(CodeInvalidDate, "date must be YYYY-MM-DD", "date")
		}
		d, err := s.parseDate(*upd.Date)
		if err != nil {
			return nil, err
		}
		newDate = &d
	}

	release, err := s.guard.Acquire(ctx, expenseGuardKey(ownerID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		updated *models.Expense
		entry   *models.BalanceEntry
	)
	err = s.repo.InTx(ctx, func(tx database.Repository) error {
		current, err := tx.GetExpense(ctx, ownerID, id)
		if errors.Is(err, database.ErrNotFound) {
			return ErrExpenseNotFound
		}
		if err != nil {
			return err
		}

		next := *current
		if upd.Amount != nil {
			next.Amount = *upd.Amount
		}
		if upd.Notes != nil {
			next.Notes = *upd.Notes
		}
		if newDate != nil {
			next.Date = *newDate
		}

		if err := tx.UpdateExpense(ctx, &next); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}

		delta := current.Amount.Sub(next.Amount)
		notes := fmt.Sprintf("%s (%s -> %s)", expenseNote("Expense edited", next.Notes), current.Amount.StringFixed(2), next.Amount.StringFixed(2))
		entry, err = s.ledger.ApplyTx(ctx, tx, ownerID, delta, models.BalanceEntryExpenseEdit, notes, &next.ID)
		if err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrExpenseNotFound) {
			logger.LogError(s.log, "ExpenseService", "Edit", "Error editing expense", logrus.Fields{"owner_id": ownerID, "expense_id": id}, err)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"owner_id": ownerID, "expense_id": id, "amount": entry.Amount.String()}).Info("🧾 Expense edited")
	s.afterChange(ownerID, "edited", updated, entry)
	return updated, nil
}

// Delete removes an expense and credits its amount back
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	release, err := s.guard.Acquire(ctx, expenseGuardKey(ownerID))
	if err != nil {
		return err
	}
	defer release()

	var (
		removed *models.Expense
		entry   *models.BalanceEntry
	)
	err = s.repo.InTx(ctx, func(tx database.Repository) error {
		current, err := tx.GetExpense(ctx, ownerID, id)
		if errors.Is(err, database.ErrNotFound) {
			return ErrExpenseNotFound
		}
		if err != nil {
			return err
		}

		entry, err = s.ledger.ApplyTx(ctx, tx, ownerID, current.Amount, models.BalanceEntryDeleteExpense, expenseNote("Expense deleted", current.Notes), &current.ID)
		if err != nil {
			return err
		}
		if err := tx.DeleteExpense(ctx, ownerID, id); err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		removed = current
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrExpenseNotFound) {
			logger.LogError(s.log, "ExpenseService", "Delete", "Error deleting expense", logrus.Fields{"owner_id": ownerID, "expense_id": id}, err)
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"owner_id": ownerID, "expense_id": id}).Info("🧾 Expense deleted")
	s.afterChange(ownerID, "deleted", removed, entry)
	return nil
}

// List returns the expenses dated in month (YYYY-MM), newest first
func (s *ExpenseService) List(ctx context.Context, ownerID, month string) ([]models.Expense, error) {
	m := models.MonthOf(s.now(), s.loc)
	if month != "" {
		var err error
		if m, err = models.ParseMonth(month, s.loc); err != nil {
			return nil, newValidationError(CodeInvalidDate, err.Error(), "month")
		}
	}
	return s.repo.ListExpensesBetween(ctx, ownerID, m.FirstDay(), m.LastDay())
}

func (s *ExpenseService) afterChange(ownerID, action string, expense *models.Expense, entry *models.BalanceEntry) {
	s.notifier.Notify(ownerID, EventExpenseChanged, map[string]interface{}{
		"action":  action,
		"expense": expense,
	})
	s.ledger.NotifyBalance(ownerID, entry)
}
