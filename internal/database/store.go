package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"gameroom-backend/internal/models"
)

// ErrNotFound is returned when a keyed lookup matches no row
var ErrNotFound = errors.New("not found")

// Repository is every durable read and write the services need.
// All collections are scoped by owner id.
type Repository interface {
	// InTx runs fn against a transactional view. Nested calls reuse the outer transaction.
	InTx(ctx context.Context, fn func(Repository) error) error

	GetOwner(ctx context.Context, id string) (*models.Owner, error)
	GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	CreateOwner(ctx context.Context, owner *models.Owner) error
	EnsureOwner(ctx context.Context, id, email string) error
	UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error
	UpdateReportingPassword(ctx context.Context, id string, hash *string) error
	ListOwnerIDs(ctx context.Context) ([]string, error)

	GetCustomer(ctx context.Context, ownerID, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) (bool, error)
	ListCustomers(ctx context.Context, ownerID, search string) ([]models.Customer, error)
	ListCustomerPhones(ctx context.Context, ownerID string) ([]string, error)

	GetLatestVisit(ctx context.Context, ownerID, phone string) (*models.Visit, error)
	InsertVisit(ctx context.Context, visit *models.Visit) error
	ListVisitsBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Visit, error)
	SumMatchedBetween(ctx context.Context, ownerID string, from, to time.Time) (decimal.Decimal, error)

	GetShift(ctx context.Context, ownerID, id string) (*models.ShiftRecord, error)
	InsertShift(ctx context.Context, record *models.ShiftRecord) error
	ListShiftsEndedBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.ShiftRecord, error)

	GetExpense(ctx context.Context, ownerID, id string) (*models.Expense, error)
	InsertExpense(ctx context.Context, expense *models.Expense) error
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, ownerID, id string) error
	ListExpensesBetween(ctx context.Context, ownerID string, firstDay, lastDay time.Time) ([]models.Expense, error)

	GetCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error)
	LockCachedBalance(ctx context.Context, ownerID string) (decimal.Decimal, error)
	SetCachedBalance(ctx context.Context, ownerID string, balance decimal.Decimal) error
	AppendBalanceEntry(ctx context.Context, entry *models.BalanceEntry) error
	ListBalanceEntries(ctx context.Context, ownerID string, limit, offset int) ([]models.BalanceEntry, error)
	ListAllBalanceEntriesAscending(ctx context.Context, ownerID string) ([]models.BalanceEntry, error)
}

type dbtx interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Store is the Postgres-backed Repository
type Store struct {
	db   *sqlx.DB
	q    dbtx
	inTx bool
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
