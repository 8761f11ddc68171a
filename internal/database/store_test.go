package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameroom-backend/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestStore_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO daily_expenses")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.InTx(ctx, func(repo Repository) error {
			return repo.InsertExpense(ctx, &models.Expense{
				ID:      "exp-1",
				OwnerID: "owner-1",
				Amount:  decimal.NewFromInt(30),
				Date:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			})
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.InTx(ctx, func(repo Repository) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls reuse the outer transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := store.InTx(ctx, func(outer Repository) error {
			return outer.InTx(ctx, func(inner Repository) error { return nil })
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_GetLatestVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest visit", func(t *testing.T) {
		store, mock := newMockStore(t)
		visitedAt := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "owner_id", "phone", "name", "id_image_url", "match_amount", "machine_number", "visited_at", "last_used"}).
			AddRow("v-1", "owner-1", "5551234567", "Jane Doe", "", "20.00", "7", visitedAt, visitedAt)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY visited_at DESC")).
			WithArgs("owner-1", "5551234567").
			WillReturnRows(rows)

		v, err := store.GetLatestVisit(ctx, "owner-1", "5551234567")

		require.NoError(t, err)
		assert.Equal(t, "v-1", v.ID)
		assert.True(t, v.MatchAmount.Equal(decimal.NewFromInt(20)))
		assert.Equal(t, visitedAt, v.Timestamp)
	})

	t.Run("maps no rows to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM visits")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.GetLatestVisit(ctx, "owner-1", "5551234567")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_SumMatchedBetween(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	to := from.Add(8 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(match_amount), 0)")).
		WithArgs("owner-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("35.50"))

	total, err := store.SumMatchedBetween(context.Background(), "owner-1", from, to)

	require.NoError(t, err)
	assert.Equal(t, "35.5", total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateCustomer(t *testing.T) {
	ctx := context.Background()
	customer := &models.Customer{OwnerID: "owner-1", Phone: "5551234567", Name: "Jane"}

	t.Run("reports created", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (owner_id, phone) DO NOTHING")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := store.CreateCustomer(ctx, customer)

		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("existing profile is left alone", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customers")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := store.CreateCustomer(ctx, customer)

		require.NoError(t, err)
		assert.False(t, created)
	})
}

func TestStore_CachedBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row reads as zero", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT balance FROM owner_balances")).
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		balance, err := store.GetCachedBalance(ctx, "owner-1")

		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("lock creates then selects for update", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO owner_balances")).
			WithArgs("owner-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("125.50"))

		balance, err := store.LockCachedBalance(ctx, "owner-1")

		require.NoError(t, err)
		assert.Equal(t, "125.5", balance.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListBalanceEntries(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "owner_id", "created_at", "amount", "new_balance", "entry_type", "notes", "reference_id"}
	ts := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	t.Run("pages newest first", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq DESC LIMIT $2 OFFSET $3")).
			WithArgs("owner-1", 10, 20).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("e-2", "owner-1", ts, "-30", "70", "expense", "Supplies", "exp-1").
				AddRow("e-1", "owner-1", ts, "100", "100", "set", "Opening", nil))

		entries, err := store.ListBalanceEntries(ctx, "owner-1", 10, 20)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.BalanceEntryExpense, entries[0].Type)
		require.NotNil(t, entries[0].ReferenceID)
		assert.Equal(t, "exp-1", *entries[0].ReferenceID)
		assert.Nil(t, entries[1].ReferenceID)
	})

	t.Run("zero limit returns everything", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq DESC")).
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows(columns))

		entries, err := store.ListBalanceEntries(ctx, "owner-1", 0, 0)

		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replay follows seq even when clocks disagree", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seq ASC")).
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("e-1", "owner-1", ts, "100", "100", "set", "Opening", nil).
				AddRow("e-2", "owner-1", ts.Add(-time.Minute), "-30", "70", "expense", "Supplies", "exp-1"))

		entries, err := store.ListAllBalanceEntriesAscending(ctx, "owner-1")

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "e-1", entries[0].ID)
		assert.Equal(t, "e-2", entries[1].ID)
		_, divergent := models.ReplayBalance(entries)
		assert.Nil(t, divergent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_DeleteExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row is ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_expenses")).
			WithArgs("owner-1", "exp-404").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.DeleteExpense(ctx, "owner-1", "exp-404")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deletes scoped to owner", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_expenses WHERE owner_id = $1 AND id = $2")).
			WithArgs("owner-1", "exp-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.DeleteExpense(ctx, "owner-1", "exp-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_InsertShift(t *testing.T) {
	store, mock := newMockStore(t)
	record := &models.ShiftRecord{
		ID:           "alice_1709647200000",
		OwnerID:      "owner-1",
		EmployeeName: "Alice",
		Machines:     models.MachineSnapshot{"3": {In: decimal.NewFromInt(100), Out: decimal.NewFromInt(40)}},
		TotalIn:      decimal.NewFromInt(100),
		TotalOut:     decimal.NewFromInt(40),
		ProfitOrLoss: decimal.NewFromInt(60),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shifts")).
		WithArgs("alice_1709647200000", "owner-1", "Alice", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), "100", "40", "60", "0", "0", "0", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.InsertShift(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}
