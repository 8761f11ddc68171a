package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceEntryType classifies a bank balance history entry
type BalanceEntryType string

const (
	BalanceEntrySet           BalanceEntryType = "set"           // Manual set to an absolute value
	BalanceEntryAdd           BalanceEntryType = "add"           // Manual delta or shift close impact
	BalanceEntryExpense       BalanceEntryType = "expense"       // Expense added
	BalanceEntryExpenseEdit   BalanceEntryType = "expenseEdit"   // Expense amount changed
	BalanceEntryDeleteExpense BalanceEntryType = "deleteExpense" // Expense removed
)

// IsValid checks the type against the known set
func (t BalanceEntryType) IsValid() bool {
	switch t {
	case BalanceEntrySet, BalanceEntryAdd, BalanceEntryExpense, BalanceEntryExpenseEdit, BalanceEntryDeleteExpense:
		return true
	}
	return false
}

// BalanceEntry is an append-only bank balance history row
type BalanceEntry struct {
	ID          string           `json:"id" db:"id"`
	OwnerID     string           `json:"owner_id" db:"owner_id"`
	Timestamp   time.Time        `json:"timestamp" db:"created_at"`
	Amount      decimal.Decimal  `json:"amount" db:"amount"`
	NewBalance  decimal.Decimal  `json:"new_balance" db:"new_balance"`
	Type        BalanceEntryType `json:"type" db:"entry_type"`
	Notes       string           `json:"notes" db:"notes"`
	ReferenceID *string          `json:"reference_id,omitempty" db:"reference_id"`
}

// Reconciliation compares the cached balance with a replay of the history
type Reconciliation struct {
	OwnerID          string          `json:"owner_id"`
	CachedBalance    decimal.Decimal `json:"cached_balance"`
	ReplayedBalance  decimal.Decimal `json:"replayed_balance"`
	EntryCount       int             `json:"entry_count"`
	FirstDivergentID *string         `json:"first_divergent_id,omitempty"`
	Consistent       bool            `json:"consistent"`
}

// ReplayBalance walks entries in ascending order starting from zero.
// It returns the running sum and the first entry whose NewBalance disagrees with it.
func ReplayBalance(ascending []BalanceEntry) (decimal.Decimal, *BalanceEntry) {
	running := decimal.Zero
	var divergent *BalanceEntry
	for i := range ascending {
		running = running.Add(ascending[i].Amount)
		if divergent == nil && !running.Equal(ascending[i].NewBalance) {
			divergent = &ascending[i]
		}
	}
	return running, divergent
}
