package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DayLayout is the calendar-day key format used by expenses and reports
const DayLayout = "2006-01-02"

// Expense is a daily expense that debits the bank balance
type Expense struct {
	ID        string          `json:"id" db:"id"`
	OwnerID   string          `json:"owner_id" db:"owner_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Notes     string          `json:"notes" db:"notes"`
	Date      time.Time       `json:"date" db:"expense_date"`
	Timestamp time.Time       `json:"timestamp" db:"created_at"`
}

// DayKey returns the expense's calendar day as YYYY-MM-DD
func (e *Expense) DayKey() string {
	return e.Date.Format(DayLayout)
}

// ReportNote is the human-readable line shown under a day in the profit/loss report
func (e *Expense) ReportNote() string {
	if e.Notes == "" {
		return fmt.Sprintf("Expense ($%s)", e.Amount.StringFixed(2))
	}
	return fmt.Sprintf("%s ($%s)", e.Notes, e.Amount.StringFixed(2))
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight date
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, s)
}

// DayOf truncates t to its calendar day in loc, returned as a UTC midnight date
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
