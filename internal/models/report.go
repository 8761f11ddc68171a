package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout is the YYYY-MM format used by report and listing queries
const MonthLayout = "2006-01"

// DailyReport is one derived row of the profit/loss screen
type DailyReport struct {
	Date               string          `json:"date"`
	ShiftProfitLoss    decimal.Decimal `json:"shift_profit_loss"`
	TotalMatchedAmount decimal.Decimal `json:"total_matched_amount"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	ExpenseNotes       []string        `json:"expense_notes"`
	ShiftCount         int             `json:"shift_count"`
	NetProfit          decimal.Decimal `json:"net_profit"`
}

// MonthlyReport is the derived profit/loss summary for one calendar month
type MonthlyReport struct {
	OwnerID          string          `json:"owner_id"`
	Month            string          `json:"month"`
	DailyReports     []DailyReport   `json:"daily_reports"`
	TotalProfitLoss  decimal.Decimal `json:"total_profit_loss"`
	TotalMatched     decimal.Decimal `json:"total_matched"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	ShiftCount       int             `json:"shift_count"`
	MonthlyNetProfit decimal.Decimal `json:"monthly_net_profit"`
}

// Month is a calendar month anchored in a location
type Month struct {
	Year  int
	Month time.Month
	Loc   *time.Location
}

// ParseMonth parses YYYY-MM in loc
func ParseMonth(s string, loc *time.Location) (Month, error) {
	t, err := time.ParseInLocation(MonthLayout, s, loc)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return Month{Year: t.Year(), Month: t.Month(), Loc: loc}, nil
}

// MonthOf returns the month containing t in loc
func MonthOf(t time.Time, loc *time.Location) Month {
	y, m, _ := t.In(loc).Date()
	return Month{Year: y, Month: m, Loc: loc}
}

// Start is the first instant of the month
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, m.Loc)
}

// End is the first instant of the following month (exclusive bound)
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// FirstDay and LastDay are the month's calendar days as UTC midnight dates
func (m Month) FirstDay() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) LastDay() time.Time {
	return m.FirstDay().AddDate(0, 1, -1)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
