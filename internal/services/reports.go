package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/models"
)

// ReportService derives profit/loss reports from closed shifts and expenses.
// Nothing is cached: every call re-reads both collections.
type ReportService struct {
	repo database.Repository
	log  *logrus.Logger
	loc  *time.Location
	now  func() time.Time
}

func NewReportService(repo database.Repository, log *logrus.Logger, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{repo: repo, log: log, loc: loc, now: time.Now}
}

// BuildMonthlyReport builds the report for month (YYYY-MM). Empty means the current month.
func (s *ReportService) BuildMonthlyReport(ctx context.Context, ownerID, month string) (*models.MonthlyReport, error) {
	m := models.MonthOf(s.now(), s.loc)
	if month != "" {
		var err error
		if m, err = models.ParseMonth(month, s.loc); err != nil {
			return nil, newValidationError(CodeInvalidDate, err.Error(), "month")
		}
	}

	var (
		shifts   []models.ShiftRecord
		expenses []models.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		shifts, err = s.repo.ListShiftsEndedBetween(gctx, ownerID, m.Start(), m.End())
		if err != nil {
			return fmt.Errorf("failed to load shifts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpensesBetween(gctx, ownerID, m.FirstDay(), m.LastDay())
		if err != nil {
			return fmt.Errorf("failed to load expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := AggregateMonth(ownerID, m, shifts, expenses)
	s.log.WithFields(logrus.Fields{
		"owner_id":   ownerID,
		"month":      report.Month,
		"days":       len(report.DailyReports),
		"net_profit": report.MonthlyNetProfit.String(),
	}).Debug("Monthly report built")
	return report, nil
}

// AggregateMonth groups shifts by the calendar day of their end time and
// expenses by their date, merges the two by day and sums the month.
// Days are sorted newest first.
func AggregateMonth(ownerID string, m models.Month, shifts []models.ShiftRecord, expenses []models.Expense) *models.MonthlyReport {
	days := make(map[string]*models.DailyReport)
	day := func(key string) *models.DailyReport {
		d, ok := days[key]
		if !ok {
			d = &models.DailyReport{
				Date:               key,
				ShiftProfitLoss:    decimal.Zero,
				TotalMatchedAmount: decimal.Zero,
				TotalExpenses:      decimal.Zero,
				ExpenseNotes:       []string{},
			}
			days[key] = d
		}
		return d
	}

	for _, sh := range shifts {
		d := day(models.DayOf(sh.EndTime, m.Loc).Format(models.DayLayout))
		d.ShiftProfitLoss = d.ShiftProfitLoss.Add(sh.ProfitOrLoss)
		d.TotalMatchedAmount = d.TotalMatchedAmount.Add(sh.TotalMatchedAmount)
		d.ShiftCount++
	}

	sorted := append([]models.Expense(nil), expenses...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	for i := range sorted {
		e := &sorted[i]
		d := day(e.DayKey())
		d.TotalExpenses = d.TotalExpenses.Add(e.Amount)
		d.ExpenseNotes = append(d.ExpenseNotes, e.ReportNote())
	}

	report := &models.MonthlyReport{
		OwnerID:          ownerID,
		Month:            m.String(),
		DailyReports:     make([]models.DailyReport, 0, len(days)),
		TotalProfitLoss:  decimal.Zero,
		TotalMatched:     decimal.Zero,
		TotalExpenses:    decimal.Zero,
		MonthlyNetProfit: decimal.Zero,
	}
	for _, d := range days {
		d.NetProfit = d.ShiftProfitLoss.Sub(d.TotalMatchedAmount).Sub(d.TotalExpenses)
		report.DailyReports = append(report.DailyReports, *d)

		report.TotalProfitLoss = report.TotalProfitLoss.Add(d.ShiftProfitLoss)
		report.TotalMatched = report.TotalMatched.Add(d.TotalMatchedAmount)
		report.TotalExpenses = report.TotalExpenses.Add(d.TotalExpenses)
		report.ShiftCount += d.ShiftCount
		report.MonthlyNetProfit = report.MonthlyNetProfit.Add(d.NetProfit)
	}
	sort.Slice(report.DailyReports, func(i, j int) bool {
		return report.DailyReports[i].Date > report.DailyReports[j].Date
	})
	return report
}
