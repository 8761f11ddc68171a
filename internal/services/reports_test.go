package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gameroom-backend/internal/models"
)

func closeShiftAt(t *testing.T, env *testEnv, in, out string, length time.Duration) *models.ShiftRecord {
	t.Helper()
	ctx := context.Background()
	startAndFill(t, env, "Alice", map[string][2]string{"1": {in, out}})
	_, err := env.shifts.Finalize(ctx, testOwner)
	require.NoError(t, err)
	env.clock.Advance(length)
	record, err := env.shifts.Close(ctx, testOwner)
	require.NoError(t, err)
	return record
}

func TestReportService_ScenarioE(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), false)

	closeShiftAt(t, env, "100", "40", 8*time.Hour)
	_, err := env.expenses.Add(ctx, testOwner, ExpenseInput{Amount: dec("10"), Notes: "Cleaning", Date: "2024-03-12"})
	require.NoError(t, err)

	report, err := env.reports.BuildMonthlyReport(ctx, testOwner, "2024-03")
	require.NoError(t, err)

	require.Len(t, report.DailyReports, 2)
	d2, d1 := report.DailyReports[0], report.DailyReports[1]
	assert.Equal(t, "2024-03-12", d2.Date)
	assert.True(t, d2.NetProfit.Equal(dec("-10")))
	assert.Equal(t, []string{"Cleaning ($10.00)"}, d2.ExpenseNotes)
	assert.Equal(t, "2024-03-10", d1.Date)
	assert.True(t, d1.NetProfit.Equal(dec("60")))
	assert.Equal(t, 1, d1.ShiftCount)
	assert.True(t, report.MonthlyNetProfit.Equal(dec("50")))
	assert.Equal(t, 1, report.ShiftCount)
}

func TestAggregateMonth_MergesSameDay(t *testing.T) {
	m, err := models.ParseMonth("2024-03", time.UTC)
	require.NoError(t, err)
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	shifts := []models.ShiftRecord{
		{EndTime: day.Add(10 * time.Hour), ProfitOrLoss: dec("60"), TotalMatchedAmount: dec("20")},
		{EndTime: day.Add(22 * time.Hour), ProfitOrLoss: dec("-15"), TotalMatchedAmount: dec("0")},
	}
	expenses := []models.Expense{
		{Amount: dec("5"), Notes: "Second", Date: day, Timestamp: day.Add(2 * time.Hour)},
		{Amount: dec("7.5"), Date: day, Timestamp: day.Add(time.Hour)},
	}

	report := AggregateMonth(testOwner, m, shifts, expenses)

	require.Len(t, report.DailyReports, 1)
	d := report.DailyReports[0]
	assert.True(t, d.ShiftProfitLoss.Equal(dec("45")))
	assert.True(t, d.TotalMatchedAmount.Equal(dec("20")))
	assert.True(t, d.TotalExpenses.Equal(dec("12.5")))
	assert.True(t, d.NetProfit.Equal(dec("12.5")))
	assert.Equal(t, []string{"Expense ($7.50)", "Second ($5.00)"}, d.ExpenseNotes)
	assert.True(t, report.MonthlyNetProfit.Equal(dec("12.5")))
}

func TestAggregateMonth_GroupsByEndDayInLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	m, err := models.ParseMonth("2024-03", chicago)
	require.NoError(t, err)

	// 03:00 UTC on the 6th is still the evening of the 5th in Chicago
	shifts := []models.ShiftRecord{
		{EndTime: time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC), ProfitOrLoss: dec("10"), TotalMatchedAmount: dec("0")},
	}

	report := AggregateMonth(testOwner, m, shifts, nil)

	require.Len(t, report.DailyReports, 1)
	assert.Equal(t, "2024-03-05", report.DailyReports[0].Date)
}

func TestReportService_EmptyAndInvalidMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), false)

	report, err := env.reports.BuildMonthlyReport(ctx, testOwner, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", report.Month)
	assert.Empty(t, report.DailyReports)
	assert.True(t, report.MonthlyNetProfit.IsZero())

	_, err = env.reports.BuildMonthlyReport(ctx, testOwner, "2024-3-1")
	assert.True(t, IsValidationCode(err, CodeInvalidDate))
}

func TestExportMonthlyReport(t *testing.T) {
	m, err := models.ParseMonth("2024-03", time.UTC)
	require.NoError(t, err)
	report := AggregateMonth(testOwner, m,
		[]models.ShiftRecord{{EndTime: time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC), ProfitOrLoss: dec("60"), TotalMatchedAmount: dec("0")}},
		[]models.Expense{{Amount: dec("10"), Notes: "Cleaning", Date: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)}})

	buf, filename, err := ExportMonthlyReport(report)
	require.NoError(t, err)
	assert.Equal(t, "profit-loss-2024-03.xlsx", filename)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, reportHeadings, rows[0])
	assert.Equal(t, "2024-03-12", rows[1][0])
	assert.Equal(t, "Cleaning ($10.00)", rows[1][6])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "50", rows[3][4])
}
