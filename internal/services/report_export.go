package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"gameroom-backend/internal/models"
)

const reportSheet = "Report"

var reportHeadings = []string{"Date", "Shift Profit/Loss", "Matched", "Expenses", "Net Profit", "Shifts", "Expense Notes"}

// ExportMonthlyReport renders the report as an .xlsx workbook
func ExportMonthlyReport(report *models.MonthlyReport) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, "", err
	}

	for i, h := range reportHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return nil, "", err
		}
	}

	row := 2
	for _, d := range report.DailyReports {
		values := []interface{}{
			d.Date,
			d.ShiftProfitLoss.InexactFloat64(),
			d.TotalMatchedAmount.InexactFloat64(),
			d.TotalExpenses.InexactFloat64(),
			d.NetProfit.InexactFloat64(),
			d.ShiftCount,
			strings.Join(d.ExpenseNotes, "; "),
		}
		if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, "", err
		}
		row++
	}

	totals := []interface{}{
		"Total",
		report.TotalProfitLoss.InexactFloat64(),
		report.TotalMatched.InexactFloat64(),
		report.TotalExpenses.InexactFloat64(),
		report.MonthlyNetProfit.InexactFloat64(),
		report.ShiftCount,
	}
	if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &totals); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, fmt.Sprintf("profit-loss-%s.xlsx", report.Month), nil
}
