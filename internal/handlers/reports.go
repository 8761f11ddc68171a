package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

// MonthlyReport returns the profit/loss summary for month (YYYY-MM)
// GET /api/reports/monthly?month=
func MonthlyReport(reports *services.ReportService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		report, err := reports.BuildMonthlyReport(r.Context(), owner, r.URL.Query().Get("month"))
		if err != nil {
			respondServiceError(w, log, "MonthlyReport", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, report)
	}
}

// ExportMonthlyReport downloads the monthly report as .xlsx
// GET /api/reports/monthly/export?month=
func ExportMonthlyReport(reports *services.ReportService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		report, err := reports.BuildMonthlyReport(r.Context(), owner, r.URL.Query().Get("month"))
		if err != nil {
			respondServiceError(w, log, "ExportMonthlyReport", err)
			return
		}

		buf, filename, err := services.ExportMonthlyReport(report)
		if err != nil {
			respondServiceError(w, log, "ExportMonthlyReport", err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			log.WithError(err).Warn("Failed to stream report export")
		}
	}
}
