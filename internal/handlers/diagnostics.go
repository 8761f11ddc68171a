package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"gameroom-backend/pkg/utils"
)

// DiagnosticLog represents a diagnostic log from the mobile app
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message" validate:"required,max=4000"`
	Data      map[string]interface{} `json:"data"`
	Platform  string                 `json:"platform"`
}

// ReceiveDiagnosticLog forwards a mobile log line into the server log
// POST /api/logs/diagnostic
func ReceiveDiagnosticLog(log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := utils.DecodeJSON(r, &entry); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		fields := logrus.Fields{
			"source":      "mobile",
			"platform":    entry.Platform,
			"context":     entry.Context,
			"client_time": entry.Timestamp,
		}
		for k, v := range entry.Data {
			fields["data."+k] = v
		}
		l := log.WithFields(fields)

		switch strings.ToUpper(entry.Level) {
		case "ERROR":
			l.Error("🔴 " + entry.Message)
		case "WARNING", "WARN":
			l.Warn("🟡 " + entry.Message)
		case "DEBUG":
			l.Debug("📱 " + entry.Message)
		default:
			l.Info("🔵 " + entry.Message)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "received"})
	}
}

// Health is the unauthenticated liveness probe
// GET /health
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
