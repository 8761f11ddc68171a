package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/models"
	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

const defaultHistoryLimit = 50

// GetBalance returns the cached bank balance
// GET /api/balance
func GetBalance(ledger *services.BankLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		balance, err := ledger.Balance(r.Context(), owner)
		if err != nil {
			respondServiceError(w, log, "GetBalance", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
	}
}

type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes" validate:"max=500"`
}

// AdjustBalance applies a signed manual adjustment
// POST /api/balance/adjust
func AdjustBalance(ledger *services.BankLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req AdjustBalanceRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Amount.IsZero() {
			utils.RespondErrorCode(w, http.StatusBadRequest, services.CodeInvalidAmount, "amount must not be zero", []string{"amount"})
			return
		}
		balance, err := ledger.AdjustBalance(r.Context(), owner, req.Amount, models.BalanceEntryAdd, req.Notes)
		if err != nil {
			respondServiceError(w, log, "AdjustBalance", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
	}
}

type SetBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
	Notes   string          `json:"notes" validate:"max=500"`
}

// SetBalance overrides the balance with a counted value
// POST /api/balance/set
func SetBalance(ledger *services.BankLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req SetBalanceRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		balance, err := ledger.SetBalance(r.Context(), owner, req.Balance, req.Notes)
		if err != nil {
			respondServiceError(w, log, "SetBalance", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// BalanceHistory pages through ledger entries, newest first
// GET /api/balance/history?limit=&offset=
func BalanceHistory(ledger *services.BankLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		limit, ok := queryInt(r, "limit", defaultHistoryLimit)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		offset, ok := queryInt(r, "offset", 0)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}

		entries, err := ledger.History(r.Context(), owner, limit, offset)
		if err != nil {
			respondServiceError(w, log, "BalanceHistory", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries, "count": len(entries)})
	}
}

// ReconcileBalance replays the ledger and compares it with the cached balance
// GET /api/balance/reconcile
func ReconcileBalance(ledger *services.BankLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		rec, err := ledger.Reconcile(r.Context(), owner)
		if err != nil {
			respondServiceError(w, log, "ReconcileBalance", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, rec)
	}
}
