package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

// ListExpenses returns expenses dated in month (YYYY-MM), default current month
// GET /api/expenses?month=
func ListExpenses(expenses *services.ExpenseService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		list, err := expenses.List(r.Context(), owner, r.URL.Query().Get("month"))
		if err != nil {
			respondServiceError(w, log, "ListExpenses", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"expenses": list, "count": len(list)})
	}
}

type CreateExpenseRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes" validate:"max=500"`
	Date   string          `json:"date"`
}

// CreateExpense records an expense and debits the balance
// POST /api/expenses
func CreateExpense(expenses *services.ExpenseService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req CreateExpenseRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		expense, err := expenses.Add(r.Context(), owner, services.ExpenseInput{Amount: req.Amount, Notes: req.Notes, Date: req.Date})
		if err != nil {
			respondServiceError(w, log, "CreateExpense", err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, expense)
	}
}

type UpdateExpenseRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Notes  *string          `json:"notes" validate:"omitempty,max=500"`
	Date   *string          `json:"date"`
}

// UpdateExpense edits the supplied fields of an expense
// PATCH /api/expenses/{id}
func UpdateExpense(expenses *services.ExpenseService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req UpdateExpenseRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Amount == nil && req.Notes == nil && req.Date == nil {
			utils.RespondError(w, http.StatusBadRequest, "Nothing to update")
			return
		}
		expense, err := expenses.Edit(r.Context(), owner, chi.URLParam(r, "id"), services.ExpenseUpdate{
			Amount: req.Amount,
			Notes:  req.Notes,
			Date:   req.Date,
		})
		if err != nil {
			respondServiceError(w, log, "UpdateExpense", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, expense)
	}
}

// DeleteExpense removes an expense and credits its amount back
// DELETE /api/expenses/{id}
func DeleteExpense(expenses *services.ExpenseService, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		if err := expenses.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
			respondServiceError(w, log, "DeleteExpense", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
