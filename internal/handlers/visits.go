package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

// maxVisitBodyBytes fits a base64 ID photo as large as a shift snapshot
const maxVisitBodyBytes = maxSnapshotBytes/3*4 + 64<<10

type RecordVisitRequest struct {
	Phone         string          `json:"phone"`
	Name          string          `json:"name"`
	MatchAmount   decimal.Decimal `json:"match_amount"`
	MachineNumber string          `json:"machine_number"`
	// Base64 encoded photo of the customer's ID, optional
	IDImage string `json:"id_image,omitempty"`
}

// RecordVisit registers a customer visit, enforcing the match cooldown
// POST /api/visits
func RecordVisit(visits *services.VisitLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxVisitBodyBytes)
		var req RecordVisitRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var photo []byte
		if req.IDImage != "" {
			var err error
			if photo, err = base64.StdEncoding.DecodeString(req.IDImage); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "id_image must be base64 encoded")
				return
			}
		}

		result, err := visits.RecordVisit(r.Context(), owner, services.VisitInput{
			Phone:         req.Phone,
			Name:          req.Name,
			MatchAmount:   req.MatchAmount,
			MachineNumber: req.MachineNumber,
			IDImage:       photo,
		})
		if err != nil {
			respondServiceError(w, log, "RecordVisit", err)
			return
		}
		status := http.StatusCreated
		if !result.Accepted {
			status = http.StatusOK
		}
		utils.RespondJSON(w, status, result)
	}
}

func parseRangeBound(raw string, fallback time.Time) (time.Time, bool) {
	if raw == "" {
		return fallback, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ListVisits returns visits in [from, to], newest first. Defaults to the last 24 hours.
// GET /api/visits?from=&to=
func ListVisits(visits *services.VisitLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		now := time.Now()
		to, ok := parseRangeBound(r.URL.Query().Get("to"), now)
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		from, ok := parseRangeBound(r.URL.Query().Get("from"), to.Add(-24*time.Hour))
		if !ok {
			utils.RespondError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}

		list, err := visits.ListVisits(r.Context(), owner, from, to)
		if err != nil {
			respondServiceError(w, log, "ListVisits", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"visits": list, "count": len(list)})
	}
}

// LatestVisit returns the ledger entry for a phone
// GET /api/visits/{phone}/latest
func LatestVisit(visits *services.VisitLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		visit, err := visits.LatestVisit(r.Context(), owner, chi.URLParam(r, "phone"))
		if err != nil {
			respondServiceError(w, log, "LatestVisit", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, visit)
	}
}

// ListCustomers lists customer profiles, optionally filtered by name or phone
// GET /api/customers?search=
func ListCustomers(visits *services.VisitLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		list, err := visits.ListCustomers(r.Context(), owner, r.URL.Query().Get("search"))
		if err != nil {
			respondServiceError(w, log, "ListCustomers", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"customers": list, "count": len(list)})
	}
}

// GetCustomer returns one customer profile
// GET /api/customers/{phone}
func GetCustomer(visits *services.VisitLedger, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		customer, err := visits.GetCustomer(r.Context(), owner, chi.URLParam(r, "phone"))
		if err != nil {
			respondServiceError(w, log, "GetCustomer", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, customer)
	}
}
