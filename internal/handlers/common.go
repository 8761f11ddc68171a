package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/middleware"
	"gameroom-backend/internal/models"
	"gameroom-backend/internal/services"
	"gameroom-backend/pkg/utils"
)

// OwnerStore is the slice of the repository the account handlers use
type OwnerStore interface {
	GetOwner(ctx context.Context, id string) (*models.Owner, error)
	GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error)
	CreateOwner(ctx context.Context, owner *models.Owner) error
	UpdateOwnerPassword(ctx context.Context, id, passwordHash string) error
	UpdateReportingPassword(ctx context.Context, id string, hash *string) error
}

// ownerID returns the authenticated owner id, or writes 401 and returns false
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok || claims.UserID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return claims.UserID, true
}

// respondServiceError maps service failures onto HTTP statuses
func respondServiceError(w http.ResponseWriter, log *logrus.Logger, op string, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		utils.RespondErrorCode(w, http.StatusBadRequest, ve.Code, ve.Message, ve.Fields)
	case errors.Is(err, services.ErrUnauthenticated):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrSMSDisabled):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrExpenseNotFound),
		errors.Is(err, services.ErrShiftNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrVisitNotFound),
		errors.Is(err, services.ErrOwnerNotFound),
		errors.Is(err, services.ErrNoActiveShift):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrShiftAlreadyStarted),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSubmissionInProgress):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		log.WithError(err).WithField("op", op).Error("❌ Request failed")
		utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
