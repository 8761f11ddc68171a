package middleware

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"gameroom-backend/internal/models"
	"gameroom-backend/pkg/utils"
)

const ReportingPasswordHeader = "X-Reporting-Password"

// OwnerGetter loads an owner by id
type OwnerGetter interface {
	GetOwner(ctx context.Context, id string) (*models.Owner, error)
}

// ReportingGate requires the owner's reporting password on report routes once
// one has been set. Owners without one pass straight through.
func ReportingGate(owners OwnerGetter, log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			owner, err := owners.GetOwner(r.Context(), claims.UserID)
			if err != nil {
				log.WithField("user_id", claims.UserID).WithError(err).Warn("Reporting gate could not load owner")
				utils.RespondError(w, http.StatusForbidden, "Owner account not found")
				return
			}
			if owner.ReportingPasswordHash == nil || *owner.ReportingPasswordHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.Header.Get(ReportingPasswordHeader)
			if supplied == "" || bcrypt.CompareHashAndPassword([]byte(*owner.ReportingPasswordHash), []byte(supplied)) != nil {
				log.WithField("user_id", claims.UserID).Warn("🔒 Reporting password rejected")
				utils.RespondErrorCode(w, http.StatusForbidden, "reporting_password_required", "Reporting password required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
