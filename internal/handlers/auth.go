package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/middleware"
	"gameroom-backend/internal/models"
	"gameroom-backend/pkg/utils"
)

// TokenIssuer signs session tokens after a password login
type TokenIssuer interface {
	IssueToken(userID, email, role string) (string, error)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	OK    bool                  `json:"ok"`
	Token string                `json:"token,omitempty"`
	User  *models.OwnerResponse `json:"user,omitempty"`
}

// Login checks email + password and returns a signed token
// POST /api/auth/login
func Login(owners OwnerStore, issuer TokenIssuer, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		owner, err := owners.GetOwnerByEmail(r.Context(), req.Email)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.WithError(err).Error("❌ Login lookup failed")
			}
			log.WithField("email", req.Email).Warn("❌ Login failed: unknown email")
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(req.Password)); err != nil {
			log.WithField("email", req.Email).Warn("❌ Login failed: invalid password")
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		token, err := issuer.IssueToken(owner.ID, owner.Email, owner.Role)
		if err != nil {
			log.WithError(err).Error("❌ Failed to create token")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		resp := owner.ToOwnerResponse()
		log.WithFields(logrus.Fields{"email": owner.Email, "role": owner.Role}).Info("✅ Login successful")
		utils.RespondJSON(w, http.StatusOK, LoginResponse{OK: true, Token: token, User: &resp})
	}
}

// AuthStatus returns the signed-in owner
// GET /api/auth/status
func AuthStatus(owners OwnerStore, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownerID(w, r)
		if !ok {
			return
		}
		owner, err := owners.GetOwner(r.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			claims, _ := middleware.GetUserFromContext(r)
			// Firebase users may not have an owner row yet
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"authenticated": true,
				"user":          models.OwnerResponse{ID: claims.UserID, Email: claims.Email, Role: claims.Role},
			})
			return
		}
		if err != nil {
			log.WithError(err).Error("❌ Failed to load owner")
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": true,
			"user":          owner.ToOwnerResponse(),
		})
	}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword replaces the owner's login password
// POST /api/auth/change-password
func ChangePassword(owners OwnerStore, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req ChangePasswordRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		owner, err := owners.GetOwner(r.Context(), id)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "Owner not found")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(req.CurrentPassword)); err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "Current password is incorrect")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		if err := owners.UpdateOwnerPassword(r.Context(), id, string(hash)); err != nil {
			log.WithError(err).WithField("owner_id", id).Error("❌ Failed to update password")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update password")
			return
		}

		log.WithField("owner_id", id).Info("🔑 Password changed")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

type ReportingPasswordRequest struct {
	// Empty clears the gate
	Password string `json:"password" validate:"omitempty,min=4"`
}

// SetReportingPassword sets or clears the secondary password on report routes
// PUT /api/owner/reporting-password
func SetReportingPassword(owners OwnerStore, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownerID(w, r)
		if !ok {
			return
		}
		var req ReportingPasswordRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var hash *string
		if req.Password != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
				return
			}
			s := string(h)
			hash = &s
		}

		if err := owners.UpdateReportingPassword(r.Context(), id, hash); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Owner not found")
				return
			}
			log.WithError(err).WithField("owner_id", id).Error("❌ Failed to update reporting password")
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		log.WithFields(logrus.Fields{"owner_id": id, "enabled": hash != nil}).Info("🔒 Reporting password updated")
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "enabled": hash != nil})
	}
}

type CreateOwnerRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Name          string `json:"name" validate:"required"`
	Role          string `json:"role" validate:"omitempty,oneof=owner admin"`
	HasSMSFeature bool   `json:"has_sms_feature"`
}

// CreateOwner creates an operator account. Admin only.
// POST /api/owners
func CreateOwner(owners OwnerStore, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOwnerRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Role == "" {
			req.Role = models.RoleOwner
		}

		if _, err := owners.GetOwnerByEmail(r.Context(), req.Email); err == nil {
			utils.RespondError(w, http.StatusConflict, "Owner with this email already exists")
			return
		} else if !errors.Is(err, database.ErrNotFound) {
			log.WithError(err).Error("❌ Owner lookup failed")
			utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		owner := &models.Owner{
			ID:            uuid.New().String(),
			Email:         strings.TrimSpace(req.Email),
			Password:      string(hash),
			Name:          req.Name,
			Role:          req.Role,
			HasSMSFeature: req.HasSMSFeature,
		}
		if err := owners.CreateOwner(r.Context(), owner); err != nil {
			log.WithError(err).Error("❌ Failed to create owner")
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create owner")
			return
		}

		log.WithFields(logrus.Fields{"email": owner.Email, "role": owner.Role}).Info("✅ Owner created")
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"user":    owner.ToOwnerResponse(),
		})
	}
}
