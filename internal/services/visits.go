package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/models"
)

// ReasonCooldown is returned when the phone was matched less than 12 hours ago
const ReasonCooldown = "cooldown"

type VisitInput struct {
	Phone         string
	Name          string
	MatchAmount   decimal.Decimal
	MachineNumber string
	IDImage       []byte
}

// PriorMatch describes the visit that blocked a new one
type PriorMatch struct {
	MatchAmount decimal.Decimal `json:"match_amount"`
	Timestamp   time.Time       `json:"timestamp"`
	AgeSeconds  int64           `json:"age_seconds"`
}

type VisitResult struct {
	Accepted    bool          `json:"accepted"`
	Reason      string        `json:"reason,omitempty"`
	PriorMatch  *PriorMatch   `json:"prior_match,omitempty"`
	Visit       *models.Visit `json:"visit,omitempty"`
	NewCustomer bool          `json:"new_customer"`
}

// VisitLedger records customer visits and enforces the match cooldown
type VisitLedger struct {
	repo     database.Repository
	photos   PhotoStore
	guard    SubmitGuard
	notifier Notifier
	log      *logrus.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewVisitLedger(repo database.Repository, photos PhotoStore, guard SubmitGuard, notifier Notifier, log *logrus.Logger, loc *time.Location) *VisitLedger {
	return &VisitLedger{
		repo:     repo,
		photos:   photos,
		guard:    guard,
		notifier: notifierOrNop(notifier),
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

// ValidatePhone accepts exactly 10 ASCII digits
func ValidatePhone(phone string) error {
	if len(phone) != 10 {
		return newValidationError(CodeInvalidPhone, "phone number must be exactly 10 digits", "phone")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return newValidationError(CodeInvalidPhone, "phone number must be exactly 10 digits", "phone")
		}
	}
	return nil
}

func validateVisit(in VisitInput) error {
	if err := ValidatePhone(in.Phone); err != nil {
		return err
	}
	if in.Name == "" {
		return newValidationError(CodeInvalidName, "name is required", "name")
	}
	if strings.IndexFunc(in.Name, unicode.IsDigit) >= 0 {
		return newValidationError(CodeInvalidName, "name must not contain digits", "name")
	}
	if in.MatchAmount.IsNegative() {
		return newValidationError(CodeNegativeAmount, "match amount must not be negative", "match_amount")
	}
	if err := validateCents(in.MatchAmount, "match_amount"); err != nil {
		return err
	}
	if in.MatchAmount.IsPositive() && in.MachineNumber == "" {
		return newValidationError(CodeMachineRequired, "machine number is required when a match amount is given", "machine_number")
	}
	return nil
}

// RecordVisit validates, checks the cooldown and appends the visit. A
// cooldown rejection is a successful call with Accepted=false.
func (v *VisitLedger) RecordVisit(ctx context.Context, ownerID string, in VisitInput) (*VisitResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Name = strings.TrimSpace(in.Name)
	in.MachineNumber = strings.TrimSpace(in.MachineNumber)
	if err := validateVisit(in); err != nil {
		return nil, err
	}

	release, err := v.guard.Acquire(ctx, visitGuardKey(ownerID, in.Phone))
	if err != nil {
		return nil, err
	}
	defer release()

	now := v.now()
	fields := logrus.Fields{"owner_id": ownerID, "phone": in.Phone}

	latest, err := v.repo.GetLatestVisit(ctx, ownerID, in.Phone)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest visit: %w", err)
	}
	if latest != nil && latest.InCooldown(now) {
		v.log.WithFields(fields).WithField("prior_match", latest.MatchAmount.String()).Info("⏳ Visit rejected by match cooldown")
		return &VisitResult{
			Accepted: false,
			Reason:   ReasonCooldown,
			PriorMatch: &PriorMatch{
				MatchAmount: latest.MatchAmount,
				Timestamp:   latest.Timestamp,
				AgeSeconds:  int64(now.Sub(latest.Timestamp) / time.Second),
			},
		}, nil
	}

	customer, err := v.repo.GetCustomer(ctx, ownerID, in.Phone)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	idImageURL := ""
	if customer != nil {
		idImageURL = customer.IDImageURL
	}
	if idImageURL == "" && latest != nil {
		idImageURL = latest.IDImageURL
	}
	if idImageURL == "" && len(in.IDImage) > 0 {
		idImageURL, err = v.photos.Upload(ctx, IDPhotoPath(ownerID, in.Phone, now), in.IDImage)
		if err != nil {
			logger.LogError(v.log, "VisitLedger", "RecordVisit", "Error uploading ID photo", fields, err)
			return nil, fmt.Errorf("failed to upload ID photo: %w", err)
		}
	}

	visit := &models.Visit{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Phone:         in.Phone,
		Name:          in.Name,
		IDImageURL:    idImageURL,
		MatchAmount:   in.MatchAmount,
		MachineNumber: in.MachineNumber,
		Timestamp:     now.UTC(),
		LastUsed:      models.DayOf(now, v.loc),
	}

	var created bool
	err = v.repo.InTx(ctx, func(tx database.Repository) error {
		var err error
		created, err = tx.CreateCustomer(ctx, &models.Customer{
			OwnerID:    ownerID,
			Phone:      in.Phone,
			Name:       in.Name,
			IDImageURL: idImageURL,
			CreatedAt:  now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return tx.InsertVisit(ctx, visit)
	})
	if err != nil {
		logger.LogError(v.log, "VisitLedger", "RecordVisit", "Error recording visit", fields, err)
		return nil, err
	}

	v.log.WithFields(fields).WithFields(logrus.Fields{
		"match_amount": in.MatchAmount.String(),
		"new_customer": created,
	}).Info("✅ Visit recorded")
	v.notifier.Notify(ownerID, EventVisitRecorded, visit)

	return &VisitResult{Accepted: true, Visit: visit, NewCustomer: created}, nil
}

// LatestVisit returns the visit the cooldown is checked against
func (v *VisitLedger) LatestVisit(ctx context.Context, ownerID, phone string) (*models.Visit, error) {
	visit, err := v.repo.GetLatestVisit(ctx, ownerID, phone)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrVisitNotFound
	}
	return visit, err
}

// ListVisits returns visits with from <= timestamp <= to
func (v *VisitLedger) ListVisits(ctx context.Context, ownerID string, from, to time.Time) ([]models.Visit, error) {
	if to.Before(from) {
		return nil, newValidationError(CodeInvalidDate, "from must not be after to", "from", "to")
	}
	return v.repo.ListVisitsBetween(ctx, ownerID, from, to)
}

func (v *VisitLedger) ListCustomers(ctx context.Context, ownerID, search string) ([]models.Customer, error) {
	return v.repo.ListCustomers(ctx, ownerID, strings.TrimSpace(search))
}

func (v *VisitLedger) GetCustomer(ctx context.Context, ownerID, phone string) (*models.Customer, error) {
	customer, err := v.repo.GetCustomer(ctx, ownerID, phone)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return customer, err
}
