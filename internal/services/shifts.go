package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gameroom-backend/internal/database"
	"gameroom-backend/internal/logger"
	"gameroom-backend/internal/models"
)

// ShiftService drives a draft shift from start to close.
//
// Drafts are keyed by the signed-in owner id, and closed shifts are stored
// under the same id. Phases move NOT_STARTED -> ACTIVE -> FINALIZING and end
// either in a closed record or a discard.
type ShiftService struct {
	repo             database.Repository
	drafts           DraftStore
	photos           PhotoStore
	ledger           *BankLedger
	guard            SubmitGuard
	notifier         Notifier
	log              *logrus.Logger
	loc              *time.Location
	requireSnapshots bool
	now              func() time.Time
}

type ShiftServiceConfig struct {
	Location         *time.Location
	RequireSnapshots bool
}

func NewShiftService(repo database.Repository, drafts DraftStore, photos PhotoStore, ledger *BankLedger, guard SubmitGuard, notifier Notifier, log *logrus.Logger, cfg ShiftServiceConfig) *ShiftService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ShiftService{
		repo:             repo,
		drafts:           drafts,
		photos:           photos,
		ledger:           ledger,
		guard:            guard,
		notifier:         notifierOrNop(notifier),
		log:              log,
		loc:              loc,
		requireSnapshots: cfg.RequireSnapshots,
		now:              time.Now,
	}
}

// Current returns the draft, or nil when no shift is started
func (s *ShiftService) Current(ctx context.Context, ownerID string) (*models.DraftShift, error) {
	return s.drafts.Load(ctx, ownerID)
}

func (s *ShiftService) Start(ctx context.Context, ownerID, employeeName string) (*models.DraftShift, error) {
	employeeName = strings.TrimSpace(employeeName)
	if employeeName == "" {
		return nil, newValidationError(CodeInvalidName, "employee name is required", "employee_name")
	}

	existing, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrShiftAlreadyStarted
	}

	draft := models.NewDraftShift(ownerID, employeeName, s.now().UTC())
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"shift_id": draft.ShiftID,
		"employee": employeeName,
	}).Info("🟢 Shift started")
	return draft, nil
}

// editable loads a draft that still accepts machine and note edits
func (s *ShiftService) editable(ctx context.Context, ownerID string) (*models.DraftShift, error) {
	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoActiveShift
	}
	if draft.Phase != models.ShiftPhaseActive && draft.Phase != models.ShiftPhaseFinalizing {
		return nil, ErrInvalidTransition
	}
	return draft, nil
}

// SetMachine stores the raw in/out text for a machine. Amounts are only
// coerced to numbers at close.
func (s *ShiftService) SetMachine(ctx context.Context, ownerID, label, in, out string) (*models.DraftShift, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, newValidationError(CodeMachineRequired, "machine label is required", "label")
	}

	draft, err := s.editable(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	m := draft.Machine(label)
	m.In = strings.TrimSpace(in)
	m.Out = strings.TrimSpace(out)

	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// AddSnapshot uploads the single meter photo a machine may carry
func (s *ShiftService) AddSnapshot(ctx context.Context, ownerID, label string, photo []byte) (*models.DraftShift, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, newValidationError(CodeMachineRequired, "machine label is required", "label")
	}
	if len(photo) == 0 {
		return nil, newValidationError(CodeInvalidRequest, "photo is required", "photo")
	}

	draft, err := s.editable(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if m, ok := draft.Machines[label]; ok && len(m.Images) > 0 {
		return nil, newValidationError(CodeSnapshotExists, "machine already has a snapshot", label)
	}

	now := s.now().UTC()
	url, err := s.photos.Upload(ctx, SnapshotPath(ownerID, draft.ShiftID, label, now), photo)
	if err != nil {
		logger.LogError(s.log, "ShiftService", "AddSnapshot", "Error uploading snapshot", logrus.Fields{"owner_id": ownerID, "shift_id": draft.ShiftID, "machine": label}, err)
		return nil, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	m := draft.Machine(label)
	m.Images = append(m.Images, models.Snapshot{URL: url, TakenAt: now})
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *ShiftService) SetNotes(ctx context.Context, ownerID, notes string) (*models.DraftShift, error) {
	draft, err := s.editable(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	draft.Notes = notes
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Finalize moves an ACTIVE draft to the review phase
func (s *ShiftService) Finalize(ctx context.Context, ownerID string) (*models.DraftShift, error) {
	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoActiveShift
	}
	if draft.Phase != models.ShiftPhaseActive {
		return nil, ErrInvalidTransition
	}

	draft.Phase = models.ShiftPhaseFinalizing
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Discard drops the draft. Without a draft it does nothing.
func (s *ShiftService) Discard(ctx context.Context, ownerID string) error {
	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		return err
	}
	if draft == nil {
		return nil
	}
	if err := s.drafts.Delete(ctx, ownerID); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"owner_id": ownerID, "shift_id": draft.ShiftID}).Info("🗑️  Shift discarded")
	return nil
}

// Close turns a FINALIZING draft into an immutable shift record.
//
// The ledger entry, cached balance and record are written in one
// transaction keyed by the shift id, so a retried close returns the stored
// record without crediting the bank twice. The draft survives any failure
// before commit.
func (s *ShiftService) Close(ctx context.Context, ownerID string) (*models.ShiftRecord, error) {
	release, err := s.guard.Acquire(ctx, closeGuardKey(ownerID))
	if err != nil {
		return nil, err
	}
	defer release()

	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoActiveShift
	}
	if draft.Phase != models.ShiftPhaseFinalizing {
		return nil, ErrInvalidTransition
	}

	totals := models.ComputeTotals(draft.Machines)
	if !totals.HasData {
		return nil, newValidationError(CodeMissingData, "at least one machine needs an in or out amount")
	}
	if s.requireSnapshots {
		if missing := models.MachinesMissingSnapshots(draft.Machines); len(missing) > 0 {
			return nil, newValidationError(CodeSnapshotsRequired, "every machine with cash activity needs a snapshot", missing...)
		}
	}

	endTime := s.now().UTC()
	record := &models.ShiftRecord{
		ID:           draft.ShiftID,
		OwnerID:      ownerID,
		EmployeeName: draft.EmployeeName,
		StartTime:    draft.StartTime,
		EndTime:      endTime,
		Machines:     totals.Machines,
		Images:       models.FlattenImages(draft.Machines),
		TotalIn:      totals.TotalIn,
		TotalOut:     totals.TotalOut,
		ProfitOrLoss: totals.ProfitOrLoss,
		CarryForward: totals.TotalOut,
		Notes:        draft.Notes,
		CreatedAt:    endTime,
	}
	fields := logrus.Fields{"owner_id": ownerID, "shift_id": draft.ShiftID}

	var (
		existing *models.ShiftRecord
		entry    *models.BalanceEntry
	)
	err = s.repo.InTx(ctx, func(tx database.Repository) error {
		prior, err := tx.GetShift(ctx, ownerID, draft.ShiftID)
		if err == nil {
			existing = prior
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to check for closed shift: %w", err)
		}

		matched, err := tx.SumMatchedBetween(ctx, ownerID, draft.StartTime, endTime)
		if err != nil {
			return fmt.Errorf("failed to sum matched visits: %w", err)
		}
		record.TotalMatchedAmount = matched
		record.NetImpact = record.ProfitOrLoss.Sub(matched)

		shiftID := draft.ShiftID
		notes := fmt.Sprintf("Shift closed: %s", draft.EmployeeName)
		entry, err = s.ledger.ApplyTx(ctx, tx, ownerID, record.NetImpact, models.BalanceEntryAdd, notes, &shiftID)
		if err != nil {
			return err
		}

		if err := tx.InsertShift(ctx, record); err != nil {
			return fmt.Errorf("failed to save shift record: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.LogError(s.log, "ShiftService", "Close", "Error closing shift, draft kept for retry", fields, err)
		return nil, err
	}

	if existing != nil {
		s.log.WithFields(fields).Warn("Shift was already closed, returning stored record")
		record = existing
	}

	if err := s.drafts.Delete(ctx, ownerID); err != nil {
		logger.LogError(s.log, "ShiftService", "Close", "Shift closed but draft could not be cleared", fields, err)
	}

	if existing == nil {
		s.log.WithFields(fields).WithFields(logrus.Fields{
			"total_in":      record.TotalIn.String(),
			"total_out":     record.TotalOut.String(),
			"total_matched": record.TotalMatchedAmount.String(),
			"net_impact":    record.NetImpact.String(),
		}).Info("🏁 Shift closed")
		s.notifier.Notify(ownerID, EventShiftClosed, record)
		s.ledger.NotifyBalance(ownerID, entry)
	}
	return record, nil
}

func (s *ShiftService) GetShift(ctx context.Context, ownerID, id string) (*models.ShiftRecord, error) {
	record, err := s.repo.GetShift(ctx, ownerID, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrShiftNotFound
	}
	return record, err
}

// ListShifts returns the shifts that ended in month (YYYY-MM), newest first
func (s *ShiftService) ListShifts(ctx context.Context, ownerID, month string) ([]models.ShiftRecord, error) {
	m, err := s.parseMonth(month)
	if err != nil {
		return nil, err
	}
	return s.repo.ListShiftsEndedBetween(ctx, ownerID, m.Start(), m.End())
}

func (s *ShiftService) parseMonth(month string) (models.Month, error) {
	if month == "" {
		return models.MonthOf(s.now(), s.loc), nil
	}
	m, err := models.ParseMonth(month, s.loc)
	if err != nil {
		return models.Month{}, newValidationError(CodeInvalidDate, err.Error(), "month")
	}
	return m, nil
}
