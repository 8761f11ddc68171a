package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gameroom-backend/internal/models"
)

// Validation error codes
const (
	CodeInvalidPhone      = "invalid_phone"
	CodeInvalidName       = "invalid_name"
	CodeNegativeAmount    = "negative_amount"
	CodeMachineRequired   = "machine_required"
	CodeMissingData       = "missing_data"
	CodeSnapshotsRequired = "snapshots_required"
	CodeSnapshotExists    = "snapshot_exists"
	CodeInvalidAmount     = "invalid_amount"
	CodeInvalidDate       = "invalid_date"
	CodeInvalidRequest    = "invalid_request"
)

var (
	ErrNoActiveShift        = errors.New("no active shift")
	ErrShiftAlreadyStarted  = errors.New("a shift is already in progress")
	ErrInvalidTransition    = errors.New("invalid shift state transition")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrShiftNotFound        = errors.New("shift not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrVisitNotFound        = errors.New("no visit recorded for this phone")
	ErrOwnerNotFound        = errors.New("owner not found")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrSMSDisabled          = errors.New("sms feature is not enabled for this account")
	ErrUnauthenticated      = errors.New("not authenticated")
)

// validateCents rejects amounts the store would round
func validateCents(d decimal.Decimal, field string) error {
	if !models.IsWholeCents(d) {
		return newValidationError(CodeInvalidAmount, field+" must not have fractions of a cent", field)
	}
	return nil
}

// ValidationError is a rejected input, detected before any write.
// Fields names the offending inputs, e.g. machine labels missing a snapshot.
type ValidationError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
}

func newValidationError(code, message string, fields ...string) *ValidationError {
	return &ValidationError{Code: code, Message: message, Fields: fields}
}

// IsValidationCode reports whether err is a ValidationError with the given code
func IsValidationCode(err error, code string) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}
