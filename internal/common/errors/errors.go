package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode is a machine readable error kind
type ErrorCode string

const (
	// Common
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeRateLimit       ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodePersistence     ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeCacheError      ErrorCode = "CACHE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Giveaway engine
	ErrCodeGiveawayNotFound       ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeParticipantNotFound    ErrorCode = "PARTICIPANT_NOT_FOUND"
	ErrCodeTaskNotFound           ErrorCode = "TASK_NOT_FOUND"
	ErrCodeInvalidState           ErrorCode = "INVALID_STATE"
	ErrCodeNotEligible            ErrorCode = "NOT_ELIGIBLE"
	ErrCodeAlreadySelected        ErrorCode = "ALREADY_SELECTED"
	ErrCodeNoEligibleParticipants ErrorCode = "NO_ELIGIBLE_PARTICIPANTS"
)

// AppError is a typed application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeGiveawayNotFound ||
		e.Code == ErrCodeParticipantNotFound ||
		e.Code == ErrCodeTaskNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeBadRequest
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodePersistence ||
		e.Code == ErrCodeTimeout ||
		e.Code == ErrCodeCacheError ||
		e.Code == ErrCodeExternalService
}

// IsRejection reports business rule rejections
func (e *AppError) IsRejection() bool {
	switch e.Code {
	case ErrCodeInvalidState, ErrCodeNotEligible, ErrCodeAlreadySelected, ErrCodeNoEligibleParticipants, ErrCodeConflict:
		return true
	}
	return false
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

// New creates an application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap attaches a cause
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Constructors

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

func NewNotFoundError(resource, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

func NewParticipantNotFoundError(giveawayID string, userID int64) *AppError {
	return New(ErrCodeParticipantNotFound, "User has not joined this giveaway").
		WithDetail("giveaway_id", giveawayID).
		WithDetail("user_id", userID)
}

func NewTaskNotFoundError(giveawayID, taskID string) *AppError {
	return New(ErrCodeTaskNotFound, fmt.Sprintf("Task %s is not part of this giveaway", taskID)).
		WithDetail("giveaway_id", giveawayID).
		WithDetail("task_id", taskID)
}

// NewInvalidStateError rejects an operation in the current status
func NewInvalidStateError(operation, status string) *AppError {
	return New(ErrCodeInvalidState, fmt.Sprintf("Operation %s is not allowed while giveaway is %s", operation, status)).
		WithDetail("operation", operation).
		WithDetail("status", status)
}

func NewNotEligibleError(giveawayID string, userID int64) *AppError {
	return New(ErrCodeNotEligible, "Selected user is not in the eligible pool").
		WithDetail("giveaway_id", giveawayID).
		WithDetail("user_id", userID)
}

func NewAlreadySelectedError(giveawayID string) *AppError {
	return New(ErrCodeAlreadySelected, "Winner has already been selected for this giveaway").
		WithDetail("giveaway_id", giveawayID)
}

func NewNoEligibleParticipantsError(giveawayID string) *AppError {
	return New(ErrCodeNoEligibleParticipants, "Giveaway has no eligible participants").
		WithDetail("giveaway_id", giveawayID)
}

func NewTimeoutError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTimeout, fmt.Sprintf("Operation timed out: %s", operation)).
		WithDetail("operation", operation)
}

func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("Persistence operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

func NewRateLimitError(service string, retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimit, fmt.Sprintf("Rate limit exceeded for %s", service)).
		WithDetail("service", service).
		WithDetail("retry_after", retryAfter.String())
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

// FromPersistence maps a storage error to TIMEOUT or PERSISTENCE_ERROR.
// An AppError is returned unchanged.
func FromPersistence(operation string, err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(operation, err)
	}
	return NewPersistenceError(operation, err)
}

// AsAppError finds an AppError in the Unwrap chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
