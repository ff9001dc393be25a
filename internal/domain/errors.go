package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors checked with errors.Is across packages.
var (
	ErrRegionNotFound = errors.New("region not found")
	ErrNotFound       = errors.New("not found")
	ErrModuleNotFound = errors.New("module not found")
)

// AppError represents a standardized error response surfaced to API and tool callers
type AppError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`

	cause error
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is works on sentinels.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Error codes for different failure scenarios
const (
	ErrCodeRegionNotFound    = "REGION_NOT_FOUND"
	ErrCodeModuleNotFound    = "MODULE_NOT_FOUND"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeInvalidLevel      = "INVALID_COMPLEXITY_LEVEL"
	ErrCodePersistence       = "PERSISTENCE_FAILED"
	ErrCodeUpstream          = "UPSTREAM_UNAVAILABLE"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAppError creates a new AppError with timestamp
func NewAppError(code, message, details, requestID string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// WrapAppError creates an AppError that unwraps to cause.
func WrapAppError(code string, cause error, requestID string) *AppError {
	e := NewAppError(code, cause.Error(), "", requestID)
	e.cause = cause
	return e
}

// NewRegionNotFoundError is the fatal-to-request error for unknown regions.
func NewRegionNotFoundError(regionID, requestID string) *AppError {
	e := NewAppError(ErrCodeRegionNotFound,
		fmt.Sprintf("region %q not found", regionID),
		"no authored content exists for this region", requestID)
	e.cause = ErrRegionNotFound
	return e
}

// NewModuleNotFoundError reports an unknown educational module id.
func NewModuleNotFoundError(moduleID, requestID string) *AppError {
	e := NewAppError(ErrCodeModuleNotFound,
		fmt.Sprintf("module %q not found", moduleID), "", requestID)
	e.cause = ErrModuleNotFound
	return e
}

// NewNotFoundError reports an unknown knowledge graph entry, such as a
// condition, ICD-10 code, medication or symptom.
func NewNotFoundError(kind, id, requestID string) *AppError {
	e := NewAppError(ErrCodeNotFound, fmt.Sprintf("%s %q not found", kind, id), "", requestID)
	e.cause = ErrNotFound
	return e
}

// NewInvalidLevelError rejects a complexity level outside 1..5.
func NewInvalidLevelError(level int, requestID string) *AppError {
	return NewAppError(ErrCodeInvalidLevel,
		fmt.Sprintf("complexity level %d is outside 1..5", level), "", requestID)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// CodeOf returns the AppError code of err, or ErrCodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return ErrCodeValidation
	}
	return ErrCodeInternal
}
