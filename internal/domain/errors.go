package domain

import (
	"fmt"
	"time"
)

// CoreError represents a standardized error response
type CoreError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *CoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput       = "INVALID_INPUT"
	ErrRuleSetInvalid     = "RULESET_INVALID"
	ErrUnknownRequirement = "UNKNOWN_REQUIREMENT_SYNTAX"
	ErrStorage            = "STORAGE_ERROR"
	ErrScheduling         = "SCHEDULING_ERROR"
	ErrRateLimit          = "RATE_LIMIT_EXCEEDED"
	ErrAuthentication     = "AUTHENTICATION_ERROR"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrSessionNotFound    = "SESSION_NOT_FOUND"
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

// NewCoreError creates a new CoreError with timestamp
func NewCoreError(code, message, details, requestID string) *CoreError {
	return &CoreError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewRuleSetError creates the load-time error for a structurally invalid
// rule set. Scoring is never attempted against a rule set that produced one
// of these.
func NewRuleSetError(moduleID, version, message string) *CoreError {
	return NewCoreError(ErrRuleSetInvalid, message, fmt.Sprintf("module=%s version=%s", moduleID, version), "")
}
