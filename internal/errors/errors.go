// FilePath: internal/errors/errors.go
package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Error types
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeForeignKey  ErrorType = "foreign_key"
	ErrorTypeDatabase    ErrorType = "database"
	ErrorTypeAggregation ErrorType = "aggregation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped internal error
func (e *APIError) Unwrap() error {
	return e.err
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: msg,
		Code:    http.StatusBadRequest,
		err:     err,
	}
}

// NewInvalidIDError reports a greenhouse id that is not a plain integer
func NewInvalidIDError(received string) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: "greenhouse_id must be numeric",
		Code:    http.StatusBadRequest,
		Details: map[string]any{"received": received},
	}
}

// NewInvalidFieldError reports a sensor field that is present but not numeric
func NewInvalidFieldError(field string, received any) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("field %s must be numeric", field),
		Code:    http.StatusBadRequest,
		Details: map[string]any{"field": field, "received": received},
	}
}

// NewForeignKeyError reports a reading for a greenhouse that does not exist
func NewForeignKeyError(greenhouseID int64) *APIError {
	return &APIError{
		Type:    ErrorTypeForeignKey,
		Message: "greenhouse not found (FK mismatch)",
		Code:    http.StatusBadRequest,
		Details: map[string]any{"greenhouse_id": greenhouseID},
	}
}

// NewDatabaseError creates a new database error
func NewDatabaseError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeDatabase,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewAggregationError marks a failed window flush; the buffered readings
// stay in the realtime store for the next trigger
func NewAggregationError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeAggregation,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: msg,
		Code:    http.StatusNotFound,
		err:     err,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeInternal,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeValidation
	}
	return false
}

// IsForeignKey checks if an error is a ForeignKey error
func IsForeignKey(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeForeignKey
	}
	return false
}

// IsAggregation checks if an error is an Aggregation error
func IsAggregation(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeAggregation
	}
	return false
}
