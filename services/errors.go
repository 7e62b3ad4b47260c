package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrSessionNotFound  = NewDomainError(ErrorTypeNotFound, "chat session not found", nil)
	ErrExchangeNotFound = NewDomainError(ErrorTypeNotFound, "chat exchange not found", nil)

	// Validation Errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyMessage    = NewDomainError(ErrorTypeValidation, "message cannot be empty", nil)
	ErrMessageTooLong  = NewDomainError(ErrorTypeValidation, "message is too long", nil)
	ErrInvalidModel    = NewDomainError(ErrorTypeValidation, "invalid model specified", nil)
	ErrInvalidProvider = NewDomainError(ErrorTypeValidation, "invalid provider specified", nil)

	// Authorization Errors
	ErrUnauthorized   = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidSession = NewDomainError(ErrorTypeUnauthorized, "invalid session", nil)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
	ErrMemoryFailed      = NewDomainError(ErrorTypeInternal, "conversation memory failure", nil)

	// External Provider Errors
	ErrProviderError     = NewDomainError(ErrorTypeExternal, "LLM provider error", nil)
	ErrProviderTimeout   = NewDomainError(ErrorTypeExternal, "LLM provider timeout", nil)
	ErrProviderRateLimit = NewDomainError(ErrorTypeExternal, "LLM provider rate limit", nil)
	ErrRetrievalFailed   = NewDomainError(ErrorTypeExternal, "document retrieval failed", nil)

	// Unavailable Errors
	ErrProviderUnavailable  = NewDomainError(ErrorTypeUnavailable, "LLM provider unavailable", nil)
	ErrRetrieverUnavailable = NewDomainError(ErrorTypeUnavailable, "document retriever unavailable", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnauthorized
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// IsUnavailableError checks if an error means a dependency is not configured
func IsUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeUnavailable
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
