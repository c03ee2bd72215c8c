package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"
	ErrCodeRawBodyRequired ErrorCode = "RAW_BODY_REQUIRED"
	ErrCodeNumberMismatch  ErrorCode = "REQUESTED_NUMBER_MISMATCH"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Provider
	ErrCodeCredentialsInvalid   ErrorCode = "CREDENTIALS_INVALID"
	ErrCodeCredentialsCorrupted ErrorCode = "CREDENTIALS_CORRUPTED"
	ErrCodeProviderRateLimited  ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeProviderUnreachable  ErrorCode = "PROVIDER_UNREACHABLE"
	ErrCodeProviderError        ErrorCode = "PROVIDER_ERROR"
	ErrCodeEnumerationExceeded  ErrorCode = "RESOURCE_ENUMERATION_EXCEEDED"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Feature availability
	ErrCodeTelephonyDisabled ErrorCode = "TELEPHONY_DISABLED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidSignature() *AppError {
	return New(ErrCodeInvalidSignature, "Invalid signature")
}

func RawBodyRequired() *AppError {
	return New(ErrCodeRawBodyRequired, "Raw request body is required for signature verification")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NumberMismatch(requested, actual string) *AppError {
	return New(ErrCodeNumberMismatch,
		fmt.Sprintf("Requested number %s does not match the provider's number %s", requested, actual))
}

func CredentialsInvalid() *AppError {
	return New(ErrCodeCredentialsInvalid, "Provider rejected the credentials; please re-enter them")
}

func CredentialsCorrupted() *AppError {
	return New(ErrCodeCredentialsCorrupted,
		"Stored credentials cannot be decrypted; delete and re-create the integration")
}

func ProviderRateLimited() *AppError {
	return New(ErrCodeProviderRateLimited, "Provider rate limit hit; retry with backoff")
}

func ProviderUnreachable() *AppError {
	return New(ErrCodeProviderUnreachable, "Provider could not be reached; try again")
}

func ProviderError(message string) *AppError {
	return New(ErrCodeProviderError, message)
}

func EnumerationExceeded(resource string) *AppError {
	return New(ErrCodeEnumerationExceeded,
		fmt.Sprintf("Too many %s to enumerate; the returned list would be truncated", resource))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func TelephonyDisabled() *AppError {
	return New(ErrCodeTelephonyDisabled, "Telephony support is disabled")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
