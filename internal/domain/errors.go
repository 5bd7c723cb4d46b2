package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrNotConfigured    = errors.New("service not configured")
	ErrProviderFailure  = errors.New("provider failure")
	ErrUnsupportedModel = errors.New("unsupported model")
)

// Stable machine-readable error codes surfaced to API clients. Raw provider
// error text stays server-side; clients only ever see one of these plus a
// human-readable message.
const (
	CodeRequiredFieldMissing  = "REQUIRED_FIELD_MISSING"
	CodeInvalidParameter      = "INVALID_PARAMETER"
	CodeUnsupportedModel      = "UNSUPPORTED_MODEL"
	CodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"
	CodeLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	CodeWebhookUnauthorized   = "WEBHOOK_UNAUTHORIZED"
	CodeGenerationNotFound    = "GENERATION_NOT_FOUND"
	CodeMalformedCallback     = "MALFORMED_CALLBACK"
)

// CodedError pairs a stable code with a user-facing message while preserving
// the underlying cause for logs.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error { return e.Err }

// NewCodedError builds a CodedError wrapping an optional cause.
func NewCodedError(code, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Err: cause}
}

// ErrorCode extracts the stable code from err, falling back to a generic
// internal code when none is attached.
func ErrorCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeGenerationNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeWebhookUnauthorized
	case errors.Is(err, ErrNotConfigured):
		return CodeProviderNotConfigured
	case errors.Is(err, ErrUnsupportedModel):
		return CodeUnsupportedModel
	case errors.Is(err, ErrValidation):
		return CodeInvalidParameter
	case errors.Is(err, ErrProviderFailure):
		return CodeProviderUnavailable
	default:
		return "INTERNAL"
	}
}
