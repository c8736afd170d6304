package provider

import (
	"errors"
	"fmt"
)

// Common error codes
const (
	ErrCodeRateLimit      = "RATE_LIMIT"
	ErrCodeHTTPStatus     = "HTTP_STATUS"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeEmptyResponse  = "EMPTY_RESPONSE"
	ErrCodeMalformed      = "MALFORMED_RESPONSE"
	ErrCodeCircuitOpen    = "CIRCUIT_OPEN"
	ErrCodeAllUnavailable = "ALL_PROVIDERS_UNAVAILABLE"
	ErrCodeNotFound       = "NOT_FOUND"
)

// ProviderError represents provider-specific errors
type ProviderError struct {
	Provider   string `json:"provider"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Cause      error  `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s (%s)", e.Provider, e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRateLimit reports whether err is specifically an upstream HTTP 429.
// Only rate-limit failures drive the aggressive backoff curve.
func IsRateLimit(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeRateLimit || pe.HTTPStatus == 429
	}
	return false
}

// NewNotFoundError reports an unknown provider id.
func NewNotFoundError(id string) *ProviderError {
	return &ProviderError{
		Provider: id,
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("unknown provider %q", id),
	}
}
