package client

import (
	"context"
	"errors"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as metric labels and to pick user-facing messages.
const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryInvalidAPIKey    ErrorCategory = "invalid_api_key"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryRateLimited      ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx      ErrorCategory = "upstream_5xx"
	ErrorCategoryCircuitOpen      ErrorCategory = "circuit_open"
	ErrorCategoryInvalidResponse  ErrorCategory = "invalid_response"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrLocationNotFound) {
		return ErrorCategoryLocationNotFound
	}
	if errors.Is(err, ErrInvalidResponse) {
		return ErrorCategoryInvalidResponse
	}
	if errors.Is(err, ErrInvalidAPIKey) {
		return ErrorCategoryInvalidAPIKey
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorCategoryRateLimited
	}
	if errors.Is(err, ErrCircuitOpen) {
		return ErrorCategoryCircuitOpen
	}
	if errors.Is(err, ErrUpstreamFailure) {
		return ErrorCategoryUpstream5xx
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrNetwork) || strings.Contains(errStr, "connection") {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}

// IsNotFound reports whether err means the provider does not know the place.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLocationNotFound)
}

// UserMessage returns the text shown in the Failed state. Not-found is kept
// distinct from every other failure.
func UserMessage(err error) string {
	switch CategorizeError(err) {
	case "":
		return ""
	case ErrorCategoryLocationNotFound:
		return "City not found"
	case ErrorCategoryTimeout:
		return "Network error: the weather service did not respond in time"
	case ErrorCategoryNetwork:
		return "Network error: could not reach the weather service"
	case ErrorCategoryInvalidResponse:
		return "Invalid response from weather provider"
	case ErrorCategoryInvalidAPIKey:
		return "Weather service rejected the API key"
	case ErrorCategoryRateLimited:
		return "Too many requests, please try again shortly"
	case ErrorCategoryCircuitOpen, ErrorCategoryUpstream5xx:
		return "Weather service is temporarily unavailable"
	default:
		return "Failed to fetch weather data"
	}
}
