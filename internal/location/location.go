// Package location acquires the device's current coordinates and tracks the
// acquisition as a small state machine.
package location

import (
	"context"
	"errors"
	"time"

	"github.com/kjstillabower/weather-widget/internal/models"
)

// Reason is the normalized cause of a failed acquisition.
type Reason int

const (
	ReasonPermissionDenied Reason = iota + 1
	ReasonPositionUnavailable
	ReasonTimeout
	ReasonUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonPermissionDenied:
		return "permission_denied"
	case ReasonPositionUnavailable:
		return "position_unavailable"
	case ReasonTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Message is the text shown to the user for r.
func (r Reason) Message() string {
	switch r {
	case ReasonPermissionDenied:
		return "User denied the request for geolocation"
	case ReasonPositionUnavailable:
		return "Location information is unavailable"
	case ReasonTimeout:
		return "The request to get user location timed out"
	default:
		return "An unknown error occurred"
	}
}

// Error is a failed acquisition. Message defaults to Reason.Message().
type Error struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason.Message()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same Reason, so errors.Is(err, ErrTimeout) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied    = &Error{Reason: ReasonPermissionDenied}
	ErrPositionUnavailable = &Error{Reason: ReasonPositionUnavailable}
	ErrTimeout             = &Error{Reason: ReasonTimeout}
	ErrUnknown             = &Error{Reason: ReasonUnknown}
)

// ErrUnsupported is reported when no geolocation capability is configured.
var ErrUnsupported = &Error{
	Reason:  ReasonPositionUnavailable,
	Message: "Geolocation is not supported on this system",
}

// Options mirror the platform geolocation request options.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is how old a cached fix may be. Zero forces a fresh fix.
	MaximumAge time.Duration
}

// DefaultOptions requests a fresh high-accuracy fix within 10 seconds.
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second}
}

// Geolocator is the platform capability that produces a position fix.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts Options) (models.Coordinates, error)
}

// Normalize maps any acquisition error onto *Error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Err: err}
	}
	return &Error{Reason: ReasonUnknown, Err: err}
}
