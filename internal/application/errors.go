package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/example/room-booker/internal/persistence"
)

var (
	// ErrUnauthenticated is returned when the session token is missing, invalid or revoked.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNoRoomAvailable is returned when no candidate room is free for the requested interval.
	ErrNoRoomAvailable = errors.New("application: no room available")
	// ErrRoomUnavailable is returned when a specific room is busy for the requested interval.
	ErrRoomUnavailable = errors.New("application: room unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// UpstreamError wraps a failed Google API call. StatusCode is the HTTP status
// the failure maps to for callers.
type UpstreamError struct {
	StatusCode int
	Operation  string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("google %s failed with status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("google %s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
}

// Unwrap exposes the underlying client error.
func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status returns the mapped HTTP status, defaulting to 500.
func (e *UpstreamError) Status() int {
	if e == nil || e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
