package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal server error")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrBadRequest     = errors.New("bad request")

	// Remote marketplace API failures
	ErrTransport = errors.New("marketplace api unreachable")
	ErrUpstream  = errors.New("marketplace api error")
	ErrDisabled  = errors.New("feature not configured")
)

// UpstreamError carries the status and message returned by the marketplace API.
type UpstreamError struct {
	Status  int
	Message string
	kind    error
}

// NewUpstreamError maps an HTTP status to the matching sentinel.
func NewUpstreamError(status int, message string) *UpstreamError {
	kind := ErrUpstream
	switch status {
	case 401:
		kind = ErrUnauthorized
	case 403:
		kind = ErrForbidden
	case 404:
		kind = ErrNotFound
	}
	return &UpstreamError{Status: status, Message: message, kind: kind}
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("marketplace api returned status %d", e.Status)
	}
	return fmt.Sprintf("marketplace api returned status %d: %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.kind
}

// IsAuth reports whether err should invalidate the caller's session.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
