package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when the user token is missing, expired or rejected.
	ErrAuthentication = errors.New("authentication failed")

	// ErrQuotaExceeded is returned when the daily API budget is spent and no cached data exists.
	ErrQuotaExceeded = errors.New("youtube api quota exceeded, please try again later")

	// ErrCommentsDisabled is returned by the remote client when a video has comments turned off.
	ErrCommentsDisabled = errors.New("comments are disabled for this video")

	// ErrConfiguration is returned when a required credential or setting is absent.
	ErrConfiguration = errors.New("configuration error")

	// ErrGeneration is returned when the reply generator produced no usable text.
	ErrGeneration = errors.New("reply generation failed")

	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned for malformed client input.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError carries the message of a failed call to a remote service.
// Code is zero when no HTTP response was received.
type UpstreamError struct {
	Service string
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transport reports whether the call failed before a response arrived.
func (e *UpstreamError) Transport() bool { return e.Code == 0 }

func (e *UpstreamError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s %s: %d %s", e.Service, e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Op, e.Message)
}

// IsTransport reports whether err is an UpstreamError without an HTTP response.
func IsTransport(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Transport()
}
