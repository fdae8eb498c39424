// Package faults holds the failure sentinels shared by the collaborator
// bindings. The orchestration package re-exports them; bindings wrap
// their failures here so callers can branch with errors.Is without
// depending on provider error types.
package faults

import (
	"context"
	"errors"
	"net"
	"net/http"
)

var (
	// ErrPermissionDenied reports missing microphone or audio access.
	ErrPermissionDenied = errors.New("audio permission denied")

	// ErrNetwork reports a failed collaborator call.
	ErrNetwork = errors.New("network failure")

	// ErrTimeout reports a collaborator call that did not complete in
	// time.
	ErrTimeout = errors.New("operation timed out")

	// ErrThrottled reports vendor rate limiting.
	ErrThrottled = errors.New("rate limited")

	// ErrProtocol reports a malformed collaborator response.
	ErrProtocol = errors.New("malformed collaborator response")
)

// Transport classifies a failed round-trip. Deadline expiry and timing
// out on the wire become ErrTimeout, everything else ErrNetwork.
func Transport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}

// Status classifies a non-OK HTTP status from a collaborator.
func Status(code int) error {
	if code == http.StatusTooManyRequests {
		return ErrThrottled
	}
	return ErrNetwork
}
