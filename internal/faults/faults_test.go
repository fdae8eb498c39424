package faults

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestTransportClassifiesDeadlineExpiryAsTimeout(t *testing.T) {
	err := fmt.Errorf("request failed: %w", context.DeadlineExceeded)
	if got := Transport(err); !errors.Is(got, ErrTimeout) {
		t.Fatalf("expected ErrTimeout for deadline expiry, got %v", got)
	}
}

func TestTransportClassifiesWireTimeoutAsTimeout(t *testing.T) {
	err := fmt.Errorf("dial: %w", timeoutError{})
	if got := Transport(err); !errors.Is(got, ErrTimeout) {
		t.Fatalf("expected ErrTimeout for a wire timeout, got %v", got)
	}
}

func TestTransportClassifiesOtherFailuresAsNetwork(t *testing.T) {
	if got := Transport(errors.New("connection refused")); !errors.Is(got, ErrNetwork) {
		t.Fatalf("expected ErrNetwork for a refused connection, got %v", got)
	}
}

func TestStatusClassifiesRateLimiting(t *testing.T) {
	if got := Status(http.StatusTooManyRequests); !errors.Is(got, ErrThrottled) {
		t.Fatalf("expected ErrThrottled for 429, got %v", got)
	}
	if got := Status(http.StatusInternalServerError); !errors.Is(got, ErrNetwork) {
		t.Fatalf("expected ErrNetwork for 500, got %v", got)
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: upstream said no", ErrThrottled)
	if !errors.Is(wrapped, ErrThrottled) {
		t.Fatalf("expected wrapped sentinel to match with errors.Is")
	}
}
