package orchestration

import (
	"errors"

	"github.com/voicewire/duplex-core/internal/faults"
)

// Error taxonomy shared by the pipeline components. Collaborator bindings
// wrap their failures with one of these sentinels so callers can branch with
// errors.Is without depending on provider error types.
var (
	// ErrPermissionDenied reports missing microphone or audio access.
	ErrPermissionDenied = faults.ErrPermissionDenied

	// ErrUnsupportedFormat reports a sample format the pipeline cannot
	// consume.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDeviceUnavailable reports a recorder or recognizer that failed to
	// initialize.
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrNetwork reports a failed collaborator call.
	ErrNetwork = faults.ErrNetwork

	// ErrTimeout reports a collaborator call that did not complete in time.
	ErrTimeout = faults.ErrTimeout

	// ErrThrottled reports vendor rate limiting.
	ErrThrottled = faults.ErrThrottled

	// ErrProtocol reports a malformed collaborator response.
	ErrProtocol = faults.ErrProtocol

	// ErrLogic reports an internal invariant violation such as a duplicate
	// finalize.
	ErrLogic = errors.New("internal state violation")
)
