package events

// KindMicModeChanged identifies a microphone session routing change.
const KindMicModeChanged Kind = "mic.mode_changed"

// MicModeChanged marks a microphone session routing change. From and To are
// the session mode names.
type MicModeChanged struct {
	Base
	From string
	To   string
}

// NewMicModeChanged creates a mode changed event.
func NewMicModeChanged(from, to string) MicModeChanged {
	return MicModeChanged{Base: NewBase(KindMicModeChanged), From: from, To: to}
}
