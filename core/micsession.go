package orchestration

import (
	"fmt"
	"sync"

	"github.com/voicewire/duplex-core/core/events"
)

// MicMode describes what the session does with captured microphone frames.
type MicMode string

const (
	// ModeIdle drops frames. Detection state is cleared on entry so a
	// later activation starts from scratch.
	ModeIdle MicMode = "idle"
	// ModeMonitoring buffers recent frames without transcribing them.
	ModeMonitoring MicMode = "monitoring"
	// ModeTranscribing forwards frames to the transcription sink.
	ModeTranscribing MicMode = "transcribing"
)

// defaultPreRollFrames is one second of buffered audio at the default
// frame duration, enough to cover the onset of speech that triggered
// the promotion to transcribing.
const defaultPreRollFrames = 50

// TranscriptionSink receives raw audio frames for transcription.
type TranscriptionSink interface {
	SendAudio(audio []byte) error
}

type MicSessionOption func(*MicSession)

// WithPreRollFrames overrides how many frames are retained while
// monitoring. Older frames are discarded first.
func WithPreRollFrames(n int) MicSessionOption {
	return func(m *MicSession) {
		if n > 0 {
			m.ring = newFrameRing(n)
		}
	}
}

// WithDetectionReset registers a hook invoked when entering a mode that
// requires voice detection to restart from a clean slate.
func WithDetectionReset(reset func()) MicSessionOption {
	return func(m *MicSession) { m.resetDetection = reset }
}

// WithModeChangeCallback registers a callback for mode transitions. It
// is invoked after the transition completed, outside the session lock.
func WithModeChangeCallback(callback func(event events.MicModeChanged)) MicSessionOption {
	return func(m *MicSession) { m.onModeChange = callback }
}

// MicSession routes microphone frames according to its current mode and
// keeps a short pre-roll buffer so the beginning of an utterance is not
// lost between speech detection and transcription start.
type MicSession struct {
	mu   sync.Mutex
	mode MicMode
	ring *frameRing

	sink           TranscriptionSink
	resetDetection func()
	onModeChange   func(event events.MicModeChanged)
}

func NewMicSession(sink TranscriptionSink, opts ...MicSessionOption) *MicSession {
	m := &MicSession{
		mode: ModeIdle,
		ring: newFrameRing(defaultPreRollFrames),
		sink: sink,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MicSession) Mode() MicMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode transitions the session. Promoting from monitoring to
// transcribing flushes the buffered pre-roll to the sink, in capture
// order, before any live frame can be routed. Entering idle or skipping
// monitoring resets detection instead, since no buffered context exists
// that is worth keeping.
func (m *MicSession) SetMode(to MicMode) error {
	m.mu.Lock()
	from := m.mode
	if from == to {
		m.mu.Unlock()
		return nil
	}

	var flushErr error
	switch to {
	case ModeIdle:
		m.ring.clear()
		if m.resetDetection != nil {
			m.resetDetection()
		}
	case ModeMonitoring:
		m.ring.clear()
	case ModeTranscribing:
		if from == ModeMonitoring {
			for _, frame := range m.ring.drain() {
				if err := m.sink.SendAudio(frame); err != nil {
					flushErr = fmt.Errorf("failed to flush buffered audio: %w", err)
					break
				}
			}
		} else {
			if m.resetDetection != nil {
				m.resetDetection()
			}
		}
	default:
		m.mu.Unlock()
		return fmt.Errorf("%w: unknown microphone mode %q", ErrLogic, to)
	}
	m.mode = to
	m.mu.Unlock()

	if m.onModeChange != nil {
		m.onModeChange(events.NewMicModeChanged(string(from), string(to)))
	}
	return flushErr
}

// HandleFrame routes one captured frame according to the current mode.
// Intended to be wired as the detector's frame callback.
func (m *MicSession) HandleFrame(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case ModeIdle:
	case ModeMonitoring:
		m.ring.push(frame)
	case ModeTranscribing:
		if err := m.sink.SendAudio(frame); err != nil {
			logger.Error(fmt.Sprintf("Failed to forward audio frame: %v", err))
		}
	}
}

// frameRing is a fixed-capacity buffer of recent frames. Frames are
// copied on push since capture backends reuse their buffers.
type frameRing struct {
	frames [][]byte
	start  int
	count  int
}

func newFrameRing(capacity int) *frameRing {
	return &frameRing{frames: make([][]byte, capacity)}
}

func (r *frameRing) push(frame []byte) {
	copied := make([]byte, len(frame))
	copy(copied, frame)

	if r.count < len(r.frames) {
		r.frames[(r.start+r.count)%len(r.frames)] = copied
		r.count++
		return
	}
	r.frames[r.start] = copied
	r.start = (r.start + 1) % len(r.frames)
}

func (r *frameRing) drain() [][]byte {
	drained := make([][]byte, 0, r.count)
	for i := 0; i < r.count; i++ {
		drained = append(drained, r.frames[(r.start+i)%len(r.frames)])
	}
	r.clear()
	return drained
}

func (r *frameRing) clear() {
	for i := range r.frames {
		r.frames[i] = nil
	}
	r.start = 0
	r.count = 0
}
