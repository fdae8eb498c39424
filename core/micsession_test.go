package orchestration

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/voicewire/duplex-core/core/events"
)

type recordingSink struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (s *recordingSink) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, audio)
	return nil
}

func (s *recordingSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.frames...)
}

func numberedFrame(i int) []byte {
	return []byte{byte(i), byte(i >> 8)}
}

func TestMicSessionIdleDropsFrames(t *testing.T) {
	sink := &recordingSink{}
	m := NewMicSession(sink)

	m.HandleFrame(numberedFrame(1))
	m.HandleFrame(numberedFrame(2))

	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if got := sink.received(); len(got) != 0 {
		t.Fatalf("expected idle frames to be dropped, sink got %d frames", len(got))
	}
}

func TestMicSessionFlushesPreRollBeforeLiveFrames(t *testing.T) {
	sink := &recordingSink{}
	m := NewMicSession(sink)

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	for i := 0; i < 10; i++ {
		m.HandleFrame(numberedFrame(i))
	}
	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	m.HandleFrame(numberedFrame(100))

	got := sink.received()
	if len(got) != 11 {
		t.Fatalf("expected 10 buffered + 1 live frame, got %d", len(got))
	}
	for i := 0; i < 10; i++ {
		if !bytes.Equal(got[i], numberedFrame(i)) {
			t.Fatalf("expected buffered frame %d at position %d, got %v", i, i, got[i])
		}
	}
	if !bytes.Equal(got[10], numberedFrame(100)) {
		t.Fatalf("expected live frame last, got %v", got[10])
	}
}

func TestMicSessionPreRollKeepsNewestFrames(t *testing.T) {
	sink := &recordingSink{}
	m := NewMicSession(sink, WithPreRollFrames(3))

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	for i := 0; i < 5; i++ {
		m.HandleFrame(numberedFrame(i))
	}
	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}

	got := sink.received()
	if len(got) != 3 {
		t.Fatalf("expected buffer capped at 3 frames, got %d", len(got))
	}
	for i, want := range []int{2, 3, 4} {
		if !bytes.Equal(got[i], numberedFrame(want)) {
			t.Fatalf("expected frame %d at position %d, got %v", want, i, got[i])
		}
	}
}

func TestMicSessionEnteringMonitoringClearsBuffer(t *testing.T) {
	sink := &recordingSink{}
	m := NewMicSession(sink)

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	m.HandleFrame(numberedFrame(1))
	if err := m.SetMode(ModeIdle); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}

	if got := sink.received(); len(got) != 0 {
		t.Fatalf("expected stale pre-roll to be discarded, sink got %d frames", len(got))
	}
}

func TestMicSessionResetsDetectionWhenSkippingMonitoring(t *testing.T) {
	resets := 0
	m := NewMicSession(&recordingSink{}, WithDetectionReset(func() { resets++ }))

	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if resets != 1 {
		t.Fatalf("expected detection reset when entering transcription cold, got %d resets", resets)
	}

	if err := m.SetMode(ModeIdle); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if resets != 2 {
		t.Fatalf("expected detection reset when going idle, got %d resets", resets)
	}
}

func TestMicSessionMonitoringToTranscribingKeepsDetectionState(t *testing.T) {
	resets := 0
	m := NewMicSession(&recordingSink{}, WithDetectionReset(func() { resets++ }))

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if err := m.SetMode(ModeTranscribing); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if resets != 0 {
		t.Fatalf("expected detection state preserved across promotion, got %d resets", resets)
	}
}

func TestMicSessionEmitsModeChanges(t *testing.T) {
	var changes []events.MicModeChanged
	m := NewMicSession(&recordingSink{},
		WithModeChangeCallback(func(event events.MicModeChanged) {
			changes = append(changes, event)
		}),
	)

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("expected a single transition event, got %d", len(changes))
	}
	if changes[0].From != string(ModeIdle) || changes[0].To != string(ModeMonitoring) {
		t.Fatalf("unexpected transition %s -> %s", changes[0].From, changes[0].To)
	}
}

func TestMicSessionSurfacesFlushErrors(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("stream closed")}
	m := NewMicSession(sink)

	if err := m.SetMode(ModeMonitoring); err != nil {
		t.Fatalf("failed to set mode: %v", err)
	}
	m.HandleFrame(numberedFrame(1))

	if err := m.SetMode(ModeTranscribing); err == nil {
		t.Fatalf("expected flush error to surface")
	}
	if m.Mode() != ModeTranscribing {
		t.Fatalf("expected mode to advance despite flush error, got %s", m.Mode())
	}
}
