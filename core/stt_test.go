package orchestration

import (
	"context"
	"sync"
	"testing"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/speechtotext"
)

type scriptedTranscriber struct {
	mu      sync.Mutex
	options speechtotext.TranscriptionOptions
	starts  int
	closes  int
	audio   [][]byte
}

func (c *scriptedTranscriber) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&c.options)
	}
	c.starts++
	return nil
}

func (c *scriptedTranscriber) SendAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = append(c.audio, audio)
	return nil
}

func (c *scriptedTranscriber) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *scriptedTranscriber) callbacks() speechtotext.TranscriptionOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

func TestSpeechToTextAccumulatesFinalSegments(t *testing.T) {
	client := &scriptedTranscriber{}
	s := newSpeechToText(client, audio.GetDefaultEncodingInfo())

	var segments []string
	s.setCallbacks(func(transcript string) { segments = append(segments, transcript) }, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	callbacks := client.callbacks()
	callbacks.TranscriptionCallback("turn left here")
	callbacks.TranscriptionCallback("then stop")

	if got := s.AccumulatedTranscript(); got != "turn left here then stop" {
		t.Fatalf("unexpected accumulated transcript %q", got)
	}
	if len(segments) != 2 {
		t.Fatalf("expected both segments forwarded, got %v", segments)
	}
}

func TestSpeechToTextSettlesOnlyWhenQuietAndDrained(t *testing.T) {
	client := &scriptedTranscriber{}
	s := newSpeechToText(client, audio.GetDefaultEncodingInfo())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if !s.SpeechSettled() {
		t.Fatalf("expected fresh session to be settled")
	}

	callbacks := client.callbacks()
	callbacks.SpeechStartedCallback()
	if s.SpeechSettled() {
		t.Fatalf("expected active speech to block settling")
	}

	callbacks.SpeechEndedCallback()
	callbacks.InterimTranscriptionCallback("partial guess")
	if s.SpeechSettled() {
		t.Fatalf("expected pending interim to block settling")
	}

	callbacks.TranscriptionCallback("partial guess, finalised")
	if !s.SpeechSettled() {
		t.Fatalf("expected settled after segment finalised")
	}
}

func TestSpeechToTextRestartClearsAccumulation(t *testing.T) {
	client := &scriptedTranscriber{}
	s := newSpeechToText(client, audio.GetDefaultEncodingInfo())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	client.callbacks().TranscriptionCallback("stale words")

	if err := s.Restart(context.Background()); err != nil {
		t.Fatalf("failed to restart: %v", err)
	}

	if got := s.AccumulatedTranscript(); got != "" {
		t.Fatalf("expected accumulation cleared, got %q", got)
	}
	client.mu.Lock()
	starts, closes := client.starts, client.closes
	client.mu.Unlock()
	if starts != 2 || closes != 1 {
		t.Fatalf("expected close and reopen, got %d starts and %d closes", starts, closes)
	}
}

func TestSpeechToTextForwardsAudio(t *testing.T) {
	client := &scriptedTranscriber{}
	s := newSpeechToText(client, audio.GetDefaultEncodingInfo())

	frame := []byte{1, 2, 3, 4}
	if err := s.SendAudio(frame); err != nil {
		t.Fatalf("failed to send audio: %v", err)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.audio) != 1 {
		t.Fatalf("expected one frame forwarded")
	}
}

func TestSpeechToTextUnconfiguredIsInert(t *testing.T) {
	s := newSpeechToText(nil, audio.GetDefaultEncodingInfo())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("expected unconfigured start to be a no-op: %v", err)
	}
	if err := s.SendAudio([]byte{0}); err != nil {
		t.Fatalf("expected unconfigured send to be a no-op: %v", err)
	}
	if !s.SpeechSettled() {
		t.Fatalf("expected unconfigured session to be settled")
	}
}
