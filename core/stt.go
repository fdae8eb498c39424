package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/speechtotext"
)

// SpeechToText is the minimal contract a transcription provider has to
// satisfy. Closing is negotiated through optional upgrades, providers
// differ in what teardown they expose.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

const (
	restartBackoffStep = time.Second
	restartBackoffCap  = 5 * time.Second
	restartStreakReset = 30 * time.Second
)

// speechToText wraps the configured transcription client with session
// bookkeeping: it accumulates finalised segments, tracks whether the
// user is mid-utterance, and transparently reopens sessions the
// provider dropped for inactivity.
type speechToText struct {
	client SpeechToText

	mu           sync.Mutex
	encodingInfo audio.EncodingInfo
	segments     []string
	interim      string
	speechActive bool

	restartStreak int
	lastRestart   time.Time

	onSegment func(transcript string)
	onInterim func(transcript string)
}

func newSpeechToText(client SpeechToText, encodingInfo audio.EncodingInfo) *speechToText {
	return &speechToText{
		client:       client,
		encodingInfo: encodingInfo,
	}
}

func (s *speechToText) setCallbacks(onSegment func(transcript string), onInterim func(transcript string)) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if onSegment != nil {
		s.onSegment = onSegment
	}
	if onInterim != nil {
		s.onInterim = onInterim
	}
}

func (s *speechToText) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechToText) Start(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	options := []speechtotext.TranscriptionOption{
		speechtotext.WithEncodingInfo(s.encodingInfo),
		speechtotext.WithSpeechStartedCallback(func() {
			s.mu.Lock()
			s.speechActive = true
			s.mu.Unlock()
		}),
		speechtotext.WithSpeechEndedCallback(func() {
			s.mu.Lock()
			s.speechActive = false
			s.mu.Unlock()
		}),
		speechtotext.WithInterimTranscriptionCallback(func(transcript string) {
			s.mu.Lock()
			s.interim = transcript
			onInterim := s.onInterim
			s.mu.Unlock()
			if onInterim != nil {
				onInterim(transcript)
			}
		}),
		speechtotext.WithTranscriptionCallback(func(transcript string) {
			s.mu.Lock()
			s.segments = append(s.segments, transcript)
			s.interim = ""
			onSegment := s.onSegment
			s.mu.Unlock()
			if onSegment != nil {
				onSegment(transcript)
			}
		}),
		speechtotext.WithSessionTimeoutCallback(func() {
			// Providers cap idle sessions. Reopen quietly; nothing
			// was being said anyway.
			if err := s.Restart(ctx); err != nil {
				logger.Error(fmt.Sprintf("Failed to reopen transcription session: %v", err))
			}
		}),
	}

	if err := s.client.Transcribe(ctx, options...); err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}
	return nil
}

// Restart tears the session down and opens a fresh one, clearing the
// accumulated transcript. Rapid successive restarts back off linearly
// so a flapping provider is not hammered.
func (s *speechToText) Restart(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	s.mu.Lock()
	now := time.Now()
	if !s.lastRestart.IsZero() && now.Sub(s.lastRestart) > restartStreakReset {
		s.restartStreak = 0
	}
	s.restartStreak++
	s.lastRestart = now
	backoff := time.Duration(s.restartStreak-1) * restartBackoffStep
	if backoff > restartBackoffCap {
		backoff = restartBackoffCap
	}
	s.segments = nil
	s.interim = ""
	s.speechActive = false
	s.mu.Unlock()

	if err := s.closeClient(ctx); err != nil {
		logger.Warn(fmt.Sprintf("Failed to close transcription session before restart: %v", err))
	}

	if backoff > 0 {
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return s.Start(ctx)
}

// SendAudio forwards a frame into the open session.
func (s *speechToText) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

// AccumulatedTranscript joins the finalised segments captured since the
// last restart.
func (s *speechToText) AccumulatedTranscript() string {
	if s == nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(strings.Join(s.segments, " "))
}

func (s *speechToText) ClearAccumulated() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = nil
	s.interim = ""
}

// SpeechSettled reports that the user is not mid-utterance and no
// interim transcription is pending.
func (s *speechToText) SpeechSettled() bool {
	if s == nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.speechActive && s.interim == ""
}

func (s *speechToText) Close(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	return s.closeClient(ctx)
}

func (s *speechToText) closeClient(ctx context.Context) error {
	switch c := s.client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
