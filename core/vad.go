package orchestration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/events"
)

// AudioSource produces capture frames. Stream blocks until ctx is cancelled
// or the device fails, invoking onAudio once per 20ms linear16 mono frame.
type AudioSource interface {
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	EncodingInfo() audio.EncodingInfo
	Close()
}

// AudioSourceFine is implemented by sources that can open the device
// synchronously, letting Start surface permission failures to the caller
// instead of reporting them through an event.
type AudioSourceFine interface {
	Open(ctx context.Context) error
}

// VADConfig tunes the energy detector. Zero values fall back to defaults.
type VADConfig struct {
	// SilenceThresholdRMS is the energy at or above which a frame counts as
	// loud.
	SilenceThresholdRMS float64
	// EndOfSpeech is the quiet run that closes an utterance.
	EndOfSpeech time.Duration
	// MinSpeechDuration is the shortest utterance accepted as speech; shorter
	// bursts are cleared as noise without an event.
	MinSpeechDuration time.Duration
	// MaxSilence bounds quiet time before any speech is heard; nil disables
	// the budget.
	MaxSilence *time.Duration
	// StartupGrace suppresses detection right after the recorder opens,
	// guarding against device click artifacts.
	StartupGrace time.Duration
	// AllowMultipleUtterances keeps detection running after an accepted
	// utterance instead of stopping.
	AllowMultipleUtterances bool
}

func (c VADConfig) withDefaults() VADConfig {
	if c.SilenceThresholdRMS == 0 {
		c.SilenceThresholdRMS = 300
	}
	if c.EndOfSpeech == 0 {
		c.EndOfSpeech = time.Second
	}
	if c.MinSpeechDuration == 0 {
		c.MinSpeechDuration = 250 * time.Millisecond
	}
	return c
}

type VADOption func(*VAD)

func WithVADConfig(cfg VADConfig) VADOption {
	return func(v *VAD) { v.cfg = cfg.withDefaults() }
}

// WithVoiceEventCallback registers the receiver of detection transitions.
// Callbacks run on the audio goroutine and must not block or call Stop;
// respond to events asynchronously instead.
func WithVoiceEventCallback(callback func(events.Event)) VADOption {
	return func(v *VAD) { v.onEvent = callback }
}

// WithFrameCallback registers the receiver of capture frames. Every frame is
// forwarded regardless of detection state; routing is the session's job.
func WithFrameCallback(callback func(frame []byte)) VADOption {
	return func(v *VAD) { v.onFrame = callback }
}

// VAD classifies capture frames as speech or silence from RMS energy and
// emits transition events. Detection timers advance by frame arithmetic
// (20ms per frame), never by wall clock.
type VAD struct {
	source AudioSource
	cfg    VADConfig

	onEvent func(events.Event)
	onFrame func(frame []byte)

	resetRequested atomic.Bool
	speechActive   atomic.Bool

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	detectionDone     bool
	inSpeech          bool
	sawSpeech         bool
	elapsed           time.Duration
	utteranceDuration time.Duration
	silenceDuration   time.Duration
}

func NewVAD(source AudioSource, opts ...VADOption) *VAD {
	v := &VAD{
		source:  source,
		cfg:     VADConfig{}.withDefaults(),
		onEvent: func(events.Event) {},
		onFrame: func([]byte) {},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start validates the source format, opens the device and begins the frame
// loop on a background goroutine.
func (v *VAD) Start(ctx context.Context) error {
	if v.source == nil {
		return fmt.Errorf("%w: no audio source configured", ErrDeviceUnavailable)
	}

	encoding := v.source.EncodingInfo()
	if encoding.Format != audio.EncodingLinear16 || encoding.SampleRate != audio.DefaultSampleRate {
		return fmt.Errorf("%w: detector requires %s at %dHz, source offers %s at %dHz",
			ErrUnsupportedFormat, audio.DefaultFormat, audio.DefaultSampleRate,
			encoding.Format.Name(), encoding.SampleRate)
	}

	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return fmt.Errorf("%w: detector already started", ErrLogic)
	}
	v.started = true
	ctx, v.cancel = context.WithCancel(ctx)
	v.mu.Unlock()

	if fine, ok := v.source.(AudioSourceFine); ok {
		if err := fine.Open(ctx); err != nil {
			v.mu.Lock()
			v.stopped = true
			v.mu.Unlock()
			return fmt.Errorf("failed to open audio source: %w", err)
		}
	}

	go func() {
		if err := v.source.Stream(ctx, v.processFrame); err != nil && ctx.Err() == nil {
			v.onEvent(events.NewVoiceError(err.Error()))
		}
	}()

	return nil
}

// Stop cancels the frame loop and releases the audio source. Idempotent; no
// frame is delivered after Stop returns.
func (v *VAD) Stop() {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}
	v.stopped = true
	cancel := v.cancel
	started := v.started
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started && v.source != nil {
		v.source.Close()
	}

	v.speechActive.Store(false)
}

// ResetDetection requests an atomic clear of all detection timers at the
// next frame boundary, without emitting an event. Safe to call from event
// callbacks.
func (v *VAD) ResetDetection() {
	v.resetRequested.Store(true)
}

// IsSpeechActive reports whether the detector currently judges speech to be
// in progress.
func (v *VAD) IsSpeechActive() bool {
	return v.speechActive.Load()
}

// processFrame runs on the source's stream goroutine. Event and frame
// delivery stay under the mutex so Stop's no-delivery-after-return guarantee
// holds.
func (v *VAD) processFrame(frame []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stopped || !v.started {
		return
	}

	if v.resetRequested.Swap(false) {
		v.resetLocked()
	}

	transitions, stopAfter := v.advanceLocked(frame)
	for _, event := range transitions {
		v.onEvent(event)
	}
	v.onFrame(frame)

	if stopAfter {
		v.stopped = true
		if v.cancel != nil {
			v.cancel()
		}
		v.source.Close()
	}
}

func (v *VAD) resetLocked() {
	v.inSpeech = false
	v.sawSpeech = false
	v.detectionDone = false
	v.elapsed = 0
	v.utteranceDuration = 0
	v.silenceDuration = 0
	v.speechActive.Store(false)
}

func (v *VAD) advanceLocked(frame []byte) (transitions []events.Event, stopAfter bool) {
	v.elapsed += audio.FrameDuration
	if v.detectionDone {
		return nil, false
	}
	if v.cfg.StartupGrace > 0 && v.elapsed <= v.cfg.StartupGrace {
		return nil, false
	}

	loud := audio.RMS(frame) >= v.cfg.SilenceThresholdRMS

	if loud {
		if !v.inSpeech {
			v.inSpeech = true
			v.sawSpeech = true
			v.utteranceDuration = 0
			v.speechActive.Store(true)
			transitions = append(transitions, events.NewVoiceSpeechStarted())
		}
		v.utteranceDuration += audio.FrameDuration
		v.silenceDuration = 0
		return transitions, false
	}

	v.silenceDuration += audio.FrameDuration

	if v.inSpeech {
		v.utteranceDuration += audio.FrameDuration
		if v.silenceDuration < v.cfg.EndOfSpeech {
			return transitions, false
		}

		duration := v.utteranceDuration - v.silenceDuration
		v.inSpeech = false
		v.utteranceDuration = 0
		v.speechActive.Store(false)

		if duration < v.cfg.MinSpeechDuration {
			// Too short to be speech: clear state as noise, keep the silence
			// budget running as if nothing was heard.
			v.sawSpeech = false
			return transitions, false
		}

		transitions = append(transitions, events.NewVoiceSpeechEnded(duration))
		if v.cfg.AllowMultipleUtterances {
			v.silenceDuration = 0
			v.sawSpeech = false
			return transitions, false
		}

		v.detectionDone = true
		return transitions, true
	}

	if !v.sawSpeech && v.cfg.MaxSilence != nil && v.silenceDuration >= *v.cfg.MaxSilence {
		transitions = append(transitions, events.NewVoiceSilenceTimeout())
		v.detectionDone = true
		return transitions, true
	}

	return transitions, false
}
