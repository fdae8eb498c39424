package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/events"
	"github.com/voicewire/duplex-core/internal/utils"
)

func loudFrame() []byte {
	samples := make([]int16, audio.FrameSamples)
	for i := range samples {
		samples[i] = 5000
	}
	return audio.ShortsToPCM16LE(samples)
}

func quietFrame() []byte {
	return make([]byte, audio.FrameBytes)
}

func repeatFrames(frame []byte, n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

type scriptedAudioSource struct {
	frames [][]byte

	mu     sync.Mutex
	closed bool
}

func (s *scriptedAudioSource) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (s *scriptedAudioSource) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	for _, frame := range s.frames {
		if ctx.Err() != nil {
			return nil
		}
		onAudio(frame)
	}
	<-ctx.Done()
	return nil
}

func (s *scriptedAudioSource) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *scriptedAudioSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) record(event events.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordedEvents) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, len(r.events))
	for i, event := range r.events {
		kinds[i] = event.Kind()
	}
	return kinds
}

func (r *recordedEvents) waitForKind(t *testing.T, kind events.Kind) events.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, event := range r.events {
			if event.Kind() == kind {
				r.mu.Unlock()
				return event
			}
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event, saw %v", kind, r.kinds())
	return nil
}

func testVADConfig() VADConfig {
	return VADConfig{
		SilenceThresholdRMS: 300,
		EndOfSpeech:         100 * time.Millisecond,
		MinSpeechDuration:   60 * time.Millisecond,
	}
}

func TestVADEmitsSpeechStartOnFirstLoudFrame(t *testing.T) {
	source := &scriptedAudioSource{frames: repeatFrames(loudFrame(), 3)}
	recorded := &recordedEvents{}
	v := NewVAD(source,
		WithVADConfig(testVADConfig()),
		WithVoiceEventCallback(recorded.record),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer v.Stop()

	recorded.waitForKind(t, events.KindVoiceSpeechStarted)

	if got := recorded.kinds(); got[0] != events.KindVoiceSpeechStarted {
		t.Fatalf("expected speech started first, got %v", got)
	}
	if count := len(recorded.kinds()); count != 1 {
		t.Fatalf("expected a single transition for sustained speech, got %d", count)
	}
}

func TestVADEmitsSpeechEndWithUtteranceDuration(t *testing.T) {
	frames := append(repeatFrames(loudFrame(), 10), repeatFrames(quietFrame(), 6)...)
	source := &scriptedAudioSource{frames: frames}
	recorded := &recordedEvents{}
	v := NewVAD(source,
		WithVADConfig(testVADConfig()),
		WithVoiceEventCallback(recorded.record),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer v.Stop()

	event := recorded.waitForKind(t, events.KindVoiceSpeechEnded)

	ended := event.(events.VoiceSpeechEnded)
	if ended.Duration != 10*audio.FrameDuration {
		t.Fatalf("expected 200ms utterance, got %s", ended.Duration)
	}
}

func TestVADClearsShortBurstAsNoise(t *testing.T) {
	frames := append(repeatFrames(loudFrame(), 2), repeatFrames(quietFrame(), 10)...)
	source := &scriptedAudioSource{frames: frames}
	recorded := &recordedEvents{}
	v := NewVAD(source,
		WithVADConfig(testVADConfig()),
		WithVoiceEventCallback(recorded.record),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer v.Stop()

	recorded.waitForKind(t, events.KindVoiceSpeechStarted)
	time.Sleep(50 * time.Millisecond)

	for _, kind := range recorded.kinds() {
		if kind == events.KindVoiceSpeechEnded {
			t.Fatalf("expected short burst to be cleared as noise, got speech ended")
		}
	}
}

func TestVADSilenceTimeoutStopsDetector(t *testing.T) {
	source := &scriptedAudioSource{frames: repeatFrames(quietFrame(), 20)}
	recorded := &recordedEvents{}
	cfg := testVADConfig()
	cfg.MaxSilence = utils.Ptr(100 * time.Millisecond)
	v := NewVAD(source,
		WithVADConfig(cfg),
		WithVoiceEventCallback(recorded.record),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}

	recorded.waitForKind(t, events.KindVoiceSilenceTimeout)

	deadline := time.Now().Add(2 * time.Second)
	for !source.isClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("expected audio source to be released after silence timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestVADStartupGraceSuppressesEarlyTriggers(t *testing.T) {
	frames := append(repeatFrames(loudFrame(), 2), repeatFrames(quietFrame(), 4)...)
	source := &scriptedAudioSource{frames: frames}
	recorded := &recordedEvents{}
	cfg := testVADConfig()
	cfg.StartupGrace = 80 * time.Millisecond
	v := NewVAD(source,
		WithVADConfig(cfg),
		WithVoiceEventCallback(recorded.record),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer v.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := recorded.kinds(); len(got) != 0 {
		t.Fatalf("expected device click inside grace window to be ignored, got %v", got)
	}
}

func TestVADForwardsFramesInCaptureOrder(t *testing.T) {
	frames := [][]byte{loudFrame(), quietFrame(), loudFrame()}
	source := &scriptedAudioSource{frames: frames}

	var mu sync.Mutex
	var forwarded [][]byte
	v := NewVAD(source,
		WithVADConfig(testVADConfig()),
		WithFrameCallback(func(frame []byte) {
			mu.Lock()
			forwarded = append(forwarded, frame)
			mu.Unlock()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := v.Start(ctx); err != nil {
		t.Fatalf("failed to start detector: %v", err)
	}
	defer v.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		count := len(forwarded)
		mu.Unlock()
		if count == len(frames) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames, got %d", len(frames), count)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range frames {
		if &forwarded[i][0] != &frames[i][0] {
			t.Fatalf("expected frame %d forwarded unchanged and in order", i)
		}
	}
}

func TestVADRejectsUnsupportedFormat(t *testing.T) {
	source := &scriptedAudioSource{}
	v := NewVAD(&mulawSource{scriptedAudioSource: source})

	err := v.Start(context.Background())
	if err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

type mulawSource struct{ *scriptedAudioSource }

func (s *mulawSource) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}
}
