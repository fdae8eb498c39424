package orchestration

import (
	"context"
	"fmt"
	"sync"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/texttospeech"
)

// SpeechGenerator renders text into audio.
type SpeechGenerator interface {
	Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error)
}

// AudioSink plays rendered audio. Play blocks until the audio was
// played out or the context is cancelled.
type AudioSink interface {
	Play(ctx context.Context, audio []byte) error
}

type audioSinkStopper interface {
	Stop() error
}

// textToSpeech couples a speech generator with an audio sink and
// reports utterance lifecycle back to the playback queue. It satisfies
// SpeechSynthesizer.
type textToSpeech struct {
	generator    SpeechGenerator
	sink         AudioSink
	encodingInfo audio.EncodingInfo

	mu     sync.Mutex
	cancel context.CancelFunc

	onDone  func(utteranceID string)
	onError func(utteranceID string, err error)
}

func newTextToSpeech(generator SpeechGenerator, sink AudioSink, encodingInfo audio.EncodingInfo) *textToSpeech {
	return &textToSpeech{
		generator:    generator,
		sink:         sink,
		encodingInfo: encodingInfo,
	}
}

func (t *textToSpeech) setCallbacks(onDone func(utteranceID string), onError func(utteranceID string, err error)) {
	if t == nil {
		return
	}

	if onDone != nil {
		t.onDone = onDone
	}
	if onError != nil {
		t.onError = onError
	}
}

func (t *textToSpeech) isConfigured() bool {
	return t != nil && t.generator != nil && t.sink != nil
}

// Speak renders and plays one utterance asynchronously. Completion or
// failure is reported through the configured callbacks with the same
// utterance id.
func (t *textToSpeech) Speak(text string, utteranceID string) error {
	if !t.isConfigured() {
		return fmt.Errorf("%w: no speech output configured", ErrLogic)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	worker := panicSafeNamedWorker("speech synthesis", func(ctx context.Context) error {
		rendered, err := t.generator.Synthesize(ctx, text,
			texttospeech.WithEncodingInfo(t.encodingInfo))
		if err != nil {
			if ctx.Err() == nil && t.onError != nil {
				t.onError(utteranceID, fmt.Errorf("failed to synthesize speech: %w", err))
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := t.sink.Play(ctx, rendered); err != nil {
			if ctx.Err() == nil && t.onError != nil {
				t.onError(utteranceID, fmt.Errorf("failed to play speech: %w", err))
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		if t.onDone != nil {
			t.onDone(utteranceID)
		}
		return nil
	})
	go func() {
		if err := worker(ctx); err != nil {
			logger.Error(fmt.Sprintf("Speech synthesis worker failed: %v", err))
		}
	}()

	return nil
}

// Stop cancels the in-flight utterance, if any.
func (t *textToSpeech) Stop() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if stopper, ok := t.sink.(audioSinkStopper); ok {
		if err := stopper.Stop(); err != nil {
			return fmt.Errorf("failed to stop audio output: %w", err)
		}
	}
	return nil
}
