package orchestration

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/voicewire/duplex-core/core/events"
)

// SpeechSynthesizer turns one utterance into audible speech. Speak is
// expected to return once synthesis is underway; completion is reported
// back through the queue's NotifyUtteranceDone with the same id.
type SpeechSynthesizer interface {
	Speak(text string, utteranceID string) error
}

// speechSynthesizerStopper is an optional upgrade for synthesizers that
// can cut off an utterance mid-playback.
type speechSynthesizerStopper interface {
	Stop() error
}

type playbackItem struct {
	id   string
	text string
}

type PlaybackQueueOption func(*PlaybackQueue)

func WithPlaybackEventCallback(callback func(event events.Event)) PlaybackQueueOption {
	return func(q *PlaybackQueue) { q.onEvent = callback }
}

// WithQueueDrainedCallback registers a hook invoked each time the queue
// transitions from speaking back to empty.
func WithQueueDrainedCallback(callback func()) PlaybackQueueOption {
	return func(q *PlaybackQueue) { q.onDrained = callback }
}

// PlaybackQueue serialises assistant utterances through a synthesizer,
// one at a time in enqueue order.
type PlaybackQueue struct {
	mu      sync.Mutex
	pending []playbackItem
	current *playbackItem

	synthesizer SpeechSynthesizer
	onEvent     func(event events.Event)
	onDrained   func()
}

func NewPlaybackQueue(synthesizer SpeechSynthesizer, opts ...PlaybackQueueOption) *PlaybackQueue {
	q := &PlaybackQueue{synthesizer: synthesizer}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Queue enqueues text for playback and returns its utterance id. When
// nothing is currently playing, playback starts immediately.
func (q *PlaybackQueue) Queue(text string) (string, error) {
	if q == nil {
		return "", nil
	}

	item := playbackItem{id: uuid.NewString(), text: text}

	q.mu.Lock()
	if q.current != nil {
		q.pending = append(q.pending, item)
		q.mu.Unlock()
		return item.id, nil
	}
	q.current = &item
	q.mu.Unlock()

	if err := q.speak(item); err != nil {
		return item.id, err
	}
	return item.id, nil
}

func (q *PlaybackQueue) speak(item playbackItem) error {
	q.emit(events.NewPlaybackStarted(item.id))
	if err := q.synthesizer.Speak(item.text, item.id); err != nil {
		q.mu.Lock()
		if q.current != nil && q.current.id == item.id {
			q.current = nil
		}
		q.mu.Unlock()
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

// NotifyUtteranceDone advances the queue after the synthesizer finished
// the given utterance. Stale ids from a previous queue generation are
// ignored.
func (q *PlaybackQueue) NotifyUtteranceDone(utteranceID string) {
	if q == nil {
		return
	}

	q.mu.Lock()
	if q.current == nil || q.current.id != utteranceID {
		q.mu.Unlock()
		return
	}
	q.current = nil

	var next *playbackItem
	if len(q.pending) > 0 {
		item := q.pending[0]
		q.pending = q.pending[1:]
		q.current = &item
		next = &item
	}
	q.mu.Unlock()

	q.emit(events.NewPlaybackItemDone(utteranceID))

	if next != nil {
		if err := q.speak(*next); err != nil {
			logger.Error(fmt.Sprintf("Failed to continue playback: %v", err))
			q.NotifyUtteranceDone(next.id)
		}
		return
	}

	q.emit(events.NewPlaybackFinished())
	if q.onDrained != nil {
		q.onDrained()
	}
}

// Stop cuts off the current utterance and discards everything pending.
// Safe to call when nothing is playing.
func (q *PlaybackQueue) Stop() error {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	wasSpeaking := q.current != nil
	q.current = nil
	q.pending = nil
	q.mu.Unlock()

	if !wasSpeaking {
		return nil
	}

	if stopper, ok := q.synthesizer.(speechSynthesizerStopper); ok {
		if err := stopper.Stop(); err != nil {
			return fmt.Errorf("failed to stop playback: %w", err)
		}
	}
	return nil
}

// ClearQueue discards pending utterances but lets the current one
// finish.
func (q *PlaybackQueue) ClearQueue() {
	if q == nil {
		return
	}

	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}

func (q *PlaybackQueue) IsSpeaking() bool {
	if q == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

func (q *PlaybackQueue) emit(event events.Event) {
	if q.onEvent != nil {
		q.onEvent(event)
	}
}
