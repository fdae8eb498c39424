package orchestration

import (
	"fmt"
	"sync"
	"testing"

	"github.com/voicewire/duplex-core/core/events"
)

type scriptedSynthesizer struct {
	mu      sync.Mutex
	spoken  []string
	ids     []string
	stopped int
	err     error
}

func (s *scriptedSynthesizer) Speak(text string, utteranceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.spoken = append(s.spoken, text)
	s.ids = append(s.ids, utteranceID)
	return nil
}

func (s *scriptedSynthesizer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *scriptedSynthesizer) spokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func TestPlaybackQueuePlaysInEnqueueOrder(t *testing.T) {
	synth := &scriptedSynthesizer{}
	q := NewPlaybackQueue(synth)

	first, err := q.Queue("first sentence")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	second, err := q.Queue("second sentence")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct utterance ids")
	}

	if got := synth.spokenTexts(); len(got) != 1 || got[0] != "first sentence" {
		t.Fatalf("expected only the first utterance to start, got %v", got)
	}
	if !q.IsSpeaking() {
		t.Fatalf("expected queue to report speaking")
	}

	q.NotifyUtteranceDone(first)
	if got := synth.spokenTexts(); len(got) != 2 || got[1] != "second sentence" {
		t.Fatalf("expected second utterance after first finished, got %v", got)
	}

	q.NotifyUtteranceDone(second)
	if q.IsSpeaking() {
		t.Fatalf("expected queue idle after draining")
	}
}

func TestPlaybackQueueEmitsLifecycleEvents(t *testing.T) {
	synth := &scriptedSynthesizer{}
	var mu sync.Mutex
	var kinds []events.Kind
	drained := 0
	q := NewPlaybackQueue(synth,
		WithPlaybackEventCallback(func(event events.Event) {
			mu.Lock()
			kinds = append(kinds, event.Kind())
			mu.Unlock()
		}),
		WithQueueDrainedCallback(func() { drained++ }),
	)

	id, err := q.Queue("hello")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	q.NotifyUtteranceDone(id)

	mu.Lock()
	defer mu.Unlock()
	want := []events.Kind{
		events.KindPlaybackStarted,
		events.KindPlaybackItemDone,
		events.KindPlaybackFinished,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, kinds)
		}
	}
	if drained != 1 {
		t.Fatalf("expected one drain notification, got %d", drained)
	}
}

func TestPlaybackQueueIgnoresStaleCompletions(t *testing.T) {
	synth := &scriptedSynthesizer{}
	q := NewPlaybackQueue(synth)

	id, err := q.Queue("hello")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	q.NotifyUtteranceDone("not-the-current-id")
	if !q.IsSpeaking() {
		t.Fatalf("expected stale completion to be ignored")
	}
	q.NotifyUtteranceDone(id)
	q.NotifyUtteranceDone(id)
	if q.IsSpeaking() {
		t.Fatalf("expected queue idle")
	}
}

func TestPlaybackQueueStopDiscardsEverything(t *testing.T) {
	synth := &scriptedSynthesizer{}
	q := NewPlaybackQueue(synth)

	id, err := q.Queue("one")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	if _, err := q.Queue("two"); err != nil {
		t.Fatalf("failed to queue: %v", err)
	}

	if err := q.Stop(); err != nil {
		t.Fatalf("failed to stop: %v", err)
	}
	if q.IsSpeaking() {
		t.Fatalf("expected queue idle after stop")
	}
	if synth.stopped != 1 {
		t.Fatalf("expected synthesizer stop, got %d calls", synth.stopped)
	}

	q.NotifyUtteranceDone(id)
	if got := synth.spokenTexts(); len(got) != 1 {
		t.Fatalf("expected no playback after stop, got %v", got)
	}

	if err := q.Stop(); err != nil {
		t.Fatalf("expected idle stop to be a no-op: %v", err)
	}
	if synth.stopped != 1 {
		t.Fatalf("expected no synthesizer stop while idle, got %d calls", synth.stopped)
	}
}

func TestPlaybackQueueClearKeepsCurrentUtterance(t *testing.T) {
	synth := &scriptedSynthesizer{}
	q := NewPlaybackQueue(synth)

	id, err := q.Queue("one")
	if err != nil {
		t.Fatalf("failed to queue: %v", err)
	}
	if _, err := q.Queue("two"); err != nil {
		t.Fatalf("failed to queue: %v", err)
	}

	q.ClearQueue()
	if !q.IsSpeaking() {
		t.Fatalf("expected current utterance to survive a clear")
	}

	q.NotifyUtteranceDone(id)
	if got := synth.spokenTexts(); len(got) != 1 {
		t.Fatalf("expected pending items dropped, got %v", got)
	}
}

func TestPlaybackQueueSurfacesSynthesizerErrors(t *testing.T) {
	synth := &scriptedSynthesizer{err: fmt.Errorf("device lost")}
	q := NewPlaybackQueue(synth)

	if _, err := q.Queue("hello"); err == nil {
		t.Fatalf("expected synthesis error to surface")
	}
	if q.IsSpeaking() {
		t.Fatalf("expected queue idle after failed start")
	}
}
