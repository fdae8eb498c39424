package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voicewire/duplex-core/core/events"
)

// BargeInConfig tunes when user speech over assistant output counts as
// an interruption, and how long the interrupting utterance is allowed
// to accumulate before it is acted on.
type BargeInConfig struct {
	// ListenerEnableDelay suppresses activity right after playback
	// starts, when the detector mostly hears the assistant's own
	// voice leaking back in.
	ListenerEnableDelay time.Duration
	// MinGenerationGrace suppresses activity right after a turn
	// starts generating. Users often trail off after their prompt;
	// cutting the turn for that is worse than a little latency.
	MinGenerationGrace time.Duration
	// SpeechDebounce is how long detected speech must persist before
	// an evaluation is entered; a lone loud frame must not cut the
	// assistant off. The same window suppresses re-triggering right
	// after an evaluation concluded.
	SpeechDebounce time.Duration
	// AccumulationPoll is how often the evaluator checks whether the
	// interrupting utterance has settled.
	AccumulationPoll time.Duration
	// QuietSamples is how many consecutive settled polls end the
	// accumulation.
	QuietSamples int
	// EvaluationCeiling bounds a single evaluation regardless of
	// settling.
	EvaluationCeiling time.Duration
}

func (c BargeInConfig) withDefaults() BargeInConfig {
	if c.ListenerEnableDelay == 0 {
		c.ListenerEnableDelay = 800 * time.Millisecond
	}
	if c.MinGenerationGrace == 0 {
		c.MinGenerationGrace = 2 * time.Second
	}
	if c.SpeechDebounce == 0 {
		c.SpeechDebounce = 300 * time.Millisecond
	}
	if c.AccumulationPoll == 0 {
		c.AccumulationPoll = 500 * time.Millisecond
	}
	if c.QuietSamples == 0 {
		c.QuietSamples = 3
	}
	if c.EvaluationCeiling == 0 {
		c.EvaluationCeiling = 30 * time.Second
	}
	return c
}

// InterruptionHooks are the manager's levers into the rest of the
// pipeline. All hooks are required.
type InterruptionHooks struct {
	// AbortTurn cancels in-flight generation once an interruption is
	// confirmed, without announcing it; the manager reports the
	// barge-in itself. Generation keeps running while an evaluation is
	// merely underway so a noise verdict loses nothing.
	AbortTurn func()
	// StopPlayback cuts off spoken output.
	StopPlayback func() error
	// SpeechActive reports whether the detector still judges speech to
	// be in progress.
	SpeechActive func() bool
	// RestartTranscription reopens transcription so the interrupting
	// utterance is captured from its start.
	RestartTranscription func() error
	// SpeechSettled reports whether the user stopped talking and no
	// transcription is still pending.
	SpeechSettled func() bool
	// Transcript returns the text accumulated since transcription was
	// restarted.
	Transcript func() string
	// StartTurn starts a fresh turn from the interrupting utterance.
	StartTurn func(prompt string)
}

type InterruptionManagerOption func(*InterruptionManager)

func WithBargeInConfig(config BargeInConfig) InterruptionManagerOption {
	return func(m *InterruptionManager) { m.config = config.withDefaults() }
}

func WithBargeInEventCallback(callback func(event events.Event)) InterruptionManagerOption {
	return func(m *InterruptionManager) { m.onEvent = callback }
}

// InterruptionManager decides whether user speech during assistant
// activity is a barge-in, and if so tears down the assistant's output
// and replays the user's utterance as a new turn.
type InterruptionManager struct {
	mu sync.Mutex

	config BargeInConfig
	hooks  InterruptionHooks

	generationStartedAt time.Time
	playbackStartedAt   time.Time
	assistantActive     bool

	evaluating        bool
	debouncing        bool
	evalCancel        context.CancelFunc
	lastEvaluationEnd time.Time

	// preEvaluation holds the transcript captured before the session
	// restart, the onset of the interrupting utterance that would
	// otherwise be lost with the restarted session.
	preEvaluation string

	// bufferedResponse holds a final-response delivery that arrived
	// while an evaluation was running. It is either flushed on
	// dismissal or dropped on confirmation, never both.
	bufferedResponse func()
	dropBuffered     func()

	onEvent func(event events.Event)

	now func() time.Time
}

func NewInterruptionManager(hooks InterruptionHooks, opts ...InterruptionManagerOption) *InterruptionManager {
	m := &InterruptionManager{
		config: BargeInConfig{}.withDefaults(),
		hooks:  hooks,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NotifyGenerationStarted arms the manager for the turn that just
// started generating.
func (m *InterruptionManager) NotifyGenerationStarted() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.assistantActive = true
	m.generationStartedAt = m.now()
	m.playbackStartedAt = time.Time{}
}

// NotifyPlaybackStarted marks spoken output as underway.
func (m *InterruptionManager) NotifyPlaybackStarted() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.assistantActive = true
	if m.playbackStartedAt.IsZero() {
		m.playbackStartedAt = m.now()
	}
}

// NotifyIdle disarms the manager; subsequent speech goes through the
// regular listening path instead.
func (m *InterruptionManager) NotifyIdle() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.assistantActive = false
	m.generationStartedAt = time.Time{}
	m.playbackStartedAt = time.Time{}
}

// OnVoiceActivity is wired to speech detection. When the assistant is
// active, the grace windows have passed and the speech persists through
// the debounce window, it starts a barge-in evaluation. The call blocks
// for the debounce window; run it off the detection goroutine.
func (m *InterruptionManager) OnVoiceActivity() {
	if m == nil {
		return
	}

	m.mu.Lock()
	if m.evaluating || m.debouncing || !m.assistantActive {
		m.mu.Unlock()
		return
	}

	now := m.now()
	if !m.generationStartedAt.IsZero() && now.Sub(m.generationStartedAt) < m.config.MinGenerationGrace {
		m.mu.Unlock()
		return
	}
	if !m.playbackStartedAt.IsZero() && now.Sub(m.playbackStartedAt) < m.config.ListenerEnableDelay {
		m.mu.Unlock()
		return
	}
	if !m.lastEvaluationEnd.IsZero() && now.Sub(m.lastEvaluationEnd) < m.config.SpeechDebounce {
		m.mu.Unlock()
		return
	}
	m.debouncing = true
	m.mu.Unlock()

	time.Sleep(m.config.SpeechDebounce)

	m.mu.Lock()
	m.debouncing = false
	if m.evaluating || !m.assistantActive || !m.hooks.SpeechActive() {
		// A transient blip, or the assistant finished meanwhile.
		m.mu.Unlock()
		return
	}
	m.evaluating = true
	ctx, cancel := context.WithCancel(context.Background())
	m.evalCancel = cancel
	m.mu.Unlock()

	m.emit(events.NewBargeInEvaluationStarted())

	// Playback stops right away; generation keeps running so its
	// answer can be held back and released on a noise verdict.
	if err := m.hooks.StopPlayback(); err != nil {
		logger.Error(fmt.Sprintf("Failed to stop playback for barge-in: %v", err))
	}

	pre := strings.TrimSpace(m.hooks.Transcript())
	m.mu.Lock()
	m.preEvaluation = pre
	m.mu.Unlock()

	if err := m.hooks.RestartTranscription(); err != nil {
		logger.Error(fmt.Sprintf("Failed to restart transcription for barge-in: %v", err))
	}

	worker := panicSafeNamedWorker("barge-in evaluation", m.accumulate)
	go func() {
		if err := worker(ctx); err != nil {
			logger.Error(fmt.Sprintf("Barge-in evaluation failed: %v", err))
		}
	}()
}

// accumulate waits for the interrupting utterance to settle, then
// resolves the evaluation.
func (m *InterruptionManager) accumulate(ctx context.Context) error {
	ticker := time.NewTicker(m.config.AccumulationPoll)
	defer ticker.Stop()

	ceiling := time.NewTimer(m.config.EvaluationCeiling)
	defer ceiling.Stop()

	quiet := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ceiling.C:
			m.finalize()
			return nil
		case <-ticker.C:
			if m.hooks.SpeechSettled() {
				quiet++
			} else {
				quiet = 0
			}
			if quiet >= m.config.QuietSamples {
				m.finalize()
				return nil
			}
		}
	}
}

func (m *InterruptionManager) finalize() {
	accumulated := strings.TrimSpace(m.hooks.Transcript())

	m.mu.Lock()
	if !m.evaluating {
		m.mu.Unlock()
		return
	}
	transcript := strings.TrimSpace(m.preEvaluation + " " + accumulated)
	m.preEvaluation = ""
	confirmed := transcript != ""
	m.mu.Unlock()

	if confirmed {
		// Cut generation before the evaluation flag clears so a
		// response finishing right now cannot slip past the intercept.
		m.hooks.AbortTurn()
	}

	m.mu.Lock()
	if !m.evaluating {
		// A Reset won the race; its cleanup stands.
		m.mu.Unlock()
		return
	}
	m.evaluating = false
	m.evalCancel = nil
	m.lastEvaluationEnd = m.now()

	buffered := m.bufferedResponse
	drop := m.dropBuffered
	m.bufferedResponse = nil
	m.dropBuffered = nil
	m.mu.Unlock()

	if !confirmed {
		// The detector fired but nothing transcribable came out.
		// Treat it as noise and let the held-back response through.
		m.emit(events.NewBargeInDismissed())
		if buffered != nil {
			buffered()
		}
		return
	}

	if drop != nil {
		drop()
	}
	m.emit(events.NewBargeInConfirmed(transcript))
	m.hooks.StartTurn(transcript)
}

// Intercept routes a final-response delivery through the manager. If
// an evaluation is running the delivery is held back until the
// evaluation resolves: dismissed evaluations let it through, confirmed
// ones drop it via onDrop. Otherwise it is delivered immediately.
func (m *InterruptionManager) Intercept(deliver func(), onDrop func()) {
	if m == nil {
		deliver()
		return
	}

	m.mu.Lock()
	if m.evaluating {
		m.bufferedResponse = deliver
		m.dropBuffered = onDrop
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	deliver()
}

func (m *InterruptionManager) IsEvaluating() bool {
	if m == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluating
}

// Reset abandons any running evaluation and drops held-back state.
// Safe to call at any time.
func (m *InterruptionManager) Reset() {
	if m == nil {
		return
	}

	m.mu.Lock()
	cancel := m.evalCancel
	m.evaluating = false
	m.evalCancel = nil
	m.preEvaluation = ""
	m.bufferedResponse = nil
	m.dropBuffered = nil
	m.assistantActive = false
	m.generationStartedAt = time.Time{}
	m.playbackStartedAt = time.Time{}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (m *InterruptionManager) emit(event events.Event) {
	if m.onEvent != nil {
		m.onEvent(event)
	}
}
