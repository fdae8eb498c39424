package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/voicewire/duplex-core/core/events"
	"github.com/voicewire/duplex-core/core/llms"
)

const defaultMaxSentences = 4

type TurnEngineOption func(*TurnEngine)

func WithModel(model string) TurnEngineOption {
	return func(e *TurnEngine) { e.model = model }
}

func WithSystemPrompt(prompt string) TurnEngineOption {
	return func(e *TurnEngine) { e.systemPrompt = prompt }
}

func WithMaxSentences(n int) TurnEngineOption {
	return func(e *TurnEngine) {
		if n > 0 {
			e.maxSentences = n
		}
	}
}

func WithSamplingParams(params llms.SamplingParams) TurnEngineOption {
	return func(e *TurnEngine) { e.params = params }
}

// WithFastFirstSentence makes the engine request the opening sentence
// in a separate, quicker round-trip so speech can start earlier.
func WithFastFirstSentence() TurnEngineOption {
	return func(e *TurnEngine) { e.fastFirst = true }
}

func WithTurnEventCallback(callback func(event events.Event)) TurnEngineOption {
	return func(e *TurnEngine) { e.onEvent = callback }
}

func WithFirstSentenceCallback(callback func(turnID int64, sentence string)) TurnEngineOption {
	return func(e *TurnEngine) { e.onFirstSentence = callback }
}

func WithRemainingSentencesCallback(callback func(turnID int64, sentences []string)) TurnEngineOption {
	return func(e *TurnEngine) { e.onRemainingSentences = callback }
}

func WithFinalResponseCallback(callback func(turnID int64, sentences []string, sources []llms.Source)) TurnEngineOption {
	return func(e *TurnEngine) { e.onFinalResponse = callback }
}

func WithGenerationErrorCallback(callback func(turnID int64, err error)) TurnEngineOption {
	return func(e *TurnEngine) { e.onError = callback }
}

// turnRun tracks one in-flight generation. Its id doubles as a
// liveness token: callbacks from a superseded run are dropped.
type turnRun struct {
	id       int64
	cancel   context.CancelFunc
	strategy generationStrategy
}

// TurnEngine owns the conversation history and drives one generation
// at a time. Starting a new turn aborts whatever was running.
type TurnEngine struct {
	mu      sync.Mutex
	history []llms.Msg
	active  *turnRun
	seq     int64
	phase   GenerationPhase

	client       llms.Client
	model        string
	systemPrompt string
	maxSentences int
	params       llms.SamplingParams
	fastFirst    bool

	onEvent              func(event events.Event)
	onFirstSentence      func(turnID int64, sentence string)
	onRemainingSentences func(turnID int64, sentences []string)
	onFinalResponse      func(turnID int64, sentences []string, sources []llms.Source)
	onError              func(turnID int64, err error)
}

func NewTurnEngine(client llms.Client, opts ...TurnEngineOption) *TurnEngine {
	e := &TurnEngine{
		client:       client,
		maxSentences: defaultMaxSentences,
		phase:        PhaseIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartTurn records the user's prompt and kicks off generation. A
// blank prompt is a no-op. A turn already in flight is aborted without
// an interruption event, the new turn supersedes it. Returns the new
// turn's id, or 0 for a no-op.
func (e *TurnEngine) StartTurn(prompt string) int64 {
	if e == nil {
		return 0
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return 0
	}

	e.mu.Lock()
	e.abortLocked()

	e.seq++
	id := e.seq
	e.history = append(e.history, llms.Msg{Role: llms.RoleUser, Text: prompt})

	var history []llms.Msg
	if err := copier.Copy(&history, &e.history); err != nil {
		history = append([]llms.Msg(nil), e.history...)
	}

	var strategy generationStrategy
	if e.fastFirst {
		strategy = &fastFirstStrategy{}
	} else {
		strategy = &regularStrategy{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &turnRun{id: id, cancel: cancel, strategy: strategy}
	e.active = run
	e.phase = PhaseIdle

	req := generationRequest{
		SystemPrompt: e.systemPrompt,
		History:      history,
		Model:        e.model,
		MaxSentences: e.maxSentences,
		Params:       e.params,
	}
	client := e.client
	e.mu.Unlock()

	e.emit(events.NewTurnStarted(id, prompt))

	worker := panicSafeNamedWorker("generation", func(ctx context.Context) error {
		ctx, span := tracer.Start(ctx, "process turn")
		defer span.End()
		strategy.execute(ctx, client, req, e.callbacksFor(run))
		return nil
	})
	go func() {
		if err := worker(ctx); err != nil {
			logger.Error(fmt.Sprintf("Turn generation worker failed: %v", err))
		}
	}()

	return id
}

func (e *TurnEngine) callbacksFor(run *turnRun) generationCallbacks {
	return generationCallbacks{
		onPhase: func(phase GenerationPhase) {
			e.mu.Lock()
			live := e.active == run
			if live {
				e.phase = phase
			}
			e.mu.Unlock()
			if live {
				e.emit(events.NewTurnPhaseChanged(string(phase)))
			}
		},
		onFirstSentence: func(sentence string) {
			if e.isLive(run) && e.onFirstSentence != nil {
				e.onFirstSentence(run.id, sentence)
			}
		},
		onRemainingSentences: func(sentences []string) {
			if e.isLive(run) && e.onRemainingSentences != nil {
				e.onRemainingSentences(run.id, sentences)
			}
		},
		onFinalResponse: func(sentences []string, sources []llms.Source) {
			e.mu.Lock()
			live := e.active == run
			if live {
				e.history = append(e.history, llms.Msg{
					Role: llms.RoleAssistant,
					Text: strings.Join(sentences, " "),
				})
			}
			e.mu.Unlock()
			if live && e.onFinalResponse != nil {
				e.onFinalResponse(run.id, sentences, sources)
			}
		},
		onError: func(err error) {
			if e.isLive(run) && e.onError != nil {
				e.onError(run.id, err)
			}
		},
		onTurnFinish: func() {
			e.mu.Lock()
			finished := e.active == run
			if finished {
				e.active = nil
				e.phase = PhaseIdle
			}
			e.mu.Unlock()

			if finished {
				e.emit(events.NewTurnFinished(run.id))
			}
		},
	}
}

func (e *TurnEngine) isLive(run *turnRun) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active == run
}

// Abort cancels the in-flight turn, if any, and announces the
// interruption. Idempotent.
func (e *TurnEngine) Abort() {
	e.abort(false)
}

// abortQuietly cancels without an interruption event, for paths where
// the interruption is reported elsewhere or the turn is superseded.
func (e *TurnEngine) abortQuietly() {
	e.abort(true)
}

func (e *TurnEngine) abort(silent bool) {
	if e == nil {
		return
	}

	e.mu.Lock()
	aborted := e.abortLocked()
	e.mu.Unlock()

	if aborted && !silent {
		e.emit(events.NewTurnInterrupted())
	}
}

func (e *TurnEngine) abortLocked() bool {
	if e.active == nil {
		return false
	}

	run := e.active
	e.active = nil
	e.phase = PhaseIdle
	run.strategy.abort()
	run.cancel()
	return true
}

func (e *TurnEngine) IsGenerating() bool {
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

func (e *TurnEngine) Phase() GenerationPhase {
	if e == nil {
		return PhaseIdle
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// History returns a copy of the conversation so far.
func (e *TurnEngine) History() []llms.Msg {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var history []llms.Msg
	if err := copier.Copy(&history, &e.history); err != nil {
		history = append([]llms.Msg(nil), e.history...)
	}
	return history
}

// AppendAssistantText records assistant speech that happened outside a
// generation, merging into a trailing assistant message when present.
func (e *TurnEngine) AppendAssistantText(text string) {
	if e == nil || strings.TrimSpace(text) == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n := len(e.history); n > 0 && e.history[n-1].Role == llms.RoleAssistant {
		e.history[n-1].Text = strings.TrimSpace(e.history[n-1].Text + " " + text)
		return
	}
	e.history = append(e.history, llms.Msg{Role: llms.RoleAssistant, Text: text})
}

// ReplaceLastUserMessage rewrites the most recent user message, used
// when a better transcript of the same utterance arrives.
func (e *TurnEngine) ReplaceLastUserMessage(text string) bool {
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].Role == llms.RoleUser {
			e.history[i].Text = text
			return true
		}
	}
	return false
}

// RemoveTrailingAssistantMessage drops the last message when it is an
// assistant one, used when a superseding user turn makes the partial
// response moot.
func (e *TurnEngine) RemoveTrailingAssistantMessage() bool {
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n := len(e.history); n > 0 && e.history[n-1].Role == llms.RoleAssistant {
		e.history = e.history[:n-1]
		return true
	}
	return false
}

func (e *TurnEngine) emit(event events.Event) {
	if e.onEvent != nil {
		e.onEvent(event)
	}
}
