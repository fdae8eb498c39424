package orchestration

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voicewire/duplex-core/core/events"
	"github.com/voicewire/duplex-core/core/llms"
)

type generateCall struct {
	systemPrompt string
	history      []llms.Msg
}

type scriptedLLM struct {
	mu        sync.Mutex
	calls     []generateCall
	responses []string

	// release, when set, blocks Generate until closed or the context
	// is cancelled.
	release chan struct{}
}

func (c *scriptedLLM) Generate(ctx context.Context, systemPrompt string, history []llms.Msg, model string, params llms.SamplingParams) (*llms.Completion, error) {
	c.mu.Lock()
	c.calls = append(c.calls, generateCall{systemPrompt: systemPrompt, history: history})
	response := "Okay."
	if len(c.responses) > 0 {
		response = c.responses[0]
		c.responses = c.responses[1:]
	}
	release := c.release
	c.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &llms.Completion{Text: response}, nil
}

func (c *scriptedLLM) recordedCalls() []generateCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]generateCall(nil), c.calls...)
}

func TestTurnEngineIgnoresBlankPrompts(t *testing.T) {
	client := &scriptedLLM{}
	e := NewTurnEngine(client)

	if id := e.StartTurn("   \n "); id != 0 {
		t.Fatalf("expected blank prompt to be a no-op, got turn %d", id)
	}
	if len(client.recordedCalls()) != 0 {
		t.Fatalf("expected no generation for blank prompt")
	}
	if len(e.History()) != 0 {
		t.Fatalf("expected history untouched")
	}
}

func TestTurnEngineDeliversFinalResponse(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"The tower is 330 meters tall. It was finished in 1889.",
	}}

	final := make(chan []string, 1)
	var mu sync.Mutex
	var kinds []events.Kind
	e := NewTurnEngine(client,
		WithTurnEventCallback(func(event events.Event) {
			mu.Lock()
			kinds = append(kinds, event.Kind())
			mu.Unlock()
		}),
		WithFinalResponseCallback(func(turnID int64, sentences []string, sources []llms.Source) {
			final <- sentences
		}),
	)

	id := e.StartTurn("How tall is the Eiffel Tower?")
	if id != 1 {
		t.Fatalf("expected first turn id 1, got %d", id)
	}

	select {
	case sentences := <-final:
		if len(sentences) != 2 {
			t.Fatalf("expected response split into 2 sentences, got %v", sentences)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for final response")
	}

	history := e.History()
	if len(history) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(history))
	}
	if history[0].Role != llms.RoleUser || history[1].Role != llms.RoleAssistant {
		t.Fatalf("unexpected history roles %v, %v", history[0].Role, history[1].Role)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := len(kinds) > 0 && kinds[len(kinds)-1] == events.KindTurnFinished
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for turn finished event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if kinds[0] != events.KindTurnStarted {
		t.Fatalf("expected turn started first, got %v", kinds)
	}
}

func TestTurnEngineTruncatesToSentenceBudget(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"One thing to know here. Another thing to know. A third thing entirely.",
	}}

	final := make(chan []string, 1)
	e := NewTurnEngine(client,
		WithMaxSentences(2),
		WithFinalResponseCallback(func(turnID int64, sentences []string, sources []llms.Source) {
			final <- sentences
		}),
	)

	e.StartTurn("Tell me things")

	select {
	case sentences := <-final:
		if len(sentences) != 2 {
			t.Fatalf("expected response capped at 2 sentences, got %v", sentences)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for final response")
	}
}

func TestTurnEngineFastFirstCombinesRounds(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"Paris is the capital of France.",
		"It has been so since the tenth century. Its population is about two million.",
	}}

	first := make(chan string, 1)
	final := make(chan []string, 1)
	e := NewTurnEngine(client,
		WithFastFirstSentence(),
		WithFirstSentenceCallback(func(turnID int64, sentence string) {
			first <- sentence
		}),
		WithFinalResponseCallback(func(turnID int64, sentences []string, sources []llms.Source) {
			final <- sentences
		}),
	)

	e.StartTurn("What is the capital of France?")

	select {
	case sentence := <-first:
		if sentence != "Paris is the capital of France." {
			t.Fatalf("unexpected opening sentence %q", sentence)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for opening sentence")
	}

	select {
	case sentences := <-final:
		if len(sentences) != 3 {
			t.Fatalf("expected opener + 2 continuation sentences, got %v", sentences)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for final response")
	}

	calls := client.recordedCalls()
	if len(calls) != 2 {
		t.Fatalf("expected two round-trips, got %d", len(calls))
	}
	if !strings.Contains(calls[0].systemPrompt, "exactly one sentence") {
		t.Fatalf("expected constrained opener prompt, got %q", calls[0].systemPrompt)
	}
	continuation := calls[1].history
	if continuation[len(continuation)-1].Role != llms.RoleUser {
		t.Fatalf("expected continuation instruction as trailing user message")
	}
	if continuation[len(continuation)-2].Text != "Paris is the capital of France." {
		t.Fatalf("expected opener echoed into continuation history")
	}
}

func TestTurnEngineAbortSuppressesResponse(t *testing.T) {
	release := make(chan struct{})
	client := &scriptedLLM{release: release}

	final := make(chan []string, 1)
	interrupted := make(chan struct{}, 2)
	e := NewTurnEngine(client,
		WithTurnEventCallback(func(event events.Event) {
			if event.Kind() == events.KindTurnInterrupted {
				interrupted <- struct{}{}
			}
		}),
		WithFinalResponseCallback(func(turnID int64, sentences []string, sources []llms.Source) {
			final <- sentences
		}),
	)

	e.StartTurn("Tell me a long story")
	waitForGeneration(t, client)

	e.Abort()
	e.Abort()
	close(release)

	select {
	case <-interrupted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for interruption event")
	}
	select {
	case <-interrupted:
		t.Fatalf("expected a single interruption event for repeated aborts")
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case sentences := <-final:
		t.Fatalf("expected aborted turn to deliver nothing, got %v", sentences)
	case <-time.After(100 * time.Millisecond):
	}

	history := e.History()
	if len(history) != 1 || history[0].Role != llms.RoleUser {
		t.Fatalf("expected only the user message to survive an abort, got %d entries", len(history))
	}
}

func TestTurnEngineNewTurnSupersedesRunningOne(t *testing.T) {
	release := make(chan struct{})
	client := &scriptedLLM{
		release:   release,
		responses: []string{"Stale answer.", "Fresh answer."},
	}

	final := make(chan []string, 2)
	e := NewTurnEngine(client,
		WithFinalResponseCallback(func(turnID int64, sentences []string, sources []llms.Source) {
			final <- sentences
		}),
	)

	e.StartTurn("First question")
	waitForGeneration(t, client)

	second := e.StartTurn("Second question")
	if second != 2 {
		t.Fatalf("expected turn id 2, got %d", second)
	}
	close(release)

	select {
	case sentences := <-final:
		if sentences[0] != "Fresh answer." {
			t.Fatalf("expected only the superseding turn's response, got %v", sentences)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for final response")
	}
	select {
	case sentences := <-final:
		t.Fatalf("expected the superseded turn's response to be dropped, got %v", sentences)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTurnEngineHistoryEdits(t *testing.T) {
	e := NewTurnEngine(&scriptedLLM{})

	e.AppendAssistantText("Hello there.")
	e.AppendAssistantText("How can I help?")
	history := e.History()
	if len(history) != 1 {
		t.Fatalf("expected consecutive assistant text merged, got %d entries", len(history))
	}
	if history[0].Text != "Hello there. How can I help?" {
		t.Fatalf("unexpected merged text %q", history[0].Text)
	}

	if e.ReplaceLastUserMessage("anything") {
		t.Fatalf("expected no user message to replace")
	}
	if !e.RemoveTrailingAssistantMessage() {
		t.Fatalf("expected trailing assistant message to be removed")
	}
	if len(e.History()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func waitForGeneration(t *testing.T, client *scriptedLLM) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(client.recordedCalls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for generation to start")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
