package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/voicewire/duplex-core/core/llms"
)

// fastFirstStrategy asks for one sentence first so playback can start
// while the remainder is still being generated. Clients that implement
// llms.OneSentenceClient get their constrained call used for the
// opener; otherwise the system prompt is tightened instead.
type fastFirstStrategy struct {
	aborted atomic.Bool
}

func (s *fastFirstStrategy) abort() {
	s.aborted.Store(true)
}

func (s *fastFirstStrategy) execute(ctx context.Context, client llms.Client, req generationRequest, callbacks generationCallbacks) {
	defer callbacks.onTurnFinish()

	callbacks.onPhase(PhaseGeneratingFirst)
	first, sources, err := s.generateFirstSentence(ctx, client, req)
	if s.aborted.Load() || ctx.Err() != nil {
		return
	}
	if err != nil {
		callbacks.onError(fmt.Errorf("failed to generate opening sentence: %w", err))
		return
	}
	callbacks.onFirstSentence(first)

	if req.MaxSentences == 1 {
		callbacks.onFinalResponse([]string{first}, sources)
		return
	}

	callbacks.onPhase(PhaseGeneratingRemainder)
	remaining, remainderSources, err := s.generateRemainder(ctx, client, req, first)
	if s.aborted.Load() || ctx.Err() != nil {
		return
	}
	if err != nil {
		callbacks.onError(fmt.Errorf("failed to generate remainder: %w", err))
		return
	}
	if len(remaining) > 0 {
		callbacks.onRemainingSentences(remaining)
	}

	sources = append(sources, remainderSources...)
	callbacks.onFinalResponse(append([]string{first}, remaining...), sources)
}

func (s *fastFirstStrategy) generateFirstSentence(ctx context.Context, client llms.Client, req generationRequest) (string, []llms.Source, error) {
	if oneSentence, ok := client.(llms.OneSentenceClient); ok {
		completion, err := oneSentence.GenerateOneSentence(ctx, req.SystemPrompt, req.History, req.Model)
		if err != nil {
			return "", nil, err
		}
		return firstSentenceOf(completion.Text), completion.Sources, nil
	}

	systemPrompt := req.SystemPrompt +
		"\n\nRespond with exactly one sentence. You will be asked to continue afterwards."
	completion, err := client.Generate(ctx, systemPrompt, req.History, req.Model, req.Params)
	if err != nil {
		return "", nil, err
	}
	return firstSentenceOf(completion.Text), completion.Sources, nil
}

func (s *fastFirstStrategy) generateRemainder(ctx context.Context, client llms.Client, req generationRequest, first string) ([]string, []llms.Source, error) {
	// A non-positive budget means the remainder is uncapped, matching
	// how regularStrategy treats non-positive MaxSentences.
	budget := req.MaxSentences - 1
	history := append(append([]llms.Msg(nil), req.History...),
		llms.Msg{Role: llms.RoleAssistant, Text: first},
	)

	instruction := "Continue your previous answer without repeating it."
	if budget > 0 {
		instruction = fmt.Sprintf(
			"Continue your previous answer without repeating it, in at most %d sentences.", budget)
	}
	history = append(history, llms.Msg{Role: llms.RoleUser, Text: instruction})

	completion, err := client.Generate(ctx, req.SystemPrompt, history, req.Model, req.Params)
	if err != nil {
		return nil, nil, err
	}

	remaining := SplitSentences(completion.Text)
	if budget > 0 && len(remaining) > budget {
		remaining = remaining[:budget]
	}
	return remaining, completion.Sources, nil
}

func firstSentenceOf(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	return sentences[0]
}
