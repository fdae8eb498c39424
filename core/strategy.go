package orchestration

import (
	"context"

	"github.com/voicewire/duplex-core/core/llms"
)

// GenerationPhase labels where a running turn is in its response
// generation.
type GenerationPhase string

const (
	PhaseIdle GenerationPhase = "idle"
	// PhaseSingleShot covers the whole round-trip of a regular
	// generation.
	PhaseSingleShot GenerationPhase = "generating"
	// PhaseGeneratingFirst is the fast-first strategy working on the
	// opening sentence.
	PhaseGeneratingFirst GenerationPhase = "generating_first"
	// PhaseGeneratingRemainder is the fast-first strategy filling in
	// the rest of the response.
	PhaseGeneratingRemainder GenerationPhase = "generating_remainder"
)

type generationRequest struct {
	SystemPrompt string
	History      []llms.Msg
	Model        string
	// MaxSentences caps the response length. Both strategies treat a
	// non-positive value as uncapped; the engine always passes a
	// positive one.
	MaxSentences int
	Params       llms.SamplingParams
}

// generationCallbacks report strategy progress back to the engine. All
// callbacks except onTurnFinish are suppressed once the turn is
// aborted; onTurnFinish always fires exactly once so bookkeeping can
// settle.
type generationCallbacks struct {
	onPhase              func(phase GenerationPhase)
	onFirstSentence      func(sentence string)
	onRemainingSentences func(sentences []string)
	onFinalResponse      func(sentences []string, sources []llms.Source)
	onError              func(err error)
	onTurnFinish         func()
}

type generationStrategy interface {
	execute(ctx context.Context, client llms.Client, req generationRequest, callbacks generationCallbacks)
	abort()
}
