package orchestration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/voicewire/duplex-core/core/llms"
)

// regularStrategy produces the whole response in one round-trip.
type regularStrategy struct {
	aborted atomic.Bool
}

func (s *regularStrategy) abort() {
	s.aborted.Store(true)
}

func (s *regularStrategy) execute(ctx context.Context, client llms.Client, req generationRequest, callbacks generationCallbacks) {
	defer callbacks.onTurnFinish()

	callbacks.onPhase(PhaseSingleShot)
	completion, err := client.Generate(ctx, req.SystemPrompt, req.History, req.Model, req.Params)
	if s.aborted.Load() || ctx.Err() != nil {
		return
	}
	if err != nil {
		callbacks.onError(fmt.Errorf("generation failed: %w", err))
		return
	}

	sentences := SplitSentences(completion.Text)
	if req.MaxSentences > 0 && len(sentences) > req.MaxSentences {
		sentences = sentences[:req.MaxSentences]
	}
	callbacks.onFinalResponse(sentences, completion.Sources)
}
