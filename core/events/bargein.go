package events

// KindBargeInEvaluationStarted identifies an opened evaluation window.
const KindBargeInEvaluationStarted Kind = "barge_in.evaluation_started"

// BargeInEvaluationStarted marks sustained voice energy interrupting
// generation.
type BargeInEvaluationStarted struct{ Base }

// NewBargeInEvaluationStarted creates an evaluation started event.
func NewBargeInEvaluationStarted() BargeInEvaluationStarted {
	return BargeInEvaluationStarted{Base: NewBase(KindBargeInEvaluationStarted)}
}

// KindBargeInConfirmed identifies a confirmed interruption.
const KindBargeInConfirmed Kind = "barge_in.confirmed"

// BargeInConfirmed marks an evaluation that produced a real user utterance.
type BargeInConfirmed struct {
	Base
	Transcript string
}

// NewBargeInConfirmed creates a confirmed barge-in event carrying the
// combined transcript.
func NewBargeInConfirmed(transcript string) BargeInConfirmed {
	return BargeInConfirmed{Base: NewBase(KindBargeInConfirmed), Transcript: transcript}
}

// KindBargeInDismissed identifies an evaluation dismissed as noise.
const KindBargeInDismissed Kind = "barge_in.dismissed"

// BargeInDismissed marks an evaluation that concluded the voice energy was
// noise.
type BargeInDismissed struct{ Base }

// NewBargeInDismissed creates a dismissed barge-in event.
func NewBargeInDismissed() BargeInDismissed {
	return BargeInDismissed{Base: NewBase(KindBargeInDismissed)}
}
