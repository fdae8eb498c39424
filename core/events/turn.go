package events

// KindTurnStarted identifies the start of a turn.
const KindTurnStarted Kind = "turn.started"

// TurnStarted marks the start of a user turn.
type TurnStarted struct {
	Base
	TurnID int64
	Prompt string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID int64, prompt string) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), TurnID: turnID, Prompt: prompt}
}

// KindTurnPhaseChanged identifies a generation phase move.
const KindTurnPhaseChanged Kind = "turn.phase_changed"

// TurnPhaseChanged marks a move of the externally observable generation
// phase.
type TurnPhaseChanged struct {
	Base
	Phase string
}

// NewTurnPhaseChanged creates a phase changed event.
func NewTurnPhaseChanged(phase string) TurnPhaseChanged {
	return TurnPhaseChanged{Base: NewBase(KindTurnPhaseChanged), Phase: phase}
}

// KindTurnInterrupted identifies a user-visible turn abort.
const KindTurnInterrupted Kind = "turn.interrupted"

// TurnInterrupted marks a turn aborted with a user-visible notice.
type TurnInterrupted struct{ Base }

// NewTurnInterrupted creates a turn interrupted event.
func NewTurnInterrupted() TurnInterrupted {
	return TurnInterrupted{Base: NewBase(KindTurnInterrupted)}
}

// KindTurnFinished identifies the end of a turn's strategy run.
const KindTurnFinished Kind = "turn.finished"

// TurnFinished marks the end of a turn, whether by completion, error or
// abort. Fires exactly once per started turn.
type TurnFinished struct {
	Base
	TurnID int64
}

// NewTurnFinished creates a turn finished event.
func NewTurnFinished(turnID int64) TurnFinished {
	return TurnFinished{Base: NewBase(KindTurnFinished), TurnID: turnID}
}
