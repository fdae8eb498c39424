package events

// KindPlaybackStarted identifies the start of an utterance.
const KindPlaybackStarted Kind = "playback.started"

// PlaybackStarted marks the start of a queued utterance.
type PlaybackStarted struct {
	Base
	UtteranceID string
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(utteranceID string) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), UtteranceID: utteranceID}
}

// KindPlaybackItemDone identifies a finished utterance.
const KindPlaybackItemDone Kind = "playback.item_done"

// PlaybackItemDone marks a finished utterance.
type PlaybackItemDone struct {
	Base
	UtteranceID string
}

// NewPlaybackItemDone creates a playback item done event.
func NewPlaybackItemDone(utteranceID string) PlaybackItemDone {
	return PlaybackItemDone{Base: NewBase(KindPlaybackItemDone), UtteranceID: utteranceID}
}

// KindPlaybackFinished identifies a drained queue.
const KindPlaybackFinished Kind = "playback.finished"

// PlaybackFinished marks the queue draining with nothing left to play.
type PlaybackFinished struct{ Base }

// NewPlaybackFinished creates a playback finished event.
func NewPlaybackFinished() PlaybackFinished {
	return PlaybackFinished{Base: NewBase(KindPlaybackFinished)}
}
