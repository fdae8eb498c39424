package orchestration

import "github.com/voicewire/duplex-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.VoiceSpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.VoiceSpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.MicModeChanged:
			if opts.onMicModeChanged != nil {
				opts.onMicModeChanged(typedEvent.To)
			}
		case events.TurnPhaseChanged:
			if opts.onPhaseChanged != nil {
				opts.onPhaseChanged(typedEvent.Phase)
			}
		case events.TurnInterrupted:
			if opts.onCancellation != nil {
				opts.onCancellation()
			}
		case events.TurnFinished:
			if opts.onResponseEnd != nil {
				opts.onResponseEnd()
			}
		case events.PlaybackStarted:
			if opts.onPlaybackStateChanged != nil {
				opts.onPlaybackStateChanged(true)
			}
		case events.PlaybackFinished:
			if opts.onPlaybackStateChanged != nil {
				opts.onPlaybackStateChanged(false)
			}
		case events.BargeInConfirmed:
			if opts.onBargeIn != nil {
				opts.onBargeIn(typedEvent.Transcript)
			}
		}
	}
}
