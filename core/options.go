package orchestration

import (
	"github.com/voicewire/duplex-core/core/events"
	"github.com/voicewire/duplex-core/core/llms"
)

type OrchestratorOption func(*Orchestrator)

// WithAudioSource configures the capture device feeding the voice
// detector. Without one the orchestrator can still respond to prompts
// submitted through [Orchestrator.SendPrompt].
func WithAudioSource(source AudioSource) OrchestratorOption {
	return func(o *Orchestrator) { o.audioSource = source }
}

func WithSpeechToTextClient(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) { o.sttClient = client }
}

// WithSpeechOutput configures the synthesis backend and the playback
// device it renders to. Both are required for spoken responses; without
// them responses still reach the conversation log and callbacks.
func WithSpeechOutput(generator SpeechGenerator, sink AudioSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechGenerator = generator
		o.audioSink = sink
	}
}

func WithLLMClient(client llms.Client) OrchestratorOption {
	return func(o *Orchestrator) { o.llm = client }
}

func WithVoiceDetection(config VADConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.vadConfig = config }
}

func WithBargeIn(config BargeInConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.bargeInConfig = config }
}

// WithTurnOptions forwards options to the turn engine, for model,
// system prompt, sentence budget and generation strategy selection.
func WithTurnOptions(opts ...TurnEngineOption) OrchestratorOption {
	return func(o *Orchestrator) { o.turnOptions = append(o.turnOptions, opts...) }
}

// WithPreRoll overrides how many 20ms frames of audio are retained
// before speech is detected.
func WithPreRoll(frames int) OrchestratorOption {
	return func(o *Orchestrator) { o.preRollFrames = frames }
}

type OrchestrateOptions struct {
	onEvent                func(event events.Event)
	onTranscription        func(transcript string)
	onInterimTranscription func(transcript string)
	onSpeakingStateChanged func(isSpeaking bool)
	onResponse             func(sentence string)
	onResponseEnd          func()
	onCancellation         func()
	onPlaybackStateChanged func(isPlaying bool)
	onMicModeChanged       func(mode string)
	onPhaseChanged         func(phase string)
	onBargeIn              func(transcript string)
	onConversationUpdated  func(entries []ConversationEntry)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventCallback registers a catch-all callback receiving every
// pipeline event before the more specific callbacks fire.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}

// WithTranscriptionCallback registers a callback for complete user
// utterances, after the recognizer settled.
//
// Prompts submitted through [Orchestrator.SendPrompt] do not trigger
// this callback.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions produced by the configured speech-to-text client.
func WithInterimTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscription = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for
// voice-activity transitions of the user.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingStateChanged = callback
	}
}

// WithResponseCallback registers a callback invoked once per response
// sentence as it is handed to playback.
func WithResponseCallback(callback func(sentence string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponse = callback
	}
}

func WithResponseEndCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponseEnd = callback
	}
}

func WithCancellationCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCancellation = callback
	}
}

func WithPlaybackStateChangedCallback(callback func(isPlaying bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackStateChanged = callback
	}
}

func WithMicModeChangedCallback(callback func(mode string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onMicModeChanged = callback
	}
}

func WithPhaseChangedCallback(callback func(phase string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPhaseChanged = callback
	}
}

// WithBargeInCallback registers a callback for confirmed interruptions,
// carrying the transcript that superseded the cancelled turn.
func WithBargeInCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onBargeIn = callback
	}
}

// WithConversationUpdatedCallback registers a callback receiving a
// fresh snapshot of the conversation log after every change to it.
func WithConversationUpdatedCallback(callback func(entries []ConversationEntry)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onConversationUpdated = callback
	}
}
