package speechtotext

import "github.com/voicewire/duplex-core/core/audio"

type TranscriptionOptions struct {
	// InterimTranscriptionCallback receives the best guess for the
	// in-progress segment. It may be revised until the segment
	// finalises.
	InterimTranscriptionCallback func(transcript string)
	// TranscriptionCallback receives finalised segments.
	TranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	// SessionTimeoutCallback fires when the provider closed the
	// session for inactivity rather than on request.
	SessionTimeoutCallback func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithSessionTimeoutCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SessionTimeoutCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
