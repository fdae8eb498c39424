package events

import "time"

// KindVoiceSpeechStarted identifies the start of detected speech.
const KindVoiceSpeechStarted Kind = "voice.speech_started"

// VoiceSpeechStarted marks the first loud frame after silence.
type VoiceSpeechStarted struct{ Base }

// NewVoiceSpeechStarted creates a speech started event.
func NewVoiceSpeechStarted() VoiceSpeechStarted {
	return VoiceSpeechStarted{Base: NewBase(KindVoiceSpeechStarted)}
}

// KindVoiceSpeechEnded identifies the end of an accepted utterance.
const KindVoiceSpeechEnded Kind = "voice.speech_ended"

// VoiceSpeechEnded marks the end of an utterance that met the minimum speech
// duration.
type VoiceSpeechEnded struct {
	Base
	Duration time.Duration
}

// NewVoiceSpeechEnded creates a speech ended event carrying the utterance
// duration.
func NewVoiceSpeechEnded(duration time.Duration) VoiceSpeechEnded {
	return VoiceSpeechEnded{Base: NewBase(KindVoiceSpeechEnded), Duration: duration}
}

// KindVoiceSilenceTimeout identifies an exhausted silence budget.
const KindVoiceSilenceTimeout Kind = "voice.silence_timeout"

// VoiceSilenceTimeout marks that the silence budget elapsed with no accepted
// speech.
type VoiceSilenceTimeout struct{ Base }

// NewVoiceSilenceTimeout creates a silence timeout event.
func NewVoiceSilenceTimeout() VoiceSilenceTimeout {
	return VoiceSilenceTimeout{Base: NewBase(KindVoiceSilenceTimeout)}
}

// KindVoiceError identifies a detector or audio source failure.
const KindVoiceError Kind = "voice.error"

// VoiceError marks a detector or audio source failure.
type VoiceError struct {
	Base
	Message string
}

// NewVoiceError creates a voice error event.
func NewVoiceError(message string) VoiceError {
	return VoiceError{Base: NewBase(KindVoiceError), Message: message}
}
