// Package events defines the typed event contract shared by the duplex
// pipeline components.
//
// Event kinds are grouped by emitter-facing namespaces:
//
//   - voice.*: voice activity detection transitions
//   - mic.*: microphone session mode changes
//   - turn.*: turn engine lifecycle
//   - playback.*: playback queue lifecycle
//   - barge_in.*: interruption evaluation lifecycle
//
// voice events
//
//   - VoiceSpeechStarted (voice.speech_started): first loud frame after
//     silence.
//   - VoiceSpeechEnded (voice.speech_ended): end of an utterance that met the
//     minimum speech duration; carries the utterance duration.
//   - VoiceSilenceTimeout (voice.silence_timeout): the silence budget elapsed
//     with no accepted speech.
//   - VoiceError (voice.error): the detector or its audio source failed.
//
// mic events
//
//   - MicModeChanged (mic.mode_changed): session routing switched between
//     idle, monitoring and transcribing.
//
// turn events
//
//   - TurnStarted (turn.started): a user turn began generating.
//   - TurnPhaseChanged (turn.phase_changed): the externally observable
//     generation phase moved.
//   - TurnInterrupted (turn.interrupted): a turn was aborted with a
//     user-visible notice.
//   - TurnFinished (turn.finished): the turn's strategy finished, whether by
//     completion, error or abort.
//
// playback events
//
//   - PlaybackStarted (playback.started): an utterance started playing.
//   - PlaybackItemDone (playback.item_done): an utterance finished playing.
//   - PlaybackFinished (playback.finished): the queue drained.
//
// barge_in events
//
//   - BargeInEvaluationStarted (barge_in.evaluation_started): sustained voice
//     energy interrupted generation and an evaluation window opened.
//   - BargeInConfirmed (barge_in.confirmed): the evaluation produced a real
//     user utterance; carries the combined transcript.
//   - BargeInDismissed (barge_in.dismissed): the evaluation concluded the
//     voice energy was noise.
package events
