package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/events"
	"github.com/voicewire/duplex-core/core/llms"
)

const (
	// transcriptSettlePoll is how often an ended utterance is re-checked
	// for recognizer finalization before the turn starts.
	transcriptSettlePoll = 100 * time.Millisecond
	// transcriptSettleTimeout bounds that wait; past it the turn starts
	// from whatever transcript accumulated.
	transcriptSettleTimeout = 2 * time.Second
)

// Orchestrator wires the capture, detection, transcription, generation
// and playback components into one duplex conversation loop.
type Orchestrator struct {
	audioSource     AudioSource
	sttClient       SpeechToText
	speechGenerator SpeechGenerator
	audioSink       AudioSink
	llm             llms.Client
	vadConfig       VADConfig
	bargeInConfig   BargeInConfig
	turnOptions     []TurnEngineOption
	preRollFrames   int

	conversation conversationLog

	vad           *VAD
	micSession    *MicSession
	speechToText  *speechToText
	textToSpeech  *textToSpeech
	queue         *PlaybackQueue
	turnEngine    *TurnEngine
	interruptions *InterruptionManager

	emitter            eventEmitter
	orchestrateOptions OrchestrateOptions
	baseContext        context.Context

	closeOnce sync.Once

	deliveryMu sync.Mutex
	delivery   *turnDelivery
}

// turnDelivery tracks how much of a turn's response already reached the
// playback queue, so the final response only delivers the tail and a
// confirmed barge-in can keep what was actually spoken.
type turnDelivery struct {
	turnID    int64
	convIndex int
	queued    int
	sentences []string
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		baseContext: context.Background(),
		emitter:     noopEventEmitter,
	}

	for _, opt := range opts {
		opt(o)
	}

	encoding := audio.GetDefaultEncodingInfo()
	if o.audioSource != nil {
		encoding = o.audioSource.EncodingInfo()
	}

	o.speechToText = newSpeechToText(o.sttClient, encoding)
	o.textToSpeech = newTextToSpeech(o.speechGenerator, o.audioSink, encoding)
	o.textToSpeech.setCallbacks(
		func(utteranceID string) { o.queue.NotifyUtteranceDone(utteranceID) },
		func(utteranceID string, err error) {
			logger.Error(fmt.Sprintf("Speech synthesis failed for utterance %s: %v", utteranceID, err))
			// The queue still has to advance past the failed item.
			o.queue.NotifyUtteranceDone(utteranceID)
		},
	)

	o.queue = NewPlaybackQueue(o.textToSpeech,
		WithPlaybackEventCallback(o.dispatch),
		WithQueueDrainedCallback(func() { o.interruptions.NotifyIdle() }),
	)

	engineOptions := append(o.turnOptions,
		WithTurnEventCallback(o.dispatch),
		WithFirstSentenceCallback(o.handleFirstSentence),
		WithRemainingSentencesCallback(o.handleRemainingSentences),
		WithFinalResponseCallback(o.handleFinalResponse),
		WithGenerationErrorCallback(o.handleGenerationError),
	)
	o.turnEngine = NewTurnEngine(o.llm, engineOptions...)

	o.interruptions = NewInterruptionManager(InterruptionHooks{
		AbortTurn:            func() { o.turnEngine.abortQuietly() },
		StopPlayback:         func() error { return o.queue.Stop() },
		SpeechActive:         func() bool { return o.vad.IsSpeechActive() },
		RestartTranscription: func() error { return o.speechToText.Restart(o.baseContext) },
		SpeechSettled:        func() bool { return o.speechToText.SpeechSettled() },
		Transcript:           func() string { return o.speechToText.AccumulatedTranscript() },
		StartTurn: func(prompt string) {
			o.speechToText.ClearAccumulated()
			o.setMicMode(ModeMonitoring)
			o.startTurn(prompt)
		},
	},
		WithBargeInConfig(o.bargeInConfig),
		WithBargeInEventCallback(o.dispatch),
	)

	micOptions := []MicSessionOption{
		WithDetectionReset(func() { o.vad.ResetDetection() }),
		WithModeChangeCallback(func(event events.MicModeChanged) { o.dispatch(event) }),
	}
	if o.preRollFrames > 0 {
		micOptions = append(micOptions, WithPreRollFrames(o.preRollFrames))
	}
	o.micSession = NewMicSession(o.speechToText, micOptions...)

	// A conversation spans many turns; the detector must keep running
	// after each accepted utterance or barge-in becomes unreachable.
	vadConfig := o.vadConfig
	vadConfig.AllowMultipleUtterances = true

	o.vad = NewVAD(o.audioSource,
		WithVADConfig(vadConfig),
		WithVoiceEventCallback(func(event events.Event) { go o.respondToEvent(event) }),
		WithFrameCallback(o.micSession.HandleFrame),
	)

	return o
}

// Orchestrate starts the conversation loop. ctx is the base context for
// every collaborator call; cancelling it shuts the orchestrator down.
//
// Contract: call Orchestrate at most once per orchestrator instance.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}
	o.emitter = newCallbackEventEmitter(o.orchestrateOptions)
	o.baseContext = ctx

	o.speechToText.setCallbacks(nil, o.orchestrateOptions.onInterimTranscription)

	if o.speechToText.isConfigured() {
		if err := o.speechToText.Start(ctx); err != nil {
			o.recordError(fmt.Errorf("failed to initialize speech-to-text: %w", err))
		}
	}

	o.setMicMode(ModeMonitoring)

	if o.audioSource != nil {
		if err := o.vad.Start(ctx); err != nil {
			o.recordError(fmt.Errorf("failed to start voice detection: %w", err))
		}
	}

	go func() {
		<-ctx.Done()
		o.Close()
	}()
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.vad.Stop()
		o.interruptions.Reset()
		o.turnEngine.abortQuietly()

		if err := o.queue.Stop(); err != nil {
			o.recordError(fmt.Errorf("failed to stop playback: %w", err))
		}
		if err := o.speechToText.Close(o.baseContext); err != nil {
			o.recordError(fmt.Errorf("failed to close speech-to-text client: %w", err))
		}

		o.setMicMode(ModeIdle)
	})
}

// respondToEvent reacts to voice detection transitions. It runs on its
// own goroutine per event, the detector must never be blocked.
func (o *Orchestrator) respondToEvent(event events.Event) {
	switch event.(type) {
	case events.VoiceSpeechStarted:
		o.setMicMode(ModeTranscribing)
		o.dispatch(event)
		// Blocks for the debounce window, so the event goes out first.
		o.interruptions.OnVoiceActivity()
		return
	case events.VoiceSpeechEnded:
		o.finalizeUtterance()
	}

	o.dispatch(event)
}

// dispatch routes pipeline events to internal reactions and then to the
// user-facing callbacks.
func (o *Orchestrator) dispatch(event events.Event) {
	switch event.(type) {
	case events.TurnStarted:
		o.interruptions.NotifyGenerationStarted()
	case events.PlaybackStarted:
		o.interruptions.NotifyPlaybackStarted()
	case events.TurnFinished:
		// A turn that queued nothing for playback will not drain the
		// queue, so the assistant goes idle here.
		if !o.queue.IsSpeaking() {
			o.interruptions.NotifyIdle()
		}
	case events.BargeInConfirmed:
		o.settleInterruptedDelivery()
	}

	o.emitter(event)
}

// finalizeUtterance waits for the recognizer to settle after detected
// speech ended, then starts a turn from the accumulated transcript.
// During a barge-in evaluation the evaluation owns the transcript and
// this is a no-op.
func (o *Orchestrator) finalizeUtterance() {
	if o.interruptions.IsEvaluating() {
		return
	}

	deadline := time.Now().Add(transcriptSettleTimeout)
	for !o.speechToText.SpeechSettled() {
		if time.Now().After(deadline) || o.baseContext.Err() != nil {
			break
		}
		select {
		case <-time.After(transcriptSettlePoll):
		case <-o.baseContext.Done():
		}
	}

	if o.interruptions.IsEvaluating() {
		return
	}

	transcript := o.speechToText.AccumulatedTranscript()
	o.speechToText.ClearAccumulated()
	o.setMicMode(ModeMonitoring)

	if transcript == "" {
		return
	}

	if o.orchestrateOptions.onTranscription != nil {
		o.orchestrateOptions.onTranscription(transcript)
	}
	o.startTurn(transcript)
}

func (o *Orchestrator) startTurn(prompt string) {
	o.conversation.Append(SpeakerUser, prompt)
	o.notifyConversation()
	o.turnEngine.StartTurn(prompt)
}

func (o *Orchestrator) handleFirstSentence(turnID int64, sentence string) {
	if o.interruptions.IsEvaluating() {
		return
	}

	o.deliveryMu.Lock()
	o.delivery = &turnDelivery{
		turnID:    turnID,
		convIndex: o.conversation.Open(SpeakerAssistant, sentence),
		queued:    1,
		sentences: []string{sentence},
	}
	o.deliveryMu.Unlock()

	o.notifyConversation()
	o.queueSentence(sentence)
}

func (o *Orchestrator) handleRemainingSentences(turnID int64, sentences []string) {
	if o.interruptions.IsEvaluating() {
		return
	}

	o.deliveryMu.Lock()
	if o.delivery == nil || o.delivery.turnID != turnID {
		o.deliveryMu.Unlock()
		return
	}
	o.conversation.Extend(o.delivery.convIndex, sentences...)
	o.delivery.queued += len(sentences)
	o.delivery.sentences = append(o.delivery.sentences, sentences...)
	o.deliveryMu.Unlock()

	o.notifyConversation()
	for _, sentence := range sentences {
		o.queueSentence(sentence)
	}
}

// handleFinalResponse delivers whatever part of the response did not
// already stream out. The delivery is routed through the interruption
// manager: a running barge-in evaluation holds it back until the
// evaluation resolves.
func (o *Orchestrator) handleFinalResponse(turnID int64, sentences []string, sources []llms.Source) {
	o.deliveryMu.Lock()
	queued := 0
	convIndex := -1
	if o.delivery != nil && o.delivery.turnID == turnID {
		queued = o.delivery.queued
		convIndex = o.delivery.convIndex
	}
	o.delivery = nil
	o.deliveryMu.Unlock()

	if queued > len(sentences) {
		queued = len(sentences)
	}

	o.interruptions.Intercept(
		func() {
			if convIndex >= 0 {
				o.conversation.Replace(convIndex, sentences...)
				o.conversation.Settle(convIndex)
			} else {
				o.conversation.Append(SpeakerAssistant, strings.Join(sentences, " "))
			}
			o.notifyConversation()
			for _, sentence := range sentences[queued:] {
				o.queueSentence(sentence)
			}
		},
		func() {
			// The user cut in, but the sentences already spoken were
			// heard; keep them in the record and in the model's history
			// so the next turn builds on what was actually said.
			if convIndex >= 0 {
				if queued > 0 {
					o.conversation.Replace(convIndex, sentences[:queued]...)
					o.conversation.Settle(convIndex)
				} else {
					o.conversation.DropLast(SpeakerAssistant)
				}
				o.notifyConversation()
			}
			o.turnEngine.RemoveTrailingAssistantMessage()
			if queued > 0 {
				o.turnEngine.AppendAssistantText(strings.Join(sentences[:queued], " "))
			}
		},
	)
}

// settleInterruptedDelivery closes out a streaming response whose turn
// was cut short by a confirmed barge-in before its final response
// arrived. The spoken sentences stay in the conversation and are folded
// into the model history as the assistant's actual contribution.
func (o *Orchestrator) settleInterruptedDelivery() {
	o.deliveryMu.Lock()
	delivery := o.delivery
	o.delivery = nil
	o.deliveryMu.Unlock()

	if delivery == nil {
		return
	}

	o.conversation.Settle(delivery.convIndex)
	o.notifyConversation()
	o.turnEngine.AppendAssistantText(strings.Join(delivery.sentences, " "))
}

func (o *Orchestrator) handleGenerationError(turnID int64, err error) {
	logger.Error(fmt.Sprintf("Generation failed for turn %d: %v", turnID, err))
	o.conversation.Append(SpeakerError, err.Error())
	o.notifyConversation()
}

func (o *Orchestrator) queueSentence(sentence string) {
	if _, err := o.queue.Queue(sentence); err != nil {
		logger.Error(fmt.Sprintf("Failed to queue sentence for playback: %v", err))
	}
	if o.orchestrateOptions.onResponse != nil {
		o.orchestrateOptions.onResponse(sentence)
	}
}

func (o *Orchestrator) setMicMode(mode MicMode) {
	if err := o.micSession.SetMode(mode); err != nil {
		logger.Error(fmt.Sprintf("Failed to switch microphone session to %s: %v", mode, err))
	}
}

func (o *Orchestrator) notifyConversation() {
	if o.orchestrateOptions.onConversationUpdated != nil {
		o.orchestrateOptions.onConversationUpdated(o.conversation.Snapshot())
	}
}

func (o *Orchestrator) recordError(err error) {
	logger.Error(err.Error())
	span := trace.SpanFromContext(o.baseContext)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SendPrompt starts a turn from a typed prompt, bypassing capture and
// transcription.
func (o *Orchestrator) SendPrompt(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return
	}
	o.startTurn(prompt)
}

// CancelTurn aborts the in-flight turn, if any, and discards queued
// playback.
func (o *Orchestrator) CancelTurn() {
	o.turnEngine.Abort()
	if err := o.queue.Stop(); err != nil {
		logger.Error(fmt.Sprintf("Failed to stop playback: %v", err))
	}
}

// SendAudio feeds raw capture audio to the transcription session
// directly, bypassing detection and routing.
func (o *Orchestrator) SendAudio(audio []byte) error {
	return o.speechToText.SendAudio(audio)
}

// Conversation returns a point-in-time snapshot of the conversation
// log.
func (o *Orchestrator) Conversation() []ConversationEntry {
	return o.conversation.Snapshot()
}

func (o *Orchestrator) IsGenerating() bool { return o.turnEngine.IsGenerating() }

func (o *Orchestrator) IsSpeaking() bool { return o.queue.IsSpeaking() }

func (o *Orchestrator) Phase() GenerationPhase { return o.turnEngine.Phase() }

func (o *Orchestrator) MicMode() MicMode { return o.micSession.Mode() }
