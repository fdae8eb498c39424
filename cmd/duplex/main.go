package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	orchestration "github.com/voicewire/duplex-core/core"
	"github.com/voicewire/duplex-core/core/audio/miniaudio"
	"github.com/voicewire/duplex-core/core/llms/groq"
	sttdeepgram "github.com/voicewire/duplex-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/voicewire/duplex-core/core/texttospeech/deepgram"
)

const systemPrompt = "You are a helpful voice assistant. Keep answers short and conversational, they are spoken out loud."

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	llm, err := groq.NewClient()
	if err != nil {
		return fmt.Errorf("failed to set up language model: %w", err)
	}

	speechClient, err := ttsdeepgram.NewSpeechClient(ttsdeepgram.VoiceThalia)
	if err != nil {
		return fmt.Errorf("failed to set up speech synthesis: %w", err)
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to set up audio devices: %w", err)
	}

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithAudioSource(audioClient),
		orchestration.WithSpeechToTextClient(sttdeepgram.NewTranscriptionClient()),
		orchestration.WithSpeechOutput(speechClient, audioClient),
		orchestration.WithLLMClient(llm),
		orchestration.WithTurnOptions(
			orchestration.WithSystemPrompt(systemPrompt),
			orchestration.WithFastFirstSentence(),
		),
	)
	defer orchestrator.Close()

	program := tea.NewProgram(newModel(orchestrator), tea.WithAltScreen(), tea.WithOutput(os.Stderr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator.Orchestrate(ctx,
		orchestration.WithConversationUpdatedCallback(func(entries []orchestration.ConversationEntry) {
			program.Send(conversationMsg(entries))
		}),
		orchestration.WithInterimTranscriptionCallback(func(transcript string) {
			program.Send(interimMsg(transcript))
		}),
		orchestration.WithSpeakingStateChangedCallback(func(isSpeaking bool) {
			program.Send(speakingMsg(isSpeaking))
		}),
		orchestration.WithPlaybackStateChangedCallback(func(isPlaying bool) {
			program.Send(playingMsg(isPlaying))
		}),
		orchestration.WithPhaseChangedCallback(func(phase string) {
			program.Send(phaseMsg(phase))
		}),
		orchestration.WithMicModeChangedCallback(func(mode string) {
			program.Send(micModeMsg(mode))
		}),
		orchestration.WithBargeInCallback(func(transcript string) {
			program.Send(bargeInMsg(transcript))
		}),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal interface failed: %w", err)
	}
	return nil
}
