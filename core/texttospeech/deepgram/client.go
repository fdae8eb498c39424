package deepgram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/texttospeech"
	"github.com/voicewire/duplex-core/internal/faults"
)

const speakEndpoint = "https://api.deepgram.com/v1/speak"

type deepgramVoice string

const (
	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
	VoiceHelena    deepgramVoice = "aura-2-helena-en"
	VoiceApollo    deepgramVoice = "aura-2-apollo-en"
	VoiceArcas     deepgramVoice = "aura-2-arcas-en"
	VoiceOrion     deepgramVoice = "aura-2-orion-en"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceThalia,
		VoiceAndromeda,
		VoiceHelena,
		VoiceApollo,
		VoiceArcas,
		VoiceOrion,
	}
}

// SpeechClient synthesizes one utterance per request through
// Deepgram's REST speech endpoint.
type SpeechClient struct {
	voice      deepgramVoice
	httpClient *http.Client
}

func NewSpeechClient(voice deepgramVoice) (*SpeechClient, error) {
	client := &SpeechClient{
		voice:      defaultVoice,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}

	if voice != "" {
		if !slices.Contains(GetAvailableVoices(), voice) {
			return nil, fmt.Errorf("invalid voice")
		}
		client.voice = voice
	}

	return client, nil
}

func (c *SpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}

// Synthesize returns the rendered audio for the given text, in the
// requested encoding.
func (c *SpeechClient) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	options := &texttospeech.SynthesisOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	speakUrl, _ := url.Parse(speakEndpoint)
	queryParams := speakUrl.Query()
	queryParams.Set("model", string(c.voice))
	queryParams.Set("encoding", options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("container", "none")
	speakUrl.RawQuery = queryParams.Encode()

	body := fmt.Sprintf(`{"text": %s}`, strconv.Quote(text))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakUrl.String(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build speak request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to reach deepgram speak endpoint: %v", faults.Transport(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: deepgram speak request failed with status %d: %s",
			faults.Status(resp.StatusCode), resp.StatusCode, errBody)
	}

	rendered, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read synthesized audio: %v", faults.ErrNetwork, err)
	}
	return rendered, nil
}
