package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/voicewire/duplex-core/core/audio"
	"github.com/voicewire/duplex-core/core/speechtotext"
	"github.com/voicewire/duplex-core/internal/faults"
)

const listenEndpoint = "https://api.deepgram.com/v1/listen"

// PrerecordedClient transcribes a complete recording in one request
// through Deepgram's batch endpoint. It complements the streaming
// [TranscriptionClient] for audio that is already on hand, such as
// voice notes or recorded calls.
type PrerecordedClient struct {
	model      string
	language   string
	endpoint   string
	httpClient *http.Client
}

type PrerecordedClientOption func(*PrerecordedClient)

func WithPrerecordedModel(model string) PrerecordedClientOption {
	return func(c *PrerecordedClient) { c.model = model }
}

func WithPrerecordedLanguage(language string) PrerecordedClientOption {
	return func(c *PrerecordedClient) { c.language = language }
}

func NewPrerecordedClient(opts ...PrerecordedClientOption) *PrerecordedClient {
	client := &PrerecordedClient{
		model:      "nova-3",
		language:   "en-US",
		endpoint:   listenEndpoint,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type prerecordedResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// TranscribeRecording returns the transcript for a complete raw
// recording in the given encoding.
func (c *PrerecordedClient) TranscribeRecording(ctx context.Context, recording []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	options := speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return "", fmt.Errorf("deepgram api key not found")
	}

	listenUrl, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid listen endpoint: %w", err)
	}
	queryParams := listenUrl.Query()
	queryParams.Set("model", c.model)
	queryParams.Set("language", c.language)
	queryParams.Set("encoding", options.EncodingInfo.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("smart_format", "true")
	listenUrl.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, listenUrl.String(), bytes.NewReader(recording))
	if err != nil {
		return "", fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", "audio/"+options.EncodingInfo.Format.Name())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach deepgram listen endpoint: %v", faults.Transport(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: deepgram transcription request failed with status %d: %s",
			faults.Status(resp.StatusCode), resp.StatusCode, errBody)
	}

	var parsed prerecordedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse transcription response: %v", faults.ErrProtocol, err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Results.Channels[0].Alternatives[0].Transcript), nil
}
