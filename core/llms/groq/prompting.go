package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voicewire/duplex-core/core/llms"
	"github.com/voicewire/duplex-core/internal/faults"
)

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel = "llama-3.3-70b-versatile"
)

// Client talks to Groq's OpenAI-compatible chat completion endpoint.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("GROQ_API_KEY")
		if !ok {
			return nil, fmt.Errorf("groq api key not found")
		}
		client.apiKey = apiKey
	}

	return client, nil
}

func (c *Client) Generate(ctx context.Context, systemPrompt string, history []llms.Msg, model string, params llms.SamplingParams) (*llms.Completion, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	if model == "" {
		model = defaultModel
	}
	span.SetAttributes(attribute.String("request.model", model))

	reqBody := requestBody{
		Model:    model,
		Messages: toMessages(systemPrompt, history),
	}
	if params.Temperature != 0 {
		reqBody.Temperature = &params.Temperature
	}
	if params.MaxTokens != 0 {
		reqBody.MaxTokens = &params.MaxTokens
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: error sending request: %v", faults.Transport(err), err)
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		err := fmt.Errorf("%w: non-OK HTTP status: %s", faults.Status(resp.StatusCode), resp.Status)
		span.RecordError(err)
		return nil, err
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("%w: error reading response body: %v", faults.ErrNetwork, err)
		span.RecordError(err)
		return nil, err
	}

	var responseBody responseBodyJSON
	if err := json.Unmarshal(respBodyBytes, &responseBody); err != nil {
		err = fmt.Errorf("%w: error unmarshalling response: %v", faults.ErrProtocol, err)
		span.RecordError(err)
		return nil, err
	}
	if len(responseBody.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", faults.ErrProtocol)
	}

	return &llms.Completion{Text: responseBody.Choices[0].Message.Content}, nil
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type responseBodyJSON struct {
	Choices []struct {
		Message struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			Reasoning    string  `json:"reasoning,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		QueueTime        float64 `json:"queue_time"`
		PromptTokens     int     `json:"prompt_tokens"`
		PromptTime       float64 `json:"prompt_time"`
		CompletionTokens int     `json:"completion_tokens"`
		CompletionTime   float64 `json:"completion_time"`
		TotalTokens      int     `json:"total_tokens"`
		TotalTime        float64 `json:"total_time"`
	} `json:"usage"`
}
