package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/voicewire/duplex-core/core/llms"
	"github.com/voicewire/duplex-core/internal/faults"
)

// oneSentenceReply is the schema forced onto the model when only the
// opening sentence of a response is wanted.
type oneSentenceReply struct {
	Sentence string `json:"sentence" jsonschema:"title=Sentence,description=A single complete sentence that opens the response."`
}

// GenerateOneSentence asks for exactly one sentence through a strict
// structured response format instead of prompt-level pleading.
func (c *Client) GenerateOneSentence(ctx context.Context, systemPrompt string, history []llms.Msg, model string) (*llms.Completion, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	if model == "" {
		model = defaultModel
	}
	span.SetAttributes(attribute.String("request.model", model))

	instructions := systemPrompt +
		"\n\nReply with only the first sentence of your answer. It must stand on its own."

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(oneSentenceReply{})

	reqBody := schemaRequestBody{
		Model:    model,
		Messages: toMessages(instructions, history),
		ResponseFormat: &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   "oneSentenceReply",
				Schema: *schema,
				Strict: true,
			},
		},
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

	content := responseBody.Choices[0].Message.Content
	if split := strings.Split(content, "```"); len(split) > 1 {
		content = split[1]
	}

	var reply oneSentenceReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		err = fmt.Errorf("%w: error unmarshalling structured reply: %v", faults.ErrProtocol, err)
		span.RecordError(err)
		return nil, err
	}

	return &llms.Completion{Text: reply.Sentence}, nil
}

type schemaRequestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	Strict      bool              `json:"strict"`
}
