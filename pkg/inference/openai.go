package inference

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

// OpenAIEngine streams chat completions from an OpenAI-compatible API.
type OpenAIEngine struct {
	client *openai.Client

	model       string
	temperature float32
	maxTokens   int
}

type OpenAIOption func(*OpenAIEngine)

func WithModel(model string) OpenAIOption {
	return func(e *OpenAIEngine) {
		e.model = model
	}
}

func WithTemperature(temperature float32) OpenAIOption {
	return func(e *OpenAIEngine) {
		e.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) OpenAIOption {
	return func(e *OpenAIEngine) {
		e.maxTokens = maxTokens
	}
}

func NewOpenAIEngine(apiKey string, baseURL string, options ...OpenAIOption) *OpenAIEngine {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	ret := &OpenAIEngine{
		client:      openai.NewClientWithConfig(config),
		model:       openai.GPT4,
		temperature: 0.7,
		maxTokens:   2048,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

var _ Engine = (*OpenAIEngine)(nil)

func (e *OpenAIEngine) RunInference(
	ctx context.Context,
	ictx conversation.InferenceContext,
	onChunk ChunkHandler,
) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(ictx.Messages))
	for _, msg := range ictx.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Text,
		})
	}

	model := ictx.Model
	if model == "" {
		model = e.model
	}
	temperature := ictx.Temperature
	if temperature == 0 {
		temperature = e.temperature
	}
	maxTokens := ictx.MaxTokens
	if maxTokens == 0 {
		maxTokens = e.maxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      true,
	}

	log.Debug().
		Str("model", model).
		Int("message_count", len(msgs)).
		Msg("starting chat completion stream")

	stream, err := e.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "could not start completion stream")
	}
	defer stream.Close()

	completion := ""
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return completion, nil
		}
		if err != nil {
			return completion, errors.Wrap(err, "completion stream failed")
		}
		if len(response.Choices) == 0 {
			continue
		}

		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		completion += delta
		if onChunk != nil {
			if err := onChunk(delta, completion); err != nil {
				return completion, err
			}
		}
	}
}
