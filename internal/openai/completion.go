package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultCompletionModel matches the chat model the answer prompt was tuned on.
const DefaultCompletionModel = openai.GPT3Dot5Turbo

// ErrEmptyCompletion is returned when the model responds without any text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Completer sends single-prompt chat completions.
type Completer struct {
	api         ChatAPI
	model       string
	temperature float32
}

// NewCompleter creates a Completer from configuration.
func NewCompleter(cfg Config) *Completer {
	return newCompleter(newSDKClient(cfg), cfg.CompletionModel, cfg.Temperature)
}

func newCompleter(api ChatAPI, model string, temperature float32) *Completer {
	if model == "" {
		model = DefaultCompletionModel
	}
	return &Completer{
		api:         api,
		model:       model,
		temperature: temperature,
	}
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}

	// The SDK drops a zero temperature from the request, which the API then
	// treats as 1.
	temperature := c.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", classify(err))
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Model returns the configured chat model name.
func (c *Completer) Model() string {
	return c.model
}
