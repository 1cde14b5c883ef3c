package provider

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIText implements TextGenerator using the official openai-go SDK
// (chat completions).
type OpenAIText struct {
	client      openai.Client
	model       string
	temperature float64
}

// OpenAIConfig holds the settings shared by the OpenAI-backed providers.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// NewOpenAIText creates a chat-completion text generator.
func NewOpenAIText(cfg OpenAIConfig) (*OpenAIText, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIText{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate implements TextGenerator.
func (o *OpenAIText) Generate(ctx context.Context, req TextRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = o.temperature
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", &ProviderError{
			Provider:  "openai",
			Op:        "generate",
			Err:       err,
			Retryable: isTransientMessage(err.Error()),
		}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Provider: "openai",
			Op:       "generate",
			Err:      errors.New("empty choices in response"),
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// isTransientMessage checks whether an error message indicates a condition
// a retry might clear.
func isTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "502")
}
