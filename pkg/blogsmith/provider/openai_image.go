package provider

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default dimensions for generated diagrams.
const defaultImageSize = "1024x1024"

// OpenAIImage implements ImageGenerator using the openai-go images API.
// Generated images are returned as URLs; downloading the bytes is the
// persistence collaborator's responsibility.
type OpenAIImage struct {
	client openai.Client
	model  openai.ImageModel
}

// NewOpenAIImage creates an image generator backed by DALL-E 3.
func NewOpenAIImage(apiKey, baseURL string) (*OpenAIImage, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIImage{
		client: openai.NewClient(opts...),
		model:  openai.ImageModelDallE3,
	}, nil
}

// Generate implements ImageGenerator.
func (o *OpenAIImage) Generate(ctx context.Context, req ImageRequest) (string, error) {
	if req.Prompt == "" {
		return "", &ProviderError{
			Provider: "openai",
			Op:       "generate_image",
			Err:      errors.New("empty prompt"),
		}
	}

	size := req.Size
	if size == "" {
		size = defaultImageSize
	}

	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  o.model,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(size),
	})
	if err != nil {
		return "", &ProviderError{
			Provider:  "openai",
			Op:        "generate_image",
			Err:       err,
			Retryable: isTransientMessage(err.Error()),
		}
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", &ProviderError{
			Provider: "openai",
			Op:       "generate_image",
			Err:      errors.New("no image in response"),
		}
	}
	return resp.Data[0].URL, nil
}
