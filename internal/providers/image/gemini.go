package image

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/media"
	"studio/internal/providers/genai"
)

// GeminiGenerator serves image generation with Imagen and edits with the
// Gemini image model.
type GeminiGenerator struct {
	client *genai.Client
	keys   genai.KeySource
}

// NewGeminiGenerator builds a generator. keys may be nil, in which case the
// client's configured key is used.
func NewGeminiGenerator(client *genai.Client, keys genai.KeySource) *GeminiGenerator {
	return &GeminiGenerator{client: client, keys: keys}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, aspect domain.AspectRatio) (*media.Payload, error) {
	client, err := g.client.ForSelectedKey(ctx, g.keys)
	if err != nil {
		return nil, err
	}
	img, err := client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:         prompt,
		AspectRatio:    string(aspect),
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, err
	}
	return toPayload(img)
}

func (g *GeminiGenerator) Edit(ctx context.Context, prompt string, source *media.Payload) (*media.Payload, error) {
	client, err := g.client.ForSelectedKey(ctx, g.keys)
	if err != nil {
		return nil, err
	}
	img, err := client.EditImage(ctx, genai.EditRequest{
		Prompt: prompt,
		Image:  genai.InlineImage{MIMEType: source.MIMEType, Base64: source.Base64},
	})
	if err != nil {
		return nil, err
	}
	return toPayload(img)
}

func toPayload(img *genai.InlineImage) (*media.Payload, error) {
	data, err := img.Bytes()
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &media.Payload{Data: data, MIMEType: img.MIMEType, Base64: img.Base64}, nil
}
