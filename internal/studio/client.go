// Package studio holds the one-shot image operations and the per-view
// sessions that tie them to a video runner.
package studio

import (
	"context"
	"strings"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/media"
)

// ImageBackend is the remote image service.
type ImageBackend interface {
	Generate(ctx context.Context, prompt string, aspect domain.AspectRatio) (*media.Payload, error)
	Edit(ctx context.Context, prompt string, source *media.Payload) (*media.Payload, error)
}

// GenerationClient issues single image calls. Failures are never retried.
type GenerationClient struct {
	backend ImageBackend
	logger  *infra.Logger
}

func NewGenerationClient(backend ImageBackend, logger *infra.Logger) *GenerationClient {
	return &GenerationClient{backend: backend, logger: infra.OrDiscard(logger)}
}

// GenerateImage renders prompt at aspect. An empty aspect means square.
func (c *GenerationClient) GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (domain.MediaReference, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.MediaReference{}, domain.Invalid("Please enter a prompt.")
	}
	aspect, err := domain.ParseAspectRatio(string(aspect), domain.AspectSquare, domain.ImageAspectRatios)
	if err != nil {
		return domain.MediaReference{}, err
	}

	img, err := c.backend.Generate(ctx, prompt, aspect)
	if err != nil {
		return domain.MediaReference{}, c.generationError("generate", err)
	}
	c.logger.Debug().Str("aspect_ratio", string(aspect)).Int("bytes", img.Size()).Msg("studio: image generated")
	return imageReference(img), nil
}

// EditImage applies prompt to source.
func (c *GenerationClient) EditImage(ctx context.Context, prompt string, source *media.Payload) (domain.MediaReference, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || source == nil {
		return domain.MediaReference{}, domain.Invalid("Please upload an image and provide an editing instruction.")
	}

	img, err := c.backend.Edit(ctx, prompt, source)
	if err != nil {
		return domain.MediaReference{}, c.generationError("edit", err)
	}
	c.logger.Debug().Str("mime", source.MIMEType).Int("bytes", img.Size()).Msg("studio: image edited")
	return imageReference(img), nil
}

func (c *GenerationClient) generationError(op string, err error) error {
	c.logger.Warn().Err(err).Str("op", op).Msg("studio: image request failed")
	msg := err.Error()
	if msg == "" {
		msg = "An unknown error occurred."
	}
	return &domain.GenerationError{Message: msg, Err: err}
}

func imageReference(img *media.Payload) domain.MediaReference {
	return domain.MediaReference{URL: img.DataURL(), Kind: domain.MediaKindImage}
}
