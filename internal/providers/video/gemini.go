package video

import (
	"context"
	"fmt"
	"strings"

	"studio/internal/infra"
	"studio/internal/media"
	"studio/internal/providers/genai"
	"studio/internal/storage"
	"studio/internal/video"
)

// GeminiGenerator drives Veo long-running operations for the video runner.
type GeminiGenerator struct {
	client *genai.Client
	keys   genai.KeySource
	store  *storage.FileStore
	logger *infra.Logger
}

// NewGeminiGenerator builds the backend. The selected key is read right before
// every call so a re-selection takes effect on the next request. With a nil
// store, finished videos are handed out by their service URI.
func NewGeminiGenerator(client *genai.Client, keys genai.KeySource, store *storage.FileStore, logger *infra.Logger) *GeminiGenerator {
	return &GeminiGenerator{client: client, keys: keys, store: store, logger: infra.OrDiscard(logger)}
}

func (g *GeminiGenerator) Create(ctx context.Context, req video.Request) (string, error) {
	client, err := g.client.ForSelectedKey(ctx, g.keys)
	if err != nil {
		return "", err
	}
	vreq := genai.VideoRequest{Prompt: req.Prompt, AspectRatio: string(req.AspectRatio)}
	if req.Image != nil {
		vreq.Image = &genai.InlineImage{MIMEType: req.Image.MIMEType, Base64: req.Image.Base64}
	}
	op, err := client.StartVideo(ctx, vreq)
	if err != nil {
		return "", err
	}
	return op.Name, nil
}

func (g *GeminiGenerator) Poll(ctx context.Context, handle string) (video.PollResult, error) {
	client, err := g.client.ForSelectedKey(ctx, g.keys)
	if err != nil {
		return video.PollResult{}, err
	}
	op, err := client.GetOperation(ctx, handle)
	if err != nil {
		return video.PollResult{}, err
	}
	res := video.PollResult{Done: op.Done}
	if op.Error != nil {
		res.Error = op.Error.Message
		if res.Error == "" {
			res.Error = fmt.Sprintf("video generation failed with code %d", op.Error.Code)
		}
	}
	if len(op.VideoURIs) > 0 {
		res.VideoURI = op.VideoURIs[0]
	}
	return res, nil
}

// Publish downloads the finished video into the store and returns its public
// URL.
func (g *GeminiGenerator) Publish(ctx context.Context, jobID, videoURI string) (string, error) {
	if g.store == nil {
		return videoURI, nil
	}
	client, err := g.client.ForSelectedKey(ctx, g.keys)
	if err != nil {
		return "", err
	}
	data, contentType, err := client.Download(ctx, videoURI)
	if err != nil {
		return "", err
	}
	ext := media.ExtensionForType(contentType)
	if ext == "" || !strings.HasPrefix(contentType, "video/") {
		ext = ".mp4"
	}
	key, err := g.store.Write(ctx, "videos/"+jobID+ext, data)
	if err != nil {
		return "", err
	}
	g.logger.Debug().
		Str("job_id", jobID).
		Int("bytes", len(data)).
		Str("key", key).
		Msg("video: stored result")
	return g.store.URL(key), nil
}

var (
	_ video.Backend   = (*GeminiGenerator)(nil)
	_ video.Publisher = (*GeminiGenerator)(nil)
)
