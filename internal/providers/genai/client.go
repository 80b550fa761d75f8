package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultEditModel  = "gemini-2.5-flash-image-preview"
	DefaultVideoModel = "veo-2.0-generate-001"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	EditModel  string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini REST API: Imagen for generation, the
// generateContent image model for edits and Veo long-running operations for
// video.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	editModel  string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is a non-2xx answer from the API. Message is the upstream text.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gemini status %d", e.Status)
}

// InlineImage is a base64 image sent to or received from the API.
type InlineImage struct {
	MIMEType string
	Base64   string
}

// Bytes decodes the payload.
func (i InlineImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Base64)
}

// ImageRequest describes an Imagen generation.
type ImageRequest struct {
	Prompt         string
	AspectRatio    string
	OutputMIMEType string
}

// EditRequest describes an image edit.
type EditRequest struct {
	Prompt string
	Image  InlineImage
}

// VideoRequest describes a Veo generation seeded by a starting frame.
type VideoRequest struct {
	Prompt      string
	Image       *InlineImage
	AspectRatio string
}

// OperationError is the error of a finished long-running operation.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Operation is a long-running video generation.
type Operation struct {
	Name      string
	Done      bool
	Error     *OperationError
	VideoURIs []string
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	OutputMIMEType string `json:"outputMimeType,omitempty"`
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
		RAIFilteredReason  string `json:"raiFilteredReason,omitempty"`
	} `json:"predictions"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	AspectRatio    string `json:"aspectRatio,omitempty"`
	NumberOfVideos int    `json:"numberOfVideos,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type operationResponse struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *OperationError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse *struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
			RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
		} `json:"generateVideoResponse,omitempty"`
	} `json:"response,omitempty"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gemini base url: %w", err)
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: firstNonEmpty(opts.ImageModel, DefaultImageModel),
		editModel:  firstNonEmpty(opts.EditModel, DefaultEditModel),
		videoModel: firstNonEmpty(opts.VideoModel, DefaultVideoModel),
		httpClient: client,
		logger:     logger,
	}, nil
}

// WithAPIKey returns a copy of the client that authenticates with key.
func (c *Client) WithAPIKey(key string) *Client {
	clone := *c
	clone.apiKey = strings.TrimSpace(key)
	return &clone
}

// HasAPIKey reports whether the client carries a key.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

func (c *Client) ImageModel() string { return c.imageModel }
func (c *Client) EditModel() string  { return c.editModel }
func (c *Client) VideoModel() string { return c.videoModel }

// GenerateImage renders one image from a text prompt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*InlineImage, error) {
	payload := imagenRequest{
		Instances: []imagenInstance{{Prompt: req.Prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    req.AspectRatio,
			OutputMIMEType: firstNonEmpty(req.OutputMIMEType, "image/jpeg"),
		},
	}

	var response imagenResponse
	if err := c.invokeGemini(ctx, c.modelPath(c.imageModel, "predict"), payload, &response); err != nil {
		return nil, err
	}
	for _, p := range response.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		c.logger.Debug().
			Str("model", c.imageModel).
			Str("aspect_ratio", req.AspectRatio).
			Msg("genai: image generated")
		return &InlineImage{
			MIMEType: firstNonEmpty(p.MimeType, payload.Parameters.OutputMIMEType),
			Base64:   p.BytesBase64Encoded,
		}, nil
	}
	for _, p := range response.Predictions {
		if p.RAIFilteredReason != "" {
			return nil, fmt.Errorf("image generation was filtered: %s", p.RAIFilteredReason)
		}
	}
	return nil, fmt.Errorf("image generation returned no images")
}

// EditImage applies a text instruction to an image and returns the first
// image part of the answer.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*InlineImage, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{MimeType: req.Image.MIMEType, Data: req.Image.Base64}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.modelPath(c.editModel, "generateContent"), payload, &response); err != nil {
		return nil, err
	}

	var text string
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				c.logger.Debug().Str("model", c.editModel).Msg("genai: image edited")
				return &InlineImage{
					MIMEType: firstNonEmpty(part.InlineData.MimeType, "image/png"),
					Base64:   part.InlineData.Data,
				}, nil
			}
			if text == "" && strings.TrimSpace(part.Text) != "" {
				text = strings.TrimSpace(part.Text)
			}
		}
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("image edit was blocked: %s", response.PromptFeedback.BlockReason)
	}
	if text != "" {
		return nil, fmt.Errorf("no image was returned: %s", text)
	}
	return nil, fmt.Errorf("no image was returned")
}

// StartVideo submits a Veo generation and returns the pending operation.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	instance := veoInstance{Prompt: req.Prompt}
	if req.Image != nil {
		instance.Image = &veoImage{BytesBase64Encoded: req.Image.Base64, MimeType: req.Image.MIMEType}
	}
	payload := veoRequest{
		Instances:  []veoInstance{instance},
		Parameters: veoParameters{AspectRatio: req.AspectRatio, NumberOfVideos: 1},
	}

	var response operationResponse
	if err := c.invokeGemini(ctx, c.modelPath(c.videoModel, "predictLongRunning"), payload, &response); err != nil {
		return nil, err
	}
	if response.Name == "" {
		return nil, fmt.Errorf("video generation returned no operation")
	}
	c.logger.Debug().
		Str("model", c.videoModel).
		Str("operation", response.Name).
		Msg("genai: video operation started")
	return response.operation(), nil
}

// GetOperation fetches the state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, fmt.Errorf("operation name is required")
	}
	var response operationResponse
	if err := c.do(ctx, http.MethodGet, "/"+name, nil, &response); err != nil {
		return nil, err
	}
	if response.Name == "" {
		response.Name = name
	}
	return response.operation(), nil
}

// Download fetches a produced file. Relative URIs resolve against the base URL.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", decodeAPIError(resp)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (r operationResponse) operation() *Operation {
	op := &Operation{Name: r.Name, Done: r.Done, Error: r.Error}
	if r.Response != nil && r.Response.GenerateVideoResponse != nil {
		for _, sample := range r.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video.URI != "" {
				op.VideoURIs = append(op.VideoURIs, sample.Video.URI)
			}
		}
		if op.Done && op.Error == nil && len(op.VideoURIs) == 0 {
			if reasons := r.Response.GenerateVideoResponse.RAIMediaFilteredReasons; len(reasons) > 0 {
				op.Error = &OperationError{Message: strings.Join(reasons, "; ")}
			}
		}
	}
	return op
}

func (c *Client) modelPath(model, method string) string {
	return fmt.Sprintf("/models/%s:%s", url.PathEscape(model), method)
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp)
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("genai: request failed")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey == "" {
		return
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
}

func decodeAPIError(resp *http.Response) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope geminiErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// KeySource supplies the key the user selected, if any.
type KeySource interface {
	SelectedKey(ctx context.Context) (string, error)
}

// ForSelectedKey returns a client that uses the key from keys, falling back to
// the configured key when nothing is selected.
func (c *Client) ForSelectedKey(ctx context.Context, keys KeySource) (*Client, error) {
	if keys == nil {
		return c, nil
	}
	key, err := keys.SelectedKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load selected key: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return c, nil
	}
	return c.WithAPIKey(key), nil
}
