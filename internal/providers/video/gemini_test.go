package video

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/media"
	"studio/internal/providers/genai"
	"studio/internal/storage"
	"studio/internal/video"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type staticKeys string

func (k staticKeys) SelectedKey(ctx context.Context) (string, error) { return string(k), nil }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newClient(t *testing.T, fn roundTripFunc) *genai.Client {
	t.Helper()
	client, err := genai.NewClient(genai.Options{
		APIKey:     "env-key",
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: fn},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestCreateUsesSelectedKey(t *testing.T) {
	var gotKey, gotPath string
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		gotKey = r.URL.Query().Get("key")
		gotPath = r.URL.Path
		return jsonResponse(http.StatusOK, `{"name":"models/veo-2.0-generate-001/operations/op-1"}`), nil
	})
	gen := NewGeminiGenerator(client, staticKeys("selected-key"), nil, nil)

	img, _ := media.NewEncoder(0).Encode(strings.NewReader("png"), "image/png")
	handle, err := gen.Create(context.Background(), video.Request{Prompt: "a cat", Image: img, AspectRatio: domain.AspectLandscape})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if handle != "models/veo-2.0-generate-001/operations/op-1" {
		t.Fatalf("handle = %q", handle)
	}
	if gotKey != "selected-key" {
		t.Fatalf("key = %q, want selected key", gotKey)
	}
	if gotPath != "/v1beta/models/veo-2.0-generate-001:predictLongRunning" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestCreateFallsBackToConfiguredKey(t *testing.T) {
	var gotKey string
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		gotKey = r.URL.Query().Get("key")
		return jsonResponse(http.StatusOK, `{"name":"operations/op-1"}`), nil
	})
	gen := NewGeminiGenerator(client, staticKeys(""), nil, nil)
	if _, err := gen.Create(context.Background(), video.Request{Prompt: "a cat"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if gotKey != "env-key" {
		t.Fatalf("key = %q, want env-key", gotKey)
	}
}

func TestCreateSurfacesUpstreamMessage(t *testing.T) {
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`), nil
	})
	_, err := NewGeminiGenerator(client, nil, nil, nil).Create(context.Background(), video.Request{Prompt: "a cat"})
	if err == nil || !domain.IsCredentialMessage(err.Error()) {
		t.Fatalf("expected credential message, got %v", err)
	}
}

func TestPollMapsOperation(t *testing.T) {
	responses := []string{
		`{"name":"operations/op-1"}`,
		`{"name":"operations/op-1","done":true,"error":{"code":3,"message":"unsafe prompt"}}`,
		`{"name":"operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://x/video.mp4"}}]}}}`,
	}
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		body := responses[0]
		responses = responses[1:]
		return jsonResponse(http.StatusOK, body), nil
	})
	gen := NewGeminiGenerator(client, nil, nil, nil)

	res, err := gen.Poll(context.Background(), "operations/op-1")
	if err != nil || res.Done {
		t.Fatalf("first poll = %+v, %v", res, err)
	}
	res, err = gen.Poll(context.Background(), "operations/op-1")
	if err != nil || !res.Done || res.Error != "unsafe prompt" {
		t.Fatalf("second poll = %+v, %v", res, err)
	}
	res, err = gen.Poll(context.Background(), "operations/op-1")
	if err != nil || !res.Done || res.VideoURI != "https://x/video.mp4" || res.Error != "" {
		t.Fatalf("third poll = %+v, %v", res, err)
	}
}

func TestPublishWithoutStoreKeepsURI(t *testing.T) {
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	url, err := NewGeminiGenerator(client, nil, nil, nil).Publish(context.Background(), "job-1", "https://x/video.mp4")
	if err != nil || url != "https://x/video.mp4" {
		t.Fatalf("Publish = %q, %v", url, err)
	}
}

func TestPublishStoresVideo(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir(), "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	var gotKey string
	client := newClient(t, func(r *http.Request) (*http.Response, error) {
		gotKey = r.URL.Query().Get("key")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"video/mp4"}},
			Body:       io.NopCloser(strings.NewReader("mp4-bytes")),
		}, nil
	})
	gen := NewGeminiGenerator(client, staticKeys("selected"), store, nil)

	url, err := gen.Publish(context.Background(), "job-1", "https://gemini.test/v1beta/files/abc:download?alt=media")
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if url != "http://localhost:8080/media/videos/job-1.mp4" {
		t.Fatalf("url = %q", url)
	}
	if gotKey != "selected" {
		t.Fatalf("download key = %q", gotKey)
	}
	data, err := store.Read("videos/job-1.mp4")
	if err != nil || string(data) != "mp4-bytes" {
		t.Fatalf("stored = %q, %v", data, err)
	}
}
