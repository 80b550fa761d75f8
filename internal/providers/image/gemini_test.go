package image

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/media"
	"studio/internal/providers/genai"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type staticKeys struct {
	key string
	err error
}

func (k staticKeys) SelectedKey(ctx context.Context) (string, error) { return k.key, k.err }

func newGenerator(t *testing.T, keys genai.KeySource, fn roundTripFunc) *GeminiGenerator {
	t.Helper()
	client, err := genai.NewClient(genai.Options{
		APIKey:     "env-key",
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: fn},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return NewGeminiGenerator(client, keys)
}

func TestGenerate(t *testing.T) {
	var gotKey string
	var payload map[string]any
	gen := newGenerator(t, staticKeys{key: "picked"}, func(r *http.Request) (*http.Response, error) {
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"predictions":[{"bytesBase64Encoded":"QUJD","mimeType":"image/jpeg"}]}`)),
		}, nil
	})

	img, err := gen.Generate(context.Background(), "a cat", domain.AspectWide)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if string(img.Data) != "ABC" || img.MIMEType != "image/jpeg" || img.Base64 != "QUJD" {
		t.Fatalf("unexpected payload: %+v", img)
	}
	if gotKey != "picked" {
		t.Fatalf("key = %q", gotKey)
	}
	if payload["parameters"].(map[string]any)["aspectRatio"] != "4:3" {
		t.Fatalf("parameters = %v", payload["parameters"])
	}
}

func TestEdit(t *testing.T) {
	gen := newGenerator(t, nil, func(r *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"RURJVA=="}}]}}]}`)),
		}, nil
	})
	src, _ := media.NewEncoder(0).Encode(strings.NewReader("orig"), "image/png")
	img, err := gen.Edit(context.Background(), "add a hat", src)
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if string(img.Data) != "EDIT" || img.MIMEType != "image/png" {
		t.Fatalf("unexpected payload: %+v", img)
	}
}

func TestKeySourceError(t *testing.T) {
	gen := newGenerator(t, staticKeys{err: errors.New("db down")}, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	if _, err := gen.Generate(context.Background(), "a cat", domain.AspectSquare); err == nil {
		t.Fatal("expected key source error")
	}
}
