package credentials

import (
	"context"
	"errors"
	"strings"
)

// PromptFunc runs the interactive part of key selection and returns the key
// the user picked. An empty key means the user dismissed the flow.
type PromptFunc func(ctx context.Context) (string, error)

// Selector is the host-provided key selection capability backed by a KeyStore.
type Selector struct {
	store  KeyStore
	prompt PromptFunc
}

// NewSelector builds a Selector. prompt may be nil when the host offers no
// interactive flow; OpenSelectKey then fails.
func NewSelector(store KeyStore, prompt PromptFunc) *Selector {
	return &Selector{store: store, prompt: prompt}
}

// ErrNoPrompt is returned by OpenSelectKey when no interactive flow exists.
var ErrNoPrompt = errors.New("credentials: no interactive key selection available")

// HasSelectedKey reports whether a non-empty key is stored.
func (s *Selector) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := s.store.GeminiAPIKey(ctx)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

// OpenSelectKey runs the prompt and stores its result. Dismissal returns nil
// without storing anything.
func (s *Selector) OpenSelectKey(ctx context.Context) error {
	if s.prompt == nil {
		return ErrNoPrompt
	}
	key, err := s.prompt(ctx)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return s.store.SetGeminiAPIKey(ctx, key)
}

// SelectedKey returns the currently stored key.
func (s *Selector) SelectedKey(ctx context.Context) (string, error) {
	return s.store.GeminiAPIKey(ctx)
}

type submittedKeyCtx struct{}

// WithSubmittedKey attaches a key posted by a client to ctx.
func WithSubmittedKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, submittedKeyCtx{}, key)
}

// SubmittedKeyPrompt reads the key attached with WithSubmittedKey. It is the
// prompt used by the HTTP service, where the browser runs the dialog.
func SubmittedKeyPrompt(ctx context.Context) (string, error) {
	key, _ := ctx.Value(submittedKeyCtx{}).(string)
	return key, nil
}
