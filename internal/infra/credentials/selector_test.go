package credentials

import (
	"context"
	"errors"
	"testing"
)

func TestSelectorOpenSelectKeyStoresPromptResult(t *testing.T) {
	store := NewMemoryStore("")
	sel := NewSelector(store, func(ctx context.Context) (string, error) { return "picked", nil })

	ok, err := sel.HasSelectedKey(context.Background())
	if err != nil || ok {
		t.Fatalf("HasSelectedKey before = %v, %v", ok, err)
	}
	if err := sel.OpenSelectKey(context.Background()); err != nil {
		t.Fatalf("OpenSelectKey error: %v", err)
	}
	ok, _ = sel.HasSelectedKey(context.Background())
	if !ok {
		t.Fatal("expected key after selection")
	}
	key, _ := sel.SelectedKey(context.Background())
	if key != "picked" {
		t.Fatalf("SelectedKey = %q", key)
	}
}

func TestSelectorDismissal(t *testing.T) {
	store := NewMemoryStore("")
	sel := NewSelector(store, func(ctx context.Context) (string, error) { return "  ", nil })
	if err := sel.OpenSelectKey(context.Background()); err != nil {
		t.Fatalf("dismissal must not fail: %v", err)
	}
	if ok, _ := sel.HasSelectedKey(context.Background()); ok {
		t.Fatal("dismissal must not store a key")
	}
}

func TestSelectorWithoutPrompt(t *testing.T) {
	sel := NewSelector(NewMemoryStore(""), nil)
	if err := sel.OpenSelectKey(context.Background()); !errors.Is(err, ErrNoPrompt) {
		t.Fatalf("expected ErrNoPrompt, got %v", err)
	}
}

func TestSubmittedKeyPrompt(t *testing.T) {
	store := NewMemoryStore("")
	sel := NewSelector(store, SubmittedKeyPrompt)
	ctx := WithSubmittedKey(context.Background(), "from-browser")
	if err := sel.OpenSelectKey(ctx); err != nil {
		t.Fatalf("OpenSelectKey error: %v", err)
	}
	key, _ := store.GeminiAPIKey(context.Background())
	if key != "from-browser" {
		t.Fatalf("stored key = %q", key)
	}
}
