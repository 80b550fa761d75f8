package geoip

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewResolverEmptyPathDisables(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil {
		t.Fatalf("NewResolver error: %v", err)
	}
	if r.Enabled() {
		t.Fatal("expected disabled resolver")
	}
	if r.Lookup() != nil {
		t.Fatal("disabled resolver must not provide a lookup")
	}
	if _, err := r.CountryCode("203.0.113.1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestNewResolverMissingFile(t *testing.T) {
	if _, err := NewResolver(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected error for missing database")
	}
}
