package studio

import (
	"errors"
	"testing"
	"time"

	"studio/internal/domain"
	"studio/internal/video"
)

func TestRegistryLifecycle(t *testing.T) {
	var built []string
	reg := NewRegistry(NewGenerationClient(&fakeImageBackend{}, nil), func(viewID string) *video.Runner {
		built = append(built, viewID)
		return video.NewRunner(nil, nil, video.Options{ViewID: viewID})
	}, RegistryOptions{})

	v := reg.Create()
	if v.ID == "" || v.Video == nil {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(built) != 1 || built[0] != v.ID {
		t.Fatalf("runner factory calls = %v", built)
	}
	got, err := reg.Get(v.ID)
	if err != nil || got != v {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if err := reg.Delete(v.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := reg.Get(v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}
	if err := reg.Delete(v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second Delete = %v", err)
	}
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg := NewRegistry(NewGenerationClient(&fakeImageBackend{}, nil), nil, RegistryOptions{IdleTimeout: time.Hour, Now: clock})

	old := reg.Create()
	now = now.Add(45 * time.Minute)
	fresh := reg.Create()
	now = now.Add(30 * time.Minute)

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if _, err := reg.Get(old.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("idle view must be swept")
	}
	if _, err := reg.Get(fresh.ID); err != nil {
		t.Fatalf("fresh view swept: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if n := reg.Sweep(); n != 0 {
		t.Fatalf("Get must refresh last seen, swept %d", n)
	}
	reg.Close()
	if reg.Len() != 0 {
		t.Fatalf("Len after Close = %d", reg.Len())
	}
}
