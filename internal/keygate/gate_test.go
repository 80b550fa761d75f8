package keygate

import (
	"context"
	"errors"
	"testing"

	"studio/internal/domain"
)

type fakeSelector struct {
	has     bool
	hasErr  error
	openErr error
	opened  int
	onOpen  func(*fakeSelector)
}

func (f *fakeSelector) HasSelectedKey(ctx context.Context) (bool, error) {
	return f.has, f.hasErr
}

func (f *fakeSelector) OpenSelectKey(ctx context.Context) error {
	f.opened++
	if f.onOpen != nil {
		f.onOpen(f)
	}
	return f.openErr
}

func TestRefresh(t *testing.T) {
	sel := &fakeSelector{has: true}
	g := New(sel, Options{})
	if g.IsReady() {
		t.Fatal("gate must start not ready")
	}
	ok, err := g.Refresh(context.Background())
	if err != nil || !ok || !g.IsReady() {
		t.Fatalf("Refresh = %v, %v; ready=%v", ok, err, g.IsReady())
	}
	sel.has = false
	if ok, _ := g.Refresh(context.Background()); ok || g.IsReady() {
		t.Fatal("expected not ready after refresh")
	}
}

func TestRefreshWithoutSelector(t *testing.T) {
	g := New(nil, Options{})
	ok, err := g.Refresh(context.Background())
	if err != nil || ok {
		t.Fatalf("Refresh = %v, %v", ok, err)
	}
}

func TestRequestSelectionIsOptimistic(t *testing.T) {
	sel := &fakeSelector{has: false}
	g := New(sel, Options{})
	if err := g.RequestSelection(context.Background()); err != nil {
		t.Fatalf("RequestSelection error: %v", err)
	}
	if sel.opened != 1 {
		t.Fatalf("opened = %d", sel.opened)
	}
	if !g.IsReady() {
		t.Fatal("selection must set ready even when the user dismissed the dialog")
	}
}

func TestRequestSelectionWithoutSelector(t *testing.T) {
	g := New(nil, Options{})
	err := g.RequestSelection(context.Background())
	if !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Fatalf("expected ErrCapabilityUnavailable, got %v", err)
	}
	if g.IsReady() {
		t.Fatal("gate must stay not ready")
	}
}

func TestRequestSelectionOpenError(t *testing.T) {
	sel := &fakeSelector{openErr: errors.New("closed")}
	g := New(sel, Options{})
	if err := g.RequestSelection(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if g.IsReady() {
		t.Fatal("failed selection must not set ready")
	}
}

func TestRequestSelectionVerify(t *testing.T) {
	sel := &fakeSelector{}
	g := New(sel, Options{VerifyAfterSelect: true})
	if err := g.RequestSelection(context.Background()); !errors.Is(err, domain.ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired after dismissal, got %v", err)
	}
	if g.IsReady() {
		t.Fatal("verified dismissal must leave gate not ready")
	}

	sel.onOpen = func(f *fakeSelector) { f.has = true }
	if err := g.RequestSelection(context.Background()); err != nil {
		t.Fatalf("RequestSelection error: %v", err)
	}
	if !g.IsReady() {
		t.Fatal("expected ready after verified selection")
	}
}

func TestRevoke(t *testing.T) {
	g := New(&fakeSelector{has: true}, Options{})
	_, _ = g.Refresh(context.Background())
	g.Revoke()
	if g.IsReady() {
		t.Fatal("expected not ready after revoke")
	}
	g.Revoke()
	if g.IsReady() {
		t.Fatal("revoke must be idempotent")
	}
}
