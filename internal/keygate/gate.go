// Package keygate tracks whether a user-selected API key is available for
// video generation.
package keygate

import (
	"context"
	"fmt"
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Selector is the host capability that owns key selection.
type Selector interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

// Options configures a Gate.
type Options struct {
	// VerifyAfterSelect re-checks HasSelectedKey after the selection flow
	// instead of assuming it succeeded.
	VerifyAfterSelect bool
	Logger            *infra.Logger
}

// Gate is shared by every view of the process. A nil selector means the host
// offers no selection capability.
type Gate struct {
	selector Selector
	verify   bool
	logger   *infra.Logger

	mu    sync.RWMutex
	ready bool
}

// New creates a gate that starts not ready.
func New(selector Selector, opts Options) *Gate {
	return &Gate{selector: selector, verify: opts.VerifyAfterSelect, logger: infra.OrDiscard(opts.Logger)}
}

// Refresh asks the selector whether a key is selected and stores the answer.
func (g *Gate) Refresh(ctx context.Context) (bool, error) {
	if g.selector == nil {
		g.set(false)
		return false, nil
	}
	ok, err := g.selector.HasSelectedKey(ctx)
	if err != nil {
		return g.IsReady(), fmt.Errorf("check selected key: %w", err)
	}
	g.set(ok)
	return ok, nil
}

// IsReady reports the last known readiness.
func (g *Gate) IsReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready
}

// RequestSelection opens the host selection flow. Readiness is set
// optimistically once the flow returns.
func (g *Gate) RequestSelection(ctx context.Context) error {
	if g.selector == nil {
		return domain.ErrCapabilityUnavailable
	}
	if err := g.selector.OpenSelectKey(ctx); err != nil {
		return fmt.Errorf("open key selection: %w", err)
	}
	if !g.verify {
		g.set(true)
		return nil
	}
	ok, err := g.selector.HasSelectedKey(ctx)
	if err != nil {
		return fmt.Errorf("check selected key: %w", err)
	}
	g.set(ok)
	if !ok {
		return domain.ErrKeyRequired
	}
	return nil
}

// Revoke marks the key as unusable until the next selection.
func (g *Gate) Revoke() {
	g.mu.Lock()
	was := g.ready
	g.ready = false
	g.mu.Unlock()
	if was {
		g.logger.Warn().Msg("keygate: api key revoked")
	}
}

func (g *Gate) set(ready bool) {
	g.mu.Lock()
	g.ready = ready
	g.mu.Unlock()
}
