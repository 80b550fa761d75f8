package studio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/video"
)

// RunnerFactory builds the video runner of a new view.
type RunnerFactory func(viewID string) *video.Runner

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	IdleTimeout time.Duration
	Logger      *infra.Logger
	Now         func() time.Time
}

// Registry tracks live views.
type Registry struct {
	client    *GenerationClient
	newRunner RunnerFactory
	idle      time.Duration
	now       func() time.Time
	logger    *infra.Logger

	mu    sync.Mutex
	views map[string]*View
}

func NewRegistry(client *GenerationClient, newRunner RunnerFactory, opts RegistryOptions) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}
	return &Registry{
		client:    client,
		newRunner: newRunner,
		idle:      idle,
		now:       now,
		logger:    infra.OrDiscard(opts.Logger),
		views:     make(map[string]*View),
	}
}

// Create opens a new view.
func (r *Registry) Create() *View {
	id := uuid.NewString()
	var runner *video.Runner
	if r.newRunner != nil {
		runner = r.newRunner(id)
	}
	v := newView(id, r.client, runner, r.now())

	r.mu.Lock()
	r.views[id] = v
	r.mu.Unlock()

	r.logger.Debug().Str("view_id", id).Msg("studio: view created")
	return v
}

// Get returns a live view and marks it as seen.
func (r *Registry) Get(id string) (*View, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	v.touch(r.now())
	return v, nil
}

// Delete closes a view: its video job is discarded.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	v.close()
	r.logger.Debug().Str("view_id", id).Msg("studio: view closed")
	return nil
}

// Sweep closes views that have not been seen within the idle timeout and
// returns how many were closed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)
	var stale []*View

	r.mu.Lock()
	for id, v := range r.views {
		if v.LastSeen().Before(cutoff) {
			stale = append(stale, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range stale {
		v.close()
	}
	if len(stale) > 0 {
		r.logger.Info().Int("views", len(stale)).Msg("studio: idle views closed")
	}
	return len(stale)
}

// Len returns the number of live views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close discards every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()
	for _, v := range views {
		v.close()
	}
}
