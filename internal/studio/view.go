package studio

import (
	"context"
	"sync/atomic"
	"time"

	"studio/internal/domain"
	"studio/internal/media"
	"studio/internal/video"
)

// View is one client session: at most one image call and one video job at a
// time.
type View struct {
	ID    string
	Video *video.Runner

	client   *GenerationClient
	busy     atomic.Bool
	lastSeen atomic.Int64
}

func newView(id string, client *GenerationClient, runner *video.Runner, now time.Time) *View {
	v := &View{ID: id, Video: runner, client: client}
	v.lastSeen.Store(now.UnixNano())
	return v
}

// GenerateImage runs one generation unless another image call is in flight.
func (v *View) GenerateImage(ctx context.Context, prompt string, aspect domain.AspectRatio) (domain.MediaReference, error) {
	if !v.busy.CompareAndSwap(false, true) {
		return domain.MediaReference{}, domain.ErrConflict
	}
	defer v.busy.Store(false)
	return v.client.GenerateImage(ctx, prompt, aspect)
}

// EditImage runs one edit unless another image call is in flight.
func (v *View) EditImage(ctx context.Context, prompt string, source *media.Payload) (domain.MediaReference, error) {
	if !v.busy.CompareAndSwap(false, true) {
		return domain.MediaReference{}, domain.ErrConflict
	}
	defer v.busy.Store(false)
	return v.client.EditImage(ctx, prompt, source)
}

// Busy reports whether an image call is in flight.
func (v *View) Busy() bool {
	return v.busy.Load()
}

func (v *View) touch(now time.Time) {
	v.lastSeen.Store(now.UnixNano())
}

// LastSeen is the time of the last lookup of the view.
func (v *View) LastSeen() time.Time {
	return time.Unix(0, v.lastSeen.Load())
}

func (v *View) close() {
	if v.Video != nil {
		v.Video.Reset()
	}
}
