// Package video runs one asynchronous video generation job per view: submit,
// poll at a fixed interval, then settle on a playable result or a failure.
package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/media"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultTimeout      = 10 * time.Minute
)

// Request is one video submission.
type Request struct {
	Prompt      string
	Image       *media.Payload
	AspectRatio domain.AspectRatio
	// Locale selects the language of progress text.
	Locale string
}

// Validate trims the prompt and fills the default aspect ratio. It fails with
// a ValidationError when the prompt or the image is missing.
func (req Request) Validate() (Request, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" || req.Image == nil {
		return req, domain.Invalid("Please upload an image and provide a prompt.")
	}
	aspect, err := domain.ParseAspectRatio(string(req.AspectRatio), domain.AspectLandscape, domain.VideoAspectRatios)
	if err != nil {
		return req, err
	}
	req.AspectRatio = aspect
	return req, nil
}

// PollResult is the answer of one status query.
type PollResult struct {
	Done     bool
	VideoURI string
	// Error is the upstream failure message of a finished operation.
	Error string
}

// Backend is the remote video service.
type Backend interface {
	Create(ctx context.Context, req Request) (handle string, err error)
	Poll(ctx context.Context, handle string) (PollResult, error)
}

// Publisher turns the service URI of a finished video into the URL handed to
// the presenter, usually by downloading and storing it.
type Publisher interface {
	Publish(ctx context.Context, jobID, videoURI string) (string, error)
}

// Recorder persists job history.
type Recorder interface {
	Create(ctx context.Context, job domain.JobRecord) error
	Finish(ctx context.Context, job domain.JobRecord) error
}

// Gate is the readiness check the runner consults before submitting and
// revokes on credential failures.
type Gate interface {
	IsReady() bool
	Revoke()
}

// Options configures a Runner.
type Options struct {
	ViewID       string
	Model        string
	PollInterval time.Duration
	Timeout      time.Duration
	Publisher    Publisher
	Recorder     Recorder
	Logger       *infra.Logger
}

// Runner owns at most one job at a time.
type Runner struct {
	backend   Backend
	gate      Gate
	viewID    string
	model     string
	interval  time.Duration
	timeout   time.Duration
	publisher Publisher
	recorder  Recorder
	logger    *infra.Logger

	mu        sync.Mutex
	gen       uint64
	job       *job
	cancel    context.CancelFunc
	listeners []func(Snapshot)
}

type job struct {
	id        string
	handle    string
	req       Request
	status    Status
	message   string
	createdAt time.Time
	updatedAt time.Time
	done      chan struct{}
}

// NewRunner builds a runner for one view. gate is shared across views.
func NewRunner(backend Backend, gate Gate, opts Options) *Runner {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		backend:   backend,
		gate:      gate,
		viewID:    opts.ViewID,
		model:     opts.Model,
		interval:  interval,
		timeout:   timeout,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		logger:    infra.OrDiscard(opts.Logger),
	}
}

// OnProgress registers fn to receive every snapshot change. fn runs on the job
// goroutine and must not call back into the runner.
func (r *Runner) OnProgress(fn func(Snapshot)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Submit validates req and starts a new job. The returned snapshot is in the
// Submitted state. Validation and readiness failures leave the runner as it
// was and never reach the backend.
func (r *Runner) Submit(ctx context.Context, req Request) (Snapshot, error) {
	req, err := req.Validate()
	if err != nil {
		return Snapshot{}, err
	}
	aspect := req.AspectRatio

	r.mu.Lock()
	if r.job != nil && r.job.status.State().Active() {
		r.mu.Unlock()
		return Snapshot{}, domain.ErrConflict
	}
	if r.gate == nil || !r.gate.IsReady() {
		r.mu.Unlock()
		return Snapshot{}, domain.ErrKeyRequired
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.gen++
	gen := r.gen
	now := time.Now().UTC()
	j := &job{
		id:        uuid.NewString(),
		req:       req,
		status:    Submitted{},
		message:   printerFor(req.Locale).Sprintf(msgPreparing),
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
	}
	r.job = j
	loopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	r.cancel = cancel
	snap := r.snapshotLocked()
	listeners := r.listeners
	r.mu.Unlock()

	r.logger.Info().
		Str("view_id", r.viewID).
		Str("job_id", j.id).
		Str("aspect_ratio", string(aspect)).
		Msg("video: job submitted")
	r.record(loopCtx, snap, false)
	notify(listeners, snap)

	go r.run(loopCtx, cancel, gen, j)
	return snap, nil
}

// Snapshot returns the current job, or an Idle snapshot.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Wait blocks until the current job is terminal or ctx ends. It returns the
// final snapshot; an Idle runner returns immediately.
func (r *Runner) Wait(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	j := r.job
	r.mu.Unlock()
	if j == nil {
		return r.Snapshot(), nil
	}
	select {
	case <-j.done:
		return r.Snapshot(), nil
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}
}

// Reset discards the current job and stops its loop. Results of the discarded
// job are ignored.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.job != nil {
		if !r.job.status.State().Terminal() {
			close(r.job.done)
		}
		r.logger.Debug().Str("view_id", r.viewID).Str("job_id", r.job.id).Msg("video: job discarded")
	}
	r.gen++
	r.job = nil
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, gen uint64, j *job) {
	defer cancel()
	printer := printerFor(j.req.Locale)

	handle, err := r.backend.Create(ctx, j.req)
	if err != nil {
		r.fail(ctx, gen, j, err)
		return
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		r.fail(ctx, gen, j, errors.New("video service returned no job id"))
		return
	}
	if !r.update(gen, func(j *job) {
		j.handle = handle
		j.status = Polling{}
		j.message = progressText(printer, 0)
	}) {
		return
	}

	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			r.fail(ctx, gen, j, ctx.Err())
			return
		case <-timer.C:
		}

		res, err := r.backend.Poll(ctx, handle)
		if err != nil {
			r.fail(ctx, gen, j, err)
			return
		}
		if !res.Done {
			if !r.update(gen, func(j *job) {
				j.status = Polling{Polls: polls}
				j.message = progressText(printer, polls)
			}) {
				return
			}
			timer.Reset(r.interval)
			continue
		}

		if msg := strings.TrimSpace(res.Error); msg != "" {
			r.fail(ctx, gen, j, errors.New(msg))
			return
		}
		if res.VideoURI == "" {
			r.fail(ctx, gen, j, errors.New(domain.NoVideoMessage))
			return
		}
		if !r.update(gen, func(j *job) {
			j.status = Polling{Polls: polls}
			j.message = printer.Sprintf(msgFinalizing)
		}) {
			return
		}
		url := res.VideoURI
		if r.publisher != nil {
			url, err = r.publisher.Publish(ctx, j.id, res.VideoURI)
			if err != nil {
				r.fail(ctx, gen, j, fmt.Errorf("fetch video: %w", err))
				return
			}
		}
		r.succeed(ctx, gen, j, domain.MediaReference{URL: url, Kind: domain.MediaKindVideo})
		return
	}
}

// update applies fn when gen is still current and publishes the change.
func (r *Runner) update(gen uint64, fn func(*job)) bool {
	r.mu.Lock()
	if r.gen != gen || r.job == nil {
		r.mu.Unlock()
		return false
	}
	fn(r.job)
	r.job.updatedAt = time.Now().UTC()
	snap := r.snapshotLocked()
	listeners := r.listeners
	r.mu.Unlock()
	notify(listeners, snap)
	return true
}

func (r *Runner) succeed(ctx context.Context, gen uint64, j *job, ref domain.MediaReference) {
	if !r.settle(ctx, gen, j, Succeeded{Result: ref}) {
		return
	}
	r.logger.Info().
		Str("view_id", r.viewID).
		Str("job_id", j.id).
		Str("state", string(domain.JobStateSucceeded)).
		Msg("video: job finished")
}

func (r *Runner) fail(ctx context.Context, gen uint64, j *job, cause error) {
	var err error
	switch {
	case errors.Is(cause, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = &domain.JobFailedError{JobID: j.id, Message: domain.TimeoutMessage, Err: domain.ErrTimeout}
	case errors.Is(cause, context.Canceled):
		// Reset cancelled the loop; the job is already gone.
		return
	default:
		msg := cause.Error()
		failed := domain.JobFailedError{JobID: j.id, Message: msg, Err: cause}
		if domain.IsCredentialMessage(msg) {
			err = &domain.CredentialError{JobFailedError: failed}
		} else {
			err = &failed
		}
	}

	if !r.settle(ctx, gen, j, Failed{Err: err}) {
		return
	}
	r.logger.Warn().
		Err(cause).
		Str("view_id", r.viewID).
		Str("job_id", j.id).
		Str("state", string(domain.JobStateFailed)).
		Msg("video: job failed")
}

// settle moves the job to a terminal status once. It reports false when the
// job was superseded.
func (r *Runner) settle(ctx context.Context, gen uint64, j *job, status Status) bool {
	r.mu.Lock()
	if r.gen != gen || r.job != j || j.status.State().Terminal() {
		r.mu.Unlock()
		return false
	}
	j.status = status
	j.message = ""
	j.updatedAt = time.Now().UTC()
	if failed, ok := status.(Failed); ok {
		var cred *domain.CredentialError
		if errors.As(failed.Err, &cred) && r.gate != nil {
			r.gate.Revoke()
		}
	}
	snap := r.snapshotLocked()
	listeners := r.listeners
	r.mu.Unlock()

	r.record(context.WithoutCancel(ctx), snap, true)
	notify(listeners, snap)
	close(j.done)
	return true
}

func (r *Runner) record(ctx context.Context, snap Snapshot, final bool) {
	if r.recorder == nil {
		return
	}
	rec := domain.JobRecord{
		ID:          snap.JobID,
		ViewID:      r.viewID,
		Model:       r.model,
		Prompt:      snap.Prompt,
		AspectRatio: snap.AspectRatio,
		State:       snap.State,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	var err error
	if final {
		if snap.Result != nil {
			rec.ResultURL = snap.Result.URL
		}
		if snap.Err != nil {
			rec.Message = snap.Err.Error()
		}
		err = r.recorder.Finish(ctx, rec)
	} else {
		err = r.recorder.Create(ctx, rec)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("job_id", snap.JobID).Msg("video: record job history")
	}
}

func (r *Runner) snapshotLocked() Snapshot {
	if r.job == nil {
		return Snapshot{State: domain.JobStateIdle}
	}
	j := r.job
	snap := Snapshot{
		JobID:       j.id,
		Handle:      j.handle,
		State:       j.status.State(),
		Message:     j.message,
		Prompt:      j.req.Prompt,
		AspectRatio: j.req.AspectRatio,
		CreatedAt:   j.createdAt,
		UpdatedAt:   j.updatedAt,
	}
	switch s := j.status.(type) {
	case Succeeded:
		ref := s.Result
		snap.Result = &ref
	case Failed:
		snap.Err = s.Err
	}
	return snap
}

func notify(listeners []func(Snapshot), snap Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}
