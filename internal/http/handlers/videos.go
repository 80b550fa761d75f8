package handlers

import (
	"net/http"
	"strconv"
	"time"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/studio"
	"studio/internal/video"
)

type videoSnapshotResponse struct {
	JobID       string                 `json:"job_id,omitempty"`
	State       domain.JobState        `json:"state"`
	Message     string                 `json:"message,omitempty"`
	Media       *domain.MediaReference `json:"media"`
	Error       *errorDetail           `json:"error"`
	AspectRatio domain.AspectRatio     `json:"aspect_ratio,omitempty"`
	CreatedAt   *time.Time             `json:"created_at,omitempty"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty"`
}

type videoHistoryItem struct {
	JobID       string             `json:"job_id"`
	State       domain.JobState    `json:"state"`
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Message     string             `json:"message,omitempty"`
	URL         string             `json:"url,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func snapshotResponse(snap video.Snapshot) videoSnapshotResponse {
	resp := videoSnapshotResponse{
		JobID:       snap.JobID,
		State:       snap.State,
		Message:     snap.Message,
		Media:       snap.Result,
		AspectRatio: snap.AspectRatio,
	}
	if snap.Err != nil {
		_, code := classify(snap.Err)
		resp.Error = &errorDetail{Code: code, Message: domain.UserMessage(snap.Err)}
	}
	if !snap.CreatedAt.IsZero() {
		created, updated := snap.CreatedAt, snap.UpdatedAt
		resp.CreatedAt, resp.UpdatedAt = &created, &updated
	}
	return resp
}

func (a *App) videoView(w http.ResponseWriter, r *http.Request) (*studio.View, bool) {
	view, ok := a.view(w, r)
	if !ok {
		return nil, false
	}
	if view.Video == nil {
		a.fail(w, r, domain.ErrCapabilityUnavailable)
		return nil, false
	}
	return view, true
}

// VideoSubmit starts a video job for the view.
func (a *App) VideoSubmit(w http.ResponseWriter, r *http.Request) {
	view, ok := a.videoView(w, r)
	if !ok {
		return
	}
	prompt, image, err := a.readUpload(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	snap, err := view.Video.Submit(r.Context(), video.Request{
		Prompt:      prompt,
		Image:       image,
		AspectRatio: domain.AspectRatio(r.FormValue("aspect_ratio")),
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, snapshotResponse(snap))
}

// VideoCurrent returns the snapshot of the view's job, Idle when none.
func (a *App) VideoCurrent(w http.ResponseWriter, r *http.Request) {
	view, ok := a.videoView(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, snapshotResponse(view.Video.Snapshot()))
}

// VideoReset discards the view's job.
func (a *App) VideoReset(w http.ResponseWriter, r *http.Request) {
	view, ok := a.videoView(w, r)
	if !ok {
		return
	}
	view.Video.Reset()
	a.json(w, http.StatusOK, snapshotResponse(view.Video.Snapshot()))
}

// VideoHistory lists recorded jobs of the view, newest first.
func (a *App) VideoHistory(w http.ResponseWriter, r *http.Request) {
	view, ok := a.view(w, r)
	if !ok {
		return
	}
	items := []videoHistoryItem{}
	if a.Jobs == nil {
		a.json(w, http.StatusOK, map[string]any{"items": items})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := a.Jobs.ListByView(r.Context(), view.ID, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	for _, rec := range records {
		items = append(items, videoHistoryItem{
			JobID:       rec.ID,
			State:       rec.State,
			Prompt:      rec.Prompt,
			AspectRatio: rec.AspectRatio,
			Message:     rec.Message,
			URL:         rec.ResultURL,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
