package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/studio"
)

type viewResponse struct {
	ViewID string `json:"view_id"`
}

// CreateView opens a session. The key gate is re-evaluated on every mount.
func (a *App) CreateView(w http.ResponseWriter, r *http.Request) {
	view := a.Registry.Create()
	if a.Gate != nil {
		if _, err := a.Gate.Refresh(r.Context()); err != nil {
			a.logger(r).Warn().Err(err).Str("view_id", view.ID).Msg("refresh api key state")
		}
	}
	a.json(w, http.StatusCreated, viewResponse{ViewID: view.ID})
}

// DeleteView leaves a session and discards its video job.
func (a *App) DeleteView(w http.ResponseWriter, r *http.Request) {
	if err := a.Registry.Delete(chi.URLParam(r, "view_id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) view(w http.ResponseWriter, r *http.Request) (*studio.View, bool) {
	view, err := a.Registry.Get(chi.URLParam(r, "view_id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return view, true
}
