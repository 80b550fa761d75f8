package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"views":   a.Registry.Len(),
		"api_key": a.Gate != nil && a.Gate.IsReady(),
	})
}
