package handlers

import (
	"encoding/json"
	"net/http"

	"studio/internal/domain"
	"studio/internal/infra/credentials"
)

type apiKeyStatusResponse struct {
	Ready bool `json:"ready"`
}

type apiKeySelectRequest struct {
	APIKey string `json:"api_key"`
}

// APIKeyStatus re-evaluates whether a key is selected.
func (a *App) APIKeyStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.view(w, r); !ok {
		return
	}
	if a.Gate == nil {
		a.json(w, http.StatusOK, apiKeyStatusResponse{Ready: false})
		return
	}
	ready, err := a.Gate.Refresh(r.Context())
	if err != nil {
		a.logger(r).Warn().Err(err).Msg("refresh api key state")
	}
	a.json(w, http.StatusOK, apiKeyStatusResponse{Ready: ready})
}

// APIKeySelect runs the selection flow with the key posted by the browser.
// An empty key is a dismissed dialog.
func (a *App) APIKeySelect(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.view(w, r); !ok {
		return
	}
	if a.Gate == nil {
		a.fail(w, r, domain.ErrCapabilityUnavailable)
		return
	}
	var req apiKeySelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	ctx := credentials.WithSubmittedKey(r.Context(), req.APIKey)
	if err := a.Gate.RequestSelection(ctx); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, apiKeyStatusResponse{Ready: a.Gate.IsReady()})
}
