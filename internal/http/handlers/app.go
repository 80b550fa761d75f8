package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/media"
	"studio/internal/storage"
	"studio/internal/studio"
)

// KeyGate is the readiness flag shared by every view.
type KeyGate interface {
	Refresh(ctx context.Context) (bool, error)
	IsReady() bool
	RequestSelection(ctx context.Context) error
}

// JobHistory lists finished and running video jobs of a view.
type JobHistory interface {
	ListByView(ctx context.Context, viewID string, limit int) ([]domain.JobRecord, error)
}

// Options wires the dependencies of App.
type Options struct {
	Registry *studio.Registry
	Gate     KeyGate
	Encoder  *media.Encoder
	Store    *storage.FileStore
	Jobs     JobHistory
	Logger   *infra.Logger
}

type App struct {
	Registry *studio.Registry
	Gate     KeyGate
	Encoder  *media.Encoder
	Store    *storage.FileStore
	Jobs     JobHistory
	Logger   *infra.Logger
}

func NewApp(opts Options) *App {
	encoder := opts.Encoder
	if encoder == nil {
		encoder = media.NewEncoder(0)
	}
	return &App{
		Registry: opts.Registry,
		Gate:     opts.Gate,
		Encoder:  encoder,
		Store:    opts.Store,
		Jobs:     opts.Jobs,
		Logger:   infra.OrDiscard(opts.Logger),
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type mediaResponse struct {
	Media domain.MediaReference `json:"media"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps err to a status and a user facing message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := domain.UserMessage(err)
	if status == http.StatusInternalServerError {
		a.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "An unexpected error occurred. Please try again."
	} else {
		a.logger(r).Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	a.error(w, status, code, message)
}

// classify returns the HTTP status and error code of err. Credential errors
// are checked before job failures since they wrap both.
func classify(err error) (int, string) {
	var cred *domain.CredentialError
	switch {
	case errors.As(err, &cred):
		return http.StatusForbidden, "api_key_invalid"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrInvalidMedia):
		return http.StatusUnsupportedMediaType, "invalid_media"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrKeyRequired):
		return http.StatusForbidden, "api_key_required"
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return http.StatusNotImplemented, "capability_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, domain.ErrJobFailed):
		return http.StatusBadGateway, "job_failed"
	}
	return http.StatusInternalServerError, "internal"
}

// logger returns the request scoped logger set by the access log middleware.
func (a *App) logger(r *http.Request) *infra.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return a.Logger
}
