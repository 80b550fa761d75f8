package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/infra"
	"studio/internal/middleware"
)

// Options configures the router middleware stack.
type Options struct {
	Logger          *infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*infra.OrDiscard(opts.Logger)),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/media/*", app.Media("/media/"))

	r.Route("/v1/views", func(r chi.Router) {
		r.Post("/", app.CreateView)
		r.Route("/{view_id}", func(r chi.Router) {
			r.Delete("/", app.DeleteView)
			r.Get("/apikey", app.APIKeyStatus)
			r.Post("/apikey/select", app.APIKeySelect)
			r.Get("/videos", app.VideoHistory)
			r.Get("/videos/current", app.VideoCurrent)
			r.Delete("/videos/current", app.VideoReset)

			// Calls that reach the generation service are rate limited.
			r.Group(func(r chi.Router) {
				if opts.RateLimitPerMin > 0 {
					r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
				}
				r.Post("/images/generate", app.ImagesGenerate)
				r.Post("/images/edit", app.ImagesEdit)
				r.Post("/videos", app.VideoSubmit)
			})
		})
	})

	return r
}
