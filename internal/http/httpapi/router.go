package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"genstudio/internal/http/handlers"
	"genstudio/internal/infra"
	"genstudio/internal/infra/geoip"
	"genstudio/internal/metrics"
	"genstudio/internal/middleware"
)

// Options configures the router beyond the handler dependencies.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	Countries       geoip.CountryResolver
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	limit := middleware.RateLimit(opts.RateLimitPerMin, 10*time.Minute)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS(opts.AllowedOrigins))
		r.Use(limit)
		r.Use(middleware.Country(opts.Countries))
		r.Post("/v1/generate-image", app.GenerateImage)
		r.Options("/v1/generate-image", app.GenerateImage)
	})

	// Method checks happen in the handler so non-POST requests get a
	// plain-text 405.
	r.With(limit).HandleFunc("/v1/generate-video", app.GenerateVideo)

	r.Post("/v1/process-completed-predictions", app.ProcessCompletedPredictions)
	r.Post("/v1/predictions/webhook", app.PredictionWebhook)

	return r
}
