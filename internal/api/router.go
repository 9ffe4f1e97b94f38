package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ThePyWizard/subgenie/internal/api/handlers"
	"github.com/ThePyWizard/subgenie/internal/api/middleware"
	"github.com/ThePyWizard/subgenie/internal/config"
)

// Deps are the long-lived collaborators built once in main.
type Deps struct {
	Service handlers.Processor
	Limiter middleware.Limiter
	// Backend names the transcription backend for /readyz.
	Backend string
	// Redis is nil when rate limiting runs in memory.
	Redis handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	cfg  *config.Config
	deps Deps
}

func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		cfg:  cfg,
		deps: deps,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	// Health endpoints (not rate limited)
	health := handlers.NewHealthHandler(rt.deps.Backend, rt.deps.Redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	th := handlers.NewTranscribeHandler(rt.deps.Service, rt.cfg.Upload.MaxBytes)
	r.Group(func(r chi.Router) {
		if rt.deps.Limiter != nil {
			r.Use(middleware.RateLimit(rt.deps.Limiter))
		}

		r.Post("/transcribe/{output_language}", th.Handle(handlers.VariantTranscribe))
		r.Route("/transcription", func(r chi.Router) {
			r.Post("/v1/transcribe", th.Handle(handlers.VariantV1))
			r.Post("/v2/transcribe/{output_language}", th.Handle(handlers.VariantV2))
			r.Post("/v3/transcribe_and_translate_gpt/{output_language}", th.Handle(handlers.VariantV3))
		})
	})

	return r
}
