package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"whisperd/internal/api/handlers"
	"whisperd/internal/api/middleware"
	"whisperd/internal/config"
)

type Router struct {
	mux    *chi.Mux
	cfg    *config.Config
	svc    handlers.Transcriber
	logger *slog.Logger
}

func NewRouter(cfg *config.Config, svc handlers.Transcriber, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		mux:    chi.NewRouter(),
		cfg:    cfg,
		svc:    svc,
		logger: logger,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	if rt.cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(float64(rt.cfg.Server.RateLimitRPS), rt.cfg.Server.RateLimitBurst)
		r.Use(rl.Limit)
	}

	health := handlers.NewHealthHandler(rt.svc.Engine())
	r.Get("/", health.Root)
	r.Get("/health", health.Health)

	transcribeH := handlers.NewTranscribeHandler(rt.svc)
	r.Post("/transcribe", transcribeH.Transcribe)

	return r
}
