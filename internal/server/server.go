package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/handler"
	"github.com/mlorentedev/promptdeck/internal/middleware"
	"github.com/mlorentedev/promptdeck/internal/store"
)

// Deps are the long-lived, concurrency-safe collaborators shared by handlers.
type Deps struct {
	Models       *adapter.Factory
	Records      store.Store
	HistoryLimit int
	Logger       *zap.Logger
	Now          func() time.Time
}

// NewRouter wires handlers with the full middleware chain.
func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Chain(d.Logger)...)

	r.Get("/", handler.Index(d.Models.Registry))
	r.Get("/history", handler.History(d.Records, d.HistoryLimit, d.Logger))
	r.Post("/invoke_model", handler.Invoke(d.Models, d.Records, d.Now, d.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.Health(d.Records, d.Models.Registry))
		r.Get("/models", handler.Models(d.Models.Registry))
		r.Get("/records", handler.Records(d.Records, d.HistoryLimit, d.Logger))
		r.Get("/records/{key}", handler.Record(d.Records, d.Logger))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
