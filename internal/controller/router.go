package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sharetube/camwall/internal/platform/metrics"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	if c.metrics != nil {
		r.Use(metrics.RequestMiddleware(c.metrics))
		r.Handle("/metrics", c.metrics.Handler(nil))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/state", c.getState)

		cmd := r.With()
		if c.cmdRateLimit > 0 {
			cmd = r.With(httprate.LimitByIP(c.cmdRateLimit, time.Minute))
		}
		cmd.Post("/cmd", c.postCommand)

		r.Get("/ws", c.connect)
	})

	return r
}
