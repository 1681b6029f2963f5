package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/choreboard/choreboard/internal/api"
	apimiddleware "github.com/choreboard/choreboard/internal/api/middleware"
	"github.com/choreboard/choreboard/internal/platform/metrics"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	// The gateway authenticates the handshake itself so clients can pass
	// the credential as a query parameter where headers are unavailable.
	r.Get("/ws", app.gateway.ServeHTTP)

	taskHandler := api.NewTaskHandler(app.taskSvc, app.dispatcher, app.logger)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.verifier)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		taskHandler.Routes(r)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(app.registry))

	return r
}
