package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linguary/linguary-api/internal/api"
	apiMiddleware "github.com/linguary/linguary-api/internal/api/middleware"
)

// setupRouter configures the application router with middleware and routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.Trace)

	uploadHandler := api.NewUploadHandler(app.intake, app.config.Intake.MaxFileSize)
	statusHandler := api.NewStatusHandler(app.status)

	r.Post("/upload", uploadHandler.HandleUpload)
	r.Get("/task-status", statusHandler.HandleStatus)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
