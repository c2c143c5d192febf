// internal/api/routes/routes.go
package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fawad-mazhar/skyhub/internal/api/handlers"
	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// APIKeyHeader carries the submission/status credential.
const APIKeyHeader = "X-Hub-Auth"

func SetupRouter(cfg *config.Config, store handlers.ResultStore, queue handlers.TaskQueue, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	})

	// Initialize handlers
	signer := handlers.NewURLSigner(cfg.Server.SigningSecret, cfg.Server.BaseURL)
	resultsTTL := time.Duration(cfg.Jobs.ResultsExpire) * time.Second
	taskHandler := handlers.NewTaskHandler(store, queue, signer, cfg.Blob.Name, resultsTTL, logger)
	resultsHandler := handlers.NewResultsHandler(store, signer, logger)
	systemHandler := handlers.NewSystemHandler(cfg)

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(cfg.Server.APIKey))

			r.Post("/tasks/schedule", taskHandler.ScheduleTask)
			r.Get("/tasks/{id}/status", taskHandler.GetTaskStatus)
			r.Get("/status", systemHandler.GetSystemStatus)
		})

		// presigned URLs are self-authenticating, no API key required
		r.Get("/results/{id}", resultsHandler.Download)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	return r
}

// APIKeyAuth rejects requests whose credential header does not match the
// configured API key.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(APIKeyHeader) != apiKey {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "not authenticated"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
