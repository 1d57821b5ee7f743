package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/frankwiersma/speech-to-jira/internal/app"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
	"github.com/frankwiersma/speech-to-jira/internal/service/pipeline"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, svc *pipeline.Service, m *metrics.Metrics) http.Handler {
	h := NewHandlers(application, svc)
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.logger, m))
	r.Use(middleware.Recoverer)

	var origins []string
	if application != nil && application.Cfg != nil {
		origins = application.Cfg.Service.AllowedOrigins
	}
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Content-Type",
				HeaderDeepgramKey,
				HeaderAzureKey,
				HeaderAzureEndpoint,
				HeaderAzureDeployment,
				HeaderAzureVersion,
				HeaderOpenAIKey,
				HeaderAnthropicKey,
			},
			ExposedHeaders: []string{"Content-Disposition", droppedHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/", h.Index)
	r.Get("/health", h.Health)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", h.Readiness)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/transcribe", h.Transcribe)
		r.Post("/process", h.Process)
		r.Post("/generate", h.Generate)
		r.Post("/export", h.Export)
	})

	return r
}
