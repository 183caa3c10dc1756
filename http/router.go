package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the API behind the middleware chain. The websocket route
// skips the timeout since the connection outlives the request.
func NewRouter(h *Handler, config ServerConfig) http.Handler {
	if config.Timeout <= 0 {
		config.Timeout = DefaultServerConfig().Timeout
	}
	r := chi.NewRouter()
	r.Use(
		RecoveryMiddleware(h.logger),
		LoggerMiddleware(h.logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
	)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(TimeoutMiddleware(config.Timeout), RequestSizeMiddleware(maxRequestBytes))

			r.Get("/health", h.health)
			r.Get("/model/metrics", h.modelMetrics)
			r.Get("/model/importance", h.modelImportance)
			r.Post("/predict", h.predict)
			r.Post("/submissions", h.createSubmission)
			r.Get("/submissions", h.listSubmissions)
			r.Get("/submissions/stats", h.submissionStats)
			r.Get("/dataset/summary", h.datasetSummary)
			r.Get("/training/log", h.trainingLog)
			r.Get("/assessment", h.questionnaire)
			r.Post("/assessment", h.assessment)
			r.Get("/metrics", h.metricsExport)
		})

		if h.hub != nil {
			r.Get("/ws", h.hub.HandleWebSocket)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
