package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mindsync/db"
	"mindsync/ml"
	"mindsync/monitoring"
	"mindsync/wellness"
)

const (
	defaultSubmissionLimit = 30
	maxRequestBytes        = 1 << 20
)

// Handler serves the wellness API from a trained pipeline run.
type Handler struct {
	predictor  *ml.Predictor
	training   *ml.PipelineResult
	population []float64
	store      *db.Store
	hub        *monitoring.Hub
	metrics    *monitoring.MetricsCollector
	quality    ml.QualityReport
	logger     *zap.Logger
}

// Dependencies wires a Handler. Store and Hub are optional; a nil Metrics gets
// a fresh collector.
type Dependencies struct {
	Predictor *ml.Predictor
	Training  *ml.PipelineResult
	Store     *db.Store
	Hub       *monitoring.Hub
	Metrics   *monitoring.MetricsCollector
	Logger    *zap.Logger
}

func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Predictor == nil || deps.Training == nil {
		return nil, errors.New("a trained model is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	population, err := deps.Training.Dataset.Column(deps.Training.Target)
	if err != nil {
		return nil, err
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetricsCollector()
	}
	registerMetrics(deps.Metrics, deps.Predictor, deps.Hub)

	columns := append(ml.DefaultFeatures(), deps.Training.Target)
	return &Handler{
		predictor:  deps.Predictor,
		training:   deps.Training,
		population: population,
		store:      deps.Store,
		hub:        deps.Hub,
		metrics:    deps.Metrics,
		quality:    deps.Training.Dataset.Quality(columns...),
		logger:     deps.Logger,
	}, nil
}

func registerMetrics(mc *monitoring.MetricsCollector, predictor *ml.Predictor, hub *monitoring.Hub) {
	mc.Describe(metricRequests, "Scored requests by endpoint and outcome")
	mc.Describe(metricLatency, "Scoring latency in seconds by endpoint")
	mc.GaugeFunc("predictor_cache_hits_total", "Predictions served from the cache", func() float64 {
		return float64(predictor.Stats().Hits)
	})
	mc.GaugeFunc("predictor_cache_misses_total", "Predictions computed by the model", func() float64 {
		return float64(predictor.Stats().Misses)
	})
	mc.GaugeFunc("predictor_cache_size", "Entries held by the prediction cache", func() float64 {
		return float64(predictor.Stats().Size)
	})
	if hub != nil {
		mc.RegisterHub(hub)
	}
}

const (
	metricRequests = "wellness_requests_total"
	metricLatency  = "wellness_request_duration_seconds"
)

// observe counts one scored request and its latency.
func (h *Handler) observe(endpoint string, start time.Time, err error) {
	outcome := "ok"
	var verr *wellness.ValidationError
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	h.metrics.IncrCounter(metricRequests, 1, map[string]string{"endpoint": endpoint, "outcome": outcome})
	h.metrics.ObserveSince(metricLatency, start, map[string]string{"endpoint": endpoint})
}

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []wellness.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeFailure maps err onto a status: validation problems are the caller's
// fault, everything else is ours.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var verr *wellness.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Fields: verr.Fields})
		return
	}
	h.logger.Error("request failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status": "ok",
		"trees":  h.training.Model().NumTrees(),
		"uptime": h.metrics.GetUptime().String(),
	}
	if h.hub != nil {
		payload["hub"] = h.hub.Stats()
	}
	writeJSON(w, http.StatusOK, payload)
}

// metricsExport serves the collector in Prometheus text format, or as JSON
// with ?format=json.
func (h *Handler) metricsExport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"metrics": h.metrics.GetAllMetrics(),
			"system":  h.metrics.GetSystemStats(),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.metrics.ExportPrometheus()))
}

func (h *Handler) modelMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_type": ml.ModelTypeRandomForest,
		"target":     h.training.Target,
		"features":   h.training.Features,
		"trees":      h.training.Model().NumTrees(),
		"train_rows": len(h.training.Train.Split.XTrain),
		"test_rows":  len(h.training.Train.Split.XTest),
		"metrics":    h.training.Metrics,
		"cache":      h.predictor.Stats(),
	})
}

func (h *Handler) modelImportance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.training.Metrics.FeatureImportance)
}

func (h *Handler) decodeInput(r *http.Request) (ml.DailyInput, error) {
	var in ml.DailyInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		return in, err
	}
	return in, nil
}

func (h *Handler) evaluate(in ml.DailyInput) (wellness.Evaluation, error) {
	if err := wellness.ValidateInput(in); err != nil {
		return wellness.Evaluation{}, err
	}
	score, err := h.predictor.Predict(in)
	if err != nil {
		return wellness.Evaluation{}, err
	}
	return wellness.Evaluate(score, in, h.population), nil
}

func (h *Handler) publish(msgType monitoring.MessageType, data interface{}) {
	if h.hub == nil {
		return
	}
	if err := h.hub.Publish(msgType, data); err != nil {
		h.logger.Warn("publish failed", zap.String("type", string(msgType)), zap.Error(err))
	}
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	in, err := h.decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	eval, err := h.evaluate(in)
	h.observe("predict", start, err)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.publish(monitoring.ScoreEvent, eval)
	writeJSON(w, http.StatusOK, eval)
}

type submissionResponse struct {
	Submission db.Submission       `json:"submission"`
	Evaluation wellness.Evaluation `json:"evaluation"`
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusInternalServerError, "submission history is not configured")
		return
	}
	start := time.Now()
	in, err := h.decodeInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	eval, err := h.evaluate(in)
	if err != nil {
		h.observe("submission", start, err)
		h.writeFailure(w, r, err)
		return
	}

	sub, err := h.store.SaveSubmission(r.Context(), db.Submission{
		Input: in,
		Score: eval.Score,
		Band:  eval.Band,
	})
	h.observe("submission", start, err)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	h.publish(monitoring.SubmissionEvent, sub)
	writeJSON(w, http.StatusCreated, submissionResponse{Submission: sub, Evaluation: eval})
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusInternalServerError, "submission history is not configured")
		return
	}
	limit := defaultSubmissionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	subs, err := h.store.ListSubmissions(r.Context(), limit)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) submissionStats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusInternalServerError, "submission history is not configured")
		return
	}
	stats, err := h.store.SubmissionStats(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) datasetSummary(w http.ResponseWriter, r *http.Request) {
	columns := append(ml.DefaultFeatures(), h.training.Target)
	summary, err := h.training.Dataset.Summary(columns...)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":    h.training.Dataset.Len(),
		"columns": summary,
		"quality": h.quality,
	})
}

func (h *Handler) assessment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req wellness.AssessmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	result, err := wellness.AssessDigitalWellness(req)
	h.observe("assessment", start, err)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) questionnaire(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wellness.Questionnaire)
}

func (h *Handler) trainingLog(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusInternalServerError, "submission history is not configured")
		return
	}
	logs, err := h.store.LoadTrainingLog(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
