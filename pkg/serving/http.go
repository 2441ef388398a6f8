package serving

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/dependability/pkg/common/logger"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/features"
	"github.com/synaptica-ai/dependability/pkg/observability/metrics"
	"github.com/synaptica-ai/dependability/pkg/report"
	"github.com/synaptica-ai/dependability/pkg/serving/predictor"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

type HTTPHandler struct {
	service   *Service
	maxUpload int64
}

func NewHTTPHandler(service *Service, maxUpload int64) *HTTPHandler {
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	return &HTTPHandler{service: service, maxUpload: maxUpload}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.home).Methods(http.MethodGet)
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.predictReport).Methods(http.MethodPost)
	router.HandleFunc("/test-predict", h.predictDirect).Methods(http.MethodPost)
	router.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/models", h.listModels).Methods(http.MethodGet)
	api.HandleFunc("/predictions", h.listPredictions).Methods(http.MethodGet)
}

func (h *HTTPHandler) home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Backend is running successfully"})
}

func (h *HTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	p := h.service.Predictor()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"model_version": p.Version(),
		"default_model": p.DefaultModel(),
	})
}

func (h *HTTPHandler) predictReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	text, err := report.ExtractPDFBytes(data)
	if err != nil {
		logger.Log.WithError(err).WithField("filename", header.Filename).Warn("pdf text extraction failed")
		writeError(w, http.StatusBadRequest, "could not read PDF")
		return
	}

	resp, err := h.service.PredictReport(r.Context(), text, r.FormValue("model_name"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) predictDirect(w http.ResponseWriter, r *http.Request) {
	var req models.DirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.PredictDirect(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) listModels(w http.ResponseWriter, r *http.Request) {
	p := h.service.Predictor()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":       p.Version(),
		"default_model": p.DefaultModel(),
		"models":        p.Models(),
	})
}

func (h *HTTPHandler) listPredictions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, ok, err := h.service.History(r.Context(), limit)
	if !ok {
		writeError(w, http.StatusNotFound, "prediction log is disabled")
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		writeError(w, http.StatusInternalServerError, "failed to list predictions")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *HTTPHandler) metrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

func (h *HTTPHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case predictor.IsUnknownModel(err):
		writeError(w, http.StatusNotFound, err.Error())
	case features.IsUnknownCategory(err), features.IsInvalidFeature(err), vitals.IsInvalidValue(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Log.WithError(err).Error("prediction failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON encodes before the status goes out, so an unencodable body turns
// into a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(models.ErrorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
