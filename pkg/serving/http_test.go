package serving

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

func newTestRouter(t *testing.T, opts ...Option) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	NewHTTPHandler(NewService(newTestPredictor(t), opts...), 1<<20).Register(router)
	return router
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHTTPTestPredict(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/test-predict", strings.NewReader(`{"heart_rate": 125, "current_posture": "Left"}`))
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "High", resp.Prediction)
	assert.Equal(t, "Ensemble", resp.ModelName)
	assert.Equal(t, 125.0, resp.InputData.HeartRate)
	assert.Contains(t, resp.DefaultedFields, "spo2")
	assert.Len(t, resp.Probabilities, 3)
}

func TestHTTPTestPredictErrors(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"heart_rate":`, http.StatusBadRequest},
		{"unknown model", `{"model_name": "Gradient Boosting"}`, http.StatusNotFound},
		{"unknown posture", `{"current_posture": "Prone"}`, http.StatusUnprocessableEntity},
		{"zero spo2", `{"spo2": 0}`, http.StatusUnprocessableEntity},
		{"negative share", `{"left_pct": -50, "right_pct": 100, "supine_pct": 50}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(router, httptest.NewRequest(http.MethodPost, "/test-predict", strings.NewReader(tc.body)))
			assert.Equal(t, tc.code, rec.Code)

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestHTTPPredictUploadValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/predict", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, rec.Body.String())

	rec = serve(router, uploadRequest(t, "report.txt", []byte("Heart Rate: 80")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Only PDF files are supported"}`, rec.Body.String())

	rec = serve(router, uploadRequest(t, "report.pdf", []byte("not really a pdf")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"could not read PDF"}`, rec.Body.String())
}

func TestHTTPPredictMultiPageReport(t *testing.T) {
	router := newTestRouter(t)
	data, err := os.ReadFile(filepath.Join("testdata", "two_page_report.pdf"))
	require.NoError(t, err)

	rec := serve(router, uploadRequest(t, "Report.PDF", data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, SourceReport, resp.Source)
	assert.Equal(t, 88.0, resp.InputData.HeartRate)
	assert.Equal(t, 94.0, resp.InputData.SpO2)
	assert.Equal(t, vitals.PostureLeft, resp.InputData.CurrentPosture)
	assert.NotContains(t, resp.DefaultedFields, "heart_rate")
	assert.NotContains(t, resp.DefaultedFields, "spo2")
}

func TestHTTPHealthAndModels(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"model_version":"svc-test"`)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		DefaultModel string `json:"default_model"`
		Models       []struct {
			Name          string `json:"name"`
			Probabilistic bool   `json:"probabilistic"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ensemble", body.DefaultModel)
	require.Len(t, body.Models, 2)
	assert.Equal(t, "Ensemble", body.Models[0].Name)
	assert.True(t, body.Models[0].Probabilistic)
}

func TestHTTPPredictionHistory(t *testing.T) {
	rec := serve(newTestRouter(t), httptest.NewRequest(http.MethodGet, "/api/v1/predictions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store := &memoryStore{}
	router := newTestRouter(t, WithStore(store))
	for i := 0; i < 3; i++ {
		rec = serve(router, httptest.NewRequest(http.MethodPost, "/test-predict", strings.NewReader(`{}`)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/predictions?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.PredictionLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/predictions?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPMetrics(t *testing.T) {
	router := newTestRouter(t)
	serve(router, httptest.NewRequest(http.MethodPost, "/test-predict", strings.NewReader(`{}`)))

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dependability_predictions_total")
}
