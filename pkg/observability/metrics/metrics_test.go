package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritePrometheus(t *testing.T) {
	Reset()
	ObservePrediction("report", "High")
	ObservePrediction("direct", "Low")
	ObservePrediction("direct", "Low")
	ObserveExtraction([]string{"spo2", "temperature"}, false)
	ObserveExtraction(nil, true)
	ObserveCache(true)
	ObserveCache(false)
	ObserveSideChannelFailure()

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	assert.Equal(t, "text/plain; version=0.0.4", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "dependability_predictions_total{source=\"report\"} 1\n")
	assert.Contains(t, body, "dependability_predictions_total{source=\"direct\"} 2\n")
	assert.Contains(t, body, "dependability_predictions_by_label_total{label=\"Low\"} 2\n")
	assert.Contains(t, body, "dependability_defaulted_fields_total{field=\"spo2\"} 1\n")
	assert.Contains(t, body, "dependability_degraded_reports_total 1\n")
	assert.Contains(t, body, "dependability_document_failures_total 1\n")
	assert.Contains(t, body, "dependability_result_cache_total{result=\"hit\"} 1\n")
	assert.Contains(t, body, "dependability_side_channel_failures_total 1\n")
}
