package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	predictionsReport  atomic.Int64
	predictionsDirect  atomic.Int64
	predictionErrors   atomic.Int64
	degradedReports    atomic.Int64
	documentFailures   atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	sideChannelFailure atomic.Int64

	labelMu     sync.Mutex
	labelCounts = map[string]int64{}
	fieldCounts = map[string]int64{}
)

// ObservePrediction counts a served prediction by input path and label.
func ObservePrediction(source, label string) {
	if source == "report" {
		predictionsReport.Add(1)
	} else {
		predictionsDirect.Add(1)
	}
	labelMu.Lock()
	labelCounts[label]++
	labelMu.Unlock()
}

func ObservePredictionError() {
	predictionErrors.Add(1)
}

// ObserveExtraction records which fields fell back to defaults for one
// document.
func ObserveExtraction(defaulted []string, documentFailed bool) {
	if len(defaulted) > 0 {
		degradedReports.Add(1)
	}
	if documentFailed {
		documentFailures.Add(1)
	}
	labelMu.Lock()
	for _, f := range defaulted {
		fieldCounts[f]++
	}
	labelMu.Unlock()
}

func ObserveCache(hit bool) {
	if hit {
		cacheHits.Add(1)
	} else {
		cacheMisses.Add(1)
	}
}

func ObserveSideChannelFailure() {
	sideChannelFailure.Add(1)
}

func Reset() {
	for _, c := range []*atomic.Int64{
		&predictionsReport, &predictionsDirect, &predictionErrors, &degradedReports,
		&documentFailures, &cacheHits, &cacheMisses, &sideChannelFailure,
	} {
		c.Store(0)
	}
	labelMu.Lock()
	labelCounts = map[string]int64{}
	fieldCounts = map[string]int64{}
	labelMu.Unlock()
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP dependability_predictions_total Predictions served, by input path.\n")
	fmt.Fprintf(w, "# TYPE dependability_predictions_total counter\n")
	fmt.Fprintf(w, "dependability_predictions_total{source=\"report\"} %d\n", predictionsReport.Load())
	fmt.Fprintf(w, "dependability_predictions_total{source=\"direct\"} %d\n", predictionsDirect.Load())

	fmt.Fprintf(w, "# HELP dependability_prediction_errors_total Prediction requests that failed.\n")
	fmt.Fprintf(w, "# TYPE dependability_prediction_errors_total counter\n")
	fmt.Fprintf(w, "dependability_prediction_errors_total %d\n", predictionErrors.Load())

	fmt.Fprintf(w, "# HELP dependability_degraded_reports_total Reports with at least one defaulted field.\n")
	fmt.Fprintf(w, "# TYPE dependability_degraded_reports_total counter\n")
	fmt.Fprintf(w, "dependability_degraded_reports_total %d\n", degradedReports.Load())

	fmt.Fprintf(w, "# HELP dependability_document_failures_total Reports whose extraction aborted part way.\n")
	fmt.Fprintf(w, "# TYPE dependability_document_failures_total counter\n")
	fmt.Fprintf(w, "dependability_document_failures_total %d\n", documentFailures.Load())

	fmt.Fprintf(w, "# HELP dependability_result_cache_total Result cache lookups.\n")
	fmt.Fprintf(w, "# TYPE dependability_result_cache_total counter\n")
	fmt.Fprintf(w, "dependability_result_cache_total{result=\"hit\"} %d\n", cacheHits.Load())
	fmt.Fprintf(w, "dependability_result_cache_total{result=\"miss\"} %d\n", cacheMisses.Load())

	fmt.Fprintf(w, "# HELP dependability_side_channel_failures_total Cache, log or event failures absorbed by the service.\n")
	fmt.Fprintf(w, "# TYPE dependability_side_channel_failures_total counter\n")
	fmt.Fprintf(w, "dependability_side_channel_failures_total %d\n", sideChannelFailure.Load())

	labelMu.Lock()
	labels := snapshot(labelCounts)
	fields := snapshot(fieldCounts)
	labelMu.Unlock()

	fmt.Fprintf(w, "# HELP dependability_predictions_by_label_total Predictions served, by predicted label.\n")
	fmt.Fprintf(w, "# TYPE dependability_predictions_by_label_total counter\n")
	for _, kv := range labels {
		fmt.Fprintf(w, "dependability_predictions_by_label_total{label=%q} %d\n", kv.key, kv.value)
	}

	fmt.Fprintf(w, "# HELP dependability_defaulted_fields_total Report fields replaced by defaults.\n")
	fmt.Fprintf(w, "# TYPE dependability_defaulted_fields_total counter\n")
	for _, kv := range fields {
		fmt.Fprintf(w, "dependability_defaulted_fields_total{field=%q} %d\n", kv.key, kv.value)
	}
}

type counter struct {
	key   string
	value int64
}

func snapshot(m map[string]int64) []counter {
	out := make([]counter, 0, len(m))
	for k, v := range m {
		out = append(out, counter{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}
