package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carprice"

var (
	metricPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by model and outcome",
		},
		[]string{"model", "status"},
	)

	metricPredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent encoding and predicting",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"model"},
	)

	metricCategoryFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_fallbacks_total",
			Help:      "Unseen categories mapped to the first known indicator",
		},
		[]string{"feature"},
	)

	metricRecorderErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_log_errors_total",
			Help:      "Predictions that could not be written to the prediction log",
		},
	)
)

// Prediction outcomes.
const (
	StatusOK           = "ok"
	StatusInvalidInput = "invalid_input"
	StatusError        = "error"
)

func ObservePrediction(model, status string, elapsed time.Duration) {
	metricPredictions.WithLabelValues(model, status).Inc()
	metricPredictionDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

func CountFallback(feature string) {
	metricCategoryFallbacks.WithLabelValues(feature).Inc()
}

func CountRecorderError() {
	metricRecorderErrors.Inc()
}
