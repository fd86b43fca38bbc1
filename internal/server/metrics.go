// internal/server/metrics.go
package server

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mcp-food-log/internal/analyzer"
)

type metrics struct {
	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	records          *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "food_log_analyses_total",
			Help: "Food photo analyses by outcome.",
		}, []string{"outcome"}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "food_log_analysis_duration_seconds",
			Help:    "Time spent analyzing a food photo, including the model call.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "food_log_records_total",
			Help: "Logged food records by source.",
		}, []string{"source"}),
	}
}

func (m *metrics) observeAnalysis(start time.Time, err error) {
	m.analysisDuration.Observe(time.Since(start).Seconds())
	m.analyses.WithLabelValues(analysisOutcome(err)).Inc()
}

func analysisOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, analyzer.ErrEncodingFailure):
		return "encoding_failure"
	case errors.Is(err, analyzer.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, analyzer.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "transport_failure"
	}
}
