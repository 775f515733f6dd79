package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "temporalos_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "route"},
	)

	ModeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_mode_transitions_total",
			Help: "Accepted mode transitions",
		},
		[]string{"from", "to", "source"},
	)

	DroppedDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_dropped_detections_total",
			Help: "Automatic detections discarded as stale or blocked",
		},
		[]string{"reason"},
	)

	ClassifierOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_classifier_outcomes_total",
			Help: "Classification results by the path that produced them",
		},
		[]string{"outcome"},
	)

	ClassifierLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "temporalos_classifier_latency_seconds",
			Help: "Detection pipeline latency in seconds",
		},
	)

	RecommendationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_recommendation_outcomes_total",
			Help: "Recommendations by source",
		},
		[]string{"outcome"},
	)

	SpeechRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "temporalos_speech_restarts_total",
			Help: "Automatic speech recognizer restarts",
		},
	)

	SpeechErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_speech_errors_total",
			Help: "Speech recognizer errors",
		},
		[]string{"critical"},
	)

	ActiveEngines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "temporalos_active_engines",
			Help: "Number of running per-session mode engines",
		},
	)

	StoreFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "temporalos_store_fallbacks_total",
			Help: "Session store operations served by the in-memory fallback",
		},
		[]string{"operation"},
	)
)
