package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diagrammer_backend_request_seconds",
		Help:    "Latency of analysis backend requests.",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"endpoint", "outcome"})

	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diagrammer_backend_requests_total",
		Help: "Total number of analysis backend requests by endpoint and HTTP status class.",
	}, []string{"endpoint", "status"})

	ContractViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diagrammer_contract_violations_total",
		Help: "Total number of backend payloads rejected by the response contract.",
	})

	AnalysesLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diagrammer_analyses_loaded_total",
		Help: "Total number of analysis results handed to the view, by source.",
	}, []string{"source"})

	SelectionChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diagrammer_selection_changes_total",
		Help: "Total number of module selection events handled.",
	})

	ProjectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "diagrammer_projection_seconds",
		Help:    "Time spent projecting the four diagrams for one selection.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})

	ProjectionMemoHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diagrammer_projection_memo_hits_total",
		Help: "Total number of selections served from the projection memo.",
	})

	RenderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diagrammer_render_errors_total",
		Help: "Total number of renderer failures by renderer name.",
	}, []string{"renderer"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diagrammer_watcher_events_total",
		Help: "Total number of file system events received by the result watcher.",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "diagrammer_cache_entries",
		Help: "Number of analysis results held in the local cache.",
	})
)
