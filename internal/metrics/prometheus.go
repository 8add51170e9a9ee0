package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_intel_pipeline_runs_total",
			Help: "Total pipeline executions by outcome",
		},
		[]string{"status"},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_intel_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	RowsProcessed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_intel_rows_processed",
			Help:    "Dataset rows processed per pipeline run",
			Buckets: []float64{0, 10, 100, 1000, 10000, 100000},
		},
	)

	InsightsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_intel_insights_emitted_total",
			Help: "Insights emitted by type",
		},
		[]string{"type"},
	)

	InsightConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "market_intel_insight_confidence",
			Help:    "Confidence scores of emitted insights",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"type"},
	)

	NarrativeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_intel_narrative_failures_total",
			Help: "Executive narrative generations that failed",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_intel_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_intel_cache_hits_total",
			Help: "Total dashboard cache hits",
		},
		[]string{"read"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_intel_cache_misses_total",
			Help: "Total dashboard cache misses",
		},
		[]string{"read"},
	)
)

func Init() {
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(RowsProcessed)
	prometheus.MustRegister(InsightsEmitted)
	prometheus.MustRegister(InsightConfidence)
	prometheus.MustRegister(NarrativeFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
