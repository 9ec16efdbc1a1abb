package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts analyze requests by origin ("fresh", "cache") or "error"
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_analyses_total",
			Help: "Total number of URL analyses",
		},
		[]string{"origin"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ioclens_analysis_duration_seconds",
			Help:    "Time taken to analyze a URL, including scrape and LLM calls",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	IndicatorsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_indicators_extracted_total",
			Help: "Total number of indicators extracted from fresh analyses",
		},
		[]string{"risk_level"},
	)

	QueryGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_query_generations_total",
			Help: "Total number of SIEM query generations",
		},
		[]string{"persisted"},
	)

	// ScrapeAttempts counts content retrieval attempts per tier ("firecrawl", "http", "headless").
	// result is success, failure or skipped (primary tier breaker open).
	ScrapeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_scrape_attempts_total",
			Help: "Total number of content retrieval attempts",
		},
		[]string{"tier", "result"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"task", "result"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ioclens_llm_request_duration_seconds",
			Help:    "Latency of LLM completion requests",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"task"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_validation_failures_total",
			Help: "Total number of LLM payloads rejected by schema validation",
		},
		[]string{"schema"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "status"},
	)

	APIPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_api_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"method", "path"},
	)

	// GoroutinePanics counts panics recovered in background goroutines
	GoroutinePanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_goroutine_panics_total",
			Help: "Total number of recovered background goroutine panics",
		},
		[]string{"goroutine"},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_auth_events_total",
			Help: "Login, logout and session validation outcomes",
		},
		[]string{"event", "result"},
	)

	// Database pool metrics, labelled by pool ("read", "write")

	DBPoolOpenConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ioclens_db_pool_open_connections",
			Help: "Number of open database connections",
		},
		[]string{"pool"},
	)

	DBPoolInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ioclens_db_pool_in_use",
			Help: "Number of database connections currently in use",
		},
		[]string{"pool"},
	)

	DBPoolIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ioclens_db_pool_idle",
			Help: "Number of idle database connections",
		},
		[]string{"pool"},
	)

	DBPoolWaitCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ioclens_db_pool_wait_count_total",
			Help: "Total number of connections waited for",
		},
		[]string{"pool"},
	)
)
