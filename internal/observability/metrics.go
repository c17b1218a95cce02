package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StageGenerateSQL      = "generate_sql"
	StageExecuteSQL       = "execute_sql"
	StageGenerateResponse = "generate_response"

	ModelPurposeSQL       = "sql"
	ModelPurposeNarrative = "narrative"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_http_requests_total",
			Help: "Total number of HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdata_http_request_duration_seconds",
			Help:    "HTTP request latency by route. Ask requests span both model calls.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"method", "route", "status"},
	)
	httpRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askdata_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdata_pipeline_stage_duration_seconds",
			Help:    "Duration of each question-answering pipeline stage.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"stage"},
	)
	modelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_model_requests_total",
			Help: "Total number of model generation requests by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
	sqlExecutionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdata_sql_execution_failures_total",
			Help: "Total number of SQL executions converted into error-shaped results.",
		},
	)
	resultTruncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdata_result_truncations_total",
			Help: "Total number of query results truncated before narrative generation.",
		},
	)
	narrativeFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdata_narrative_fallbacks_total",
			Help: "Total number of narrative responses replaced by the fallback text.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		httpRequestsInFlight,
		pipelineStageDurationSeconds,
		modelRequestsTotal,
		sqlExecutionFailuresTotal,
		resultTruncationsTotal,
		narrativeFallbacksTotal,
	)
}

func ObserveStage(stage string, elapsed time.Duration) {
	pipelineStageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveModelRequest(purpose string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	modelRequestsTotal.WithLabelValues(purpose, outcome).Inc()
}

func IncrementSQLExecutionFailure() {
	sqlExecutionFailuresTotal.Inc()
}

func IncrementResultTruncation() {
	resultTruncationsTotal.Inc()
}

func IncrementNarrativeFallback() {
	narrativeFallbacksTotal.Inc()
}
