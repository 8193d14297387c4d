package metrics

import "github.com/prometheus/client_golang/prometheus"

// LLM Prometheus metrics. The "op" label names the pipeline stage:
// classify, optimize, assess, chat, inquiry, casual_match.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "llm_requests_total",
			Help:      "Total number of chat-completion requests",
		},
		[]string{"op", "model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchengine",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat-completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"op", "model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "llm_tokens_total",
			Help:      "Total chat-completion tokens consumed",
		},
		[]string{"op", "model", "type"},
	)

	LLMFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "llm_fallbacks_total",
			Help:      "Total deterministic fallbacks after LLM failure",
		},
		[]string{"op"},
	)
)

// Matching pipeline metrics.
var (
	SearchTiersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "search_tiers_total",
			Help:      "Progressive search executions per tier",
		},
		[]string{"tier"},
	)

	ReaperDeletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchengine",
			Name:      "reaper_deletions_total",
			Help:      "Casual request records removed by the reaper",
		},
		[]string{"kind"}, // "relational" / "vector"
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers LLM and matching metrics. Must be called once from main.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMFallbacksTotal)
	prometheus.MustRegister(SearchTiersTotal)
	prometheus.MustRegister(ReaperDeletionsTotal)
	llmMetricsRegistered = true
}
