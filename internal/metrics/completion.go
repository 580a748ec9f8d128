package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeghana",
			Subsystem: "completion",
			Name:      "requests_total",
			Help:      "补全接口调用总数，按结果分类。",
		},
		[]string{"outcome"},
	)

	completionTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumeghana",
			Subsystem: "completion",
			Name:      "tokens_total",
			Help:      "补全接口返回的 token 总量。",
		},
	)

	completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumeghana",
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "补全接口调用耗时分布（秒）。",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
		[]string{"outcome"},
	)

	enrichmentDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeghana",
			Subsystem: "builder",
			Name:      "enrichment_degraded_total",
			Help:      "简历生成时 AI 增强不可用、回落到原始格式的次数。",
		},
		[]string{"reason"},
	)
)

// ObserveCompletion 记录一次补全调用。outcome 取值 ok / auth / rate_limit / transport。
func ObserveCompletion(outcome string, elapsed time.Duration, tokens int) {
	completionRequestsTotal.WithLabelValues(outcome).Inc()
	completionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if tokens > 0 {
		completionTokensTotal.Add(float64(tokens))
	}
}

// EnrichmentDegraded 记录一次降级渲染。
func EnrichmentDegraded(reason string) {
	enrichmentDegradedTotal.WithLabelValues(reason).Inc()
}
