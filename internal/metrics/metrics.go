// Package metrics Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinevasion_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// RecommendationsTotal 推荐请求数
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevasion_recommendations_total",
			Help: "Recommendation requests by outcome.",
		},
		[]string{"outcome"},
	)

	// FeatureBuildDuration 特征矩阵构建耗时
	FeatureBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinevasion_feature_build_duration_seconds",
			Help:    "Time spent building the film feature matrix.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	// SearchStageTotal 搜索命中阶段
	SearchStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevasion_search_stage_total",
			Help: "Search requests by the fallback stage that answered.",
		},
		[]string{"stage"},
	)

	// SearchCacheHits 搜索缓存命中
	SearchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinevasion_search_cache_hits_total",
		Help: "Search responses served from the query cache.",
	})

	// ChatDegradedTotal 聊天降级次数
	ChatDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevasion_chat_degraded_total",
			Help: "Chat answers produced in degraded mode, by cause.",
		},
		[]string{"cause"},
	)

	// IndexState 向量索引状态（当前状态为 1）
	IndexState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinevasion_index_state",
			Help: "Current vector index state (1 for the active state).",
		},
		[]string{"state"},
	)

	// IndexRebuildsTotal 向量索引重建次数
	IndexRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinevasion_index_rebuilds_total",
			Help: "Vector index rebuilds by result.",
		},
		[]string{"result"},
	)

	// ExternalCallDuration 外部服务调用耗时
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinevasion_external_call_duration_seconds",
			Help:    "Latency of embedding and generation service calls.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"service", "outcome"},
	)
)

// SetIndexState 切换索引状态指标
func SetIndexState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		IndexState.WithLabelValues(s).Set(v)
	}
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
