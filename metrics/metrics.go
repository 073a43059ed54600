// Package metrics 定义推荐服务的 Prometheus 指标。
//
// 覆盖：模型加载（耗时、行数、丢弃/跳过计数）、推荐请求（耗时、结果数）、HTTP 接口、blob 缓存。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 模型加载
	ModelLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "artrec_model_load_duration_seconds",
			Help:    "Duration of a full model fit in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_model_loads_total",
			Help: "Total number of model fit attempts by result",
		},
		[]string{"result"}, // success, error
	)

	ModelLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artrec_model_loaded",
			Help: "1 when a model snapshot is being served",
		},
	)

	ModelEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artrec_model_entities",
			Help: "Number of entities in the served snapshot",
		},
		[]string{"kind"}, // users, articles, ratings, degenerate_users
	)

	EmbeddingDimension = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "artrec_embedding_dimension",
			Help: "Dimension of the article embedding table",
		},
	)

	InteractionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artrec_interactions_dropped_total",
			Help: "Interactions dropped because engagement was missing or not finite",
		},
	)

	RatingsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artrec_ratings_unindexed_skipped_total",
			Help: "Ratings skipped during profile fit because the article has no embedding",
		},
	)

	// 推荐
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artrec_recommend_duration_seconds",
			Help:    "Duration of a recommend call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	RecommendResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_recommend_requests_total",
			Help: "Recommend calls by outcome",
		},
		[]string{"outcome"}, // ok, empty, unknown_user
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "artrec_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// blob 缓存
	BlobCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artrec_blob_cache_hits_total",
			Help: "Dataset blobs served from the local cache",
		},
	)

	BlobCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "artrec_blob_cache_misses_total",
			Help: "Dataset blobs fetched from the origin",
		},
	)

	BlobBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artrec_blob_bytes_total",
			Help: "Bytes read from dataset blobs",
		},
		[]string{"blob"},
	)
)

// RecordModelLoad 记录一次加载尝试。
func RecordModelLoad(d time.Duration, err error) {
	ModelLoadDuration.Observe(d.Seconds())
	if err != nil {
		ModelLoads.WithLabelValues("error").Inc()
		return
	}
	ModelLoads.WithLabelValues("success").Inc()
	ModelLoaded.Set(1)
}

// RecordAPIRequest 记录一次 HTTP 请求。
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
