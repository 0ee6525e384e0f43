package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	PredictRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dapi_predict_requests_total",
			Help: "Total number of predict requests, by outcome",
		},
		[]string{"outcome"}, // cache_hit, inferred, timeout, queue_full, error
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dapi_cache_hits_total",
			Help: "Total number of cache hits, by tier",
		},
		[]string{"tier"}, // local, server_front, server_worker
	)

	InferenceTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dapi_inference_timeouts_total",
			Help: "Total number of submissions that gave up waiting for a result",
		},
	)

	ChallengeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dapi_challenge_requests_total",
			Help: "Total number of challenges received by the miner, by caller class",
		},
		[]string{"caller"}, // validator, registered, unknown
	)

	RewardOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dapi_reward_outcomes_total",
			Help: "Total number of per-miner reward outcomes, by status",
		},
		[]string{"status"}, // scored, no_response, invalid, failed
	)

	// Gauges
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dapi_queue_depth",
			Help: "Current number of jobs waiting for the inference worker",
		},
	)

	// Histogram for model invocation duration
	// Buckets: 10ms, 20ms, 40ms, 80ms, 160ms, 320ms, 640ms, 1.28s, 2.56s, 5.12s, 10.24s, 20.48s, 40.96s, 81.92s, 163.84s
	InferenceDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dapi_inference_duration_seconds",
			Help:    "Model invocation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15), // 10ms to ~163s
		},
	)
)
