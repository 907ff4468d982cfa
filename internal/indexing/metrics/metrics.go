package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks pages appended to the dataset per record type
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_pages_fetched_total",
			Help: "Total number of pages appended to the collected dataset",
		},
		[]string{"record_type"},
	)

	// RecordsCollected tracks records appended per record type
	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_records_collected_total",
			Help: "Total number of records appended to the collected dataset",
		},
		[]string{"record_type"},
	)

	// FetchAttemptsTotal tracks every upstream attempt
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_fetch_attempts_total",
			Help: "Total number of upstream fetch attempts",
		},
		[]string{"record_type", "provider"},
	)

	// FetchErrorsTotal tracks failed attempts by classification
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_fetch_errors_total",
			Help: "Total number of failed upstream fetch attempts",
		},
		[]string{"record_type", "provider", "error_type"},
	)

	// FetchLatency tracks successful attempt latency
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_fetch_latency_seconds",
			Help:    "Upstream fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"record_type", "provider"},
	)

	// RetriesExhausted tracks pages that used up every attempt
	RetriesExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_retries_exhausted_total",
			Help: "Total number of pages whose attempts were exhausted",
		},
		[]string{"record_type"},
	)

	// CheckpointsWritten tracks checkpoint writes
	CheckpointsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_checkpoints_written_total",
			Help: "Total number of checkpoint writes",
		},
		[]string{"record_type"},
	)

	// CheckpointDuration tracks checkpoint write latency
	CheckpointDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_checkpoint_duration_seconds",
			Help:    "Checkpoint write latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"record_type"},
	)

	// CollectorPage tracks the last appended page
	CollectorPage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_collector_page",
			Help: "Last page appended by the collector",
		},
		[]string{"record_type"},
	)

	// RecommendationsTotal tracks recommendation requests by outcome
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"mode", "outcome"},
	)

	// RecommendationLatency tracks end-to-end recommendation latency
	RecommendationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_recommendation_latency_seconds",
			Help:    "Recommendation request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// DBQueryDuration tracks storage query latency
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections in use
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "curator_db_connection_pool_usage_percent",
			Help: "Percentage of database connection pool in use",
		},
	)
)
