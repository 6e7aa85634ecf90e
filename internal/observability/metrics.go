package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crudgen"

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Metrics holds all Prometheus collectors for the application.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RequestsRejected    *prometheus.CounterVec

	// Schema
	SchemaEntities      prometheus.Gauge
	SchemaTypes         prometheus.Gauge
	SchemaCutEdges      prometheus.Gauge
	SchemaProblems      prometheus.Gauge
	SchemaBuildsTotal   *prometheus.CounterVec
	SchemaBuildDuration prometheus.Histogram

	// Resolvers
	ResolverDuration *prometheus.HistogramVec
	ResolverErrors   *prometheus.CounterVec

	// Kafka
	KafkaMessagesConsumed *prometheus.CounterVec
	KafkaConsumerErrors   *prometheus.CounterVec
	KafkaConsumerRunning  *prometheus.GaugeVec
	KafkaBatchSize        *prometheus.HistogramVec
	KafkaBatchDuration    *prometheus.HistogramVec

	// Database
	DBQueryDuration   *prometheus.HistogramVec
	DBPoolConnections *prometheus.GaugeVec
}

// NewMetrics creates and registers all application metrics with the default registry.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewTestMetrics creates metrics backed by a throw-away registry.
// Safe to call from multiple tests without duplicate-registration panics.
func NewTestMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.NewRegistry()))
}

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"method", "path"}),

		RequestsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_requests_rejected_total",
			Help:      "GraphQL requests rejected before execution.",
		}, []string{"reason"}),

		SchemaEntities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_entities",
			Help:      "Entities with root operations in the active schema.",
		}),

		SchemaTypes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_types",
			Help:      "Type descriptors registered by the active schema build.",
		}),

		SchemaCutEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_cut_edges",
			Help:      "Relationship edges cut to break cycles in the active schema.",
		}),

		SchemaProblems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schema_problems",
			Help:      "Configuration and generation problems reported by the active schema build.",
		}),

		SchemaBuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_builds_total",
			Help:      "Schema builds by result.",
		}, []string{"result"}),

		SchemaBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "schema_build_duration_seconds",
			Help:      "Time to load configuration and generate the schema.",
			Buckets:   latencyBuckets,
		}),

		ResolverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_duration_seconds",
			Help:      "Root operation resolver duration in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"entity", "operation"}),

		ResolverErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_errors_total",
			Help:      "Root operation resolver errors.",
		}, []string{"entity", "operation"}),

		KafkaMessagesConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Total Kafka messages consumed.",
		}, []string{"topic"}),

		KafkaConsumerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_errors_total",
			Help:      "Total Kafka consumer errors.",
		}, []string{"topic", "error_type"}),

		KafkaConsumerRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_running",
			Help:      "Whether the Kafka consumer is running (1) or stopped (0).",
		}, []string{"topic"}),

		KafkaBatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_batch_size",
			Help:      "Record events fetched per batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		}, []string{"topic"}),

		KafkaBatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_batch_duration_seconds",
			Help:      "Time to fetch or apply one batch of record events.",
			Buckets:   latencyBuckets,
		}, []string{"topic", "phase"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"operation"}),

		DBPoolConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_connections",
			Help:      "Database connection pool statistics.",
		}, []string{"state"}),
	}
}
