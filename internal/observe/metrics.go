// Package observe provides application-wide observability primitives for
// Memoroo: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Memoroo metrics.
const meterName = "github.com/memoroo/memoroo"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// EmbeddingDuration tracks embedding computation latency.
	EmbeddingDuration metric.Float64Histogram

	// RetrievalDuration tracks semantic retrieval latency (embed query +
	// vector search + unit hydration).
	RetrievalDuration metric.Float64Histogram

	// GenerationDuration tracks LLM response generation latency.
	GenerationDuration metric.Float64Histogram

	// MoodDuration tracks mood classification latency.
	MoodDuration metric.Float64Histogram

	// ExtractionDuration tracks attachment text extraction (OCR/STT) latency.
	ExtractionDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end chat turn latency, from message receipt
	// to persisted assistant reply.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ChatTurns counts completed chat turns. Use with attribute:
	//   attribute.String("action", ...) — "answer_provided" or "degraded_fallback"
	ChatTurns metric.Int64Counter

	// UnitsIndexed counts memory units written to the vector index. Use with
	// attribute: attribute.String("source_type", ...)
	UnitsIndexed metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Distribution of retrieval result counts ---

	// RetrievalHits tracks how many units survive the score threshold per
	// query. A drift towards zero signals embedding or threshold problems.
	RetrievalHits metric.Int64Histogram

	// --- Gauges ---

	// ActiveTurns tracks the number of chat turns currently in flight.
	ActiveTurns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// single provider calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// turnBuckets defines bucket boundaries (in seconds) for whole chat turns,
// which stack several provider calls.
var turnBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// hitBuckets defines bucket boundaries for retrieval hit counts.
var hitBuckets = []float64{0, 1, 2, 3, 5, 8, 13, 21}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EmbeddingDuration, err = m.Float64Histogram("memoroo.embedding.duration",
		metric.WithDescription("Latency of embedding computation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetrievalDuration, err = m.Float64Histogram("memoroo.retrieval.duration",
		metric.WithDescription("Latency of semantic retrieval."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("memoroo.generation.duration",
		metric.WithDescription("Latency of LLM response generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MoodDuration, err = m.Float64Histogram("memoroo.mood.duration",
		metric.WithDescription("Latency of mood classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("memoroo.extraction.duration",
		metric.WithDescription("Latency of attachment text extraction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("memoroo.chat.turn.duration",
		metric.WithDescription("End-to-end chat turn latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("memoroo.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ChatTurns, err = m.Int64Counter("memoroo.chat.turns",
		metric.WithDescription("Total completed chat turns by action."),
	); err != nil {
		return nil, err
	}
	if met.UnitsIndexed, err = m.Int64Counter("memoroo.units.indexed",
		metric.WithDescription("Total memory units written to the vector index by source type."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("memoroo.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Retrieval hit distribution.
	if met.RetrievalHits, err = m.Int64Histogram("memoroo.retrieval.hits",
		metric.WithDescription("Number of memory units returned per retrieval query."),
		metric.WithExplicitBucketBoundaries(hitBuckets...),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTurns, err = m.Int64UpDownCounter("memoroo.chat.active_turns",
		metric.WithDescription("Number of chat turns currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("memoroo.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordChatTurn is a convenience method that records a completed chat turn
// with its action outcome.
func (m *Metrics) RecordChatTurn(ctx context.Context, action string) {
	m.ChatTurns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("action", action)),
	)
}

// RecordUnitIndexed is a convenience method that records a vector index write.
func (m *Metrics) RecordUnitIndexed(ctx context.Context, sourceType string) {
	m.UnitsIndexed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source_type", sourceType)),
	)
}
