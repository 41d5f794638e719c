package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RecommendationCacheHits   metric.Int64Counter
	RecommendationCacheMisses metric.Int64Counter
	RecommendationDuration    metric.Float64Histogram
	ProviderFailuresTotal     metric.Int64Counter
	DbQueryErrorsTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the global MeterProvider.
// Call it after the provider is installed; later calls are no-ops.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("SmartTravelGuide")
		var err error
		m := &AppMetrics{}

		m.RecommendationCacheHits, err = meter.Int64Counter(
			"recommendation_cache_hits_total",
			metric.WithDescription("Recommendation batches served from search history"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_cache_hits_total: %v", err)
		}

		m.RecommendationCacheMisses, err = meter.Int64Counter(
			"recommendation_cache_misses_total",
			metric.WithDescription("Recommendation batches that required generation"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_cache_misses_total: %v", err)
		}

		m.RecommendationDuration, err = meter.Float64Histogram(
			"recommendation_duration_seconds",
			metric.WithDescription("Duration of recommendation pipeline runs in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_duration_seconds: %v", err)
		}

		m.ProviderFailuresTotal, err = meter.Int64Counter(
			"provider_failures_total",
			metric.WithDescription("Failed calls to external providers"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_failures_total: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, creating them from the current global provider
// (a no-op provider in tests) on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
