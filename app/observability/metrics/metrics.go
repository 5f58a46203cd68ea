package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	RecommendationRequestsTotal   metric.Int64Counter
	RecommendationDurationSeconds metric.Float64Histogram
	CacheHitsTotal                metric.Int64Counter
	CacheMissesTotal              metric.Int64Counter
	ReasoningCallsTotal           metric.Int64Counter
	ReasoningDurationSeconds      metric.Float64Histogram
	DegradedResponsesTotal        metric.Int64Counter
	SearchFailuresTotal           metric.Int64Counter
	CostAdvisoriesTotal           metric.Int64Counter
	DbQueryDurationSeconds        metric.Float64Histogram
	DbQueryErrorsTotal            metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("MakanSuggest")
		var err error
		m := &AppMetrics{}

		m.RecommendationRequestsTotal, err = meter.Int64Counter(
			"recommendation_requests_total",
			metric.WithDescription("Total number of recommendation requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_requests_total: %v", err)
		}

		m.RecommendationDurationSeconds, err = meter.Float64Histogram(
			"recommendation_duration_seconds",
			metric.WithDescription("End-to-end duration of recommendation requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommendation_duration_seconds: %v", err)
		}

		m.CacheHitsTotal, err = meter.Int64Counter(
			"response_cache_hits_total",
			metric.WithDescription("Recommendation responses served from the five-minute cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_hits_total: %v", err)
		}

		m.CacheMissesTotal, err = meter.Int64Counter(
			"response_cache_misses_total",
			metric.WithDescription("Recommendation requests that had to be computed"),
			metric.WithUnit("{miss}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create response_cache_misses_total: %v", err)
		}

		m.ReasoningCallsTotal, err = meter.Int64Counter(
			"reasoning_calls_total",
			metric.WithDescription("Model reasoning invocations, including retries"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reasoning_calls_total: %v", err)
		}

		m.ReasoningDurationSeconds, err = meter.Float64Histogram(
			"reasoning_duration_seconds",
			metric.WithDescription("Latency of model reasoning calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create reasoning_duration_seconds: %v", err)
		}

		m.DegradedResponsesTotal, err = meter.Int64Counter(
			"degraded_responses_total",
			metric.WithDescription("Responses assembled without model reasoning"),
			metric.WithUnit("{response}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create degraded_responses_total: %v", err)
		}

		m.SearchFailuresTotal, err = meter.Int64Counter(
			"place_search_failures_total",
			metric.WithDescription("External place searches that failed or timed out"),
			metric.WithUnit("{failure}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create place_search_failures_total: %v", err)
		}

		m.CostAdvisoriesTotal, err = meter.Int64Counter(
			"cost_cap_advisories_total",
			metric.WithDescription("Responses carrying the daily usage advisory"),
			metric.WithUnit("{advisory}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cost_cap_advisories_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
