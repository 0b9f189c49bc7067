package obs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce        sync.Once
	requestCounter     metric.Int64Counter
	latencyHistogram   metric.Float64Histogram
	resubscribeCounter metric.Int64Counter
	pageCounter        metric.Int64Counter

	bgOnce sync.Once
	bgCtx  context.Context
)

func installMetrics(m meter) {
	metricsOnce.Do(func() {
		if m == nil {
			return
		}
		requestCounter, _ = m.Int64Counter("skymsg.requests", metric.WithDescription("Total API requests"))
		latencyHistogram, _ = m.Float64Histogram("skymsg.request.latency_ms", metric.WithDescription("API request latency (ms)"))
		resubscribeCounter, _ = m.Int64Counter("skymsg.resubscribes", metric.WithDescription("Resubscribe-retry cycles"))
		pageCounter, _ = m.Int64Counter("skymsg.pages", metric.WithDescription("Sync pages fetched"))
	})
}

type meter interface {
	Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}

func backgroundContext() context.Context {
	bgOnce.Do(func() { bgCtx = context.Background() })
	return bgCtx
}

func recordRequest(attrs ...attribute.KeyValue) {
	if requestCounter != nil {
		requestCounter.Add(backgroundContext(), 1, metric.WithAttributes(attrs...))
	}
}

func recordLatency(ms float64, attrs ...attribute.KeyValue) {
	if latencyHistogram != nil {
		latencyHistogram.Record(backgroundContext(), ms, metric.WithAttributes(attrs...))
	}
}

// RecordResubscribe counts one resubscribe-retry cycle.
func RecordResubscribe() {
	if resubscribeCounter != nil {
		resubscribeCounter.Add(backgroundContext(), 1)
	}
}

// RecordPage counts one fetched page for a sync resource.
func RecordPage(resource string) {
	if pageCounter != nil {
		pageCounter.Add(backgroundContext(), 1,
			metric.WithAttributes(attribute.String("skymsg.resource", resource)))
	}
}
