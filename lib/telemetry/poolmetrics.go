package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/respool/core/pool"
)

// ObservePool registers observable gauges that report pool health on the
// global meter. Gauges emit available, size, and pending counts under the
// given pool name.
func ObservePool(poolName string, stats func() pool.Stats) {
	if stats == nil {
		return
	}
	normalized := strings.TrimSpace(poolName)
	if normalized == "" {
		normalized = "default"
	}
	attrs := []attribute.KeyValue{attribute.String("pool", normalized)}

	meter := otel.Meter("respool.pool")
	if _, err := meter.Int64ObservableGauge("respool_available",
		metric.WithDescription("Tokens currently free for acquisition"),
		metric.WithUnit("{token}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			observer.Observe(int64(stats().Available), metric.WithAttributes(attrs...))
			return nil
		}),
	); err != nil {
		return
	}
	if _, err := meter.Int64ObservableGauge("respool_size",
		metric.WithDescription("Total tokens managed by the pool (free + reserved)"),
		metric.WithUnit("{token}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			observer.Observe(int64(stats().Size), metric.WithAttributes(attrs...))
			return nil
		}),
	); err != nil {
		return
	}
	if _, err := meter.Int64ObservableGauge("respool_pending",
		metric.WithDescription("Callers currently suspended waiting for a token"),
		metric.WithUnit("{caller}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			observer.Observe(int64(stats().Pending), metric.WithAttributes(attrs...))
			return nil
		}),
	); err != nil {
		return
	}
}
