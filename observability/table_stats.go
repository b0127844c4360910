package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xsymtab/lib/infra"
	"github.com/benz9527/xsymtab/lib/tree"
)

// TableStats records the operations of a named symbol table.
type TableStats struct {
	table   attribute.KeyValue
	ops     metric.Int64Counter
	latency metric.Float64Histogram
	size    metric.Int64ObservableGauge
	reg     metric.Registration
}

type tableStatsOptions struct {
	provider metric.MeterProvider
}

type TableStatsOpt func(*tableStatsOptions)

// WithTableStatsMeterProvider replaces the global meter provider.
func WithTableStatsMeterProvider(mp metric.MeterProvider) TableStatsOpt {
	return func(o *tableStatsOptions) {
		o.provider = mp
	}
}

// NewTableStats observes the table size by sizeFn on every collection.
// sizeFn runs on the reader or the scrape goroutine, so it must not
// read an unguarded tree that is being mutated.
func NewTableStats(name string, sizeFn func() int64, opts ...TableStatsOpt) (*TableStats, error) {
	o := &tableStatsOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.provider == nil {
		o.provider = otel.GetMeterProvider()
	}
	meter := o.provider.Meter(meterName("xsymtab/table", name))
	stats := &TableStats{
		table: attribute.String("table", name),
	}

	var err error
	if stats.ops, err = meter.Int64Counter(
		"xsymtab.table.operations",
		metric.WithDescription("The symbol table operations by op and result."),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	if stats.latency, err = meter.Float64Histogram(
		"xsymtab.table.operation.duration",
		metric.WithDescription("The symbol table operation latency."),
		metric.WithUnit("us"),
	); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	if stats.size, err = meter.Int64ObservableGauge(
		"xsymtab.table.size",
		metric.WithDescription("The number of keys in the symbol table."),
		metric.WithUnit("{key}"),
	); err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	if sizeFn != nil {
		if stats.reg, err = meter.RegisterCallback(func(_ context.Context, ob metric.Observer) error {
			ob.ObserveInt64(stats.size, sizeFn(), metric.WithAttributes(stats.table))
			return nil
		}, stats.size); err != nil {
			return nil, infra.WrapErrorStack(err)
		}
	}
	return stats, nil
}

// Result maps an operation error to the result attribute.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, tree.ErrKeyNotFound), errors.Is(err, tree.ErrEmptyTree):
		return "miss"
	case errors.Is(err, tree.ErrUnorderableKey):
		return "unorderable"
	}
	return "error"
}

func (stats *TableStats) Record(ctx context.Context, op string, start time.Time, err error) {
	if stats == nil {
		return
	}
	attrs := metric.WithAttributes(stats.table, attribute.String("op", op), attribute.String("result", Result(err)))
	stats.ops.Add(ctx, 1, attrs)
	stats.latency.Record(ctx, float64(time.Since(start).Microseconds()), attrs)
}

func (stats *TableStats) Close() error {
	if stats == nil || stats.reg == nil {
		return nil
	}
	return infra.WrapErrorStack(stats.reg.Unregister())
}
