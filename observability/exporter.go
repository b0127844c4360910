package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xsymtab/lib/infra"
)

type ExporterType string

const (
	ExporterNone       ExporterType = "none"
	ExporterConsole    ExporterType = "console"
	ExporterPrometheus ExporterType = "prometheus"
)

func ParseExporterType(typ string) (ExporterType, error) {
	switch t := ExporterType(strings.ToLower(strings.TrimSpace(typ))); t {
	case "", ExporterNone:
		return ExporterNone, nil
	case ExporterConsole, ExporterPrometheus:
		return t, nil
	}
	return ExporterNone, infra.NewErrorStack("[observability] unknown metrics exporter: " + typ)
}

type exporterOptions struct {
	interval time.Duration
	timeout  time.Duration
	writer   io.Writer
}

type ExporterOpt func(*exporterOptions)

func WithExporterInterval(interval, timeout time.Duration) ExporterOpt {
	return func(o *exporterOptions) {
		if interval > 0 {
			o.interval = interval
		}
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithExporterWriter changes the output of the console exporter.
func WithExporterWriter(w io.Writer) ExporterOpt {
	return func(o *exporterOptions) {
		if w != nil {
			o.writer = w
		}
	}
}

// InitMeterProvider sets the global meter provider. The returned
// callback flushes and shuts it down.
func InitMeterProvider(typ ExporterType, opts ...ExporterOpt) (func(ctx context.Context) error, error) {
	o := &exporterOptions{
		interval: 10 * time.Second,
		timeout:  5 * time.Second,
		writer:   os.Stdout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	switch typ {
	case ExporterConsole:
		return newConsoleMetricsExporter(o.interval, o.timeout, stdoutmetric.WithWriter(o.writer))
	case ExporterPrometheus:
		return newPrometheusMetricsExporter()
	case ExporterNone, "":
		return func(context.Context) error { return nil }, nil
	}
	return nil, infra.NewErrorStack("[observability] unknown metrics exporter: " + string(typ))
}

// Serves for test/dev environment.
func newConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (func(ctx context.Context) error, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Serves for the product environment, the metrics are fetched by the
// promhttp handler on the default prometheus registry.
func newPrometheusMetricsExporter() (func(ctx context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}
