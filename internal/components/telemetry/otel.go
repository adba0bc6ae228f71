package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"stocksentinel-backend/internal/components/configutil"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Collector is where one signal is exported to. Grpc wins when both urls are set.
type Collector struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

// Config is the contents of telemetry.json5.
type Config struct {
	Otlp struct {
		Traces  Collector `json:"traces"`
		Metrics Collector `json:"metrics"`
	} `json:"otlp"`
}

// Providers are the otel providers installed globally by Setup. The zero value
// exports nothing.
type Providers struct {
	traces  *trace.TracerProvider
	metrics *metric.MeterProvider
}

// Shutdown flushes whatever the crawl has not exported yet.
func (p Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.traces != nil {
		errs = append(errs, p.traces.Shutdown(ctx))
	}
	if p.metrics != nil {
		errs = append(errs, p.metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv looks for telemetry.json5 in the working directory and its
// parents. Without one it returns an error satisfying errors.Is(err, os.ErrNotExist).
func SetupFromEnv(ctx context.Context, serviceName string) (Providers, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if err != nil {
		return Providers{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Providers, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Providers{}, err
	}

	spans, err := spanExporter(ctx, config.Otlp.Traces)
	if err != nil {
		return Providers{}, err
	}
	providers := Providers{
		traces: trace.NewTracerProvider(trace.WithBatcher(spans), trace.WithResource(res)),
	}

	metrics, err := metricExporter(ctx, config.Otlp.Metrics)
	if err != nil {
		return providers, err
	}
	providers.metrics = metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(metrics, metric.WithInterval(15*time.Second))),
		metric.WithResource(res),
	)

	otel.SetTracerProvider(providers.traces)
	otel.SetMeterProvider(providers.metrics)
	return providers, nil
}

func spanExporter(ctx context.Context, c Collector) (trace.SpanExporter, error) {
	if c.GrpcEndpoint != "" {
		slog.Debug("exporting traces", "grpc", c.GrpcEndpoint)
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	slog.Debug("exporting traces", "http", c.HttpEndpoint)
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(c.HttpEndpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func metricExporter(ctx context.Context, c Collector) (metric.Exporter, error) {
	if c.GrpcEndpoint != "" {
		slog.Debug("exporting metrics", "grpc", c.GrpcEndpoint)
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	slog.Debug("exporting metrics", "http", c.HttpEndpoint)
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}
