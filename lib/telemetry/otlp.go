package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	protocolGrpc = "grpc"
	protocolHttp = "http"
)

// signalConfig is where one signal (traces or metrics) is exported to.
// An empty endpoint disables the signal.
type signalConfig struct {
	Protocol string            `json:"protocol"`
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
	Insecure bool              `json:"insecure"`
}

type config struct {
	// deployment environment attached to every span and metric
	Environment string `json:"environment"`
	// fraction of root spans kept, 1 when unset
	SampleRatio *float64 `json:"sample_ratio"`
	// a run lasts minutes so metrics are flushed often
	MetricIntervalSeconds int          `json:"metric_interval_seconds"`
	Traces                signalConfig `json:"traces"`
	Metrics               signalConfig `json:"metrics"`
}

func (c config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return time.Second * 5
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

func (c config) sampler() trace.Sampler {
	if c.SampleRatio == nil {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(*c.SampleRatio))
}

func newResource(serviceName string, environment string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(environment))
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}

func logExporter(signal string, c signalConfig) {
	slog.Info(
		"otlp exporter initialized",
		"signal", signal,
		"protocol", c.Protocol,
		"endpoint", c.Endpoint,
		"insecure", c.Insecure,
		"headers", len(c.Headers) > 0,
	)
}

func newTraceProvider(ctx context.Context, r *resource.Resource, c config) (*trace.TracerProvider, error) {
	if c.Traces.Endpoint == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	var exporter trace.SpanExporter
	var err error
	switch c.Traces.Protocol {
	case protocolGrpc:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(c.Traces.Endpoint),
			otlptracegrpc.WithHeaders(c.Traces.Headers),
		}
		if c.Traces.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case protocolHttp, "":
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(c.Traces.Endpoint),
			otlptracehttp.WithHeaders(c.Traces.Headers),
		}
		if c.Traces.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("traces: unsupported otlp protocol %q", c.Traces.Protocol)
	}
	if err != nil {
		return nil, err
	}
	logExporter("traces", c.Traces)

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithSampler(c.sampler()),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, c config) (*metric.MeterProvider, error) {
	if c.Metrics.Endpoint == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	var exporter metric.Exporter
	var err error
	switch c.Metrics.Protocol {
	case protocolGrpc:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(c.Metrics.Endpoint),
			otlpmetricgrpc.WithHeaders(c.Metrics.Headers),
		}
		if c.Metrics.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case protocolHttp, "":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpointURL(c.Metrics.Endpoint),
			otlpmetrichttp.WithHeaders(c.Metrics.Headers),
		}
		if c.Metrics.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("metrics: unsupported otlp protocol %q", c.Metrics.Protocol)
	}
	if err != nil {
		return nil, err
	}
	logExporter("metrics", c.Metrics)

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(c.metricInterval()))),
		metric.WithResource(r),
	), nil
}
