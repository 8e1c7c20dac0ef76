package tracing

import (
	"context"

	"github.com/flightctl/openapi-parser/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stoewer/go-strcase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultServiceName = "openapi-parser"

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

// InitTracer installs the global tracer provider described by cfg.Tracing and
// returns its shutdown function. Parsing spans go nowhere unless tracing is
// enabled and the OTLP exporter can be built.
func InitTracer(log logrus.FieldLogger, cfg *config.Config, serviceName string) ShutdownFunc {
	if cfg.Tracing == nil || !cfg.Tracing.Enabled {
		log.Debug("tracing disabled")
		return disable()
	}

	exp, err := otlptracehttp.New(context.Background(), exporterOptions(cfg)...)
	if err != nil {
		log.WithError(err).Warn("cannot create OTLP exporter, tracing disabled")
		return disable()
	}

	if serviceName == "" {
		serviceName = defaultServiceName
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.WithField("endpoint", cfg.Tracing.Endpoint).Debug("tracing enabled")
	return tp.Shutdown
}

func exporterOptions(cfg *config.Config) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if cfg.Tracing.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint))
	}
	if cfg.Tracing.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Tracing.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Tracing.Headers))
		for name, value := range cfg.Tracing.Headers {
			headers[name] = value.Value()
		}
		opts = append(opts, otlptracehttp.WithHeaders(headers))
	}
	return opts
}

func disable() ShutdownFunc {
	otel.SetTracerProvider(noop.NewTracerProvider())
	return func(context.Context) error { return nil }
}

// StartSpan starts a span on the global provider, kebab-casing spanName.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, strcase.KebabCase(spanName), opts...)
}
