package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/flightctl/openapi-parser/internal/instrumentation/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
)

// NamedCollector is a Prometheus collector that also exposes a consistent name
// used for tracing purposes.
type NamedCollector interface {
	prometheus.Collector
	MetricsName() string
}

// tracedCollector wraps a NamedCollector and adds span tracing during collection.
type tracedCollector struct {
	ctx         context.Context
	collector   NamedCollector
	metricNames []string
}

func (tc *tracedCollector) MetricsName() string {
	return tc.collector.MetricsName()
}

func (tc *tracedCollector) Describe(ch chan<- *prometheus.Desc) {
	tc.collector.Describe(ch)
}

func (tc *tracedCollector) Collect(ch chan<- prometheus.Metric) {
	_, span := tracing.StartSpan(ctxOrBackground(tc.ctx), "openapi-parser/metrics", tc.collector.MetricsName())
	defer span.End()

	if len(tc.metricNames) > 20 {
		span.SetAttributes(attribute.Int("collector.metric_count", len(tc.metricNames)))
	} else {
		span.SetAttributes(attribute.StringSlice("collector.metrics", tc.metricNames))
	}

	tc.collector.Collect(ch)
}

// WrapWithTrace wraps a NamedCollector with tracing and precomputes metric descriptor names.
func WrapWithTrace(ctx context.Context, c NamedCollector) NamedCollector {
	descs := make(chan *prometheus.Desc)
	var metricNames []string
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		localNames := make([]string, 0, 8)
		for d := range descs {
			localNames = append(localNames, d.String())
		}
		metricNames = localNames
	}()

	c.Describe(descs)
	close(descs)
	wg.Wait()

	return &tracedCollector{
		ctx:         ctx,
		collector:   c,
		metricNames: metricNames,
	}
}

// WriteTextfile gathers the collectors and writes them to path in the text
// exposition format read by the node exporter textfile collector.
func WriteTextfile(ctx context.Context, path string, collectors ...NamedCollector) error {
	registry := prometheus.NewRegistry()
	for _, c := range collectors {
		if c == nil {
			continue
		}
		if err := registry.Register(WrapWithTrace(ctx, c)); err != nil {
			return fmt.Errorf("registering %s collector: %w", c.MetricsName(), err)
		}
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// ctxOrBackground returns ctx or context.Background if ctx is nil.
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
