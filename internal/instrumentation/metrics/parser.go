package metrics

import (
	"time"

	"github.com/flightctl/openapi-parser/pkg/openapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"

	unknownVersion = "unknown"
	otherErrorCode = "other"
)

// ParserCollector implements NamedCollector and openapi.Observer and counts the
// documents handled by a parser.
type ParserCollector struct {
	documentsCounter *prometheus.CounterVec
	errorsCounter    *prometheus.CounterVec
	durationHist     *prometheus.HistogramVec
	lastSuccessGauge prometheus.Gauge

	log logrus.FieldLogger
}

var (
	_ NamedCollector   = (*ParserCollector)(nil)
	_ openapi.Observer = (*ParserCollector)(nil)
)

// NewParserCollector creates a ParserCollector.
func NewParserCollector(log logrus.FieldLogger) *ParserCollector {
	collector := &ParserCollector{
		documentsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openapi_parser_documents_total",
			Help: "Total number of documents parsed by source version and outcome",
		}, []string{"source_version", "outcome"}),
		errorsCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openapi_parser_errors_total",
			Help: "Total number of failed documents by error code",
		}, []string{"code"}),
		durationHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "openapi_parser_parse_duration_seconds",
			Help:    "Histogram of the time spent parsing a document",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		}, []string{"source_version"}),
		lastSuccessGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "openapi_parser_last_success_timestamp_seconds",
			Help: "Unix timestamp (seconds) of the last successfully parsed document",
		}),
		log: log,
	}

	collector.log.Debug("Parser metrics collector initialized")
	return collector
}

func (c *ParserCollector) MetricsName() string {
	return "parser"
}

func (c *ParserCollector) Describe(ch chan<- *prometheus.Desc) {
	c.documentsCounter.Describe(ch)
	c.errorsCounter.Describe(ch)
	c.durationHist.Describe(ch)
	c.lastSuccessGauge.Describe(ch)
}

func (c *ParserCollector) Collect(ch chan<- prometheus.Metric) {
	c.documentsCounter.Collect(ch)
	c.errorsCounter.Collect(ch)
	c.durationHist.Collect(ch)
	c.lastSuccessGauge.Collect(ch)
}

// ObserveParse records the outcome of one parse.
func (c *ParserCollector) ObserveParse(sourceVersion string, duration time.Duration, err error) {
	if sourceVersion == "" {
		sourceVersion = unknownVersion
	}
	c.durationHist.WithLabelValues(sourceVersion).Observe(duration.Seconds())

	if err == nil {
		c.documentsCounter.WithLabelValues(sourceVersion, outcomeSuccess).Inc()
		c.lastSuccessGauge.SetToCurrentTime()
		return
	}

	c.documentsCounter.WithLabelValues(sourceVersion, outcomeError).Inc()
	code := otherErrorCode
	if errCode, ok := openapi.ErrorCodeOf(err); ok {
		code = string(errCode)
	}
	c.errorsCounter.WithLabelValues(code).Inc()
}
