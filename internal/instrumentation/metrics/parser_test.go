package metrics

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flightctl/openapi-parser/pkg/openapi"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSilentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParserCollector_ObserveParse(t *testing.T) {
	c := NewParserCollector(newSilentLogger())

	c.ObserveParse("2.0", 5*time.Millisecond, nil)
	c.ObserveParse("2.0", time.Millisecond, &openapi.ParseError{Code: openapi.ErrorCodeV2Conversion})
	c.ObserveParse("", time.Millisecond, &openapi.ParseError{Code: openapi.ErrorCodeYAMLParse})
	c.ObserveParse("3.0.3", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.documentsCounter.WithLabelValues("2.0", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.documentsCounter.WithLabelValues("2.0", outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.documentsCounter.WithLabelValues(unknownVersion, outcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsCounter.WithLabelValues(string(openapi.ErrorCodeV2Conversion))))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsCounter.WithLabelValues(string(openapi.ErrorCodeYAMLParse))))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsCounter.WithLabelValues(otherErrorCode)))
	assert.Greater(t, testutil.ToFloat64(c.lastSuccessGauge), 0.0)
}

func TestWriteTextfile(t *testing.T) {
	require := require.New(t)

	c := NewParserCollector(newSilentLogger())
	c.ObserveParse("2.0", time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "openapi.prom")
	require.NoError(WriteTextfile(context.Background(), path, c, nil))

	contents, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(contents), `openapi_parser_documents_total{outcome="success",source_version="2.0"} 1`)
	require.Contains(string(contents), "openapi_parser_parse_duration_seconds_bucket")
}

func TestWriteTextfile_DuplicateCollector(t *testing.T) {
	c := NewParserCollector(newSilentLogger())
	err := WriteTextfile(context.Background(), filepath.Join(t.TempDir(), "openapi.prom"), c, c)
	require.ErrorContains(t, err, "registering parser collector")
}
