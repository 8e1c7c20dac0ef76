package openapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flightctl/openapi-parser/internal/instrumentation/tracing"
	"github.com/flightctl/openapi-parser/pkg/log"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "openapi-parser"

// ParseInput is a document to parse. Value is raw JSON or YAML text (string or
// []byte) or an already decoded value. RootURL is where the document came from,
// empty when unknown.
type ParseInput struct {
	Value   any
	RootURL string
}

// Observer is notified once per Parse call.
type Observer interface {
	ObserveParse(sourceVersion string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveParse(string, time.Duration, error) {}

// Parser routes documents to the Swagger 2.0 upgrade or directly to the OpenAPI 3
// parser. It holds no mutable state and is safe for concurrent use.
type Parser struct {
	log         logrus.FieldLogger
	converter   Converter
	v3          V3Parser
	convertOpts ConvertOptions
	observer    Observer
}

type Option func(*Parser)

// WithConverter replaces the Swagger 2.0 converter.
func WithConverter(c Converter) Option {
	return func(p *Parser) {
		p.converter = c
	}
}

// WithV3Parser replaces the OpenAPI 3 parser.
func WithV3Parser(v3 V3Parser) Option {
	return func(p *Parser) {
		p.v3 = v3
	}
}

// WithConvertOptions replaces DefaultConvertOptions.
func WithConvertOptions(opts ConvertOptions) Option {
	return func(p *Parser) {
		p.convertOpts = opts
	}
}

func WithObserver(o Observer) Option {
	return func(p *Parser) {
		p.observer = o
	}
}

func NewParser(log logrus.FieldLogger, opts ...Option) *Parser {
	p := &Parser{
		log:         log,
		convertOpts: DefaultConvertOptions(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.converter == nil {
		p.converter = NewKinConverter(log)
	}
	if p.v3 == nil {
		p.v3 = NewLoaderV3Parser(log, V3ParserOptions{})
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	return p
}

// Parse decodes input when needed, reads the version it declares and hands it to
// the matching pipeline.
func (p *Parser) Parse(ctx context.Context, input ParseInput) (*Document, error) {
	start := time.Now()
	sourceVersion, doc, err := p.route(ctx, input)
	p.observer.ObserveParse(sourceVersion, time.Since(start), err)
	return doc, err
}

func (p *Parser) route(ctx context.Context, input ParseInput) (string, *Document, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Parse", trace.WithAttributes(attribute.String("root_url", input.RootURL)))
	defer span.End()
	logger := log.WithRootURL(input.RootURL, p.log)

	value := input.Value
	if raw, ok := rawText(value); ok {
		decoded, grammar, err := decodeRaw(raw, input.RootURL)
		if err != nil {
			span.RecordError(err)
			return "", nil, err
		}
		logger.Debugf("decoded document as %s", grammar)
		value = decoded
	}

	declared, version, err := detectVersion(value)
	if err != nil {
		err = newParseError(ErrorCodeUnsupportedVersion, input.RootURL, "Unable to determine the document version", err)
		span.RecordError(err)
		return "", nil, err
	}
	span.SetAttributes(attribute.String("source_version", declared))

	next := input
	next.Value = value
	var doc *Document
	switch version.major {
	case 2:
		doc, err = p.ConvertV2ToV3(ctx, next)
	case 3:
		if version.minor > 0 {
			logger.Warnf("OpenAPI %s is read as 3.0, newer keywords may be rejected", declared)
		}
		doc, err = p.v3.ParseV3(ctx, next)
	default:
		err := newParseError(ErrorCodeUnsupportedVersion, input.RootURL, fmt.Sprintf("Unsupported document version %q", declared), nil)
		span.RecordError(err)
		return declared, nil, err
	}
	if doc != nil {
		doc.SourceVersion = declared
	}
	return declared, doc, err
}

// ParseV3 hands input straight to the OpenAPI 3 parser.
func (p *Parser) ParseV3(ctx context.Context, input ParseInput) (*Document, error) {
	return p.v3.ParseV3(ctx, input)
}

func rawText(value any) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return nil, false
	}
}

type specVersion struct {
	major, minor int
}

// detectVersion reads the swagger or openapi marker of a decoded document.
func detectVersion(value any) (string, specVersion, error) {
	doc, ok := value.(map[string]any)
	if !ok {
		return "", specVersion{}, ErrNotAnObject
	}
	for _, key := range []string{"swagger", "openapi"} {
		raw, ok := doc[key]
		if !ok {
			continue
		}
		declared := versionString(raw)
		version, err := parseSpecVersion(declared)
		if err != nil {
			return declared, specVersion{}, fmt.Errorf("%s: %w", key, err)
		}
		return declared, version, nil
	}
	return "", specVersion{}, fmt.Errorf("neither %q nor %q is set", "swagger", "openapi")
}

// versionString accepts unquoted YAML versions, which decode as numbers.
func versionString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case int:
		return strconv.Itoa(v) + ".0"
	default:
		return fmt.Sprint(v)
	}
}

// parseSpecVersion handles version strings like "2.0", "3.0.3", "3.1.0-rc.0".
func parseSpecVersion(versionStr string) (specVersion, error) {
	versionStr = strings.TrimSpace(versionStr)
	versionStr = strings.TrimPrefix(versionStr, "v")

	parts := strings.Split(versionStr, ".")
	const minParts = 2
	if len(parts) < minParts {
		return specVersion{}, fmt.Errorf("invalid version format: %q", versionStr)
	}

	majorStr := strings.Split(parts[0], "-")[0]
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return specVersion{}, fmt.Errorf("invalid major version: %q", majorStr)
	}

	minorStr := strings.Split(parts[1], "-")[0]
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return specVersion{}, fmt.Errorf("invalid minor version: %q", minorStr)
	}
	return specVersion{major: major, minor: minor}, nil
}

var defaultParser = NewParser(logrus.StandardLogger())

// Parse parses input with a Parser using the default collaborators.
func Parse(ctx context.Context, input ParseInput) (*Document, error) {
	return defaultParser.Parse(ctx, input)
}

// ConvertV2ToV3 upgrades a Swagger 2.0 input with a Parser using the default collaborators.
func ConvertV2ToV3(ctx context.Context, input ParseInput) (*Document, error) {
	return defaultParser.ConvertV2ToV3(ctx, input)
}
