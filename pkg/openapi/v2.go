package openapi

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/flightctl/openapi-parser/internal/instrumentation/tracing"
	"github.com/flightctl/openapi-parser/pkg/log"
)

// ConvertV2ToV3 upgrades a Swagger 2.0 document to OpenAPI 3.0 and parses the
// result with the OpenAPI 3 parser.
//
// Raw text is decoded first. Converter failures are reported as v2-conversion
// ParseErrors; errors from the OpenAPI 3 parser and anything that is not a
// conversion failure are returned as they are.
func (p *Parser) ConvertV2ToV3(ctx context.Context, input ParseInput) (*Document, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ConvertV2ToV3")
	defer span.End()
	logger := log.WithRootURL(input.RootURL, p.log)

	value := input.Value
	if raw, ok := rawText(value); ok {
		decoded, grammar, err := decodeRaw(raw, input.RootURL)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		logger.Debugf("decoded %s of %s", humanize.Bytes(uint64(len(raw))), grammar)
		value = decoded
	}

	converted, err := p.converter.Convert(ctx, value, input.RootURL, p.convertOpts)
	if err != nil {
		span.RecordError(err)
		if IsConversionError(err) {
			return nil, newParseError(ErrorCodeV2Conversion, input.RootURL, "Failed to convert Swagger 2.0 to OpenAPI 3.0", err)
		}
		return nil, err
	}
	logger.Debug("converted Swagger 2.0 document to OpenAPI 3.0")

	next := input
	next.Value = converted
	return p.v3.ParseV3(ctx, next)
}
