package openapi

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/sirupsen/logrus"
)

// Document is a parsed OpenAPI 3 document together with the location its
// references were resolved against.
type Document struct {
	RootURL string
	// Location is RootURL as understood by the loader, nil when RootURL is empty
	// or not a URL.
	Location *url.URL
	Spec     *openapi3.T
	// SourceVersion is the version the input declared, such as "2.0" or "3.0.3".
	// It is only set by Parser.Parse.
	SourceVersion string
}

//go:generate mockgen -source=v3.go -destination=mock_v3.go -package=openapi

// V3Parser turns a decoded or raw OpenAPI 3 document into a Document. It owns
// reference resolution and validation.
type V3Parser interface {
	ParseV3(ctx context.Context, input ParseInput) (*Document, error)
}

type V3ParserOptions struct {
	// AllowExternalRefs lets the loader read documents referenced relative to RootURL.
	AllowExternalRefs bool `json:"allowExternalRefs,omitempty"`
	// DisableValidation skips openapi3.T.Validate after loading.
	DisableValidation bool `json:"disableValidation,omitempty"`
	// DisableExamplesValidation skips validation of example values against their schema.
	DisableExamplesValidation bool `json:"disableExamplesValidation,omitempty"`
}

// LoaderV3Parser parses with kin-openapi's openapi3.Loader.
type LoaderV3Parser struct {
	log  logrus.FieldLogger
	opts V3ParserOptions
}

var _ V3Parser = (*LoaderV3Parser)(nil)

func NewLoaderV3Parser(log logrus.FieldLogger, opts V3ParserOptions) *LoaderV3Parser {
	return &LoaderV3Parser{log: log, opts: opts}
}

func (p *LoaderV3Parser) ParseV3(ctx context.Context, input ParseInput) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := encodeDocument(input.Value)
	if err != nil {
		return nil, newParseError(ErrorCodeInvalid, input.RootURL, "Failed to encode OpenAPI 3 document", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = p.opts.AllowExternalRefs

	location := parseLocation(input.RootURL)
	var spec *openapi3.T
	if location != nil {
		spec, err = loader.LoadFromDataWithPath(data, location)
	} else {
		spec, err = loader.LoadFromData(data)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newParseError(ErrorCodeInvalid, input.RootURL, "Failed to parse OpenAPI 3 document", err)
	}

	if !p.opts.DisableValidation {
		var opts []openapi3.ValidationOption
		if p.opts.DisableExamplesValidation {
			opts = append(opts, openapi3.DisableExamplesValidation())
		}
		if err := spec.Validate(ctx, opts...); err != nil {
			return nil, newParseError(ErrorCodeInvalid, input.RootURL, "Invalid OpenAPI 3 document", err)
		}
	}

	p.log.Debugf("loaded OpenAPI %s document", spec.OpenAPI)
	return &Document{
		RootURL:  input.RootURL,
		Location: location,
		Spec:     spec,
	}, nil
}

func encodeDocument(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func parseLocation(rootURL string) *url.URL {
	if rootURL == "" {
		return nil
	}
	location, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}
	return location
}
