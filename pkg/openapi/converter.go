package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mohae/deepcopy"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=converter.go -destination=mock_converter.go -package=openapi

// ConvertOptionsVersion is bumped whenever the meaning of DefaultConvertOptions changes.
const ConvertOptionsVersion = 1

// ConvertOptions is the configuration handed to a Converter. It is the only place
// where the upgrade defaults are decided.
type ConvertOptions struct {
	// ResolveExternalReferences lets the converter fetch documents referenced by
	// external $refs. When false they are left for the OpenAPI 3 parser.
	ResolveExternalReferences bool `json:"resolveExternalReferences"`
	// ResolveInternalReferences makes dangling local $refs a conversion failure.
	// When false they are passed through for the OpenAPI 3 parser to report.
	ResolveInternalReferences bool `json:"resolveInternalReferences"`
	// LaxDefaults fills in missing containers and drops empty defaults that do not
	// match their declared type.
	LaxDefaults bool `json:"laxDefaults"`
	// LaxURLs repairs host and basePath values that are not conformant URL parts.
	LaxURLs bool `json:"laxURLs"`
	// Lint validates the converted document and fails on any finding.
	Lint bool `json:"lint"`
	// PreValidate checks the input against the Swagger 2.0 schema before converting.
	PreValidate bool `json:"preValidate"`
	// AllowStructuralAnchors accepts documents that reuse the same node in several
	// places, as YAML anchors and aliases do.
	AllowStructuralAnchors bool `json:"allowStructuralAnchors"`
	// PatchInPlace lets the converter repair the input value directly instead of
	// working on a copy.
	PatchInPlace bool `json:"patchInPlace"`
}

// DefaultConvertOptions returns the options used to upgrade Swagger 2.0 documents:
// best effort, no reference resolution, lax about defaults and URLs.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		ResolveExternalReferences: false,
		ResolveInternalReferences: false,
		LaxDefaults:               true,
		LaxURLs:                   true,
		Lint:                      false,
		PreValidate:               false,
		AllowStructuralAnchors:    true,
		PatchInPlace:              true,
	}
}

// Converter upgrades a decoded Swagger 2.0 document into a decoded OpenAPI 3 document.
type Converter interface {
	Convert(ctx context.Context, doc any, rootURL string, opts ConvertOptions) (map[string]any, error)
}

// ConversionError marks a failure that belongs to the upgrade itself, as opposed to
// cancellation or other unrelated errors.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func conversionErr(reason string, err error) error {
	return &ConversionError{Reason: reason, Err: err}
}

// IsConversionError reports whether err is an upgrade failure.
func IsConversionError(err error) bool {
	var cerr *ConversionError
	return errors.As(err, &cerr)
}

// KinConverter converts with kin-openapi's openapi2conv.
type KinConverter struct {
	log logrus.FieldLogger
}

var _ Converter = (*KinConverter)(nil)

func NewKinConverter(log logrus.FieldLogger) *KinConverter {
	return &KinConverter{log: log}
}

func (c *KinConverter) Convert(ctx context.Context, doc any, rootURL string, opts ConvertOptions) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkGraph(doc, opts.AllowStructuralAnchors); err != nil {
		return nil, conversionErr("inspecting document structure", err)
	}
	if !opts.PatchInPlace {
		doc = deepcopy.Copy(doc)
	}

	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, conversionErr(fmt.Sprintf("expected a mapping at the document root, got %T", doc), ErrNotAnObject)
	}

	if opts.PreValidate {
		if err := preValidate(raw); err != nil {
			return nil, conversionErr("document is not a valid Swagger 2.0 document", err)
		}
	}
	if opts.LaxDefaults {
		patchLaxDefaults(raw)
	}
	if opts.LaxURLs {
		patchLaxURLs(raw)
	}

	deferred, undefer := deferRefs(raw, !opts.ResolveExternalReferences, !opts.ResolveInternalReferences)
	// raw may be the caller's value, so it leaves with its references intact.
	defer undefer()
	if deferred > 0 {
		c.log.Debugf("deferring %d references to the OpenAPI 3 parser", deferred)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, conversionErr("encoding Swagger 2.0 document", err)
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, conversionErr("decoding Swagger 2.0 document", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = opts.ResolveExternalReferences
	var location *url.URL
	if opts.ResolveExternalReferences && rootURL != "" {
		if u, err := url.Parse(rootURL); err == nil {
			location = u
		} else {
			c.log.WithError(err).Debug("ignoring unparsable root URL")
		}
	}
	doc3, err := openapi2conv.ToV3WithLoader(&doc2, loader, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, conversionErr("converting Swagger 2.0 to OpenAPI 3.0", err)
	}

	if opts.LaxDefaults && doc3.Paths == nil {
		doc3.Paths = openapi3.NewPaths()
	}
	if opts.Lint {
		// Deferred references are still placeholders at this point, so linting is
		// only meaningful together with reference resolution.
		if err := doc3.Validate(ctx); err != nil {
			return nil, conversionErr("converted document failed validation", err)
		}
	}

	data, err = json.Marshal(doc3)
	if err != nil {
		return nil, conversionErr("encoding OpenAPI 3.0 document", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, conversionErr("decoding OpenAPI 3.0 document", err)
	}

	if deferred > 0 {
		restoreDeferredRefs(out)
	}
	if opts.LaxDefaults {
		patchLaxDefaultsV3(out)
	}
	if opts.LaxURLs {
		patchLaxServerURLs(out)
	}
	return out, nil
}
