package openapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// grammar is one structured-text encoding the decoder knows how to read.
type grammar struct {
	name   string
	decode func(data []byte) (any, error)
}

// grammars are tried in order; the first one that decodes wins.
// JSON goes first so JSON-shaped input never takes the YAML path.
var grammars = []grammar{
	{name: "json", decode: decodeJSON},
	{name: "yaml", decode: decodeYAML},
}

var errEmptyYAML = fmt.Errorf("yaml: %w", ErrEmptyDocument)

// decodeRaw turns raw text into a generic document value. Only the failure of the
// last grammar is reported, wrapped as a yaml-parse ParseError when it is a YAML
// failure. Anything else is returned unchanged.
func decodeRaw(raw []byte, rootURL string) (any, string, error) {
	var lastErr error
	for _, g := range grammars {
		value, err := g.decode(raw)
		if err == nil {
			return value, g.name, nil
		}
		lastErr = err
	}
	if isYAMLError(lastErr) {
		return nil, "", newParseError(ErrorCodeYAMLParse, rootURL, "Failed to parse YAML: "+lastErr.Error(), nil)
	}
	return nil, "", lastErr
}

func decodeJSON(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func decodeYAML(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	// A zero node means the stream held no document at all (blank or comments only).
	if node.Kind == 0 {
		return nil, errEmptyYAML
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, err
	}
	return normalizeYAML(value), nil
}

// isYAMLError reports whether err comes from the YAML grammar rather than from
// some unrelated failure.
func isYAMLError(err error) bool {
	if err == nil {
		return false
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return true
	}
	return strings.HasPrefix(err.Error(), "yaml: ")
}

// normalizeYAML converts mappings with non-string keys (for example the integer
// status codes of a responses object) to map[string]any so the value has the same
// shape a JSON decode would produce.
func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return v
	}
}
