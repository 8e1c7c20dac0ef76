package openapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeRaw_JSON(t *testing.T) {
	require := require.New(t)

	raw := `{"swagger":"2.0","info":{"title":"x","version":"1"},"paths":{"/a":{"get":{"responses":{"200":{"description":"ok"}}}}},"x-n":[1,2.5,null,true]}`
	value, grammar, err := decodeRaw([]byte(raw), "")
	require.NoError(err)
	require.Equal("json", grammar)

	var expected any
	require.NoError(json.Unmarshal([]byte(raw), &expected))
	if diff := cmp.Diff(expected, value); diff != "" {
		t.Errorf("decoded value mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRaw_YAML(t *testing.T) {
	require := require.New(t)

	raw := `
swagger: "2.0"
info:
  title: Pets
  version: "1"
paths:
  /pets:
    get:
      tags: [pets, animals]
      responses:
        default:
          description: ok
`
	value, grammar, err := decodeRaw([]byte(raw), "file:///pets.yaml")
	require.NoError(err)
	require.Equal("yaml", grammar)

	var expected any
	require.NoError(yaml.Unmarshal([]byte(raw), &expected))
	if diff := cmp.Diff(expected, value); diff != "" {
		t.Errorf("decoded value mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRaw_YAMLNonStringKeys(t *testing.T) {
	require := require.New(t)

	raw := `
responses:
  200:
    description: ok
  404:
    description: missing
`
	value, _, err := decodeRaw([]byte(raw), "")
	require.NoError(err)

	responses := value.(map[string]any)["responses"]
	require.IsType(map[string]any{}, responses)
	require.Contains(responses, "200")
	require.Contains(responses, "404")
}

func TestDecodeRaw_Invalid(t *testing.T) {
	require := require.New(t)

	_, _, err := decodeRaw([]byte("not: [valid, json, or, yaml: {"), "file:///a.yml")
	require.Error(err)

	var perr *ParseError
	require.ErrorAs(err, &perr)
	require.Equal(ErrorCodeYAMLParse, perr.Code)
	require.Equal("file:///a.yml", perr.RootURL)
	require.Contains(perr.Message, "Failed to parse YAML: yaml: ")
}

func TestDecodeRaw_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n  \n"} {
		_, _, err := decodeRaw([]byte(raw), "")
		code, ok := ErrorCodeOf(err)
		require.True(t, ok, "input %q", raw)
		require.Equal(t, ErrorCodeYAMLParse, code, "input %q", raw)
		require.ErrorContains(t, err, ErrEmptyDocument.Error())
	}
}

func TestDecodeRaw_UnrelatedErrorIsNotReclassified(t *testing.T) {
	boom := errors.New("boom")
	saved := grammars
	t.Cleanup(func() { grammars = saved })
	grammars = []grammar{
		{name: "json", decode: decodeJSON},
		{name: "broken", decode: func([]byte) (any, error) { return nil, boom }},
	}

	_, _, err := decodeRaw([]byte("{"), "file:///a.yml")
	require.Same(t, boom, err)
}

func TestIsYAMLError(t *testing.T) {
	require := require.New(t)

	var v map[string]int
	err := yaml.Unmarshal([]byte("a: b"), &v)
	require.True(isYAMLError(err))

	err = yaml.Unmarshal([]byte("a: [b"), &v)
	require.True(isYAMLError(err))

	require.True(isYAMLError(errEmptyYAML))
	require.False(isYAMLError(errors.New("unexpected end of JSON input")))
	require.False(isYAMLError(nil))
}
