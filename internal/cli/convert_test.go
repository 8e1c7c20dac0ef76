package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flightctl/openapi-parser/internal/config"
	"github.com/flightctl/openapi-parser/pkg/openapi"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

const petsSwagger = `
swagger: "2.0"
info:
  title: Pets
  version: "1.0"
host: https://api.example.com/v1
paths:
  /pets:
    get:
      produces: [application/json]
      responses:
        200:
          description: ok
          schema:
            type: array
            items:
              $ref: "#/definitions/Pet"
definitions:
  Pet:
    type: object
    properties:
      name:
        type: string
`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

// runConvert executes the convert command with an empty config file.
func runConvert(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: error\n")

	var out bytes.Buffer
	cmd := NewCmdConvert()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	data, err := yaml.YAMLToJSON([]byte(out))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestConvert_File(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, t.TempDir(), "pets.yaml", petsSwagger)
	out, err := runConvert(t, "", "-f", path)
	require.NoError(err)

	doc := decodeOutput(t, out)
	require.Regexp(`^3\.0\.`, doc["openapi"])
	require.Equal([]any{map[string]any{"url": "https://api.example.com/v1"}}, doc["servers"])
	require.Contains(doc["paths"], "/pets")
}

func TestConvert_StdinJSON(t *testing.T) {
	require := require.New(t)

	out, err := runConvert(t, `{"swagger":"2.0","info":{"title":"x","version":"1"},"paths":{}}`, "-f", "-", "-o", "json")
	require.NoError(err)

	var doc map[string]any
	require.NoError(json.Unmarshal([]byte(out), &doc))
	require.Equal(map[string]any{}, doc["paths"])
}

func TestConvert_MultipleFiles(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", petsSwagger)
	writeFile(t, dir, "b.yaml", strings.Replace(petsSwagger, "title: Pets", "title: More Pets", 1))

	out, err := runConvert(t, "", "-f", filepath.Join(dir, "*.yaml"))
	require.NoError(err)
	require.Equal(1, strings.Count(out, "\n---\n"))
	require.Contains(out, "title: More Pets")
}

func TestConvert_Errors(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", petsSwagger)
	bad := writeFile(t, dir, "bad.yaml", "not: [valid, json, or, yaml: {")

	out, err := runConvert(t, "", "-f", bad, "-f", good, "-f", filepath.Join(dir, "missing.yaml"))
	require.Error(err)
	require.Contains(err.Error(), "bad.yaml")
	require.Contains(err.Error(), "missing.yaml")
	code, ok := openapi.ErrorCodeOf(err)
	require.True(ok)
	require.Equal(openapi.ErrorCodeYAMLParse, code)
	require.Contains(out, "title: Pets")
}

func TestConvert_OutputFileAndMergePatch(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "pets.yaml", petsSwagger)
	patch := writeFile(t, dir, "patch.yaml", "info:\n  title: Patched\n  x-owner: team-a\nservers: null\n")
	target := filepath.Join(dir, "pets.json")

	out, err := runConvert(t, "", "-f", path, "-o", "json", "--output-file", target, "--merge-patch", patch)
	require.NoError(err)
	require.Empty(out)

	contents, err := os.ReadFile(target)
	require.NoError(err)
	var doc map[string]any
	require.NoError(json.Unmarshal(contents, &doc))
	require.Equal(map[string]any{"title": "Patched", "version": "1.0", "x-owner": "team-a"}, doc["info"])
	require.NotContains(doc, "servers")
}

func TestConvert_MetricsTextfile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := writeFile(t, dir, "pets.yaml", petsSwagger)
	textfile := filepath.Join(dir, "parser.prom")

	_, err := runConvert(t, "", "-f", path, "--metrics-textfile", textfile)
	require.NoError(err)

	contents, err := os.ReadFile(textfile)
	require.NoError(err)
	require.Contains(string(contents), `openapi_parser_documents_total{outcome="success",source_version="2.0"} 1`)
}

func TestConvert_Validate(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "no input", args: []string{}},
		{name: "positional arguments", args: []string{"-f", "a.yaml", "b.yaml"}},
		{name: "unknown output", args: []string{"-f", "a.yaml", "-o", "table"}},
		{name: "stdin twice", args: []string{"-f", "-", "-f", "-"}},
		{name: "output file with several inputs", args: []string{"-f", "a.yaml", "-f", "b.yaml", "--output-file", "out.yaml"}},
		{name: "output file with a pattern", args: []string{"-f", "*.yaml", "--output-file", "out.yaml"}},
		{name: "metrics textfile extension", args: []string{"-f", "a.yaml", "--metrics-textfile", "metrics.txt"}},
		{name: "log level", args: []string{"-f", "a.yaml", "--log-level", "loud"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runConvert(t, "", tc.args...)
			require.Error(t, err)
		})
	}
}

func TestConvert_MissingConfigFile(t *testing.T) {
	cmd := NewCmdConvert()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "-f", "-"})
	require.ErrorContains(t, cmd.Execute(), "does not exist")
}

func TestConvertOptionsFromConfig(t *testing.T) {
	require := require.New(t)

	cfg := config.NewDefault()
	require.Equal(openapi.DefaultConvertOptions(), convertOptionsFromConfig(cfg))

	cfg.Conversion.LaxURLs = lo.ToPtr(false)
	cfg.Conversion.ResolveInternalReferences = lo.ToPtr(true)
	opts := convertOptionsFromConfig(cfg)
	require.False(opts.LaxURLs)
	require.True(opts.ResolveInternalReferences)
	require.True(opts.LaxDefaults)
}

func TestFileURL(t *testing.T) {
	u := fileURL("/tmp/api docs/pets.yaml")
	require.Equal(t, "file:///tmp/api%20docs/pets.yaml", u)
}
