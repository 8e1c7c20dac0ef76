package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestConfig_String_ObfuscatesSensitiveData(t *testing.T) {
	cfg := NewDefault()
	cfg.Tracing = &tracingConfig{
		Enabled:  true,
		Endpoint: "collector.example.com:4318",
		Headers:  map[string]SecureString{"Authorization": "Bearer secrettoken"},
	}

	result := cfg.String()

	if strings.Contains(result, "secrettoken") {
		t.Error("Tracing header should be redacted")
	}
	if !strings.Contains(result, "[REDACTED]") {
		t.Error("String() should contain [REDACTED] markers")
	}
	if !strings.Contains(result, "collector.example.com") {
		t.Error("Non-sensitive endpoint should be preserved")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	require := require.New(t)

	path := writeConfig(t, `
log:
  level: debug
conversion:
  laxURLs: false
  preValidate: true
parser:
  allowExternalRefs: true
tracing:
  headers:
    Authorization: Bearer abc
`)
	cfg, err := NewFromFile(path)
	require.NoError(err)

	require.Equal("debug", cfg.Log.Level)
	require.NotNil(cfg.Conversion.LaxURLs)
	require.False(*cfg.Conversion.LaxURLs)
	require.NotNil(cfg.Conversion.PreValidate)
	require.True(*cfg.Conversion.PreValidate)
	require.Nil(cfg.Conversion.LaxDefaults)
	require.True(cfg.Parser.AllowExternalRefs)
	require.Equal("Bearer abc", cfg.Tracing.Headers["Authorization"].Value())
	require.NotNil(cfg.Metrics)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(err)
	require.Equal(NewDefault(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "log.level",
		},
		{
			name:    "textfile without prom extension",
			mutate:  func(c *Config) { c.Metrics.TextfilePath = "/tmp/metrics.txt" },
			wantErr: "metrics.textfilePath",
		},
		{
			name:   "textfile with prom extension",
			mutate: func(c *Config) { c.Metrics.TextfilePath = "/var/lib/node_exporter/openapi.prom" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "log: [")
	_, err := Load(path)
	require.ErrorContains(t, err, "decoding config")
}

func TestSetLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.SetLogLevel("debug")
	require.Equal(t, "debug", cfg.Log.Level)
}
