package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"
)

const (
	appName = "openapi-parser"
)

type Config struct {
	Log        *logConfig        `json:"log,omitempty"`
	Conversion *conversionConfig `json:"conversion,omitempty"`
	Parser     *parserConfig     `json:"parser,omitempty"`
	Tracing    *tracingConfig    `json:"tracing,omitempty"`
	Metrics    *metricsConfig    `json:"metrics,omitempty"`
}

type logConfig struct {
	Level string `json:"level,omitempty"`
}

// conversionConfig overrides individual Swagger 2.0 conversion options. Unset
// fields keep the built-in defaults.
type conversionConfig struct {
	ResolveExternalReferences *bool `json:"resolveExternalReferences,omitempty"`
	ResolveInternalReferences *bool `json:"resolveInternalReferences,omitempty"`
	LaxDefaults               *bool `json:"laxDefaults,omitempty"`
	LaxURLs                   *bool `json:"laxURLs,omitempty"`
	Lint                      *bool `json:"lint,omitempty"`
	PreValidate               *bool `json:"preValidate,omitempty"`
	AllowStructuralAnchors    *bool `json:"allowStructuralAnchors,omitempty"`
	PatchInPlace              *bool `json:"patchInPlace,omitempty"`
}

type parserConfig struct {
	AllowExternalRefs         bool `json:"allowExternalRefs,omitempty"`
	DisableValidation         bool `json:"disableValidation,omitempty"`
	DisableExamplesValidation bool `json:"disableExamplesValidation,omitempty"`
}

type tracingConfig struct {
	Enabled  bool                    `json:"enabled,omitempty"`
	Endpoint string                  `json:"endpoint,omitempty"`
	Insecure bool                    `json:"insecure,omitempty"`
	Headers  map[string]SecureString `json:"headers,omitempty"`
}

type metricsConfig struct {
	// TextfilePath is where a node-exporter textfile is written after a run.
	TextfilePath string `json:"textfilePath,omitempty"`
}

func ConfigDir() string {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		baseDir = os.TempDir()
	}
	return filepath.Join(baseDir, appName)
}

func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func NewDefault() *Config {
	c := &Config{
		Log: &logConfig{
			Level: "info",
		},
		Conversion: &conversionConfig{},
		Parser:     &parserConfig{},
		Tracing: &tracingConfig{
			Enabled: false,
		},
		Metrics: &metricsConfig{},
	}
	return c
}

func NewFromFile(cfgFile string) (*Config, error) {
	cfg, err := Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads cfgFile, falling back to the defaults when it does not exist.
func LoadOrDefault(cfgFile string) (*Config, error) {
	if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
		return NewDefault(), nil
	}
	return NewFromFile(cfgFile)
}

// Load reads cfgFile on top of the defaults.
func Load(cfgFile string) (*Config, error) {
	contents, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c := NewDefault()
	if err := yaml.Unmarshal(contents, c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

func Validate(cfg *Config) error {
	if cfg.Log != nil && cfg.Log.Level != "" {
		if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if cfg.Metrics != nil && cfg.Metrics.TextfilePath != "" && filepath.Ext(cfg.Metrics.TextfilePath) != ".prom" {
		return fmt.Errorf("metrics.textfilePath must end in .prom")
	}
	return nil
}

// SetLogLevel overrides the configured log level.
func (cfg *Config) SetLogLevel(level string) {
	if cfg.Log == nil {
		cfg.Log = &logConfig{}
	}
	cfg.Log.Level = level
}

func (cfg *Config) String() string {
	contents, err := json.Marshal(cfg)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}
