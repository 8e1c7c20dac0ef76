package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flightctl/openapi-parser/internal/config"
	"github.com/flightctl/openapi-parser/pkg/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type GlobalOptions struct {
	ConfigFilePath string
	LogLevel       string

	configChanged bool
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: config.ConfigFile(),
		LogLevel:       "",
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFilePath, "config", o.ConfigFilePath, "Read settings from this file. A missing default file is ignored.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Override the log level from the config file.")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	if f := cmd.Flags().Lookup("config"); f != nil {
		o.configChanged = f.Changed
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.LogLevel != "" {
		if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
			return fmt.Errorf("log-level: %w", err)
		}
	}
	if !o.configChanged {
		return nil
	}
	switch filepath.Ext(o.ConfigFilePath) {
	case ".yaml", ".yml", ".json":
	default:
		return fmt.Errorf("config should be a .yaml, .yml or .json file")
	}
	if _, err := os.Stat(o.ConfigFilePath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config file %q does not exist", o.ConfigFilePath)
	}
	return nil
}

// LoadConfig reads the config file and applies the flag overrides.
func (o *GlobalOptions) LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.SetLogLevel(o.LogLevel)
	}
	return cfg, nil
}

// NewLogger returns a stderr logger at the configured level.
func (o *GlobalOptions) NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := log.InitLogs()
	if cfg.Log != nil {
		if err := log.SetLevel(logger, cfg.Log.Level); err != nil {
			return nil, fmt.Errorf("setting log level: %w", err)
		}
	}
	return logger, nil
}
