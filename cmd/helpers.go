package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pharmaflow/pharmaflow/internal/config"
	"github.com/pharmaflow/pharmaflow/internal/logging"
	"github.com/pharmaflow/pharmaflow/internal/pharmaapi"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pharmaflow init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the application logger. Logs go to stderr so stdout
// stays free for command output and the MCP protocol.
func newLogger(cfg *config.Config, dev bool) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LogLevel, verbose, dev)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// setup loads the config and creates the logger and backend client shared
// by the client-side commands.
func setup() (*config.Config, *zap.Logger, *pharmaapi.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, pharmaapi.New(cfg.API.BaseURL, cfg.API.Timeout, logger), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
