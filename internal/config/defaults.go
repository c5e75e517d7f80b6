package config

import "time"

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".pharmaflow.yml"

// envPrefix marks environment overrides. A double underscore separates
// nesting levels: PHARMAFLOW_API__BASE_URL sets api.base_url.
const envPrefix = "PHARMAFLOW_"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           3000,
			RequestTimeout: 60 * time.Second,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8000",
		},
		LogLevel: "info",
		Chat: ChatConfig{
			HistoryLimit: 6,
		},
		Upload: UploadConfig{
			MaxSizeMB:   50,
			Concurrency: 3,
		},
	}
}
