package config

import "time"

// Config is the top-level pharmaflow configuration, corresponding to .pharmaflow.yml.
type Config struct {
	Server   ServerConfig `yaml:"server" koanf:"server"`
	API      APIConfig    `yaml:"api" koanf:"api"`
	DataDir  string       `yaml:"data_dir" koanf:"data_dir"`
	LogLevel string       `yaml:"log_level" koanf:"log_level"`
	Chat     ChatConfig   `yaml:"chat" koanf:"chat"`
	Upload   UploadConfig `yaml:"upload" koanf:"upload"`
}

// ServerConfig holds web front end settings.
type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
}

// APIConfig locates the backend API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" koanf:"base_url"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"` // 0 means no client timeout
}

// ChatConfig holds chat settings.
type ChatConfig struct {
	HistoryLimit int `yaml:"history_limit" koanf:"history_limit"`
}

// UploadConfig holds document upload settings.
type UploadConfig struct {
	MaxSizeMB   int `yaml:"max_size_mb" koanf:"max_size_mb"`
	Concurrency int `yaml:"concurrency" koanf:"concurrency"`
}

// MaxBytes returns the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}
