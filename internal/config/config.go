package config

import "time"

// ConsoleConfig is the root configuration for a console instance.
type ConsoleConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Stream   StreamConfig   `yaml:"stream"`
	Poll     PollConfig     `yaml:"poll"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Recorder RecorderConfig `yaml:"recorder"`
}

// ServerConfig holds backend REST settings.
type ServerConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"` // Bearer token (empty = no auth)
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// StreamConfig holds push channel settings.
type StreamConfig struct {
	URL            string        `yaml:"url"` // Empty = derived from server.base_url
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// PollConfig holds dashboard pull settings.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// JobsConfig holds backtest tracking settings.
type JobsConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RecorderConfig holds session recording settings. Recording is off
// unless enabled and a database is configured.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
