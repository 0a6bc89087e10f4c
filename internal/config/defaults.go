package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultAPITimeout      = 30 * time.Second
	DefaultReconnectDelay  = 2 * time.Second
	DefaultPingInterval    = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultJobPollInterval = 500 * time.Millisecond
	DefaultBatchSize       = 500
	DefaultFlushInterval   = 1 * time.Second
	DefaultBufferSize      = 10000
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
)

func (c *ConsoleConfig) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = DefaultBaseURL
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = DefaultAPITimeout
	}

	if c.Stream.ReconnectDelay == 0 {
		c.Stream.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}

	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}

	if c.Jobs.PollInterval == 0 {
		c.Jobs.PollInterval = DefaultJobPollInterval
	}

	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Recorder.Database)
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
