package config

// Default values for optional configuration fields.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultMaxPoolSize       = 10
	DefaultConnectTimeoutMs  = 5000
	DefaultSocketTimeoutMs   = 10000
	DefaultPingIntervalMs    = 15000
	DefaultCloseTimeoutMs    = 5000
	DefaultShutdownTimeoutMs = 20000
	DefaultHTTPAddr          = ":9090"
)

func (c *Config) applyDefaults() {
	// Instance defaults
	if c.Instance.LogLevel == "" {
		c.Instance.LogLevel = DefaultLogLevel
	}
	if c.Instance.LogFormat == "" {
		c.Instance.LogFormat = DefaultLogFormat
	}

	// Service defaults
	applyServiceDefaults(&c.Services.Cache)
	applyServiceDefaults(&c.Services.Documents)
	applyServiceDefaults(&c.Services.Events)

	// Lifecycle defaults
	if c.Lifecycle.PingIntervalMs == 0 {
		c.Lifecycle.PingIntervalMs = DefaultPingIntervalMs
	}
	if c.Lifecycle.CloseTimeoutMs == 0 {
		c.Lifecycle.CloseTimeoutMs = DefaultCloseTimeoutMs
	}
	if c.Lifecycle.ShutdownTimeoutMs == 0 {
		c.Lifecycle.ShutdownTimeoutMs = DefaultShutdownTimeoutMs
	}

	// HTTP defaults
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

func applyServiceDefaults(s *ServiceConfig) {
	if s.MaxPoolSize == 0 {
		s.MaxPoolSize = DefaultMaxPoolSize
	}
	if s.ConnectTimeoutMs == 0 {
		s.ConnectTimeoutMs = DefaultConnectTimeoutMs
	}
	if s.SocketTimeoutMs == 0 {
		s.SocketTimeoutMs = DefaultSocketTimeoutMs
	}
}
