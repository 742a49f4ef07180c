package config

import "time"

// Config is the root configuration for a paperdock instance.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Services  ServicesConfig  `yaml:"services"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// InstanceConfig identifies this instance.
type InstanceConfig struct {
	ID        string `yaml:"id"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ServicesConfig holds the backing service connections. Cache and
// documents are required; events is optional and disabled when its URL
// is empty.
type ServicesConfig struct {
	Cache     ServiceConfig `yaml:"cache"`
	Documents ServiceConfig `yaml:"documents"`
	Events    ServiceConfig `yaml:"events"`
}

// ServiceConfig holds a single backing service connection.
type ServiceConfig struct {
	URL              string `yaml:"url"`
	MaxPoolSize      int    `yaml:"max_pool_size"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	SocketTimeoutMs  int    `yaml:"socket_timeout_ms"`
}

// ConnectTimeout returns the connect timeout as a duration.
func (s ServiceConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutMs) * time.Millisecond
}

// SocketTimeout returns the socket timeout as a duration.
func (s ServiceConfig) SocketTimeout() time.Duration {
	return time.Duration(s.SocketTimeoutMs) * time.Millisecond
}

// LifecycleConfig holds connection supervision and shutdown settings.
type LifecycleConfig struct {
	PingIntervalMs    int `yaml:"ping_interval_ms"`
	CloseTimeoutMs    int `yaml:"close_timeout_ms"`
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms"`
}

// PingInterval returns the health probe interval as a duration.
func (l LifecycleConfig) PingInterval() time.Duration {
	return time.Duration(l.PingIntervalMs) * time.Millisecond
}

// CloseTimeout returns the per-resource close budget as a duration.
func (l LifecycleConfig) CloseTimeout() time.Duration {
	return time.Duration(l.CloseTimeoutMs) * time.Millisecond
}

// ShutdownTimeout returns the whole-process shutdown budget as a duration.
func (l LifecycleConfig) ShutdownTimeout() time.Duration {
	return time.Duration(l.ShutdownTimeoutMs) * time.Millisecond
}

// HTTPConfig holds the health and metrics listener settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}
