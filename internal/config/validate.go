package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Services.Cache.validate("services.cache"); err != nil {
		return err
	}
	if err := c.Services.Documents.validate("services.documents"); err != nil {
		return err
	}

	// The events feed is optional; an empty URL disables it.
	if c.Services.Events.URL != "" {
		if err := c.Services.Events.validate("services.events"); err != nil {
			return err
		}
	}

	if c.Lifecycle.PingIntervalMs < 1 {
		return errors.New("lifecycle.ping_interval_ms must be >= 1")
	}
	if c.Lifecycle.CloseTimeoutMs < 1 {
		return errors.New("lifecycle.close_timeout_ms must be >= 1")
	}
	if c.Lifecycle.ShutdownTimeoutMs < 1 {
		return errors.New("lifecycle.shutdown_timeout_ms must be >= 1")
	}

	return nil
}

func (s *ServiceConfig) validate(prefix string) error {
	if s.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	if s.MaxPoolSize < 1 {
		return fmt.Errorf("%s.max_pool_size must be >= 1", prefix)
	}
	if s.ConnectTimeoutMs < 1 {
		return fmt.Errorf("%s.connect_timeout_ms must be >= 1", prefix)
	}
	if s.SocketTimeoutMs < 1 {
		return fmt.Errorf("%s.socket_timeout_ms must be >= 1", prefix)
	}
	return nil
}
