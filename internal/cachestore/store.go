// Package cachestore provides the Redis client behind the "cache"
// service. Connect verifies the server with a ping before returning, and
// Ping/Close satisfy the connection manager's client contract.
package cachestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds cache connection settings.
type Config struct {
	// URL is the redis:// connection URL.
	URL string

	// MaxPoolSize caps the connection pool. Zero keeps the client default.
	MaxPoolSize int

	// ConnectTimeout bounds the dial of each connection.
	ConnectTimeout time.Duration

	// SocketTimeout bounds individual reads and writes.
	SocketTimeout time.Duration
}

// Store is a cache client.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// Connect creates the cache client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	logger.Debug("cache client created",
		"addr", opts.Addr,
		"pool_size", opts.PoolSize)

	return &Store{client: client, logger: logger}, nil
}

// options parses the URL and applies pool sizing and timeouts. Settings
// from the config win over settings embedded in the URL.
func options(cfg Config) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}

	if cfg.MaxPoolSize > 0 {
		opts.PoolSize = cfg.MaxPoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout
	}
	if cfg.SocketTimeout > 0 {
		opts.ReadTimeout = cfg.SocketTimeout
		opts.WriteTimeout = cfg.SocketTimeout
	}

	return opts, nil
}

// Ping verifies the cache is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping cache: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}

// Client exposes the underlying client for cache operations.
func (s *Store) Client() *redis.Client {
	return s.client
}
