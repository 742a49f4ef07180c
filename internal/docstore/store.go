package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds document store connection settings.
type Config struct {
	// URL is the postgres:// connection URL.
	URL string

	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int

	// MinConns keeps idle connections warm. Zero keeps the pgxpool default.
	MinConns int

	// ConnectTimeout bounds the initial dial of each connection.
	ConnectTimeout time.Duration

	// SocketTimeout bounds individual statements via statement_timeout.
	SocketTimeout time.Duration
}

// Store is a document store connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates the connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	logger.Debug("document store pool created",
		"url", RedactURL(cfg.URL),
		"max_conns", poolCfg.MaxConns)

	return &Store{pool: pool, logger: logger}, nil
}

// poolConfig parses the URL and applies pool sizing and timeouts.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse document store url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.SocketTimeout > 0 {
		ms := strconv.FormatInt(cfg.SocketTimeout.Milliseconds(), 10)
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = ms
	}

	return poolCfg, nil
}

// Ping verifies the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping document store: %w", err)
	}
	return nil
}

// Close releases the pool. pgxpool close is synchronous and does not
// take a context; the argument exists to satisfy the client contract.
func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// Pool exposes the underlying pool for query code.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
