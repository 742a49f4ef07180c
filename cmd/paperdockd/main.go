// paperdockd runs the paperdock document service: it supervises the
// cache, document store, and event feed connections, and serves health
// and metrics endpoints.
// Usage: go run ./cmd/paperdockd --config configs/paperdock.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/paperdock/paperdock/internal/backoff"
	"github.com/paperdock/paperdock/internal/cachestore"
	"github.com/paperdock/paperdock/internal/config"
	"github.com/paperdock/paperdock/internal/connection"
	"github.com/paperdock/paperdock/internal/docstore"
	"github.com/paperdock/paperdock/internal/metrics"
	"github.com/paperdock/paperdock/internal/registry"
	"github.com/paperdock/paperdock/internal/shutdown"
	"github.com/paperdock/paperdock/internal/streamfeed"
	"github.com/paperdock/paperdock/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/paperdock.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting paperdock",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Rebuild the logger with the configured level and format
	logger = newLogger(cfg.Instance.LogLevel, cfg.Instance.LogFormat)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"documents_url", docstore.RedactURL(cfg.Services.Documents.URL),
		"events_enabled", cfg.Services.Events.URL != "",
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics and shutdown plumbing
	promReg := prometheus.NewRegistry()
	connMetrics := metrics.NewConnectionMetrics(promReg)
	coord := shutdown.NewCoordinator(shutdown.Config{
		EntryTimeout: cfg.Lifecycle.CloseTimeout(),
	}, logger)

	// Build one connection manager per backing service
	services := registry.New()

	type serviceDef struct {
		name    string
		cfg     config.ServiceConfig
		factory connection.Factory
	}

	defs := []serviceDef{
		{"cache", cfg.Services.Cache, cacheFactory(cfg.Services.Cache, logger)},
		{"documents", cfg.Services.Documents, documentsFactory(cfg.Services.Documents, logger)},
	}
	if cfg.Services.Events.URL != "" {
		defs = append(defs, serviceDef{"events", cfg.Services.Events, eventsFactory(cfg.Services.Events, logger)})
	}

	for _, def := range defs {
		mgr := connection.NewManager(def.name, connection.Config{
			ConnectTimeout: def.cfg.ConnectTimeout(),
			PingInterval:   cfg.Lifecycle.PingInterval(),
			Backoff:        backoff.Default(),
		}, def.factory, logger)

		if err := services.Register(def.name, mgr); err != nil {
			logger.Error("failed to register service", "service", def.name, "error", err)
			os.Exit(1)
		}
		coord.Register(def.name, mgr.Disconnect)
		connMetrics.Bind(mgr)
	}

	// Drain the event feed whenever its connection becomes ready
	if eventsMgr, err := services.Get("events"); err == nil {
		eventsMgr.On(connection.EventReady, func(connection.Transition) {
			client, err := eventsMgr.Client()
			if err != nil {
				return
			}
			if feed, ok := client.(*streamfeed.Client); ok {
				go drainFeed(feed, logger)
			}
		})
	}

	// Start health server early so startup progress is observable
	healthServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: createHealthHandler(services, promReg, logger),
	}

	go func() {
		logger.Info("starting health server", "addr", cfg.HTTP.Addr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Connect all services; any first-attempt failure is fatal
	logger.Info("connecting to backing services", "services", services.Names())

	g, gctx := errgroup.WithContext(ctx)
	services.Each(func(name string, m connection.Manager) {
		g.Go(func() error {
			return m.Connect(gctx)
		})
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to connect backing services", "error", err)

		shCtx, shCancel := context.WithTimeout(context.Background(), cfg.Lifecycle.ShutdownTimeout())
		healthServer.Shutdown(shCtx)
		coord.Run(shCtx)
		shCancel()
		os.Exit(1)
	}

	logger.Info("paperdock running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost%s/health", cfg.HTTP.Addr),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Lifecycle.ShutdownTimeout())
	defer shutdownCancel()

	healthServer.Shutdown(shutdownCtx)
	if err := coord.Run(shutdownCtx); err != nil {
		logger.Error("shutdown finished with errors", "error", err)
	}

	logger.Info("paperdock stopped")
}

// newLogger builds a logger from the configured level and format.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func cacheFactory(svc config.ServiceConfig, logger *slog.Logger) connection.Factory {
	return func(ctx context.Context) (connection.Client, error) {
		store, err := cachestore.Connect(ctx, cachestore.Config{
			URL:            svc.URL,
			MaxPoolSize:    svc.MaxPoolSize,
			ConnectTimeout: svc.ConnectTimeout(),
			SocketTimeout:  svc.SocketTimeout(),
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func documentsFactory(svc config.ServiceConfig, logger *slog.Logger) connection.Factory {
	return func(ctx context.Context) (connection.Client, error) {
		store, err := docstore.Connect(ctx, docstore.Config{
			URL:            svc.URL,
			MaxConns:       svc.MaxPoolSize,
			ConnectTimeout: svc.ConnectTimeout(),
			SocketTimeout:  svc.SocketTimeout(),
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func eventsFactory(svc config.ServiceConfig, logger *slog.Logger) connection.Factory {
	return func(ctx context.Context) (connection.Client, error) {
		feedCfg := streamfeed.DefaultConfig()
		feedCfg.URL = svc.URL
		feedCfg.ConnectTimeout = svc.ConnectTimeout()
		feedCfg.SocketTimeout = svc.SocketTimeout()

		feed, err := streamfeed.Dial(ctx, feedCfg, logger)
		if err != nil {
			return nil, err
		}
		return feed, nil
	}
}

// drainFeed consumes event frames until the feed's read loop exits.
func drainFeed(feed *streamfeed.Client, logger *slog.Logger) {
	for msg := range feed.Messages() {
		logger.Debug("event received",
			"bytes", len(msg.Data),
			"received_at", msg.ReceivedAt,
		)
	}
}

// createHealthHandler creates the HTTP handler for health and metrics.
func createHealthHandler(services *registry.Registry, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		services.Each(func(name string, m connection.Manager) {
			st := m.Stats()

			comp := map[string]interface{}{
				"state":   string(st.State),
				"retries": st.Retries,
			}
			if st.LastError != "" {
				comp["last_error"] = st.LastError
			}
			health.Components[name] = comp

			switch st.State {
			case connection.StateReady:
			case connection.StateFailed:
				health.Status = "unhealthy"
			default:
				if health.Status == "healthy" {
					health.Status = "degraded"
				}
			}
		})

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
