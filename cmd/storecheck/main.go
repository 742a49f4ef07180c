// storecheck probes the backing services from a paperdock config and
// reports whether each one is reachable.
// Usage: go run ./cmd/storecheck --config configs/paperdock.local.yaml
//
// Exit status is 0 when every probe succeeds and 1 otherwise, so it
// works as a deploy-time smoke test.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paperdock/paperdock/internal/cachestore"
	"github.com/paperdock/paperdock/internal/config"
	"github.com/paperdock/paperdock/internal/connection"
	"github.com/paperdock/paperdock/internal/docstore"
	"github.com/paperdock/paperdock/internal/streamfeed"
	"github.com/paperdock/paperdock/internal/version"
)

type probe struct {
	name string
	dial connection.Factory
}

type result struct {
	name    string
	elapsed time.Duration
	err     error
}

func main() {
	configPath := flag.String("config", "configs/paperdock.local.yaml", "path to config file")
	service := flag.String("service", "", "probe a single service (cache, documents, events)")
	timeout := flag.Duration("timeout", 10*time.Second, "overall probe budget")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Keep store logging out of the report
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	probes := buildProbes(cfg, logger)
	if *service != "" {
		probes = filterProbes(probes, *service)
		if len(probes) == 0 {
			fmt.Fprintf(os.Stderr, "unknown or disabled service %q\n", *service)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Probe everything concurrently; each result lands in its own slot
	results := make([]result, len(probes))
	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			results[i] = runProbe(ctx, p)
			return nil
		})
	}
	g.Wait()

	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			fmt.Printf("FAIL  %-10s %-8s %v\n", r.name, r.elapsed.Round(time.Millisecond), r.err)
		} else {
			fmt.Printf("ok    %-10s %-8s\n", r.name, r.elapsed.Round(time.Millisecond))
		}
	}

	if failed {
		os.Exit(1)
	}
}

// runProbe dials one service, pings it, and closes it again.
func runProbe(ctx context.Context, p probe) result {
	start := time.Now()

	client, err := p.dial(ctx)
	if err != nil {
		return result{name: p.name, elapsed: time.Since(start), err: err}
	}

	err = client.Ping(ctx)
	client.Close(ctx)

	return result{name: p.name, elapsed: time.Since(start), err: err}
}

func buildProbes(cfg *config.Config, logger *slog.Logger) []probe {
	probes := []probe{
		{name: "cache", dial: func(ctx context.Context) (connection.Client, error) {
			store, err := cachestore.Connect(ctx, cachestore.Config{
				URL:            cfg.Services.Cache.URL,
				MaxPoolSize:    cfg.Services.Cache.MaxPoolSize,
				ConnectTimeout: cfg.Services.Cache.ConnectTimeout(),
				SocketTimeout:  cfg.Services.Cache.SocketTimeout(),
			}, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		}},
		{name: "documents", dial: func(ctx context.Context) (connection.Client, error) {
			store, err := docstore.Connect(ctx, docstore.Config{
				URL:            cfg.Services.Documents.URL,
				MaxConns:       cfg.Services.Documents.MaxPoolSize,
				ConnectTimeout: cfg.Services.Documents.ConnectTimeout(),
				SocketTimeout:  cfg.Services.Documents.SocketTimeout(),
			}, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		}},
	}

	if cfg.Services.Events.URL != "" {
		probes = append(probes, probe{name: "events", dial: func(ctx context.Context) (connection.Client, error) {
			feedCfg := streamfeed.DefaultConfig()
			feedCfg.URL = cfg.Services.Events.URL
			feedCfg.ConnectTimeout = cfg.Services.Events.ConnectTimeout()
			feedCfg.SocketTimeout = cfg.Services.Events.SocketTimeout()

			feed, err := streamfeed.Dial(ctx, feedCfg, logger)
			if err != nil {
				return nil, err
			}
			return feed, nil
		}})
	}

	return probes
}

func filterProbes(probes []probe, name string) []probe {
	var out []probe
	for _, p := range probes {
		if p.name == name {
			out = append(out, p)
		}
	}
	return out
}
