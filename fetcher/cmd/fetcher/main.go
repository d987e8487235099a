package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backlogcast/backlogcast/fetcher/internal/config"
	"github.com/backlogcast/backlogcast/fetcher/internal/source"
)

// syncAttempts bounds the retries of one scheduled download.
const syncAttempts = 5

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "download the table once and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		slog.Error("backlogcast-fetcher stopped", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, once bool) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("backlogcast-fetcher starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fc := cfg.Fetcher

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: fc.Log.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"endpoint", fc.Source.Endpoint,
		"stats_data_id", fc.Source.StatsDataID,
		"interval", fc.Interval,
		"output_path", fc.OutputPath,
	)
	if fc.Source.AppID() == "" {
		slog.Warn("application id not set", "env", fc.Source.AppIDEnv)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if once {
		return source.New(fc.Source).Sync(ctx, fc.OutputPath, syncAttempts)
	}

	var current atomic.Pointer[config.FetcherConfig]
	current.Store(&fc)
	reloaded := make(chan struct{}, 1)

	g, gctx := errgroup.WithContext(ctx)

	// Hot-reload: the next download uses the new source and schedule.
	g.Go(func() error {
		return config.Watch(gctx, configPath, func(updated *config.Config) {
			current.Store(&updated.Fetcher)
			slog.Info("config hot-reloaded",
				"stats_data_id", updated.Fetcher.Source.StatsDataID,
				"interval", updated.Fetcher.Interval,
			)
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	})

	g.Go(func() error {
		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-gctx.Done():
				slog.Info("backlogcast-fetcher shutting down")
				return nil
			case <-reloaded:
				timer.Reset(current.Load().Interval)
			case <-timer.C:
				c := current.Load()
				if err := source.New(c.Source).Sync(gctx, c.OutputPath, syncAttempts); err != nil && gctx.Err() == nil {
					slog.Error("download failed, keeping previous snapshot", "err", err)
				}
				timer.Reset(c.Interval)
			}
		}
	})

	return g.Wait()
}
