package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/backlogcast/backlogcast/server/internal/aggregate"
	"github.com/backlogcast/backlogcast/server/internal/api"
	"github.com/backlogcast/backlogcast/server/internal/auth"
	"github.com/backlogcast/backlogcast/server/internal/config"
	"github.com/backlogcast/backlogcast/server/internal/estimate"
	"github.com/backlogcast/backlogcast/server/internal/metrics"
	"github.com/backlogcast/backlogcast/server/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("backlogcast-server stopped", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("backlogcast-server starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sc := cfg.Server

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: sc.Log.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"http_port", sc.HTTPPort,
		"data_path", sc.Data.Path,
		"cache_ttl", sc.Data.CacheTTL,
		"watch", sc.Data.Watch,
		"auth_mode", sc.Auth.Mode,
		"timezone", sc.Estimation.Timezone,
	)

	loc, err := sc.Estimation.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Snapshot cache over the fetcher's output file.
	st := store.New(sc.Data.Path, sc.Data.CacheTTL,
		store.WithHierarchy(sc.EffectiveHierarchy()),
		store.WithObserver(m),
	)

	// Warm the cache so a missing file is reported at startup. Not fatal:
	// the fetcher may not have produced the file yet.
	if _, err := st.Current(); err != nil {
		slog.Warn("snapshot not available yet", "path", sc.Data.Path, "err", err)
	}

	est := estimate.New(st,
		estimate.WithLocation(loc),
		estimate.WithStrictCodes(sc.Estimation.Strict),
	)
	protect := auth.APIKey(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", m.Handler())
	httpMux.Handle("/", api.New(st, aggregate.New(st), est, m, protect))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if sc.Data.Watch {
		// Without the watcher the TTL still refreshes the cache.
		g.Go(func() error {
			if err := st.Watch(gctx); err != nil {
				slog.Error("data watcher stopped, relying on cache TTL", "err", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("backlogcast-server shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
