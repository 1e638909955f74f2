package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/index"
	"github.com/metapath/metapath/internal/observability"
	"github.com/metapath/metapath/internal/scan"
	"github.com/metapath/metapath/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const limiterIdle = 10 * time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var reindexFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indexed metadata over HTTP",
		Long:  "Serve indexed metadata over HTTP. SIGHUP re-indexes every library and empties the lookup cache.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, logger, reindexFirst)
		},
	}

	cmd.Flags().BoolVar(&reindexFirst, "reindex", false, "Index every library before serving")

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reindexFirst bool) error {
	events, closeEvents, err := openEventLog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeEvents() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store)
	if err != nil {
		return err
	}
	srv.SetLogger(logger)
	srv.SetEventLogger(events)

	metrics, metricsSrv := startMetricsServer(cfg, logger)
	srv.SetMetrics(metrics)
	defer func() {
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(context.Background())
		}
	}()

	scanner, err := newScanner(cfg, logger, events)
	if err != nil {
		return err
	}
	if reindexFirst {
		if _, err := reindex(ctx, cfg, scanner, store, srv, metrics, logger); err != nil {
			return err
		}
	} else {
		warnEmpty(ctx, cfg, store, logger)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpSrv.ListenAndServe()
	}()
	logger.Info().Str("listen", cfg.Server.Listen).Int("libraries", len(cfg.Libraries)).Msg("serving")

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

loop:
	for {
		select {
		case <-signalCtx.Done():
			break loop
		case err := <-serverErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			break loop
		case <-hup:
			logger.Info().Msg("re-indexing on SIGHUP")
			if _, err := reindex(ctx, cfg, scanner, store, srv, metrics, logger); err != nil {
				logger.Error().Err(err).Msg("re-index failed")
			}
		case <-prune.C:
			if n := srv.PruneLimiter(limiterIdle); n > 0 {
				logger.Debug().Int("buckets", n).Msg("pruned idle rate limit buckets")
			}
		}
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// reindex indexes every configured library and then purges srv's lookup
// cache. The purge happens even when a library failed.
func reindex(ctx context.Context, cfg *config.Config, scanner *scan.Scanner, store *index.DB, srv *server.Server, metrics *observability.Metrics, logger zerolog.Logger) ([]index.Run, error) {
	runs, err := indexLibraries(ctx, cfg, cfg.Libraries, scanner, store, metrics, logger)
	srv.Purge()
	for _, run := range runs {
		logger.Info().Str("library", run.Library).Int("entries", run.Entries).Int("problems", run.Problems).Msg("library indexed")
	}
	return runs, err
}

func startMetricsServer(cfg *config.Config, logger zerolog.Logger) (*observability.Metrics, *http.Server) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))

	srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("listen", cfg.Metrics.Listen).Msg("metrics server stopped")
		}
	}()
	return metrics, srv
}

func warnEmpty(ctx context.Context, cfg *config.Config, store *index.DB, logger zerolog.Logger) {
	for _, lib := range cfg.Libraries {
		n, err := store.Count(ctx, lib.Name)
		if err != nil {
			logger.Error().Err(err).Str("library", lib.Name).Msg("count entries")
			continue
		}
		if n == 0 {
			logger.Warn().Str("library", lib.Name).Msg("library has no indexed entries; run index or pass --reindex")
		}
	}
}
