package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/index"
	"github.com/metapath/metapath/internal/observability"
	"github.com/metapath/metapath/internal/scan"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var library string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan libraries and store their metadata in the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			libs, err := selectLibraries(cfg, library)
			if err != nil {
				return err
			}
			logger, err := opts.newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
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

			scanner, err := newScanner(cfg, logger, events)
			if err != nil {
				return err
			}
			runs, err := indexLibraries(cmd.Context(), cfg, libs, scanner, store, nil, logger)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().StringVar(&library, "library", "", "Only index the named library")

	return cmd
}

// indexLibraries scans libs one after another and swaps each result into
// the store. A library is replaced only after its scan succeeded.
func indexLibraries(ctx context.Context, cfg *config.Config, libs []config.Library, scanner *scan.Scanner, store *index.DB, metrics *observability.Metrics, logger zerolog.Logger) ([]index.Run, error) {
	runs := make([]index.Run, 0, len(libs))
	for _, lib := range libs {
		start := time.Now()
		res, err := scanner.Scan(ctx, lib.Name, cfg.ResolvePath(lib.Root))
		if err != nil {
			return runs, fmt.Errorf("scan %s: %w", lib.Name, err)
		}
		if err := store.ReplaceLibrary(ctx, lib.Name, res.Entries); err != nil {
			return runs, fmt.Errorf("store %s: %w", lib.Name, err)
		}

		run := index.Run{
			Library:   lib.Name,
			StartedAt: start,
			Duration:  time.Since(start),
			Files:     res.Files,
			Entries:   len(res.Entries),
			Problems:  len(res.Problems),
			Dangling:  len(res.Dangling),
		}
		if run.ID, err = store.RecordRun(ctx, run); err != nil {
			return runs, fmt.Errorf("record run %s: %w", lib.Name, err)
		}
		metrics.ObserveIndex(lib.Name, res.Files, len(res.Problems))

		for _, path := range res.Dangling {
			logger.Warn().Str("library", lib.Name).Str("path", path).Msg("metadata for missing entry")
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func printRuns(w io.Writer, runs []index.Run) error {
	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s: %d files, %d entries, %d problems, %d dangling (%s)\n",
			run.Library, run.Files, run.Entries, run.Problems, run.Dangling, run.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}
