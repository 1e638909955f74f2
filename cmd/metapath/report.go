package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/report"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var inputPath string
	var since string
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" && opts.configPath != "" {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				if cfg.Logging.EventLog != "" {
					inputPath = cfg.ResolvePath(cfg.Logging.EventLog)
				}
			}
			if inputPath == "" {
				return errors.New("input path is required (--in, or logging.eventLog in --config)")
			}

			reader := report.Reader{}
			if since != "" {
				dur, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid since duration: %w", err)
				}
				reader.Since = time.Now().Add(-dur)
			}

			events, err := reader.Read(inputPath)
			if err != nil {
				return err
			}

			summary := report.Summarize(events)
			out := cmd.OutOrStdout()
			switch format {
			case "", "text":
				styled := outPath == "" && isTerminal(out)
				return report.WriteOutput(out, outPath, []byte(report.RenderText(summary, styled)))
			case "md":
				return report.WriteOutput(out, outPath, []byte(report.RenderMarkdown(summary)))
			case "json":
				data, err := report.RenderJSON(summary)
				if err != nil {
					return err
				}
				return report.WriteOutput(out, outPath, append(data, '\n'))
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&inputPath, "in", "", "Path to event log JSONL (default: logging.eventLog from --config)")
	cmd.Flags().StringVar(&since, "since", "", "Only include events newer than this duration (e.g. 10m)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|md|json")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path (default stdout)")

	return cmd
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
