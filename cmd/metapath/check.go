package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/metapath/metapath/internal/config"
	"github.com/metapath/metapath/internal/metadata"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var targetName string

	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Parse meta files and report the ones that fail",
		Long: "With file arguments, parse exactly those files. Without, parse every " +
			"meta file of the configured libraries.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				names := config.MetaFilesConfig{Self: config.DefaultSelfFile, Item: config.DefaultItemFile}
				if opts.configPath != "" {
					cfg, err := config.Load(opts.configPath)
					if err != nil {
						return err
					}
					names = cfg.MetaFiles
				}
				return checkFiles(out, args, targetName, names)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := opts.newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			scanner, err := newScanner(cfg, logger, nil)
			if err != nil {
				return err
			}

			failed := 0
			for _, lib := range cfg.Libraries {
				res, err := scanner.Scan(cmd.Context(), lib.Name, cfg.ResolvePath(lib.Root))
				if err != nil {
					return fmt.Errorf("scan %s: %w", lib.Name, err)
				}
				for _, p := range res.Problems {
					fmt.Fprintf(out, "%s: %v\n", p.Path, p.Err)
				}
				for _, path := range res.Dangling {
					fmt.Fprintf(out, "%s: warning: %s does not exist\n", lib.Name, path)
				}
				fmt.Fprintf(out, "%s: %d files, %d entries, %d problems\n", lib.Name, res.Files, len(res.Entries), len(res.Problems))
				failed += len(res.Problems)
			}
			if failed > 0 {
				return fmt.Errorf("%d meta file(s) failed to parse", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetName, "target", "", "Target of explicit files: contains|siblings (default: inferred from the file name)")

	return cmd
}

func checkFiles(out io.Writer, files []string, targetName string, names config.MetaFilesConfig) error {
	failed := 0
	for _, path := range files {
		target, err := fileTarget(path, targetName, names)
		if err != nil {
			return err
		}
		listing, err := metadata.FromFile(metadata.YAMLReader{}, path, target)
		if err != nil {
			fmt.Fprintln(out, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s: ok (%d entries)\n", path, len(listing))
	}
	if failed > 0 {
		return fmt.Errorf("%d meta file(s) failed to parse", failed)
	}
	return nil
}

// fileTarget infers the target of an explicit file from its name unless
// targetName overrides it.
func fileTarget(path, targetName string, names config.MetaFilesConfig) (metadata.Target, error) {
	if targetName != "" {
		return metadata.ParseTarget(targetName)
	}
	switch filepath.Base(path) {
	case names.Self:
		return metadata.TargetContains, nil
	case names.Item:
		return metadata.TargetSiblings, nil
	default:
		return "", fmt.Errorf("cannot infer target of %s; pass --target", path)
	}
}
