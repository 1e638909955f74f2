package main

import (
	"encoding/json"
	"fmt"

	"github.com/metapath/metapath/internal/metadata"
	"github.com/spf13/cobra"
)

func newLookupCmd(opts *rootOptions) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "lookup <library> <path>",
		Short: "Print the indexed metadata of one path as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, path := args[0], args[1]

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if _, err := selectLibraries(cfg, library); err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var body any
			if list {
				paths, err := store.List(cmd.Context(), library, path)
				if err != nil {
					return err
				}
				body = paths
			} else {
				meta, ok, err := store.Lookup(cmd.Context(), library, path)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: no metadata for %q", library, path)
				}
				if meta == nil {
					meta = metadata.Metadata{}
				}
				body = meta
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(body)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List indexed paths at or below path instead")

	return cmd
}
