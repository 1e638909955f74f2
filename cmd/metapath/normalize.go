package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/metapath/metapath/internal/pathnorm"
	"github.com/spf13/cobra"
)

func newNormalizeCmd(_ *rootOptions) *cobra.Command {
	var styleName string
	var showComponents bool

	cmd := &cobra.Command{
		Use:   "normalize [path...]",
		Short: "Normalize paths given as arguments or one per line on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			style, ok := pathnorm.ParseStyle(styleName)
			if !ok {
				return fmt.Errorf("unknown style %q (want native|unix|windows)", styleName)
			}

			out := cmd.OutOrStdout()
			emit := func(path string) error {
				if showComponents {
					_, err := fmt.Fprintf(out, "%s\t%s\n", pathnorm.NormalizeStyle(path, style), describe(pathnorm.Components(path, style)))
					return err
				}
				_, err := fmt.Fprintln(out, pathnorm.NormalizeStyle(path, style))
				return err
			}

			if len(args) > 0 {
				for _, path := range args {
					if err := emit(path); err != nil {
						return err
					}
				}
				return nil
			}
			return eachLine(cmd.InOrStdin(), emit)
		},
	}

	cmd.Flags().StringVar(&styleName, "style", "native", "Path style: native|unix|windows")
	cmd.Flags().BoolVar(&showComponents, "components", false, "Also print the classified components of each input")

	return cmd
}

func describe(components []pathnorm.Component) string {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		if c.Kind == pathnorm.KindPrefix || c.Kind == pathnorm.KindNormal {
			parts = append(parts, fmt.Sprintf("%s(%s)", c.Kind, c.Text))
			continue
		}
		parts = append(parts, c.Kind.String())
	}
	return strings.Join(parts, " ")
}

func eachLine(r io.Reader, fn func(string) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := fn(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return err
		}
	}
	return scanner.Err()
}
