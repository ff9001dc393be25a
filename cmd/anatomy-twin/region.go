package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/projection"
)

func newRegionCommand(opts *rootOptions) *cobra.Command {
	var level int

	cmd := &cobra.Command{
		Use:   "region <id>",
		Short: "Print a region's enriched content as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			l := a.Complexity.Level()
			if cmd.Flags().Changed("level") {
				if !domain.Level(level).Valid() {
					return fmt.Errorf("level must be between %d and %d, got %d", int(domain.MinLevel), int(domain.MaxLevel), level)
				}
				l = domain.Level(level)
			}

			view, err := a.Engine.Fetch(cmd.Context(), strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			out := projection.Region(view, l)
			if a.Assets != nil {
				out.Models = a.Assets.Sign(cmd.Context(), out.Models)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().IntVarP(&level, "level", "l", 0, "complexity level 1-5 (default: the stored level)")
	return cmd
}
