package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/anatomy-twin-server/internal/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(a.Config.Server, a.APIOptions(version))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return server.Start(ctx) })
			g.Go(func() error { return a.FollowComplexity(ctx) })
			err = g.Wait()

			a.Logger.Info("Server stopped")
			return err
		},
	}
}
