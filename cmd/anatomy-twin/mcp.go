package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/anatomy-twin-server/internal/app"
	"github.com/anatomy-twin-server/internal/config"
	"github.com/anatomy-twin-server/internal/domain"
	"github.com/anatomy-twin-server/internal/mcp"
)

func newMCPCommand(opts *rootOptions) *cobra.Command {
	var (
		lite      bool
		transport string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio or HTTP",
		Long: "Serve the MCP tools over stdio or streamable HTTP. With --lite the\n" +
			"server needs no external services and reads TWIN_* environment variables only.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *domain.Config
			if lite {
				liteCfg := config.LoadLiteConfig()
				if err := liteCfg.EnsureDataDir(); err != nil {
					return err
				}
				cfg = liteCfg.Config()
				if transport == "" {
					transport = liteCfg.Transport
				}
			} else {
				var err error
				if cfg, err = loadConfig(opts); err != nil {
					return err
				}
			}
			// stdout carries the protocol.
			cfg.Logging.Output = "stderr"

			logger := app.NewLogger(cfg.Logging)
			a, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			go func() {
				if err := a.FollowComplexity(cmd.Context()); err != nil {
					logger.WithError(err).Warn("Stopped following complexity changes")
				}
			}()

			server := mcp.NewServer(a.Toolset(), version, logger)
			switch transport {
			case "", "stdio":
				return server.Run(cmd.Context())
			case "http":
				addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
				return server.RunHTTP(cmd.Context(), addr)
			default:
				return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
			}
		},
	}
	cmd.Flags().BoolVar(&lite, "lite", false, "run standalone with SQLite preferences and the embedded graph")
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (default: stdio, or TWIN_TRANSPORT with --lite)")
	return cmd
}
