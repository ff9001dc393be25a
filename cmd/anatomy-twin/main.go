// Command anatomy-twin serves anatomical region content, patient overlays
// and educational modules over REST and MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anatomy-twin-server/internal/app"
	"github.com/anatomy-twin-server/internal/config"
	"github.com/anatomy-twin-server/internal/domain"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "anatomy-twin",
		Short:         "Anatomical digital twin content server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: config.yaml in ., ./config or /etc/anatomy-twin)")

	root.AddCommand(
		newServeCommand(opts),
		newMCPCommand(opts),
		newMigrateCommand(opts),
		newRegionCommand(opts),
		newSetupCommand(),
	)
	return root
}

// loadConfig reads and validates the full configuration.
func loadConfig(opts *rootOptions) (*domain.Config, error) {
	manager, err := config.NewManager(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return manager.GetConfig(), nil
}

// loadApp builds the App from the full configuration.
func loadApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, app.NewLogger(cfg.Logging))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "anatomy-twin:", err)
		os.Exit(1)
	}
}
