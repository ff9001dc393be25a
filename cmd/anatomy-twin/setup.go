package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatomy-twin-server/internal/config"
	"github.com/anatomy-twin-server/internal/setup"
)

func newSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.AddCommand(newSetupClientCommand(), newSetupStatusCommand())
	return cmd
}

func newSetupClientCommand() *cobra.Command {
	var opts setup.Options

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Add or update the anatomy-twin entry in the client config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.DataDir == "" {
				opts.DataDir = config.LoadLiteConfig().DataDir
			}
			path, err := setup.Register(opts)
			if err != nil {
				return fmt.Errorf("failed to register server: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\nRestart the client to load it.\n", setup.ServerName, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ConfigPath, "client-config", "", "client config file (default: the per-OS location)")
	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "server binary (default: this executable)")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory for the preference database")
	return cmd
}

func newSetupStatusCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				var err error
				if path, err = setup.ClientConfigPath(); err != nil {
					return err
				}
			}
			status := setup.Check(path, config.DefaultLiteConfig().DataDir)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client config: %s\n", status.ConfigPath)
			fmt.Fprintf(out, "Registered:    %t\n", status.Registered)
			if status.Registered {
				fmt.Fprintf(out, "Binary:        %s\n", status.Binary)
			}
			fmt.Fprintf(out, "Data dir:      %s\n", status.DataDir)
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "client-config", "", "client config file (default: the per-OS location)")
	return cmd
}
