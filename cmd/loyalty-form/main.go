// ABOUTME: Entry point for the loyalty-form server
// ABOUTME: Serves the loyalty card form and mints test tokens

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389/loyalty-form/internal/config"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                   _ _                __
| | ___  _   _  __ _| | |_ _   _       / _| ___  _ __ _ __ ___
| |/ _ \| | | |/ _' | | __| | | |_____| |_ / _ \| '__| '_ ' _ \
| | (_) | |_| | (_| | | |_| |_| |_____|  _| (_) | |  | | | | | |
|_|\___/ \__, |\__,_|_|\__|\__, |     |_|  \___/|_|  |_| |_| |_|
         |___/             |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "loyalty-form",
		Short:         "Loyalty card capture form for charging sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $LOYALTY_CONFIG or ~/.config/loyalty-form/config.yaml)")

	load := func() (*config.Config, string, error) {
		path := configPath
		if path == "" {
			path = config.ConfigPath()
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, path, fmt.Errorf("loading config: %w", err)
		}
		return cfg, path, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newTokenCmd(load),
		newHashPasswordCmd(),
		newHealthCmd(load),
		newVersionCmd(),
	)
	return root
}

// configLoader loads the config selected by the root --config flag.
type configLoader func() (cfg *config.Config, path string, err error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "loyalty-form %s\n", version)
		},
	}
}
