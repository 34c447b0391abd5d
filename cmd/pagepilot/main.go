// Package main is the pagepilot daemon: the background orchestrator of the
// PagePilot browser extension, driven either by the real extension through a
// local WebSocket bridge or by a Playwright-controlled Chromium.
package main

import (
	"fmt"
	"os"

	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "pagepilot",
		Short: "Background orchestrator for the PagePilot browser extension",
		Long: `pagepilot tracks browser tabs, classifies pages, proxies backend calls and
runs the context menu commands of the PagePilot extension.

Quick Start:
  pagepilot config init                 # write a default config file
  pagepilot serve                       # wait for the extension on 127.0.0.1:8787
  pagepilot serve --host playwright \
    --open https://go.dev               # drive a local Chromium instead`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pagepilot version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "pagepilot %s (commit: %s, built: %s)\n", version, commit, date)
			return err
		},
	}
}
