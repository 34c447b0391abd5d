package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/entrhq/pagepilot/pkg/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage the pagepilot config file"}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := writeDefaultConfig(path, force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", written)
			return err
		},
	}
	initCmd.Flags().StringVar(&path, "path", "", "Config file to write (default ~/.pagepilot/config.yaml)")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	var showPath string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := config.NewFileStore(showPath)
			if err != nil {
				return err
			}
			manager, err := config.NewDefaultManager(store)
			if err != nil {
				return err
			}
			if err := manager.LoadAll(); err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), store.Path(), config.Resolve(manager, config.Overrides{}))
		},
	}
	showCmd.Flags().StringVar(&showPath, "path", "", "Config file to read (default ~/.pagepilot/config.yaml)")

	cfg.AddCommand(initCmd, showCmd)
	return cfg
}

// writeDefaultConfig writes every section's defaults to path and returns the
// path written.
func writeDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return "", err
		}
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	store, err := config.NewFileStore(path)
	if err != nil {
		return "", err
	}
	manager, err := config.NewDefaultManager(store)
	if err != nil {
		return "", err
	}
	manager.ResetAll()
	if err := manager.SaveAll(); err != nil {
		return "", err
	}
	return store.Path(), nil
}

func printSettings(w io.Writer, path string, s config.Settings) error {
	apiKey := "not set"
	if s.LLM.Enabled() {
		apiKey = "set"
	}
	lines := []string{
		fmt.Sprintf("config file:        %s", path),
		fmt.Sprintf("backend.base_url:   %s", s.Backend.BaseURL),
		fmt.Sprintf("backend.user_id:    %s", s.Backend.UserID),
		fmt.Sprintf("backend.timeout:    %s", s.Backend.Timeout),
		fmt.Sprintf("bridge.listen_addr: %s", s.Bridge.ListenAddr),
		fmt.Sprintf("browser.headless:   %v", s.Browser.Headless),
		fmt.Sprintf("browser.start_urls: %s", strings.Join(s.Browser.StartURLs, ", ")),
		fmt.Sprintf("llm.model:          %s", s.LLM.Model),
		fmt.Sprintf("llm.api_key:        %s", apiKey),
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
