package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the budgie.yaml configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(a), newConfigShowCommand(a))
	return configCmd
}

func newConfigInitCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if a.apiURL != "" {
				cfg.API.BaseURL = a.apiURL
			}
			cfg.Auth.Username = a.username
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			c := a.cfg
			t := newTable("KEY", "VALUE")
			t.add("api.base_url", c.API.BaseURL)
			t.add("api.timeout", c.API.Timeout.String())
			t.add("auth.username", c.Auth.Username)
			t.add("log.level", c.Log.Level)
			t.add("import.dir", c.Import.Dir)
			t.add("import.log_path", c.Import.LogPath)
			t.add("import.format", c.Import.Format)
			t.add("import.concurrency", fmt.Sprint(c.Import.Concurrency))
			t.add("cache.optimistic", fmt.Sprint(c.Cache.Optimistic))
			return a.render(cmd.OutOrStdout(), c, t)
		},
	}
}
