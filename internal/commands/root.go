// Package commands implements the budgie command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/budgie-app/budgie/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "budgie",
		Short:   "Personal finance from the command line",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.checkFormat()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default <user config dir>/budgie/budgie.yaml)")
	flags.StringVar(&a.apiURL, "api-url", "", "server base URL, overrides api.base_url")
	flags.StringVarP(&a.username, "username", "u", "", "login name, overrides auth.username")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and cache activity")
	flags.StringVar(&a.format, "format", formatText, "output format: text or json")

	rootCmd.AddCommand(
		newConfigCommand(a),
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newTransactionsCommand(a),
		newCategoriesCommand(a),
		newBudgetsCommand(a),
		newImportCommand(a),
	)

	return rootCmd
}
