package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the trophy cabinet admin CLI. Subcommands
// (auth, bootstrap, tenant, invite) are attached here.
var rootCmd = &cobra.Command{
	Use:           "cabinet",
	Short:         "Trophy cabinet admin CLI",
	Long:          "Administrative utilities for the trophy cabinet backend (dev tokens, schema bootstrap, club and invite management).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
