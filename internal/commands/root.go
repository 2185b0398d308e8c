package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/acctree/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "acctree",
		Short:   "Account hierarchy and classification consistency checks",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("repo", ".", "repository directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newIngestCommand(),
		newValidateCommand(),
		newRecommendCommand(),
		newReconcileCommand(),
		newRulesCommand(),
		newServeCommand(),
	)

	return rootCmd
}
