package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/pdfimport/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pdfimport",
		Short:   "Extract transactions from broker statements",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newCatalogsCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
