package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/pdfimport/internal/catalog"
)

func newCatalogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs",
		Short: "List the built-in catalogs and their document types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogs(cmd.OutOrStdout(), catalog.DefaultRegistry())
		},
	}
}

func runCatalogs(out io.Writer, r *catalog.Registry) error {
	infos, err := r.Describe(nil)
	if err != nil {
		return err
	}
	for _, c := range infos {
		fmt.Fprintf(out, "%s\t%s\n", c.Name, c.Label)
		for _, dt := range c.DocumentTypes {
			fmt.Fprintf(out, "  %s\t%s\n", dt.Name, strings.Join(dt.Blocks, ", "))
		}
	}
	return nil
}
