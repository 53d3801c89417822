// cmd/importer/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unclebandit/outbound-campaigns/internal/importer"
)

// The importer previews what an upload would produce, without storing it.
func main() {
	var summary bool

	cmd := &cobra.Command{
		Use:          "importer [contacts.xlsx]",
		Short:        "Preview the contacts a spreadsheet would import",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			batch, err := importer.Import(filepath.Base(path), data)
			if err != nil {
				return err
			}

			if summary {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d contacts, %d rows skipped\n",
					batch.FileName, batch.Len(), batch.Rejected)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(batch)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print counts only")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
