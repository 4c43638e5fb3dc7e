package cmd

import (
	"fmt"

	"github.com/nicelab/nicebids/internal/export"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [output.db]",
	Short: "Export the index and metadata table to a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd)
		if err != nil {
			return err
		}
		snap := export.Snapshot{
			Files:       d.Entries(),
			Derivatives: d.DerivativeEntries(),
			Metadata:    d.Table(),
		}
		if err := export.Write(args[0], snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d recordings to %s\n", len(snap.Files)+len(snap.Derivatives), args[0])
		return nil
	},
}
