package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(summaryCmd)
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a one-line summary of the indexed dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), d.String())
		if n := len(d.DerivativeEntries()); n > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Derivative files: %d\n", n)
		}
		if dict := d.Dictionary(); dict != nil {
			cols := make([]string, 0, len(dict))
			for c := range dict {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			fmt.Fprintf(cmd.OutOrStdout(), "Dictionary columns: %v\n", cols)
		}
		return nil
	},
}
