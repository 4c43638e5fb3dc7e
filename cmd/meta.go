package cmd

import (
	"github.com/nicelab/nicebids/api"
	"github.com/spf13/cobra"
)

var (
	metaSub  string
	metaSes  string
	metaTask string
	metaAcq  int
	metaRun  int
)

func init() {
	f := metaCmd.Flags()
	f.StringVar(&metaSub, "sub", "", "Subject label")
	f.StringVar(&metaSes, "ses", "", "Session label")
	f.StringVar(&metaTask, "task", "", "Task label")
	f.IntVar(&metaAcq, "acq", 0, "Acquisition number")
	f.IntVar(&metaRun, "run", 0, "Run number")
	rootCmd.AddCommand(metaCmd)
}

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Print the consolidated metadata table as TSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd)
		if err != nil {
			return err
		}
		table := d.ToTable(api.Filter{
			Sub:  metaSub,
			Ses:  metaSes,
			Task: metaTask,
			Acq:  metaAcq,
			Run:  metaRun,
		})
		return table.WriteTSV(cmd.OutOrStdout())
	},
}
