package cmd

import (
	"fmt"

	"github.com/nicelab/nicebids/api"
	"github.com/spf13/cobra"
)

var (
	querySub     string
	querySes     string
	queryTask    string
	queryAcq     int
	queryRun     int
	querySuffix  string
	queryExt     string
	queryDeriv string
)

func init() {
	f := queryCmd.Flags()
	f.StringVar(&querySub, "sub", "", "Subject label")
	f.StringVar(&querySes, "ses", "", "Session label")
	f.StringVar(&queryTask, "task", "", "Task label")
	f.IntVar(&queryAcq, "acq", 0, "Acquisition number")
	f.IntVar(&queryRun, "run", 0, "Run number")
	f.StringVar(&querySuffix, "suffix", "", "Recording suffix")
	f.StringVar(&queryExt, "ext", "", "File extension")
	f.StringVar(&queryDeriv, "derivative", "", "Query a derivative pipeline instead of raw data")
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List recording paths matching a filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd)
		if err != nil {
			return err
		}
		filter := api.Filter{
			Sub:    querySub,
			Ses:    querySes,
			Task:   queryTask,
			Suffix: querySuffix,
			Ext:    queryExt,
			Acq:    queryAcq,
			Run:    queryRun,
		}
		matches := d.Get(filter)
		if queryDeriv != "" {
			matches = d.GetDerivatives(queryDeriv, filter)
		}
		for _, e := range matches {
			fmt.Fprintln(cmd.OutOrStdout(), e.Path)
		}
		return nil
	},
}
