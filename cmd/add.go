package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addSub   string
	addSes   string
	addTask  string
	addAcq   int
	addSetup string
)

func init() {
	f := addCmd.Flags()
	f.StringVar(&addSub, "sub", "", "Subject label (must exist in participants.tsv)")
	f.StringVar(&addSes, "ses", "", "Session label")
	f.StringVar(&addTask, "task", "", "Task label")
	f.IntVar(&addAcq, "acq", 0, "Acquisition number")
	f.StringVar(&addSetup, "setup", "", "Recording setup written to the sidecar")
	for _, name := range []string{"sub", "ses", "task", "acq"} {
		_ = addCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [archive.zip]",
	Short: "Install a zipped recording into the dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(cmd)
		if err != nil {
			return err
		}
		if err := d.Add(cmd.Context(), args[0], addSub, addSes, addTask, addAcq, addSetup); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed sub-%s ses-%s task-%s acq %d\n", addSub, addSes, addTask, addAcq)
		return nil
	},
}
