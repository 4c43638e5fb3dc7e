package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/nicelab/nicebids/api"
	"github.com/nicelab/nicebids/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	rootDir     string
	derivatives []string
	padWidth    int
	workers     int
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "Path to HCL config file")
	pf.StringVarP(&rootDir, "root", "r", "", "Path to dataset root")
	pf.StringSliceVar(&derivatives, "derivatives", nil, "Derivative pipelines to index")
	pf.IntVar(&padWidth, "pad", 0, "Zero-pad width for acq/run labels (default 2)")
	pf.IntVar(&workers, "workers", 0, "Concurrent sidecar readers (default NumCPU)")
}

var rootCmd = &cobra.Command{
	Use:           "nicebids",
	Short:         "Index and query BIDS-EEG datasets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// fileConfig is the HCL shape of the config file. Every attribute is
// optional; command-line flags override whatever the file sets.
type fileConfig struct {
	Root        string   `hcl:"root,optional"`
	Sub         []string `hcl:"sub,optional"`
	Ses         []string `hcl:"ses,optional"`
	Task        []string `hcl:"task,optional"`
	Acq         []int    `hcl:"acq,optional"`
	Derivatives []string `hcl:"derivatives,optional"`
	PadWidth    int      `hcl:"pad_width,optional"`
	Workers     int      `hcl:"workers,optional"`
}

func buildConfig() (api.Config, error) {
	var cfg api.Config
	if cfgPath != "" {
		var fc fileConfig
		if err := hclsimple.DecodeFile(cfgPath, nil, &fc); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
		cfg.Root = fc.Root
		cfg.Sub = api.Values(fc.Sub...)
		cfg.Ses = api.Values(fc.Ses...)
		cfg.Task = api.Values(fc.Task...)
		cfg.Acq = api.Acqs(fc.Acq...)
		cfg.Derivatives = fc.Derivatives
		cfg.PadWidth = fc.PadWidth
		cfg.Workers = fc.Workers
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if len(derivatives) > 0 {
		cfg.Derivatives = derivatives
	}
	if padWidth > 0 {
		cfg.PadWidth = padWidth
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if cfg.Root == "" {
		return cfg, fmt.Errorf("no dataset root: pass --root or set root in the config file")
	}
	return cfg, nil
}

func openDataset(cmd *cobra.Command) (*catalog.Dataset, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return catalog.New(cmd.Context(), cfg)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
