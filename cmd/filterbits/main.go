package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the flag values shared by every command.
type options struct {
	configFile string
	verbose    bool

	memtableCapacity int64
	entryCount       int64
	sizeRatio        int
	uniformBits      float64
	topLevelBits     float64
	decrement        string
	unit             string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var showLevels, jsonOut bool

	rootCmd := &cobra.Command{
		Use:   "filterbits [command] (flags)",
		Short: "Bloom filter memory calculator for LSM trees",
		Long: `Compares the total Bloom filter bits of an LSM tree under uniform
allocation and under the Monkey policy, which gives deeper levels fewer bits
per entry. Entries are placed in the worst case: every level is filled before
spilling into the next.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.params(cmd)
			if err != nil {
				return err
			}
			r, err := filterbits.Compare(p)
			if err != nil {
				return err
			}
			opts.logger.Debug("computed report",
				zap.Float64("uniformBits", r.UniformBits),
				zap.Int64("monkeyBits", r.MonkeyBits),
				zap.Int("levels", len(r.Monkey.Levels)),
				zap.Int64("entriesConsumed", r.Monkey.EntriesConsumed))

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, r)
			}
			for _, line := range r.Lines() {
				fmt.Fprintln(out, line)
			}
			if showLevels {
				fmt.Fprintln(out)
				renderLevels(out, r)
			}
			return nil
		},
	}

	defaults := filterbits.DefaultParams()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "",
		"path to a JSON or YAML parameter file; explicit flags override it")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging to stderr")
	pf.Int64Var(&opts.memtableCapacity, "memtable-capacity", defaults.MemtableCapacity,
		"entries per memtable flush (level 0 run size)")
	pf.Int64VarP(&opts.entryCount, "entries", "n", defaults.EntryCount,
		"total number of entries in the database")
	pf.IntVarP(&opts.sizeRatio, "size-ratio", "t", defaults.SizeRatio,
		"fan-out between levels; also the number of runs per level")
	pf.Float64Var(&opts.uniformBits, "uniform-bits", defaults.UniformBits,
		"bits per entry under uniform allocation")
	pf.Float64Var(&opts.topLevelBits, "top-level-bits", defaults.TopLevelBits,
		"bits per entry at level 0 under the Monkey policy")
	pf.StringVar(&opts.decrement, "decrement", defaults.Decrement.String(),
		"per-level Monkey decrement: 'log2' (level*log2(T)) or 'fpr' (level*log2(T)/ln 2)")
	pf.StringVar(&opts.unit, "unit", defaults.Unit.String(),
		"reporting unit: 'MiB' (bytes) or 'Mibit' (bits)")

	rootCmd.Flags().BoolVar(&showLevels, "levels", false, "print the per-level Monkey breakdown")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full report as JSON")

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		newSweepCmd(opts),
		newBudgetCmd(opts),
		newFPRCmd(opts),
	)
	return rootCmd
}

func (o *options) initLogger() error {
	if !o.verbose {
		o.logger = zap.NewNop()
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	o.logger = logger
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
