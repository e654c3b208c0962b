package main

import (
	"fmt"

	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFPRCmd(opts *options) *cobra.Command {
	var sampleSize int

	cmd := &cobra.Command{
		Use:   "fpr",
		Short: "per-level false positive rates, modeled and measured",
		Long: `For every level of the worst-case Monkey layout, prints the Bloom filter
false positive rate predicted by e^(-b (ln 2)^2) next to the rate measured on
a real filter built with the same bits per entry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.params(cmd)
			if err != nil {
				return err
			}
			b, err := filterbits.Walk(p)
			if err != nil {
				return err
			}

			tbl := tablewriter.NewWriter(cmd.OutOrStdout())
			tbl.SetHeader([]string{"Level", "Bits/entry", "Probes", "Model FPR", "Measured FPR"})
			tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
			for _, lc := range b.Levels {
				measured, err := filterbits.MeasureFalsePositiveRate(float64(lc.BitsPerEntry), sampleSize)
				if err != nil {
					return err
				}
				opts.logger.Debug("measured level",
					zap.Int("level", lc.Level),
					zap.Float64("model", lc.FalsePositiveRate),
					zap.Float64("measured", measured))
				tbl.Append([]string{
					fmt.Sprintf("L%d", lc.Level),
					fmt.Sprintf("%d", lc.BitsPerEntry),
					probesCell(lc.BitsPerEntry),
					filterbits.FormatFPR(lc.FalsePositiveRate),
					filterbits.FormatFPR(measured),
				})
			}
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&sampleSize, "sample", 20000, "keys inserted into each measured filter")
	return cmd
}

// probesCell shows "-" for levels that get no filter at all.
func probesCell(bitsPerEntry int64) string {
	if bitsPerEntry == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", filterbits.OptimalProbes(float64(bitsPerEntry)))
}
