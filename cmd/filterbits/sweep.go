package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCmd(opts *options) *cobra.Command {
	var from, to, step float64
	var plot bool
	var plotHeight int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "compare both policies across a range of bits per entry",
		Long: `Evaluates uniform allocation and the Monkey policy for every bits value
in [from, to], using the value as both the uniform bits per entry and the
Monkey top-level bits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.params(cmd)
			if err != nil {
				return err
			}
			points, err := filterbits.Sweep(p, from, to, step)
			if err != nil {
				return err
			}
			opts.logger.Debug("sweep complete", zap.Int("points", len(points)))

			unit := p.Unit.String()
			out := cmd.OutOrStdout()
			tbl := tablewriter.NewWriter(out)
			tbl.SetHeader([]string{
				"Bits", "Uniform " + unit, "Monkey " + unit, "Uniform FP/lookup", "Monkey FP/lookup",
			})
			tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
			monkey := make([]float64, len(points))
			for i, pt := range points {
				monkey[i] = p.Unit.Convert(float64(pt.MonkeyBits))
				tbl.Append([]string{
					fmt.Sprintf("%g", pt.Bits),
					fmt.Sprintf("%.3f", p.Unit.Convert(pt.UniformBits)),
					fmt.Sprintf("%.3f", monkey[i]),
					fmt.Sprintf("%.4f", pt.UniformExpectedFalsePositives),
					fmt.Sprintf("%.4f", pt.MonkeyExpectedFalsePositives),
				})
			}
			tbl.Render()

			if plot && len(monkey) > 1 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, asciigraph.Plot(monkey,
					asciigraph.Height(plotHeight),
					asciigraph.Caption(fmt.Sprintf("Monkey worst case (%s) by top-level bits", unit))))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&from, "from", 1, "first bits value")
	cmd.Flags().Float64Var(&to, "to", 16, "last bits value")
	cmd.Flags().Float64Var(&step, "step", 1, "increment between bits values")
	cmd.Flags().BoolVar(&plot, "plot", false, "plot the Monkey totals")
	cmd.Flags().IntVar(&plotHeight, "plot-height", 10, "height of the plot in lines")
	return cmd
}
