package main

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBudgetCmd(opts *options) *cobra.Command {
	var budget string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "find the most top-level Monkey bits that fit a memory budget",
		Long: `Finds the largest whole number of top-level bits whose worst-case Monkey
filter total fits within the budget. The budget is a byte size such as
"64MB" (binary units) and defaults to what uniform allocation uses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.params(cmd)
			if err != nil {
				return err
			}

			var budgetBits float64
			if budget == "" {
				if budgetBits, err = filterbits.TotalBitsUniform(p.EntryCount, p.UniformBits); err != nil {
					return err
				}
			} else {
				var size datasize.ByteSize
				if err := size.UnmarshalText([]byte(budget)); err != nil {
					return errors.Wrapf(err, "parsing --budget %q", budget)
				}
				budgetBits = float64(uint64(size)) * 8
			}

			bits, err := filterbits.MaxTopLevelBits(p, budgetBits)
			if err != nil {
				return err
			}
			p.TopLevelBits = float64(bits)
			b, err := filterbits.Walk(p)
			if err != nil {
				return err
			}
			opts.logger.Debug("budget search complete",
				zap.Float64("budgetBits", budgetBits), zap.Int("topLevelBits", bits))

			fmt.Fprintf(cmd.OutOrStdout(),
				"Budget %s fits Monkey with %d top-level bits, using %s in worst possible case\n",
				humanize.IBytes(uint64(budgetBits/8)), bits, humanize.IBytes(filterbits.Bytes(b.TotalBits)))
			return nil
		},
	}
	cmd.Flags().StringVar(&budget, "budget", "",
		"memory budget for all filters, e.g. 64MB (default: the uniform policy's total)")
	return cmd
}
