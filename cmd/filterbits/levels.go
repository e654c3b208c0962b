package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/miretskiy/bloombudget/filterbits"
	"github.com/olekukonko/tablewriter"
)

// renderLevels prints the per-level Monkey breakdown of r.
func renderLevels(w io.Writer, r *filterbits.Report) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Level", "Runs", "Run capacity", "Entries", "Bits/entry", "Filter size", "FPR"})
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, lc := range r.Monkey.Levels {
		tbl.Append([]string{
			fmt.Sprintf("L%d", lc.Level),
			fmt.Sprintf("%d", lc.Runs),
			humanize.Comma(lc.RunCapacity),
			humanize.Comma(lc.Entries),
			fmt.Sprintf("%d", lc.BitsPerEntry),
			humanize.IBytes(filterbits.Bytes(lc.Bits)),
			filterbits.FormatFPR(lc.FalsePositiveRate),
		})
	}
	tbl.SetFooter([]string{
		"total", "", "",
		humanize.Comma(r.Monkey.EntriesConsumed),
		"",
		humanize.IBytes(filterbits.Bytes(r.Monkey.TotalBits)),
		fmt.Sprintf("%.4f", r.Monkey.ExpectedFalsePositives),
	})
	tbl.Render()
}
