package filterbits

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Report compares the uniform and Monkey policies for one set of Params.
type Report struct {
	Params Params `json:"params"`

	UniformBits float64 `json:"uniformBits"` // Total filter bits under uniform allocation
	MonkeyBits  int64   `json:"monkeyBits"`  // Total filter bits under Monkey, worst case

	// Totals converted into Params.Unit
	UniformSize float64 `json:"uniformSize"`
	MonkeySize  float64 `json:"monkeySize"`

	// SavingsBits is UniformBits - MonkeyBits; negative when the worst-case
	// Monkey layout costs more than uniform allocation.
	SavingsBits float64 `json:"savingsBits"`

	// Expected wasted run probes for an absent-key lookup under each policy
	UniformExpectedFalsePositives float64 `json:"uniformExpectedFalsePositives"`
	MonkeyExpectedFalsePositives  float64 `json:"monkeyExpectedFalsePositives"`

	Monkey Breakdown `json:"monkey"`
}

// Compare computes both policies for p.
func Compare(p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	uniform, err := TotalBitsUniform(p.EntryCount, p.UniformBits)
	if err != nil {
		return nil, err
	}
	monkey, err := walk(p.MemtableCapacity, p.EntryCount, p.TopLevelBits, p.SizeRatio, p.Decrement)
	if err != nil {
		return nil, err
	}

	// The uniform layout has the same runs as the Monkey one, each paying
	// the same per-run false positive rate.
	runs := 0
	for _, lc := range monkey.Levels {
		runs += lc.Runs
	}

	return &Report{
		Params:                        p,
		UniformBits:                   uniform,
		MonkeyBits:                    monkey.TotalBits,
		UniformSize:                   p.Unit.Convert(uniform),
		MonkeySize:                    p.Unit.Convert(float64(monkey.TotalBits)),
		SavingsBits:                   uniform - float64(monkey.TotalBits),
		UniformExpectedFalsePositives: float64(runs) * FalsePositiveRate(p.UniformBits),
		MonkeyExpectedFalsePositives:  monkey.ExpectedFalsePositives,
		Monkey:                        monkey,
	}, nil
}

// defaultDBLabel names the database of DefaultParams: 64Mi entries of 16
// bytes each.
const defaultDBLabel = "1 GiB db"

// dbLabel describes the database size in the comparison lines.
func (r *Report) dbLabel() string {
	if r.Params.EntryCount == DefaultParams().EntryCount {
		return defaultDBLabel
	}
	return humanize.Comma(r.Params.EntryCount) + "-entry db"
}

// Lines renders the two comparison lines.
func (r *Report) Lines() []string {
	unit := r.Params.Unit.String()
	db := r.dbLabel()
	return []string{
		fmt.Sprintf("Uniform %s with %s bits uses %s %s",
			db, formatBits(r.Params.UniformBits), formatNumber(r.UniformSize), unit),
		fmt.Sprintf("Monkey %s with %s bits uses in worst possible case %s %s",
			db, formatBits(r.Params.TopLevelBits), formatNumber(r.MonkeySize), unit),
	}
}
