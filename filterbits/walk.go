package filterbits

import (
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
)

// LevelCost is the filter cost of one level visited by the walk.
type LevelCost struct {
	Level             int     `json:"level"`
	Runs              int     `json:"runs"`              // Runs touched at this level (<= sizeRatio)
	RunCapacity       int64   `json:"runCapacity"`       // Entries per run, clamped to what was left to place
	Entries           int64   `json:"entries"`           // Entries placed at this level
	BitsPerEntry      int64   `json:"bitsPerEntry"`      // Monkey bits per entry at this level
	Bits              int64   `json:"bits"`              // Entries * BitsPerEntry
	FalsePositiveRate float64 `json:"falsePositiveRate"` // Per-run FPR for BitsPerEntry
}

// Breakdown is the result of the worst-case level walk.
type Breakdown struct {
	Levels          []LevelCost `json:"levels"`
	TotalBits       int64       `json:"totalBits"`
	EntriesConsumed int64       `json:"entriesConsumed"`
	// ExpectedFalsePositives is the sum of per-run false positive rates over
	// every run touched, i.e. the expected number of wasted run probes for a
	// point lookup on a key that is not present.
	ExpectedFalsePositives float64 `json:"expectedFalsePositives"`
}

// TotalBitsMonkey returns the filter bits used under the Monkey policy when
// entryCount entries fill an LSM tree in the worst case: every level is
// filled run by run before anything spills into the next level.
func TotalBitsMonkey(
	memtableCapacity, entryCount int64, topLevelBits float64, sizeRatio int,
) (int64, error) {
	if err := validateWalk(memtableCapacity, entryCount, sizeRatio); err != nil {
		return 0, err
	}
	if err := validateBits("topLevelBits", topLevelBits); err != nil {
		return 0, err
	}
	b, err := walk(memtableCapacity, entryCount, topLevelBits, sizeRatio, DecrementLog2)
	if err != nil {
		return 0, err
	}
	return b.TotalBits, nil
}

// Walk runs the worst-case level walk for p and returns the per-level
// breakdown.
func Walk(p Params) (Breakdown, error) {
	if err := p.Validate(); err != nil {
		return Breakdown{}, err
	}
	return walk(p.MemtableCapacity, p.EntryCount, p.TopLevelBits, p.SizeRatio, p.Decrement)
}

// walk expects validated inputs.
//
// Level l is modeled as sizeRatio runs of memtableCapacity*sizeRatio^l
// entries each. Runs are filled in order; the walk stops as soon as every
// entry has been placed.
func walk(
	memtableCapacity, entryCount int64, topLevelBits float64, sizeRatio int, d Decrement,
) (Breakdown, error) {
	var b Breakdown
	perLevel := d.PerLevel(sizeRatio)
	remaining := entryCount
	runCapacity := memtableCapacity

	for level := 0; remaining > 0; level++ {
		bitsPerEntry := d.bitsPerEntry(topLevelBits, level, perLevel)
		fpr := FalsePositiveRate(float64(bitsPerEntry))
		lc := LevelCost{
			Level:             level,
			RunCapacity:       min(runCapacity, remaining),
			BitsPerEntry:      bitsPerEntry,
			FalsePositiveRate: fpr,
		}
		// Full runs first, then at most one partial run with the remainder.
		full := min(int64(sizeRatio), remaining/runCapacity)
		lc.Entries = full * runCapacity
		remaining -= lc.Entries
		runs := full
		if remaining > 0 && full < int64(sizeRatio) {
			lc.Entries += remaining
			remaining = 0
			runs++
		}
		lc.Runs = int(runs)
		var err error
		if lc.Bits, err = mulInt64(lc.Entries, bitsPerEntry); err != nil {
			return Breakdown{}, err
		}
		total, err := addInt64(b.TotalBits, lc.Bits)
		if err != nil {
			return Breakdown{}, err
		}
		b.TotalBits = total
		b.EntriesConsumed += lc.Entries
		b.ExpectedFalsePositives += float64(lc.Runs) * fpr
		b.Levels = append(b.Levels, lc)

		// Once a run can hold everything that is left, growing it further
		// cannot change the outcome; saturate instead of overflowing.
		if runCapacity <= remaining/int64(sizeRatio) {
			runCapacity *= int64(sizeRatio)
		} else {
			runCapacity = max(runCapacity, remaining)
		}
	}
	return b, nil
}

func mulInt64(a, b int64) (int64, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, errors.Wrapf(ErrOverflow, "%d entries * %d bits", a, b)
	}
	return int64(lo), nil
}

func addInt64(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, errors.Wrapf(ErrOverflow, "%d + %d bits", a, b)
	}
	return a + b, nil
}
