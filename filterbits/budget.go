package filterbits

import (
	"math"

	"github.com/cockroachdb/errors"
)

// MaxTopLevelBits returns the largest whole number of top-level Monkey bits
// whose worst-case total stays within budgetBits. p.TopLevelBits is ignored.
//
// The total is non-decreasing in the top-level bits, so the answer is found
// by binary search over [0, MaxBitsPerEntry].
func MaxTopLevelBits(p Params, budgetBits float64) (int, error) {
	p.TopLevelBits = 0
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if math.IsNaN(budgetBits) {
		return 0, ErrInvalidParam("budgetBits", "must be a number")
	}

	fits := func(topLevelBits int) (bool, error) {
		b, err := walk(p.MemtableCapacity, p.EntryCount, float64(topLevelBits), p.SizeRatio, p.Decrement)
		if errors.Is(err, ErrOverflow) {
			return false, nil
		} else if err != nil {
			return false, err
		}
		return float64(b.TotalBits) <= budgetBits, nil
	}

	ok, err := fits(0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Wrapf(ErrBudgetTooSmall, "budget %v bits", budgetBits)
	}
	// Invariant: fits(lo) and !fits(hi), or hi is past the search range.
	lo, hi := 0, MaxBitsPerEntry+1
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		ok, err := fits(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}
