package filterbits

import "math"

// BitsPerEntryMonkey returns the filter bits per entry assigned to entries at
// the given level under the Monkey policy:
//
//	ceil(max(0, topLevelBits - level*log2(sizeRatio)))
//
// Level 0 gets ceil(topLevelBits). Deeper levels hold exponentially more but
// colder entries, so each level gives up log2(sizeRatio) bits per entry.
// Fractional bits are rounded up and the result never goes below zero.
func BitsPerEntryMonkey(topLevelBits float64, level int, sizeRatio int) (int64, error) {
	return DecrementLog2.BitsPerEntry(topLevelBits, level, sizeRatio)
}

// BitsPerEntry is BitsPerEntryMonkey with the per-level decrement chosen by d.
func (d Decrement) BitsPerEntry(topLevelBits float64, level int, sizeRatio int) (int64, error) {
	if err := validateBits("topLevelBits", topLevelBits); err != nil {
		return 0, err
	}
	if level < 0 {
		return 0, ErrInvalidParam("level", "must be >= 0, got %d", level)
	}
	if sizeRatio < 1 {
		return 0, ErrInvalidParam("sizeRatio", "must be >= 1, got %d", sizeRatio)
	}
	return d.bitsPerEntry(topLevelBits, level, d.PerLevel(sizeRatio)), nil
}

// bitsPerEntry is the unchecked form used inside the level walk.
func (d Decrement) bitsPerEntry(topLevelBits float64, level int, perLevel float64) int64 {
	return int64(math.Ceil(math.Max(0, topLevelBits-float64(level)*perLevel)))
}

// TotalBitsUniform returns the filter bits used when every entry gets
// bitsPerEntry bits regardless of its level.
func TotalBitsUniform(entryCount int64, bitsPerEntry float64) (float64, error) {
	if entryCount < 0 {
		return 0, ErrInvalidParam("entryCount", "must be >= 0, got %d", entryCount)
	}
	if err := validateBits("bitsPerEntry", bitsPerEntry); err != nil {
		return 0, err
	}
	return float64(entryCount) * bitsPerEntry, nil
}
