package filterbits

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bloom/v3"
)

// FalsePositiveRate returns the false positive rate of a Bloom filter with
// bitsPerEntry bits per entry and an optimal number of probes:
//
//	FPR(b) = e^(-b (ln 2)^2) = 2^(-b ln 2)
//
// Zero bits means no filter, so every probe passes.
func FalsePositiveRate(bitsPerEntry float64) float64 {
	if bitsPerEntry <= 0 {
		return 1
	}
	return math.Exp(-bitsPerEntry * math.Ln2 * math.Ln2)
}

// OptimalProbes returns the number of hash probes that minimizes the false
// positive rate for bitsPerEntry, b*ln 2 rounded, and at least one.
func OptimalProbes(bitsPerEntry float64) uint {
	return uint(max(1, math.Round(bitsPerEntry*math.Ln2)))
}

const (
	// measureQueriesPerEntry is how many absent keys are probed per inserted key.
	measureQueriesPerEntry = 10
	// MaxSampleSize bounds the keys inserted into a measured filter.
	MaxSampleSize = 1 << 24
	// maxMeasureFilterBits bounds the measured filter to 512 MiB.
	maxMeasureFilterBits = 1 << 32
)

// MeasureFalsePositiveRate builds a real Bloom filter sized at bitsPerEntry
// bits for sampleSize keys, probes it with keys that were never added, and
// returns the observed false positive rate.
func MeasureFalsePositiveRate(bitsPerEntry float64, sampleSize int) (float64, error) {
	if err := validateBits("bitsPerEntry", bitsPerEntry); err != nil {
		return 0, err
	}
	if sampleSize <= 0 || sampleSize > MaxSampleSize {
		return 0, ErrInvalidParam("sampleSize", "must be in (0, %d], got %d", MaxSampleSize, sampleSize)
	}
	if bitsPerEntry == 0 {
		return 1, nil
	}
	filterBits := math.Ceil(bitsPerEntry * float64(sampleSize))
	if filterBits > maxMeasureFilterBits {
		return 0, ErrInvalidParam("sampleSize",
			"%d keys at %s bits per entry need more than %d filter bits",
			sampleSize, formatBits(bitsPerEntry), maxMeasureFilterBits)
	}
	m := uint(filterBits)
	f := bloom.New(m, OptimalProbes(bitsPerEntry))

	var key [8]byte
	for i := 0; i < sampleSize; i++ {
		binary.BigEndian.PutUint64(key[:], uint64(i))
		f.Add(key[:])
	}
	queries := sampleSize * measureQueriesPerEntry
	positives := 0
	for i := 0; i < queries; i++ {
		binary.BigEndian.PutUint64(key[:], uint64(sampleSize+i))
		if f.Test(key[:]) {
			positives++
		}
	}
	return float64(positives) / float64(queries), nil
}

// FormatFPR formats a false positive rate as a percentage with a "1 in N"
// ratio.
func FormatFPR(fpr float64) string {
	if fpr <= 0 {
		return "0%"
	}
	ratio := int64(math.Round(1.0 / fpr))
	switch {
	case fpr >= 0.1:
		return fmt.Sprintf("%.0f%% (1 in %d)", fpr*100, ratio)
	case fpr >= 0.01:
		return fmt.Sprintf("%.1f%% (1 in %d)", fpr*100, ratio)
	case fpr >= 0.001:
		return fmt.Sprintf("%.2f%% (1 in %d)", fpr*100, ratio)
	default:
		return fmt.Sprintf("%.3f%% (1 in %d)", fpr*100, ratio)
	}
}
