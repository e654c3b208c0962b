package filterbits

import (
	"strconv"
	"strings"
)

const (
	bitsPerByte = 8
	mebi        = 1024 * 1024
)

// Convert converts a bit count into u.
func (u Unit) Convert(bits float64) float64 {
	if u == UnitMibit {
		return bits / mebi
	}
	return bits / (bitsPerByte * mebi)
}

// BitsToMiB converts a bit count into mebibytes.
func BitsToMiB(bits float64) float64 {
	return UnitMiB.Convert(bits)
}

// Bytes returns the whole number of bytes needed to hold bits.
func Bytes(bits int64) uint64 {
	return uint64((bits + bitsPerByte - 1) / bitsPerByte)
}

// formatNumber renders v in its shortest round-tripping form, keeping one
// decimal for integral values ("64.0", not "64").
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// formatBits renders a bits-per-entry input without a trailing ".0" so
// whole budgets read as "8 bits".
func formatBits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
