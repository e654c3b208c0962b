package filterbits

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Decrement selects how many filter bits per entry are removed per level
// under the Monkey policy.
type Decrement int

const (
	DecrementLog2 Decrement = iota // level * log2(T)
	DecrementFPR                   // level * log2(T) / ln 2, from FPR(M) = 2^(-M ln 2)
)

// String returns the string representation of Decrement
func (d Decrement) String() string {
	switch d {
	case DecrementLog2:
		return "log2"
	case DecrementFPR:
		return "fpr"
	default:
		return "unknown"
	}
}

// ParseDecrement parses a string into Decrement
func ParseDecrement(s string) (Decrement, error) {
	switch s {
	case "log2", "":
		return DecrementLog2, nil
	case "fpr":
		return DecrementFPR, nil
	default:
		return DecrementLog2, fmt.Errorf("invalid decrement: %s (must be 'log2' or 'fpr')", s)
	}
}

// MarshalJSON implements json.Marshaler for Decrement
func (d Decrement) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler for Decrement
func (d *Decrement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDecrement(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Decrement
func (d *Decrement) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDecrement(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PerLevel returns the number of bits per entry removed for each level of
// depth.
func (d Decrement) PerLevel(sizeRatio int) float64 {
	perLevel := math.Log2(float64(sizeRatio))
	if d == DecrementFPR {
		perLevel /= math.Ln2
	}
	return perLevel
}

// Unit is the unit totals are reported in.
type Unit int

const (
	UnitMiB   Unit = iota // mebibytes: bits / (8 * 1024 * 1024)
	UnitMibit             // mebibits: bits / (1024 * 1024)
)

// String returns the string representation of Unit
func (u Unit) String() string {
	switch u {
	case UnitMiB:
		return "MiB"
	case UnitMibit:
		return "Mibit"
	default:
		return "unknown"
	}
}

// ParseUnit parses a string into Unit
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "MiB", "mib", "":
		return UnitMiB, nil
	case "Mibit", "mibit":
		return UnitMibit, nil
	default:
		return UnitMiB, fmt.Errorf("invalid unit: %s (must be 'MiB' or 'Mibit')", s)
	}
}

// MarshalJSON implements json.Marshaler for Unit
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON implements json.Unmarshaler for Unit
func (u *Unit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseUnit(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Unit
func (u *Unit) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseUnit(value.Value)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MaxBitsPerEntry bounds every bits-per-entry input so that per-level
// products stay representable.
const MaxBitsPerEntry = 1 << 16

// Params holds the inputs of a filter memory calculation
type Params struct {
	MemtableCapacity int64     `json:"memtableCapacity" yaml:"memtableCapacity"` // Entries per memtable flush; level 0 run size
	EntryCount       int64     `json:"entryCount" yaml:"entryCount"`             // Total entries in the database
	SizeRatio        int       `json:"sizeRatio" yaml:"sizeRatio"`               // Fan-out between levels; also runs per level
	UniformBits      float64   `json:"uniformBits" yaml:"uniformBits"`           // Bits per entry under the uniform policy
	TopLevelBits     float64   `json:"topLevelBits" yaml:"topLevelBits"`         // Bits per entry at level 0 under Monkey
	Decrement        Decrement `json:"decrement" yaml:"decrement"`               // Per-level Monkey decrement rule
	Unit             Unit      `json:"unit" yaml:"unit"`                         // Reporting unit
}

// DefaultParams returns the reference configuration: a 64Mi-entry database with a
// 640Ki-entry memtable and size ratio 4, comparing 8 uniform bits against
// 13 top-level Monkey bits.
func DefaultParams() Params {
	return Params{
		MemtableCapacity: 655360,
		EntryCount:       64 * 1024 * 1024,
		SizeRatio:        4,
		UniformBits:      8,
		TopLevelBits:     13,
		Decrement:        DecrementLog2,
		Unit:             UnitMiB,
	}
}

// Validate checks the parameters needed by both policies
func (p *Params) Validate() error {
	if err := validateWalk(p.MemtableCapacity, p.EntryCount, p.SizeRatio); err != nil {
		return err
	}
	if err := validateBits("topLevelBits", p.TopLevelBits); err != nil {
		return err
	}
	if err := validateBits("uniformBits", p.UniformBits); err != nil {
		return err
	}
	if p.Decrement != DecrementLog2 && p.Decrement != DecrementFPR {
		return ErrInvalidParam("decrement", "unknown rule %d", int(p.Decrement))
	}
	if p.Unit != UnitMiB && p.Unit != UnitMibit {
		return ErrInvalidParam("unit", "unknown unit %d", int(p.Unit))
	}
	return nil
}

func validateWalk(memtableCapacity, entryCount int64, sizeRatio int) error {
	if memtableCapacity <= 0 {
		return ErrInvalidParam("memtableCapacity", "must be > 0, got %d", memtableCapacity)
	}
	if entryCount < 0 {
		return ErrInvalidParam("entryCount", "must be >= 0, got %d", entryCount)
	}
	// A ratio of 1 never grows the per-run capacity, so the walk is only
	// meaningful from 2 up.
	if sizeRatio < 2 {
		return ErrInvalidParam("sizeRatio", "must be >= 2, got %d", sizeRatio)
	}
	return nil
}

func validateBits(param string, bits float64) error {
	if math.IsNaN(bits) || math.IsInf(bits, 0) {
		return ErrInvalidParam(param, "must be finite, got %v", bits)
	}
	if bits < 0 {
		return ErrInvalidParam(param, "must be >= 0, got %v", bits)
	}
	if bits > MaxBitsPerEntry {
		return ErrInvalidParam(param, "must be <= %d, got %v", MaxBitsPerEntry, bits)
	}
	return nil
}
