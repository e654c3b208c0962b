package filterbits

// SweepPoint compares both policies at one bits-per-entry setting, using the
// same value as the uniform bits and as the Monkey top-level bits.
type SweepPoint struct {
	Bits                          float64 `json:"bits"`
	UniformBits                   float64 `json:"uniformBits"`
	MonkeyBits                    int64   `json:"monkeyBits"`
	UniformExpectedFalsePositives float64 `json:"uniformExpectedFalsePositives"`
	MonkeyExpectedFalsePositives  float64 `json:"monkeyExpectedFalsePositives"`
}

const maxSweepPoints = 10000

// Sweep evaluates both policies for every bits value in [from, to] in
// increments of step. p.UniformBits and p.TopLevelBits are ignored.
func Sweep(p Params, from, to, step float64) ([]SweepPoint, error) {
	if err := validateBits("from", from); err != nil {
		return nil, err
	}
	if err := validateBits("to", to); err != nil {
		return nil, err
	}
	if to < from {
		return nil, ErrInvalidParam("to", "must be >= from (%v), got %v", from, to)
	}
	if !(step > 0) {
		return nil, ErrInvalidParam("step", "must be > 0, got %v", step)
	}
	if (to-from)/step >= maxSweepPoints {
		return nil, ErrInvalidParam("step", "too small: more than %d points", maxSweepPoints)
	}

	var points []SweepPoint
	// Index-based stepping avoids accumulating float error.
	for i := 0; ; i++ {
		bits := from + float64(i)*step
		if bits > to {
			break
		}
		p.UniformBits = bits
		p.TopLevelBits = bits
		r, err := Compare(p)
		if err != nil {
			return nil, err
		}
		points = append(points, SweepPoint{
			Bits:                          bits,
			UniformBits:                   r.UniformBits,
			MonkeyBits:                    r.MonkeyBits,
			UniformExpectedFalsePositives: r.UniformExpectedFalsePositives,
			MonkeyExpectedFalsePositives:  r.MonkeyExpectedFalsePositives,
		})
	}
	return points, nil
}
