package filterbits

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestFalsePositiveRate(t *testing.T) {
	require.Equal(t, 1.0, FalsePositiveRate(0))
	require.Equal(t, 1.0, FalsePositiveRate(-3))
	require.InDelta(t, 0.0082, FalsePositiveRate(10), 1e-4)

	// Every 1/ln2 extra bits halves the rate.
	require.InDelta(t, FalsePositiveRate(8)/2, FalsePositiveRate(8+1/math.Ln2), 1e-12)

	prev := FalsePositiveRate(0)
	for b := 1; b <= 32; b++ {
		fpr := FalsePositiveRate(float64(b))
		if fpr >= prev {
			t.Fatalf("FPR(%d) = %v is not below FPR(%d) = %v", b, fpr, b-1, prev)
		}
		prev = fpr
	}
}

func TestOptimalProbes(t *testing.T) {
	testCases := []struct {
		bits float64
		want uint
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{4, 3},
		{8, 6},
		{10, 7},
		{13, 9},
	}
	for _, tc := range testCases {
		if got := OptimalProbes(tc.bits); got != tc.want {
			t.Errorf("OptimalProbes(%v) = %d, want %d", tc.bits, got, tc.want)
		}
	}
}

func TestMeasureFalsePositiveRate(t *testing.T) {
	for _, bits := range []float64{4, 8, 10} {
		measured, err := MeasureFalsePositiveRate(bits, 20000)
		require.NoError(t, err)

		want := FalsePositiveRate(bits)
		t.Logf("%v bits: measured %s, model %s", bits, FormatFPR(measured), FormatFPR(want))
		// Integer probe counts and hashing keep the real filter close to,
		// but not exactly on, the closed form.
		require.InEpsilon(t, want, measured, 0.5)
	}

	measured, err := MeasureFalsePositiveRate(0, 10)
	require.NoError(t, err)
	require.Equal(t, 1.0, measured)

	_, err = MeasureFalsePositiveRate(8, 0)
	require.Error(t, err)
}

func TestMeasureFalsePositiveRateLimits(t *testing.T) {
	testCases := []struct {
		name       string
		bits       float64
		sampleSize int
	}{
		{"sample too large", 8, MaxSampleSize + 1},
		{"sample overflows queries", 8, math.MaxInt},
		{"filter too large", MaxBitsPerEntry, 1 << 20},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := MeasureFalsePositiveRate(tc.bits, tc.sampleSize)
			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			require.Equal(t, "sampleSize", pe.Param)
			require.True(t, errors.Is(err, ErrInvalidParams))
		})
	}
}

func TestFormatFPR(t *testing.T) {
	testCases := []struct {
		fpr  float64
		want string
	}{
		{0.5, "50% (1 in 2)"},
		{0.02, "2.0% (1 in 50)"},
		{0.0082, "0.82% (1 in 122)"},
		{0.0001, "0.010% (1 in 10000)"},
		{0, "0%"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, FormatFPR(tc.fpr))
	}
}
