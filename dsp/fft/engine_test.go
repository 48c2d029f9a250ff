package fft

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewEngineRejectsBadSizes(t *testing.T) {
	for _, n := range []int{0, 1, 511, 513, 65537, 100} {
		_, err := NewEngine(n)
		assert.Errorf(t, err, "size %d should be rejected", n)
	}
}

// PROPERTY: forward then inverse FFT of a random complex vector reproduces
// it within 1e-5*(1+|x|) per component (spec.md §8), once the 1/N factor
// that the unnormalized inverse transform leaves out is applied.
func TestPropertyForwardInverseRoundTrip(t *testing.T) {
	e, err := NewEngine(MinSize)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		n := e.Size()
		src := make([]complex64, n)
		for i := range src {
			re := rapid.Float32Range(-1, 1).Draw(rt, "re")
			im := rapid.Float32Range(-1, 1).Draw(rt, "im")
			src[i] = complex(re, im)
		}

		freq := make([]complex64, n)
		require.NoError(t, e.Forward(freq, src))

		back := make([]complex64, n)
		require.NoError(t, e.Inverse(back, freq))

		for i := range back {
			got := complex128(back[i]) / complex(float64(n), 0)
			want := complex128(src[i])
			if cmplx.Abs(got-want) > 1e-5*(1+cmplx.Abs(want)) {
				rt.Fatalf("component %d: got %v want %v", i, got, want)
			}
		}
	})
}

func TestSpectrumAccumulatorEmptyUntilFull(t *testing.T) {
	e, err := NewEngine(MinSize)
	require.NoError(t, err)
	acc := NewSpectrumAccumulator(e)

	dst := make([]complex64, e.Size())
	acc.Append(make([]complex64, e.Size()-1))
	assert.False(t, acc.TryTransform(dst), "must be empty before fft_size samples accumulate")

	acc.Append(make([]complex64, 1))
	assert.True(t, acc.TryTransform(dst))
}

func TestHannWindowGainTwoPeak(t *testing.T) {
	w := HannWindow(1024)
	// center tap of a Hann window is ~1.0 before the gain-2 scale, so the
	// gain-2 window should peak near 2.0.
	mid := w[512]
	assert.InDelta(t, 2.0, mid, 0.01)
	assert.InDelta(t, 0.0, w[0], 1e-6)
}
