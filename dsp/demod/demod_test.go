package demod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAMEnvelopeTracksMagnitude(t *testing.T) {
	d := NewAM(48000, 5000)
	in := make([]complex64, 20000)
	for i := range in {
		in[i] = 3 + 4i
	}
	var out []float32
	out = d.Process(in, out)
	// after the DC-block IIR and post-demod LPF settle, a constant-magnitude
	// input drives output toward zero (DC is blocked), not toward the raw
	// magnitude 5.
	assert.Less(t, math.Abs(float64(out[len(out)-1])), 0.5)
}

// TestAMPostDemodFilterAttenuatesAboveBandwidth grounds spec.md §4.7's "then
// post-filter with a linear-phase LPF at the user bandwidth": AM-modulating
// a tone above the configured bandwidth must come out attenuated relative
// to one inside it.
func TestAMPostDemodFilterAttenuatesAboveBandwidth(t *testing.T) {
	const fs = 48000.0
	const bandwidth = 3000.0

	amTone := func(modFreq float64) []float32 {
		d := NewAM(fs, bandwidth)
		n := 8192
		in := make([]complex64, n)
		for i := range in {
			env := 1 + 0.5*math.Cos(2*math.Pi*modFreq*float64(i)/fs)
			in[i] = complex(float32(env), 0)
		}
		var out []float32
		return d.Process(in, out)
	}

	inBand := amTone(1000)
	outOfBand := amTone(15000)

	rms := func(x []float32) float64 {
		var sum float64
		for _, v := range x[len(x)-2000:] {
			sum += float64(v) * float64(v)
		}
		return math.Sqrt(sum / 2000)
	}

	assert.Less(t, rms(outOfBand), 0.3*rms(inBand))
}

func TestSSBPassesRealPart(t *testing.T) {
	d := NewSSB()
	in := []complex64{1 + 2i, -3 + 4i, 0.5 - 1i}
	var out []float32
	out = d.Process(in, out)
	assert.Equal(t, []float32{1, -3, 0.5}, out)
}

// PROPERTY (spec.md §4.7): the NFM PLL frequency term never exceeds the
// configured lock range.
func TestNFMStaysWithinLockRange(t *testing.T) {
	fs := 48000.0
	d := NewNFM(fs, 3000)

	n := 5000
	in := make([]complex64, n)
	for i := range in {
		ph := 2 * math.Pi * 2000.0 * float64(i) / fs
		in[i] = complex(float32(math.Cos(ph)), float32(math.Sin(ph)))
	}
	var out []float32
	out = d.Process(in, out)
	assert.Len(t, out, n)

	limit := float32(maxFMOut) * 1.01
	for _, v := range out {
		assert.LessOrEqual(t, v, limit)
		assert.GreaterOrEqual(t, v, -limit)
	}
}

func TestAPTUsesWiderLockRange(t *testing.T) {
	d := NewAPT(48000, 3000)
	assert.Equal(t, APTRange, d.rangeHz)
}
