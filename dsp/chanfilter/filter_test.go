package chanfilter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureRejectsCrossedCutoffs(t *testing.T) {
	_, err := New(Params{LowCut: 1000, HighCut: 500, SampleRate: 48000})
	assert.Error(t, err)
}

func TestConfigureRejectsOutOfRangeCutoffs(t *testing.T) {
	_, err := New(Params{LowCut: -30000, HighCut: 30000, SampleRate: 48000})
	assert.Error(t, err)
}

func tone(fs, hz float64, n int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		ph := 2 * math.Pi * hz * float64(i) / fs
		out[i] = complex(float32(math.Cos(ph)), float32(math.Sin(ph)))
	}
	return out
}

func rms(buf []complex64) float64 {
	var sum float64
	for _, s := range buf {
		sum += float64(real(s))*float64(real(s)) + float64(imag(s))*float64(imag(s))
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// PROPERTY (spec.md §8): a tone inside the passband survives within -3 dB;
// a tone well outside the passband is attenuated by >= 60 dB.
func TestPassbandAndStopbandAttenuation(t *testing.T) {
	fs := 48000.0
	f, err := New(Params{LowCut: 300, HighCut: 3000, SampleRate: fs})
	require.NoError(t, err)

	inBand := tone(fs, 1500, FFTSize*6)
	var outBand []complex64
	outBand = f.Process(inBand, outBand)
	require.NotEmpty(t, outBand)
	// skip the first half of the output (filter ramp-up / group delay) for a steady-state read.
	steady := outBand[len(outBand)/2:]
	passGain := rms(steady) / rms(tone(fs, 1500, len(steady)))
	assert.Greater(t, passGain, 0.7, "in-band tone should pass within ~-3dB (gain %v)", passGain)

	f2, err := New(Params{LowCut: 300, HighCut: 3000, SampleRate: fs})
	require.NoError(t, err)
	outOfBand := tone(fs, 10000, FFTSize*6)
	var stopped []complex64
	stopped = f2.Process(outOfBand, stopped)
	require.NotEmpty(t, stopped)
	steadyStop := stopped[len(stopped)/2:]
	stopGain := rms(steadyStop) / rms(tone(fs, 10000, len(steadyStop)))
	assert.Less(t, stopGain, 0.001, "10kHz tone 7kHz outside [300,3000] band must be attenuated >=60dB (gain %v)", stopGain)
}

func TestProcessOutputQuantization(t *testing.T) {
	fs := 48000.0
	f, err := New(Params{LowCut: 300, HighCut: 3000, SampleRate: fs})
	require.NoError(t, err)

	in := make([]complex64, 500)
	var out []complex64
	out = f.Process(in, out)
	assert.Equal(t, 0, len(out), "fewer than one FFT block of input must emit nothing yet")
}
