package nco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// PROPERTY: for any tuning frequency f and sample rate fs, after n samples
// |o| stays in [0.99, 1.01] (spec.md §8, amplitude-stability test).
func TestPropertyAmplitudeStability(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fs := rapid.Float64Range(8000, 20_000_000).Draw(rt, "fs")
		f := rapid.Float64Range(-fs/2, fs/2).Draw(rt, "f")
		n := rapid.IntRange(1, 20000).Draw(rt, "n")

		tr := New(fs)
		tr.SetFrequency(f)

		buf := make([]complex64, n)
		for i := range buf {
			buf[i] = 1
		}
		tr.Process(buf)

		amp := tr.Amplitude()
		if amp < 0.99 || amp > 1.01 {
			rt.Fatalf("amplitude drifted to %f after %d samples (fs=%f f=%f)", amp, n, fs, f)
		}
	})
}

func TestZeroFrequencyIsIdentity(t *testing.T) {
	tr := New(48000)
	tr.SetFrequency(0)

	in := []complex64{1 + 2i, 3 - 4i, 0.5 + 0.5i}
	buf := append([]complex64{}, in...)
	tr.Process(buf)

	// No rotation at 0 Hz; the 1.99-|o|^2 amplitude correction keeps |o| in
	// [0.99, 1.0], so each component is the input scaled by that factor.
	for i := range in {
		assert.InEpsilon(t, real(in[i]), real(buf[i]), 0.011)
		assert.InEpsilon(t, imag(in[i]), imag(buf[i]), 0.011)
	}
}
