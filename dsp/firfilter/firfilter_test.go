package firfilter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, freq, rate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Cos(2 * math.Pi * freq * float64(i) / rate))
	}
	return out
}

func rms(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestLowPassPassesInBandTone(t *testing.T) {
	const rate = 48000.0
	f := NewLowPass(rate, 3000, 5000, 60)

	in := tone(8192, 500, rate)
	var out []float32
	for i := 0; i+256 <= len(in); i += 256 {
		out = append(out, f.Process(in[i:i+256], nil)...)
	}

	// settle past the filter's group delay before comparing levels.
	settle := f.Len() * 2
	require.Greater(t, len(out), settle+1000)
	assert.InDelta(t, rms(in[:1000]), rms(out[settle:settle+1000]), 0.15)
}

func TestLowPassAttenuatesOutOfBandTone(t *testing.T) {
	const rate = 48000.0
	f := NewLowPass(rate, 3000, 5000, 60)

	in := tone(8192, 15000, rate)
	var out []float32
	for i := 0; i+256 <= len(in); i += 256 {
		out = append(out, f.Process(in[i:i+256], nil)...)
	}

	settle := f.Len() * 2
	require.Greater(t, len(out), settle+1000)
	assert.Less(t, rms(out[settle:settle+1000]), 0.1*rms(in[:1000]))
}

func TestNewLowPassOddTapCount(t *testing.T) {
	f := NewLowPass(48000, 3000, 5000, 60)
	assert.Equal(t, 1, f.Len()%2)
}
