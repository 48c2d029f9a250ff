package receiver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"hz.tools/nanosdr/dsp/agc"
)

func baseConfig() Config {
	return Config{
		InputRate:      96000,
		OutputRate:     48000,
		DynamicRangeDB: 70,
		FrameLength:    2048,
		LowCut:         -2800,
		HighCut:        -100,
		Demod:          KindSSB,
		AGC: agc.Params{
			On:          true,
			ThresholdDB: -80,
			SlopeDB:     2,
			DecayMS:     500,
		},
		SquelchDB: -150,
	}
}

func tone(n int, freq, rate float64, amp float32) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		phase := 2 * math.Pi * freq * float64(i) / rate
		out[i] = complex(amp*float32(math.Cos(phase)), amp*float32(math.Sin(phase)))
	}
	return out
}

func TestNewRejectsInputLessThanOutput(t *testing.T) {
	cfg := baseConfig()
	cfg.InputRate = 24000
	cfg.OutputRate = 48000
	_, err := New(cfg)
	require.Error(t, err)
}

func TestProcessGatesBelowSquelch(t *testing.T) {
	cfg := baseConfig()
	cfg.SquelchDB = 0 // effectively never open for a unit-amplitude tone
	r, err := New(cfg)
	require.NoError(t, err)

	in := tone(8192, -1500, cfg.InputRate, 1.0)
	var sawSquelch bool
	for i := 0; i+2048 <= len(in); i += 2048 {
		_, err := r.Process(in[i : i+2048])
		if errors.Is(err, ErrSquelched) {
			sawSquelch = true
		}
	}
	require.True(t, sawSquelch)
	require.True(t, r.Squelched())
}

func TestProcessEmitsAudioAboveSquelch(t *testing.T) {
	cfg := baseConfig()
	r, err := New(cfg)
	require.NoError(t, err)

	in := tone(65536, -1500, cfg.InputRate, 1.0)
	var total int
	for i := 0; i+2048 <= len(in); i += 2048 {
		out, err := r.Process(in[i : i+2048])
		require.False(t, errors.Is(err, ErrSquelched))
		total += len(out)
	}
	require.Greater(t, total, 0)
}

func TestNFMBypassesAGC(t *testing.T) {
	cfg := baseConfig()
	cfg.Demod = KindNFM
	cfg.Bandwidth = 3000
	cfg.LowCut = -8000
	cfg.HighCut = 8000
	cfg.SquelchDB = -150
	r, err := New(cfg)
	require.NoError(t, err)

	in := tone(65536, 1000, cfg.InputRate, 1.0)
	for i := 0; i+2048 <= len(in); i += 2048 {
		_, err := r.Process(in[i : i+2048])
		require.NoError(t, err)
	}
}
