package sched

import (
	"encoding/binary"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hz.tools/nanosdr/device" // init() registers the "file" backend
	"hz.tools/nanosdr/dsp/agc"
	"hz.tools/nanosdr/receiver"
	"hz.tools/nanosdr/spectrum"
)

type captureSink struct {
	mu    sync.Mutex
	total int
}

func (c *captureSink) Write(samples []int16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += len(samples)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// recordingSink keeps every sample written, for dominant-frequency checks.
type recordingSink struct {
	mu      sync.Mutex
	samples []int16
}

func (r *recordingSink) Write(samples []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, samples...)
	return nil
}

func (r *recordingSink) all() []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int16, len(r.samples))
	copy(out, r.samples)
	return out
}

// dominantFreq estimates a periodic signal's frequency from its mean
// zero-crossing interval, robust to the coarse bin resolution a short FFT
// would give at audio sample rates.
func dominantFreq(samples []int16, rate float64) float64 {
	var crossings int
	var firstIdx, lastIdx int = -1, -1
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			if firstIdx == -1 {
				firstIdx = i
			}
			lastIdx = i
			crossings++
		}
	}
	if crossings < 2 || lastIdx == firstIdx {
		return 0
	}
	// two zero crossings per period
	periods := float64(crossings-1) / 2
	return periods * rate / float64(lastIdx-firstIdx)
}

func writeToneFile(t *testing.T, rate float64, freq float64, seconds float64) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "tone-*.iq")
	require.NoError(t, err)
	defer f.Close()

	n := int(rate * seconds)
	buf := make([]byte, 8)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * freq * float64(i) / rate
		re := float32(0.5 * math.Cos(phase))
		im := float32(0.5 * math.Sin(phase))
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(re))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(im))
		_, err := f.Write(buf)
		require.NoError(t, err)
	}
	return f.Name()
}

// writeFMToneFile writes an interleaved float32 I/Q file carrying a
// frequency-modulated single tone: instantaneous frequency deviates
// sinusoidally by devHz at a modHz rate around the file's baseband center
// (spec.md end-to-end scenario 1's "5 kHz deviation, 1 kHz modulating
// tone" source).
func writeFMToneFile(t *testing.T, rate, devHz, modHz, seconds float64) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "fm-*.iq")
	require.NoError(t, err)
	defer f.Close()

	n := int(rate * seconds)
	buf := make([]byte, 8)
	var phase float64
	for i := 0; i < n; i++ {
		instFreq := devHz * math.Sin(2*math.Pi*modHz*float64(i)/rate)
		phase += 2 * math.Pi * instFreq / rate
		re := float32(0.5 * math.Cos(phase))
		im := float32(0.5 * math.Sin(phase))
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(re))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(im))
		_, err := f.Write(buf)
		require.NoError(t, err)
	}
	return f.Name()
}

// TestSchedulerFMBroadcastScenarioRecoversModulatingTone exercises spec.md's
// end-to-end scenario 1: a wide-filter NFM demod of a single-tone FM source
// (5 kHz deviation, 1 kHz modulating tone) should recover audio whose
// dominant spectral component sits at 1 kHz. This scenario name refers to
// the FM-broadcast *test signal*, not to stereo/wideband multiplex
// decoding (that demodulator is out of scope; see DESIGN.md's final trim
// pass) — a wide-channel receiver.KindNFM path is exactly what the scenario
// calls for.
func TestSchedulerFMBroadcastScenarioRecoversModulatingTone(t *testing.T) {
	const quadRate = 240000
	const outputRate = 48000
	path := writeFMToneFile(t, quadRate, 5000, 1000, 0.5)

	sink := &recordingSink{}
	s := New(sink)

	cfg := Config{
		Device: device.Config{
			Type: "file",
			Path: path,
			Rate: quadRate,
		},
		Receiver: receiver.Config{
			OutputRate:     outputRate,
			DynamicRangeDB: 70,
			FrameLength:    2048,
			// 240 kHz input decimates by 2 to a 120 kHz quadrature rate, and
			// chanfilter requires both cutoffs inside (-60 kHz, +60 kHz).
			LowCut:         -50000,
			HighCut:        50000,
			Bandwidth:      150000,
			Demod:          receiver.KindNFM,
			AGC:            agc.Params{On: true, ThresholdDB: -80, SlopeDB: 2, DecayMS: 500},
			SquelchDB:      -150,
		},
		FFT: spectrum.Settings{FFTSize: 512, FFTRate: 20},
	}
	require.NoError(t, s.Start(cfg))

	time.Sleep(400 * time.Millisecond)
	require.NoError(t, s.Stop())

	stats := s.Stats()
	require.Greater(t, stats.SamplesOut, uint64(0))

	samples := sink.all()
	require.NotEmpty(t, samples)
	freq := dominantFreq(samples, outputRate)
	require.InDelta(t, 1000, freq, 100)
}

func TestSchedulerRunsFileBackendEndToEnd(t *testing.T) {
	path := writeToneFile(t, 48000, 1500, 1.0)

	sink := &captureSink{}
	s := New(sink)

	cfg := Config{
		Device: device.Config{
			Type: "file",
			Path: path,
			Rate: 48000,
		},
		Receiver: receiver.Config{
			OutputRate:     24000,
			DynamicRangeDB: 70,
			FrameLength:    1024,
			LowCut:         -8000,
			HighCut:        8000,
			Demod:          receiver.KindSSB,
			AGC:            agc.Params{On: true, ThresholdDB: -80, SlopeDB: 2, DecayMS: 500},
			SquelchDB:      -150,
		},
		FFT: spectrum.Settings{FFTSize: 512, FFTRate: 20},
	}
	require.NoError(t, s.Start(cfg))

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, s.Stop())

	stats := s.Stats()
	require.Greater(t, stats.SamplesIn, uint64(0))
}
