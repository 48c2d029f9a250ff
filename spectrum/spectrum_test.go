package spectrum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hz.tools/nanosdr/dsp/fft"
)

func TestTryOutputUnderrunsWhenEmpty(t *testing.T) {
	engine, err := fft.NewEngine(fft.MinSize)
	require.NoError(t, err)

	th := New(engine, Settings{FFTSize: fft.MinSize, FFTRate: 20})
	_, ok := th.TryOutput()
	require.False(t, ok)
	require.EqualValues(t, 1, th.Stats().Underruns)
}

func TestStartProducesSpectrumAfterEnoughSamples(t *testing.T) {
	engine, err := fft.NewEngine(fft.MinSize)
	require.NoError(t, err)

	th := New(engine, Settings{FFTSize: fft.MinSize, FFTRate: 50})
	th.Start()
	defer th.Stop()

	samples := make([]complex64, fft.MinSize)
	for i := range samples {
		samples[i] = complex(1, 0)
	}
	th.AddInput(samples)

	deadline := time.After(2 * time.Second)
	for {
		if out, ok := th.TryOutput(); ok {
			require.Len(t, out, fft.MinSize)
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a spectrum")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
