package smeter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessComputesRMSdB(t *testing.T) {
	m := New()
	samples := make([]complex64, 1000)
	for i := range samples {
		samples[i] = complex(1, 0) // |x|^2 = 1 throughout
	}
	got := m.Process(samples)
	assert.InDelta(t, 0.0, got, 1e-6) // 10*log10(1+eps) ~= 0
}

func TestSquelchGatesBelowThreshold(t *testing.T) {
	m := New()
	quiet := make([]complex64, 100) // all zero -> very negative dB
	m.Process(quiet)
	assert.True(t, m.Squelched(-60))

	loud := make([]complex64, 100)
	for i := range loud {
		loud[i] = complex(10, 0)
	}
	m.Process(loud)
	assert.False(t, m.Squelched(-60))
	assert.Greater(t, m.SignalPower(), 10*math.Log10(50.0))
}
