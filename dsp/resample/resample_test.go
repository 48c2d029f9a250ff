package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampleIdentityRateProducesSameCount(t *testing.T) {
	r := New()
	in := make([]complex64, 200)
	for i := range in {
		in[i] = complex(float32(i%5), 0)
	}
	var out []complex64
	out = r.Resample(in, 1.0, out)
	// rate 1.0 should produce approximately len(in) outputs (+/- 1 from
	// the fractional-time accumulator settling).
	require.InDelta(t, len(in), len(out), 2)
}

func TestResampleDownsampleHalvesCount(t *testing.T) {
	r := New()
	in := make([]complex64, 400)
	for i := range in {
		in[i] = complex(float32(i%7), 0)
	}
	var out []complex64
	out = r.Resample(in, 2.0, out)
	assert.InDelta(t, len(in)/2, len(out), 2)
}
