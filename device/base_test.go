package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hz.tools/sdr"
)

// TestPushSamplesCountsOverrunOnOverwrite grounds spec.md end-to-end
// scenario 4 (overflow counting): once the ring buffer is full, every
// further push overwrites oldest data and the amount dropped must show up
// in Stats().RXOverruns.
func TestPushSamplesCountsOverrunOnOverwrite(t *testing.T) {
	var b Base
	b.Init(10, 0, 0) // 10 Hz rate -> ringBufferMS gives a tiny (but >=1) buffer
	bufCap := b.buf.Cap()

	full := make([]complex64, bufCap)
	b.PushSamples(full)
	assert.Equal(t, uint64(0), b.Stats().RXOverruns)

	overflow := make([]complex64, bufCap)
	b.PushSamples(overflow)
	assert.Equal(t, uint64(bufCap), b.Stats().RXOverruns)
}

func TestReadSamplesReturnsZeroWhenUnderFull(t *testing.T) {
	var b Base
	b.Init(1000, 0, 0)
	b.PushSamples(make([]complex64, 3))

	buf := make(sdr.SamplesC64, 10)
	n, err := b.ReadSamples(buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestResetStatsZeroesCounters(t *testing.T) {
	var b Base
	b.Init(10, 0, 0)
	b.PushSamples(make([]complex64, b.buf.Cap()))
	b.PushSamples(make([]complex64, b.buf.Cap()))
	assert.NotZero(t, b.Stats().RXOverruns)

	b.ResetStats()
	assert.Equal(t, Stats{}, b.Stats())
}
