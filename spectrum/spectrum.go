// Package spectrum implements the cadence-driven FFT thread (spec.md
// §4.12, C12), grounded on fft_thread.cpp: a private loop wakes at a fixed
// cadence, checks whether the configured FFT rate's period has elapsed,
// and if so pulls fft_size samples from its input queue, runs the
// windowed forward transform, and latches the result in a single-slot
// output consumers drain with TryOutput.
package spectrum

import (
	"sync"
	"time"

	"hz.tools/nanosdr/dsp/fft"
)

// tick is how often the producer loop wakes to check the fft-rate clock,
// matching fft_thread.cpp's usleep(1000).
const tick = time.Millisecond

// Settings configures the FFT thread (spec.md §3).
type Settings struct {
	FFTSize uint32
	FFTRate uint32 // Hz; emissions per second
}

// Stats mirrors fft_thread.h's fft_stats: monotonically increasing
// counters since the last ResetStats.
type Stats struct {
	SamplesIn  uint64
	SamplesOut uint64
	Underruns  uint64
}

// Thread is the FFT spectrum producer. The zero value is not usable; use
// New.
type Thread struct {
	settings Settings
	period   time.Duration

	accum *fft.SpectrumAccumulator

	mu         sync.Mutex
	stats      Stats
	output     []complex64
	haveOutput bool

	stop chan struct{}
	done chan struct{}
}

// New builds a Thread from an already-planned FFT engine and the cadence
// settings; the engine's size must equal s.FFTSize.
func New(engine *fft.Engine, s Settings) *Thread {
	period := time.Second
	if s.FFTRate > 0 {
		period = time.Second / time.Duration(s.FFTRate)
	}
	return &Thread{
		settings: s,
		period:   period,
		accum:    fft.NewSpectrumAccumulator(engine),
		output:   make([]complex64, s.FFTSize),
	}
}

// AddInput feeds newly captured (pre-decimation) samples into the
// accumulator; it is safe to call from the pipeline thread while the FFT
// thread's own loop is running, since SpectrumAccumulator owns no shared
// mutable state beyond its internal ring buffer.
func (t *Thread) AddInput(samples []complex64) {
	t.accum.Append(samples)
	t.mu.Lock()
	t.stats.SamplesIn += uint64(len(samples))
	t.mu.Unlock()
}

// TryOutput returns the most recently latched spectrum and clears the
// slot, or (nil, false) if no new spectrum is available since the last
// call — in which case the underrun counter is incremented, matching
// get_fft_output's contract.
func (t *Thread) TryOutput() ([]complex64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveOutput {
		t.stats.Underruns++
		return nil, false
	}
	t.haveOutput = false
	t.stats.SamplesOut += uint64(len(t.output))
	out := make([]complex64, len(t.output))
	copy(out, t.output)
	return out, true
}

// Stats returns a snapshot of the thread's counters.
func (t *Thread) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// ResetStats zeroes the counters.
func (t *Thread) ResetStats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Stats{}
}

// Start launches the producer loop in a new goroutine. Stop must be
// called to release it.
func (t *Thread) Start() {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run()
}

// Stop terminates the producer loop and waits for it to exit, matching
// fft_thread.cpp's "running = false observed at the top of the loop"
// termination contract.
func (t *Thread) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
}

func (t *Thread) run() {
	defer close(t.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			if now.Sub(last) < t.period {
				continue
			}
			if !t.accum.TryTransform(t.output) {
				continue
			}
			t.mu.Lock()
			t.haveOutput = true
			t.mu.Unlock()
			last = now
		}
	}
}
