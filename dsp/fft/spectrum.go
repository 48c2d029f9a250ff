package fft

import "hz.tools/nanosdr/ringbuffer"

// SpectrumAccumulator implements the FFT engine's "spectrum mode"
// (spec.md §4.2): samples trickle in from the producer, a gain-2 Hann
// window is applied in-place once fft_size samples have accumulated, and
// TryTransform hands back one windowed forward transform. If fewer than
// Size() samples have been appended, TryTransform returns false and leaves
// the accumulator untouched, matching get_output's "empty" behavior.
type SpectrumAccumulator struct {
	engine *Engine
	window []float32
	ring   *ringbuffer.ComplexBuffer
	work   []complex64 // scratch: windowed copy of the accumulated samples
}

// NewSpectrumAccumulator builds an accumulator around engine.
func NewSpectrumAccumulator(engine *Engine) *SpectrumAccumulator {
	n := engine.Size()
	return &SpectrumAccumulator{
		engine: engine,
		window: HannWindow(n),
		ring:   ringbuffer.NewComplex(n),
		work:   make([]complex64, n),
	}
}

// Append feeds more raw (pre-decimation) samples into the accumulator.
func (s *SpectrumAccumulator) Append(samples []complex64) {
	s.ring.Write(samples)
}

// TryTransform windows the most recent Size() accumulated samples and writes
// their forward FFT into dst (which must be Size() long). It returns false,
// leaving dst untouched, if fewer than Size() samples have accumulated yet.
func (s *SpectrumAccumulator) TryTransform(dst []complex64) bool {
	if s.ring.Len() < s.engine.Size() {
		return false
	}

	// Peek without consuming: read into work, then push the same samples
	// back so the next call still sees a full window (the accumulator is a
	// sliding producer buffer, not a one-shot queue).
	n := s.ring.Read(s.work)
	s.ring.Write(s.work[:n])

	for i, w := range s.window {
		re := real(s.work[i]) * w
		im := imag(s.work[i]) * w
		s.work[i] = complex(re, im)
	}

	return s.engine.Forward(dst, s.work) == nil
}
