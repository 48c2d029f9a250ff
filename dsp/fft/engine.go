// Package fft wraps hz.tools/fftw's FFTW3 bindings behind the two modes
// nanosdr needs (spec.md §4.2): an unwindowed out-of-place transform used by
// the fast-convolution channel filter (dsp/chanfilter), and a Hann-windowed
// accumulate-then-transform mode used by the spectrum producer (spectrum).
// hz.tools/fftw.Plan is a func(in, out sdr.SamplesC64, dir fft.Direction)
// (fft.Plan, error) satisfying hz.tools/sdr/fft.Planner (the same value
// hz.tools-go-fm's demodulator.go passes to stream.ConvolutionReader); a
// plan is bound to fixed in/out buffers at creation time and re-run with
// Transform.
package fft

import (
	"fmt"
	"math"

	"hz.tools/fftw"
	"hz.tools/sdr"
	"hz.tools/sdr/fft"
)

// MinSize and MaxSize bound the power-of-two transform sizes this engine
// will plan, per spec.md §4.2.
const (
	MinSize = 512
	MaxSize = 65536
)

// Engine is a deterministic, non-allocating forward/inverse complex FFT of a
// fixed power-of-two size. The zero value is not usable; use NewEngine.
type Engine struct {
	size int

	fwdIn, fwdOut sdr.SamplesC64
	invIn, invOut sdr.SamplesC64

	forward fft.Plan
	inverse fft.Plan
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NewEngine plans a forward and inverse transform of the given size, which
// must be a power of two in [MinSize, MaxSize].
func NewEngine(size int) (*Engine, error) {
	if size < MinSize || size > MaxSize || !isPow2(size) {
		return nil, fmt.Errorf("fft: size %d must be a power of two in [%d, %d]", size, MinSize, MaxSize)
	}

	e := &Engine{
		size:   size,
		fwdIn:  make(sdr.SamplesC64, size),
		fwdOut: make(sdr.SamplesC64, size),
		invIn:  make(sdr.SamplesC64, size),
		invOut: make(sdr.SamplesC64, size),
	}

	forward, err := fftw.Plan(e.fwdIn, e.fwdOut, fft.Forward)
	if err != nil {
		return nil, fmt.Errorf("fft: planning forward transform: %w", err)
	}
	inverse, err := fftw.Plan(e.invIn, e.invOut, fft.Backward)
	if err != nil {
		return nil, fmt.Errorf("fft: planning inverse transform: %w", err)
	}
	e.forward = forward
	e.inverse = inverse

	return e, nil
}

// Size returns the transform's fixed length.
func (e *Engine) Size() int {
	return e.size
}

// Forward writes the forward (unwindowed) complex FFT of src into dst. It
// applies no window itself: SpectrumAccumulator applies its Hann window
// before calling it, and the channel filter calls it unwindowed.
func (e *Engine) Forward(dst, src []complex64) error {
	return e.execute(e.forward, e.fwdIn, e.fwdOut, dst, src)
}

// Inverse writes the inverse complex FFT of src into dst.
func (e *Engine) Inverse(dst, src []complex64) error {
	return e.execute(e.inverse, e.invIn, e.invOut, dst, src)
}

func (e *Engine) execute(plan fft.Plan, in, out sdr.SamplesC64, dst, src []complex64) error {
	if len(src) != e.size || len(dst) != e.size {
		return fmt.Errorf("fft: buffers must be exactly %d samples, got src=%d dst=%d", e.size, len(src), len(dst))
	}
	copy(in, src)
	if err := plan.Transform(); err != nil {
		return fmt.Errorf("fft: transform: %w", err)
	}
	copy(dst, out)
	return nil
}

// HannWindow returns the gain-2 Hann window of the given length used by the
// spectrum producer before each transform (spec.md §4.2).
func HannWindow(n int) []float32 {
	w := make([]float32, n)
	if n == 1 {
		w[0] = 2
		return w
	}
	for j := 0; j < n; j++ {
		w[j] = float32(1 - math.Cos(2*math.Pi*float64(j)/float64(n-1)))
	}
	return w
}
