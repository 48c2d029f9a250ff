// Package chanfilter implements the fast FIR channel filter (spec.md §4.5,
// C5): an arbitrary complex bandpass built from an overlap-save FFT
// convolution, reusing dsp/fft as its transform engine.
package chanfilter

import (
	"fmt"
	"math"

	"hz.tools/nanosdr/dsp/fft"
)

// Fixed block sizes from spec.md §4.5.
const (
	FIRSize = 1025 // CONV_FIR_SIZE
	FFTSize = 2048 // CONV_FFT_SIZE
)

// Params describes the channel filter's bandpass (spec.md §3).
type Params struct {
	LowCut    float64
	HighCut   float64
	CWOffset  float64
	SampleRate float64
}

func (p Params) validate() error {
	if p.LowCut >= p.HighCut {
		return fmt.Errorf("chanfilter: low_cut (%v) must be < high_cut (%v)", p.LowCut, p.HighCut)
	}
	half := p.SampleRate / 2
	if p.LowCut <= -half || p.LowCut >= half || p.HighCut <= -half || p.HighCut >= half {
		return fmt.Errorf("chanfilter: cutoffs must lie within (-fs/2, fs/2)")
	}
	return nil
}

// Filter is a fast-convolution complex bandpass. The zero value is not
// usable; use New.
type Filter struct {
	params Params
	engine *fft.Engine

	spectrum []complex64 // cached forward FFT of the FIR impulse response

	work     [FFTSize]complex64 // accumulation buffer for the current block
	overlap  [FIRSize - 1]complex64
	writePos int // next write index into work

	scratch [FFTSize]complex64
}

// New builds a Filter with the given parameters.
func New(p Params) (*Filter, error) {
	f := &Filter{writePos: FIRSize - 1}
	if err := f.Configure(p); err != nil {
		return nil, err
	}
	return f, nil
}

// Configure (re)designs the filter for new cutoffs/offset/rate, per
// spec.md §4.5. It resets the internal overlap-save state.
func (f *Filter) Configure(p Params) error {
	if err := p.validate(); err != nil {
		return err
	}
	f.params = p

	if f.engine == nil {
		e, err := fft.NewEngine(FFTSize)
		if err != nil {
			return err
		}
		f.engine = e
	}

	lo := p.LowCut + p.CWOffset
	hi := p.HighCut + p.CWOffset
	fs := p.SampleRate

	nFL := lo / fs
	nFH := hi / fs
	nFc := (nFH - nFL) / 2
	nFs := 2 * math.Pi * (nFH + nFL) / 2
	center := 0.5 * float64(FIRSize-1)

	var impulse [FFTSize]complex64
	for i := 0; i < FIRSize; i++ {
		x := float64(i) - center
		var z float64
		if x == 0 {
			z = 2 * nFc
		} else {
			z = math.Sin(2*math.Pi*x*nFc) / (math.Pi * x) * blackmanNuttall(i, FIRSize)
		}
		re := z * math.Cos(nFs*x) / FFTSize
		im := z * math.Sin(nFs*x) / FFTSize
		impulse[i] = complex(float32(re), float32(im))
	}

	spectrum := make([]complex64, FFTSize)
	if err := f.engine.Forward(spectrum, impulse[:]); err != nil {
		return err
	}
	f.spectrum = spectrum

	// reset overlap-save state: a reconfigured filter starts a fresh block.
	for i := range f.work {
		f.work[i] = 0
	}
	for i := range f.overlap {
		f.overlap[i] = 0
	}
	f.writePos = FIRSize - 1
	return nil
}

// blackmanNuttall evaluates the Blackman-Nuttall window at tap i of n.
func blackmanNuttall(i, n int) float64 {
	x := 2 * math.Pi * float64(i) / float64(n-1)
	return 0.3635819 - 0.4891775*math.Cos(x) + 0.1365995*math.Cos(2*x) - 0.0106411*math.Cos(3*x)
}

// Process runs overlap-save convolution over in, appending emitted samples
// to out (which is grown as needed) and returning the extended slice. The
// number of samples emitted per call is quantized to multiples of
// FFTSize-FIRSize+1, per spec.md §4.5.
func (f *Filter) Process(in []complex64, out []complex64) []complex64 {
	step := FFTSize - FIRSize + 1

	for _, s := range in {
		if j := f.writePos - step; j >= 0 {
			// capture the tail of this block's input as it arrives, so it
			// is ready to seed the next block's overlap.
			f.overlap[j] = s
		}

		f.work[f.writePos] = s
		f.writePos++

		if f.writePos >= FFTSize {
			f.engine.Forward(f.scratch[:], f.work[:])
			cpxMul(f.scratch[:], f.spectrum, f.scratch[:])
			f.engine.Inverse(f.work[:], f.scratch[:])

			out = append(out, f.work[FIRSize-1:FFTSize]...)

			copy(f.work[:FIRSize-1], f.overlap[:])
			f.writePos = FIRSize - 1
		}
	}

	return out
}

func cpxMul(dst, m, src []complex64) {
	for i := range dst {
		mr, mi := real(m[i]), imag(m[i])
		sr, si := real(src[i]), imag(src[i])
		dst[i] = complex(mr*sr-mi*si, mr*si+mi*sr)
	}
}
