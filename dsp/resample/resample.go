// Package resample implements the windowed-sinc fractional resampler
// (spec.md §4.8, C8), grounded on fract_resampler.cpp: a Blackman-Harris
// windowed sinc table is convolved against a sliding history of input
// samples, with an accumulating fractional output time driving the
// resampling ratio.
package resample

import "math"

const (
	sincPeriods    = 28
	sincPeriodPts  = 10000
	sincLength     = sincPeriods*sincPeriodPts + 1
)

var sincTable [sincLength]float64

func init() {
	for i := 0; i < sincLength; i++ {
		x := float64(i)
		window := 0.35875 -
			0.48829*math.Cos(2*math.Pi*x/(sincLength-1)) +
			0.14128*math.Cos(2*2*math.Pi*x/(sincLength-1)) -
			0.01168*math.Cos(3*2*math.Pi*x/(sincLength-1))

		fi := math.Pi * (x - sincLength/2) / sincPeriodPts
		if i != sincLength/2 {
			sincTable[i] = window * math.Sin(fi) / fi
		} else {
			sincTable[i] = 1.0
		}
	}
}

// Resampler converts between sample rates via fractional-delay sinc
// interpolation. The zero value is not usable; use New.
type Resampler struct {
	history     []complex64 // last sincPeriods input samples, for FIR wraparound
	floatTime   float64

	realHistory []float32 // separate state for ResampleReal, same shape
	realTime    float64
}

// New returns a Resampler.
func New() *Resampler {
	return &Resampler{
		history:     make([]complex64, sincPeriods),
		realHistory: make([]float32, sincPeriods),
	}
}

// Resample converts in (at the current input rate) into out at an output
// rate of inputRate/rate... concretely: rate is the ratio input-time-steps
// per output sample (rate < 1 upsamples, rate > 1 downsamples). out is
// grown as needed and returned, truncated to the number of samples
// actually produced.
func (r *Resampler) Resample(in []complex64, rate float64, out []complex64) []complex64 {
	n := len(in)
	buf := make([]complex64, n+sincPeriods)
	copy(buf, r.history)
	copy(buf[sincPeriods:], in)

	maxOut := int(float64(n)/rate) + 2
	if cap(out) < maxOut {
		out = make([]complex64, maxOut)
	}
	out = out[:0]

	integerTime := int(r.floatTime)
	for integerTime < n {
		var accRe, accIm float64
		for i := 1; i <= sincPeriods; i++ {
			j := integerTime + i
			sIdx := int((float64(j) - r.floatTime) * sincPeriodPts)
			w := sincTable[sIdx]
			accRe += float64(real(buf[j])) * w
			accIm += float64(imag(buf[j])) * w
		}
		out = append(out, complex(float32(accRe), float32(accIm)))

		r.floatTime += rate
		integerTime = int(r.floatTime)
	}
	r.floatTime -= float64(n)

	copy(r.history, buf[n:n+sincPeriods])

	return out
}

// ResampleReal is Resample's real-valued sibling (fract_resampler's
// other overload), used for the audio-rate output stage after
// demodulation. It keeps independent history/time state from Resample, so
// a single Resampler must not be used for both a complex and a real stream
// concurrently.
func (r *Resampler) ResampleReal(in []float32, rate float64, out []float32) []float32 {
	n := len(in)
	buf := make([]float32, n+sincPeriods)
	copy(buf, r.realHistory)
	copy(buf[sincPeriods:], in)

	maxOut := int(float64(n)/rate) + 2
	if cap(out) < maxOut {
		out = make([]float32, maxOut)
	}
	out = out[:0]

	integerTime := int(r.realTime)
	for integerTime < n {
		var acc float64
		for i := 1; i <= sincPeriods; i++ {
			j := integerTime + i
			sIdx := int((float64(j) - r.realTime) * sincPeriodPts)
			w := sincTable[sIdx]
			acc += float64(buf[j]) * w
		}
		out = append(out, float32(acc))

		r.realTime += rate
		integerTime = int(r.realTime)
	}
	r.realTime -= float64(n)

	copy(r.realHistory, buf[n:n+sincPeriods])

	return out
}
