package demod

import "math"

// PLL loop damping factor, shared by narrow-FM and APT (wide-FM) variants.
const pllZeta = 0.707

const (
	// NarrowFMRange is the PLL lock range for standard narrowband FM,
	// in Hz (spec.md §4.7).
	NarrowFMRange = 10000.0
	// APTRange is the PLL lock range used for the wideband APT variant.
	APTRange = 30000.0

	maxFMOut  = 1.0
	dcTrackTC = 0.001 // seconds
)

// NFM is a PLL-discriminator FM demodulator. Setting range to APTRange
// reproduces the wideband APT demodulator variant (spec.md §4.7); the
// algorithm is otherwise identical.
type NFM struct {
	sampleRate float64
	rangeHz    float64
	bandwidth  float64

	ncoPhase float64
	ncoFreq  float64
	ncoLo    float64
	ncoHi    float64

	alpha float64
	beta  float64

	outGain float64

	dcAlpha float64
	dcAvg   float64
}

// NewNFM returns a narrowband FM demodulator for the given sample rate and
// channel bandwidth.
func NewNFM(sampleRate, bandwidth float64) *NFM {
	d := &NFM{rangeHz: NarrowFMRange}
	d.Configure(sampleRate, bandwidth)
	return d
}

// NewAPT returns the wideband APT variant (spec.md's supplemented
// APT demodulator), sharing NFM's PLL discriminator with a wider lock
// range and bandwidth appropriate to satellite APT imagery subcarriers.
func NewAPT(sampleRate, bandwidth float64) *NFM {
	d := &NFM{rangeHz: APTRange}
	d.Configure(sampleRate, bandwidth)
	return d
}

// Configure (re)derives the PLL coefficients for a new sample rate or
// channel bandwidth.
func (d *NFM) Configure(sampleRate, bandwidth float64) {
	d.sampleRate = sampleRate
	d.bandwidth = bandwidth

	norm := 2 * math.Pi / sampleRate

	d.ncoLo = -d.rangeHz * norm
	d.ncoHi = d.rangeHz * norm

	d.alpha = 2 * pllZeta * bandwidth * norm
	d.beta = (d.alpha * d.alpha) / (4 * pllZeta * pllZeta)

	d.outGain = maxFMOut / d.ncoHi

	d.dcAlpha = 1.0 - math.Exp(-1.0/(sampleRate*dcTrackTC))
}

// Process runs the PLL discriminator over in, writing demodulated audio
// into out (grown as needed) and returning it.
func (d *NFM) Process(in []complex64, out []float32) []float32 {
	if cap(out) < len(in) {
		out = make([]float32, len(in))
	}
	out = out[:len(in)]

	for i, s := range in {
		sinv, cosv := math.Sincos(d.ncoPhase)

		re := float64(real(s))
		im := float64(imag(s))
		tmpRe := cosv*re - sinv*im
		tmpIm := cosv*im + sinv*re

		phaseErr := -math.Atan2(tmpIm, tmpRe)

		d.ncoFreq += d.beta * phaseErr
		if d.ncoFreq > d.ncoHi {
			d.ncoFreq = d.ncoHi
		} else if d.ncoFreq < d.ncoLo {
			d.ncoFreq = d.ncoLo
		}

		d.ncoPhase += d.ncoFreq + d.alpha*phaseErr

		d.dcAvg += d.dcAlpha * (d.ncoFreq - d.dcAvg)

		out[i] = float32((d.ncoFreq - d.dcAvg) * d.outGain)
	}

	d.ncoPhase = math.Mod(d.ncoPhase, 2*math.Pi)
	return out
}
