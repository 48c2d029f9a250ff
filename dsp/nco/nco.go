// Package nco implements the frequency translator (spec.md §4.4, C4): a
// unit-modulus complex oscillator advanced by incremental complex
// multiplication rather than a per-sample sin/cos evaluation, with a
// first-order Newton correction to keep its amplitude within +/-1% of unity
// over long runs.
package nco

import "math"

// Translator mixes a complex baseband stream down (or up) by a tunable
// frequency. The zero value is not usable: its oscillator is 0+0i and stays
// there, so Process outputs only zeros. Use New.
type Translator struct {
	sampleRate float64
	tuneHz     float64 // programmed tuning offset
	cwOffsetHz float64

	incCos, incSin float64 // per-sample phasor increment
	oscRe, oscIm   float64 // current oscillator state, |o| ~= 1
}

// New returns a Translator initialized at DC (no translation) for the given
// sample rate.
func New(sampleRateHz float64) *Translator {
	t := &Translator{oscRe: 1, oscIm: 0}
	t.SetSampleRate(sampleRateHz)
	return t
}

// SetSampleRate updates the sample rate and recomputes the per-sample phase
// increment (spec.md §4.4).
func (t *Translator) SetSampleRate(rateHz float64) {
	if rateHz == t.sampleRate {
		return
	}
	t.sampleRate = rateHz
	t.recompute()
}

// SetFrequency sets the programmed NCO tuning offset in Hz. The effective
// frequency is this plus any CW offset (spec.md §4.4).
func (t *Translator) SetFrequency(hz float64) {
	t.tuneHz = hz
	t.recompute()
}

// SetCWOffset sets the additional CW audio offset folded into the NCO
// frequency.
func (t *Translator) SetCWOffset(hz float64) {
	t.cwOffsetHz = hz
	t.recompute()
}

func (t *Translator) recompute() {
	if t.sampleRate == 0 {
		return
	}
	inc := 2 * math.Pi * (t.tuneHz + t.cwOffsetHz) / t.sampleRate
	t.incCos = math.Cos(inc)
	t.incSin = math.Sin(inc)
}

// Amplitude returns |o|, the oscillator's current magnitude; it should stay
// within [0.99, 1.01] indefinitely thanks to the Newton gain correction
// (spec.md §8).
func (t *Translator) Amplitude() float64 {
	return math.Sqrt(t.oscRe*t.oscRe + t.oscIm*t.oscIm)
}

// Process complex-multiplies each sample of buf in place by the rotating
// phasor, advancing the oscillator one step per sample.
func (t *Translator) Process(buf []complex64) {
	for i, s := range buf {
		re, im := float64(real(s)), float64(imag(s))

		oscRe := t.oscRe*t.incCos - t.oscIm*t.incSin
		oscIm := t.oscIm*t.incCos + t.oscRe*t.incSin

		// first-order Newton step pulling |o| back toward the unit circle.
		gain := 1.99 - (oscRe*oscRe + oscIm*oscIm)
		t.oscRe = gain * oscRe
		t.oscIm = gain * oscIm

		buf[i] = complex(
			float32(re*oscRe-im*oscIm),
			float32(re*oscIm+im*oscRe),
		)
	}
}
