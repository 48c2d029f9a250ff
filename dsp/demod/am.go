// Package demod implements the AM, SSB, and NFM demodulators (spec.md
// §4.7, C7).
package demod

import (
	"math"

	"hz.tools/nanosdr/dsp/firfilter"
)

const (
	dcAlpha = 0.995

	// amStopAttenDB and amStopRatio match amdemod.cpp's default audio
	// filter call (Astop=60, Fstop=Fpass*1.8).
	amStopAttenDB = 60.0
	amStopRatio   = 1.8
)

// AM is an envelope detector with DC-blocking IIR high-pass followed by a
// linear-phase post-demod LPF at the user bandwidth, grounded on
// amdemod.cpp's process() (envelope + DC block, then audio_filter.process).
type AM struct {
	z1  float64
	lpf *firfilter.LowPass
}

// NewAM returns an AM demodulator whose post-demod audio filter passes up
// to bandwidthHz of a signal sampled at sampleRate.
func NewAM(sampleRate, bandwidthHz float64) *AM {
	if bandwidthHz <= 0 {
		bandwidthHz = 5000
	}
	return &AM{
		lpf: firfilter.NewLowPass(sampleRate, bandwidthHz, bandwidthHz*amStopRatio, amStopAttenDB),
	}
}

// Process demodulates in into out (grown as needed), returning it.
func (d *AM) Process(in []complex64, out []float32) []float32 {
	if cap(out) < len(in) {
		out = make([]float32, len(in))
	}
	out = out[:len(in)]

	for i, s := range in {
		mag := math.Hypot(float64(real(s)), float64(imag(s)))

		// H(z) = (1 - z^-1)/(1 - ALPHA*z^-1), implemented directly.
		z0 := mag + d.z1*dcAlpha
		out[i] = float32(z0 - d.z1)
		d.z1 = z0
	}

	// post demod audio filter to limit high frequency noise.
	return d.lpf.Process(out, out[:0])
}
