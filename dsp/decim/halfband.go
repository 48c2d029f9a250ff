// Package decim implements the power-of-two half-band decimator cascade
// (spec.md §4.3, C3): a chain of decimate-by-2 stages whose tap counts are
// chosen from a stop-band-attenuation tier, longer kernels nearest the
// output where alias images sit closest to the passband.
//
// Coefficients are generated analytically (ideal half-band sinc windowed by
// a Kaiser window sized for the requested attenuation) rather than
// hand-transcribed from a coefficient table per tap length: the retrieved
// nanosdr source only ships the 70 dB/11-tap table
// (filtercoef_hbf_70.h:HBF_70_11). The generated taps share that table's
// zero pattern, center value and signs (see halfband_test.go) but not its
// exact values (the Kaiser window makes the outer taps much smaller), and
// the generator covers every tap length the other two tiers need without
// seven more hand-copied tables.
package decim

import "math"

// HalfBand is one decimate-by-2 stage: an odd-length half-band FIR (every
// other tap zero except the center) followed by a 2:1 downsample.
type HalfBand struct {
	taps   []float64
	delay  []complex64 // trailing firlen-1 samples carried across Process calls
	scratch []complex64 // reused delay+in staging area; grown, never shrunk
}

// NewHalfBand builds a decimate-by-2 stage with the given odd tap count,
// designed for roughly attenDB of stop-band attenuation.
func NewHalfBand(taps int, attenDB float64) *HalfBand {
	return &HalfBand{
		taps:  halfBandTaps(taps, attenDB),
		delay: make([]complex64, taps-1),
	}
}

// Len returns the number of filter taps (always odd).
func (h *HalfBand) Len() int {
	return len(h.taps)
}

// Process decimates in by 2, prepending the stage's carried-over history so
// convolution wraps correctly across calls, per spec.md §4.3. It returns
// len(in)/2 output samples; the caller must supply at least Len() input
// samples per call or the stage degenerates to zero output.
//
// The delay+input staging buffer is reused across calls (grown only when a
// larger block size demands it) to keep the steady-state hot path
// allocation-free.
func (h *HalfBand) Process(in []complex64, out []complex64) int {
	firlen := len(h.taps)
	need := len(h.delay) + len(in)
	if cap(h.scratch) < need {
		h.scratch = make([]complex64, need)
	}
	total := h.scratch[:need]
	copy(total, h.delay)
	copy(total[len(h.delay):], in)

	n := len(total)
	if n < firlen {
		// not enough history to produce a single output yet; just grow the
		// carried delay line.
		h.delay = append([]complex64{}, total...)
		return 0
	}

	outN := 0
	// Output index i corresponds to input center firlen-1+2*i in `total`,
	// matching a standard direct-form decimate-by-2 FIR: one output per two
	// consumed input samples once the filter is full.
	for center := firlen - 1; center < n; center += 2 {
		var accRe, accIm float64
		for k := 0; k < firlen; k++ {
			c := h.taps[k]
			if c == 0 {
				continue
			}
			s := total[center-(firlen-1)+k]
			accRe += c * float64(real(s))
			accIm += c * float64(imag(s))
		}
		out[outN] = complex(float32(accRe), float32(accIm))
		outN++
	}

	// carry the last firlen-1 samples forward.
	tailStart := n - (firlen - 1)
	h.delay = append(h.delay[:0], total[tailStart:]...)

	return outN
}

// halfBandTaps designs an odd-length half-band lowpass (cutoff at a
// quarter of the stage's input rate) via an ideal sinc windowed by a Kaiser
// window sized for attenDB of stop-band attenuation.
func halfBandTaps(length int, attenDB float64) []float64 {
	if length%2 == 0 {
		length++
	}
	center := (length - 1) / 2
	beta := kaiserBeta(attenDB)

	taps := make([]float64, length)
	for k := 0; k < length; k++ {
		m := k - center
		taps[k] = idealHalfBand(m) * kaiserWindow(k, length, beta)
	}
	return taps
}

func idealHalfBand(m int) float64 {
	if m == 0 {
		return 0.5
	}
	if m%2 == 0 {
		return 0
	}
	x := math.Pi * float64(m) / 2
	return math.Sin(x) / (math.Pi * float64(m))
}

// kaiserBeta follows the standard empirical rule (Kaiser 1966 / Oppenheim &
// Schafer) relating desired stop-band attenuation to window beta.
func kaiserBeta(attenDB float64) float64 {
	switch {
	case attenDB > 50:
		return 0.1102 * (attenDB - 8.7)
	case attenDB >= 21:
		return 0.5842*math.Pow(attenDB-21, 0.4) + 0.07886*(attenDB-21)
	default:
		return 0
	}
}

func kaiserWindow(k, length int, beta float64) float64 {
	alpha := float64(length-1) / 2
	x := (float64(k) - alpha) / alpha
	arg := beta * math.Sqrt(1-x*x)
	return besselI0(arg) / besselI0(beta)
}

// besselI0 evaluates the zeroth-order modified Bessel function of the
// first kind via its power series; math.Stdlib has no Bessel functions.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	halfX := x / 2
	for k := 1; k < 32; k++ {
		term *= (halfX * halfX) / float64(k*k)
		sum += term
		if term < 1e-16*sum {
			break
		}
	}
	return sum
}
