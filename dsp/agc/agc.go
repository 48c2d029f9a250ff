// Package agc implements the look-ahead, log-domain automatic gain control
// (spec.md §4.6, C6): a sliding-peak-hold detector drives an attack/decay
// gain averager, and the gain is applied to a delayed copy of the input so
// the decision is made from a short look-ahead window.
package agc

import "math"

const (
	attackRiseTC   = 0.002
	attackFallTC   = 0.005
	decayRiseRatio = 0.3
	releaseTC      = 0.05

	outScale    = 0.5
	minMag      = 1e-8
	delayTC     = 0.015
	windowTC    = 0.018
	maxDelayBuf = 1 << 16
)

// Params configures the AGC (spec.md §3's AGC parameter group).
type Params struct {
	On         bool
	UseHang    bool
	ThresholdDB float64 // -160..0
	ManualGainDB float64 // 0..100
	SlopeDB     float64 // 0..10
	DecayMS     float64 // 20..5000
	SampleRate  float64
}

// AGC is a look-ahead log-domain automatic gain control stage. The zero
// value is not usable; use New.
type AGC struct {
	p Params

	manualGain float64
	knee       float64
	gainSlope  float64
	fixedGain  float64

	attackRiseAlpha float64
	attackFallAlpha float64
	decayRiseAlpha  float64
	decayFallAlpha  float64

	delaySamples  int
	windowSamples int
	hangTime      int

	delay    []complex64
	delayPos int

	magBuf    []float64
	magPos    int
	peak      float64
	attackAve float64
	decayAve  float64
	hangTimer int
}

// New builds an AGC with the given parameters.
func New(p Params) *AGC {
	a := &AGC{}
	a.Configure(p)
	return a
}

// Configure (re)derives all internal coefficients from p, per spec.md §4.6.
// Matches the teacher's reconfigure-only-on-change behavior is unnecessary
// here since callers own their own Params lifetime; Configure always resets
// delay-line/averager state so a parameter change starts from a clean slate.
func (a *AGC) Configure(p Params) {
	a.p = p

	a.manualGain = math.Pow(10.0, p.ManualGainDB/20.0)

	a.knee = p.ThresholdDB / 20.0
	a.gainSlope = p.SlopeDB / 100.0
	a.fixedGain = outScale * math.Pow(10.0, a.knee*(a.gainSlope-1.0))

	fs := p.SampleRate
	a.attackRiseAlpha = 1.0 - math.Exp(-1.0/(fs*attackRiseTC))
	a.attackFallAlpha = 1.0 - math.Exp(-1.0/(fs*attackFallTC))
	a.decayRiseAlpha = 1.0 - math.Exp(-1.0/(fs*p.DecayMS*0.001*decayRiseRatio))

	if p.UseHang {
		a.decayFallAlpha = 1.0 - math.Exp(-1.0/(fs*releaseTC))
	} else {
		a.decayFallAlpha = 1.0 - math.Exp(-1.0/(fs*p.DecayMS*0.001))
	}

	a.hangTime = int(fs * p.DecayMS * 0.001)

	a.delaySamples = clampBuf(int(fs * delayTC))
	a.windowSamples = clampBuf(int(fs * windowTC))

	a.delay = make([]complex64, a.delaySamples)
	a.delayPos = 0

	a.magBuf = make([]float64, a.windowSamples)
	for i := range a.magBuf {
		a.magBuf[i] = -16.0
	}
	a.magPos = 0
	a.peak = -16.0
	a.attackAve = -5.0
	a.decayAve = -5.0
	a.hangTimer = 0
}

func clampBuf(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxDelayBuf {
		return maxDelayBuf
	}
	return n
}

// Process applies AGC (or, if off, fixed manual gain) to in, writing the
// same number of samples to out (grown as needed) and returning it.
func (a *AGC) Process(in []complex64, out []complex64) []complex64 {
	if cap(out) < len(in) {
		out = make([]complex64, len(in))
	}
	out = out[:len(in)]

	if !a.p.On {
		for i, s := range in {
			out[i] = complex(float32(a.manualGain)*real(s), float32(a.manualGain)*imag(s))
		}
		return out
	}

	for i, s := range in {
		delayed := a.delay[a.delayPos]
		a.delay[a.delayPos] = s
		a.delayPos++
		if a.delayPos >= a.delaySamples {
			a.delayPos = 0
		}

		mag := math.Abs(float64(real(s)))
		if mim := math.Abs(float64(imag(s))); mim > mag {
			mag = mim
		}
		mag = math.Log10(mag+minMag) - 0 // LOG_MAX_AMP = log10(1.0) = 0

		old := a.magBuf[a.magPos]
		a.magBuf[a.magPos] = mag
		a.magPos++
		if a.magPos >= a.windowSamples {
			a.magPos = 0
		}

		if mag > a.peak {
			a.peak = mag
		} else if old == a.peak {
			a.peak = -8.0
			for _, v := range a.magBuf {
				if v > a.peak {
					a.peak = v
				}
			}
		}

		if a.p.UseHang {
			if a.peak > a.attackAve {
				a.attackAve = (1-a.attackRiseAlpha)*a.attackAve + a.attackRiseAlpha*a.peak
			} else {
				a.attackAve = (1-a.attackFallAlpha)*a.attackAve + a.attackFallAlpha*a.peak
			}
			if a.peak > a.decayAve {
				a.decayAve = (1-a.decayRiseAlpha)*a.decayAve + a.decayRiseAlpha*a.peak
				a.hangTimer = 0
			} else if a.hangTimer < a.hangTime {
				a.hangTimer++
			} else {
				a.decayAve = (1-a.decayFallAlpha)*a.decayAve + a.decayFallAlpha*a.peak
			}
		} else {
			if a.peak > a.attackAve {
				a.attackAve = (1-a.attackRiseAlpha)*a.attackAve + a.attackRiseAlpha*a.peak
			} else {
				a.attackAve = (1-a.attackFallAlpha)*a.attackAve + a.attackFallAlpha*a.peak
			}
			if a.peak > a.decayAve {
				a.decayAve = (1-a.decayRiseAlpha)*a.decayAve + a.decayRiseAlpha*a.peak
			} else {
				a.decayAve = (1-a.decayFallAlpha)*a.decayAve + a.decayFallAlpha*a.peak
			}
		}

		logMag := a.attackAve
		if a.decayAve > logMag {
			logMag = a.decayAve
		}

		var gain float64
		if logMag <= a.knee {
			gain = a.fixedGain
		} else {
			gain = outScale * math.Pow(10.0, logMag*(a.gainSlope-1.0))
		}

		out[i] = complex(float32(gain)*real(delayed), float32(gain)*imag(delayed))
	}

	return out
}
