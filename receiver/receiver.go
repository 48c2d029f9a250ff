// Package receiver assembles the channel DSP chain (spec.md §4.10, C10):
// NCO translation, decimation, channel filtering, S-meter/squelch, AGC,
// demodulation, and audio-rate resampling, grounded on receiver.cpp.
package receiver

import (
	"errors"
	"fmt"
	"math/bits"

	"hz.tools/nanosdr/dsp/agc"
	"hz.tools/nanosdr/dsp/chanfilter"
	"hz.tools/nanosdr/dsp/decim"
	"hz.tools/nanosdr/dsp/demod"
	"hz.tools/nanosdr/dsp/nco"
	"hz.tools/nanosdr/dsp/resample"
	"hz.tools/nanosdr/dsp/smeter"
)

// Kind selects the active demodulator (spec.md §4.7; APT is the
// supplemented selectable variant resolving the spec's Open Question).
type Kind int

const (
	KindNone Kind = iota
	KindSSB
	KindAM
	KindNFM
	KindAPT
)

// ErrSquelched is returned by Process when the S-meter reading is below
// the configured squelch threshold; this resolves spec.md's "-1 sentinel"
// Open Question the idiomatic-Go way, via a named error rather than a
// magic return value.
var ErrSquelched = errors.New("receiver: signal below squelch threshold")

// Config is the full per-channel configuration (spec.md §3's receiver
// parameter groups).
type Config struct {
	InputRate     float64
	OutputRate    float64
	DynamicRangeDB float64
	FrameLength   uint32

	TuningOffsetHz float64
	CWOffsetHz     float64

	LowCut, HighCut float64

	Demod     Kind
	Bandwidth float64 // NFM/APT channel bandwidth

	AGC agc.Params

	SquelchDB float64
}

// Receiver owns one instance each of the NCO, decimator, channel filter,
// S-meter, AGC, demodulator, and resampler, and threads a capture block
// through them in the exact order spec.md §4.10 specifies.
type Receiver struct {
	cfg Config

	quadRate  float64
	quadDecim int
	audioRate float64 // quadRate / outputRate, the resample ratio

	vfo    *nco.Translator
	bfo    *nco.Translator
	decim  *decim.Chain
	filter *chanfilter.Filter
	meter  *smeter.Meter
	gain   *agc.AGC

	demodKind Kind
	am        *demod.AM
	ssb       *demod.SSB
	nfm       *demod.NFM

	resampler *resample.Resampler

	cplxBuf1 []complex64
	cplxBuf2 []complex64
	realBuf  []float32
	audioBuf []float32

	squelched bool
}

// New builds and configures a Receiver per spec.md §4.10's init steps.
func New(cfg Config) (*Receiver, error) {
	r := &Receiver{}
	if err := r.Configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Configure (re)derives the receiver's sample-rate ladder and (re)builds
// every DSP stage for it. Existing AGC/demod state that survives a
// reconfigure (e.g. only the squelch level changed) is not preserved;
// callers that need finer-grained updates should use the Set* methods
// instead.
func (r *Receiver) Configure(cfg Config) error {
	if cfg.InputRate <= 0 || cfg.OutputRate <= 0 {
		return fmt.Errorf("receiver: input and output rates must be positive")
	}
	if cfg.InputRate < cfg.OutputRate {
		return fmt.Errorf("receiver: input rate %.0f must be >= output rate %.0f", cfg.InputRate, cfg.OutputRate)
	}

	r.cfg = cfg

	quadRate := 2 * cfg.OutputRate
	if cfg.InputRate < quadRate {
		quadRate = cfg.InputRate
	}
	quadDecim := nextPow2(int(cfg.InputRate / quadRate))
	if quadDecim < 1 {
		quadDecim = 1
	}
	if quadDecim == 1 && cfg.InputRate > quadRate {
		quadDecim = 2
	}

	r.vfo = nco.New(cfg.InputRate)
	r.vfo.SetFrequency(-cfg.TuningOffsetHz)

	if quadDecim > 1 {
		d, err := decim.NewChain(quadDecim, cfg.DynamicRangeDB)
		if err != nil {
			return fmt.Errorf("receiver: %w", err)
		}
		r.decim = d
		quadDecim = d.Factor()
	} else {
		r.decim = nil
	}
	r.quadDecim = quadDecim
	r.quadRate = cfg.InputRate / float64(quadDecim)

	filt, err := chanfilter.New(chanfilter.Params{
		LowCut:     cfg.LowCut,
		HighCut:    cfg.HighCut,
		CWOffset:   0,
		SampleRate: r.quadRate,
	})
	if err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	r.filter = filt

	r.meter = smeter.New()
	r.gain = agc.New(withRate(cfg.AGC, r.quadRate))

	r.bfo = nco.New(r.quadRate)
	r.bfo.SetCWOffset(cfg.CWOffsetHz)

	r.demodKind = cfg.Demod
	switch cfg.Demod {
	case KindAM:
		r.am = demod.NewAM(r.quadRate, (cfg.HighCut-cfg.LowCut)/2)
	case KindNFM:
		r.nfm = demod.NewNFM(r.quadRate, cfg.Bandwidth)
	case KindAPT:
		r.nfm = demod.NewAPT(r.quadRate, cfg.Bandwidth)
	case KindSSB, KindNone:
		r.ssb = demod.NewSSB()
	}

	r.audioRate = r.quadRate / cfg.OutputRate
	r.resampler = resample.New()

	return nil
}

func withRate(p agc.Params, rate float64) agc.Params {
	p.SampleRate = rate
	return p
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// SetTuningOffset retunes the NCO without rebuilding the rest of the chain
// (spec.md §4.10's set_tuning_offset; the sign flip matches
// set_nco_frequency(-offset) in the original).
func (r *Receiver) SetTuningOffset(hz float64) {
	r.vfo.SetFrequency(-hz)
}

// SetFilter reconfigures the channel filter's passband in place.
func (r *Receiver) SetFilter(lowCut, highCut float64) error {
	return r.filter.Configure(chanfilter.Params{
		LowCut:     lowCut,
		HighCut:    highCut,
		SampleRate: r.quadRate,
	})
}

// SetCWOffset adjusts the BFO used in single-sideband CW reception.
func (r *Receiver) SetCWOffset(hz float64) {
	r.bfo.SetCWOffset(hz)
}

// SetAGC reconfigures the AGC stage in place, preserving the channel
// chain around it.
func (r *Receiver) SetAGC(p agc.Params) {
	r.cfg.AGC = p
	r.gain.Configure(withRate(p, r.quadRate))
}

// SetSquelch sets the S-meter threshold, in dB, below which Process
// returns ErrSquelched.
func (r *Receiver) SetSquelch(db float64) {
	r.cfg.SquelchDB = db
}

// SignalStrength returns the most recent S-meter reading, in dB.
func (r *Receiver) SignalStrength() float64 {
	return r.meter.SignalPower()
}

// Squelched reports whether the last Process call was gated by squelch.
func (r *Receiver) Squelched() bool {
	return r.squelched
}

// Process runs one capture block through the full receive chain (spec.md
// §4.10's six numbered steps) and returns the demodulated, resampled audio
// emitted for this block. It returns (nil, ErrSquelched) when the S-meter
// reading is below the configured squelch threshold, and (nil, nil) when
// the block was entirely consumed by decimator/filter history with no
// audio produced yet — both are expected steady-state outcomes, not
// errors a caller need log.
func (r *Receiver) Process(input []complex64) ([]float32, error) {
	r.vfo.Process(input)

	quadSamples := input
	if r.decim != nil {
		n := r.decim.Process(input)
		if n == 0 {
			return nil, nil
		}
		quadSamples = input[:n]
	}

	r.cplxBuf1 = r.filter.Process(quadSamples, r.cplxBuf1[:0])
	if len(r.cplxBuf1) == 0 {
		return nil, nil
	}

	if r.meter.Process(r.cplxBuf1) < r.cfg.SquelchDB {
		r.squelched = true
		return nil, ErrSquelched
	}
	r.squelched = false

	var demodOut []float32
	switch r.demodKind {
	case KindAM:
		r.cplxBuf2 = r.gain.Process(r.cplxBuf1, r.cplxBuf2)
		demodOut = r.am.Process(r.cplxBuf2, r.realBuf)
	case KindNFM, KindAPT:
		demodOut = r.nfm.Process(r.cplxBuf1, r.realBuf)
	default: // KindSSB, KindNone
		r.cplxBuf2 = r.gain.Process(r.cplxBuf1, r.cplxBuf2)
		r.bfo.Process(r.cplxBuf2)
		demodOut = r.ssb.Process(r.cplxBuf2, r.realBuf)
	}
	r.realBuf = demodOut

	r.audioBuf = r.resampler.ResampleReal(demodOut, r.audioRate, r.audioBuf[:0])
	return r.audioBuf, nil
}

// QuadRate returns the internal quadrature sample rate the channel filter,
// AGC, and demodulators operate at.
func (r *Receiver) QuadRate() float64 {
	return r.quadRate
}
