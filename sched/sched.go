// Package sched implements the pipeline owner (spec.md §4.13, C13):
// the scheduler that instantiates a device, a config-level decimator, a
// Receiver, and an FFT thread, then runs the pipeline goroutine that
// threads samples through all three, grounded on app/sdr_thread.cpp.
package sched

import (
	"fmt"
	"sync"
	"time"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/device"
	"hz.tools/nanosdr/dsp/decim"
	"hz.tools/nanosdr/dsp/fft"
	"hz.tools/nanosdr/receiver"
	"hz.tools/nanosdr/spectrum"
)

// blockMS is the target pipeline iteration block length at the
// post-config-decimation quadrature rate (spec.md §4.13 step 3).
const blockMS = 20

// pollInterval is the sleep between under-full device reads (spec.md §5's
// "bounded sleep of 2 ms").
const pollInterval = 2 * time.Millisecond

// AudioSink receives demodulated audio, scaled to int16 PCM the way
// sdr_thread.cpp's audio_out.write does (scale 32767).
type AudioSink interface {
	Write(samples []int16) error
}

// Config is everything Start needs: the device configuration, the
// receiver's DSP configuration, and the FFT thread's cadence.
type Config struct {
	Device   device.Config
	Receiver receiver.Config
	FFT      spectrum.Settings
}

// Stats mirrors sdr_thread.h's running counters.
type Stats struct {
	SamplesIn  uint64
	SamplesOut uint64
	StartedAt  time.Time
	StoppedAt  time.Time
}

// Scheduler is the pipeline owner. The zero value has no AudioSink and is
// not usable; use New, then call Start to begin capturing.
type Scheduler struct {
	mu sync.Mutex

	dev      device.Device
	rx       *receiver.Receiver
	fft      *spectrum.Thread
	sink     AudioSink
	inputDec *decim.Chain

	cfg Config

	stop chan struct{}
	done chan struct{}

	stats    Stats
	running  bool
	rateMu   sync.Mutex
	inRate   float64
	outRate  float64
}

// New returns an unstarted Scheduler writing audio to sink.
func New(sink AudioSink) *Scheduler {
	return &Scheduler{sink: sink}
}

// Start instantiates the device, applies cfg, builds the Receiver and FFT
// thread, and launches the device, FFT, and pipeline goroutines (spec.md
// §4.13's 5-step start sequence).
func (s *Scheduler) Start(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sched: already running")
	}

	dev, err := device.Create(cfg.Device)
	if err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	if err := dev.Open(); err != nil {
		return fmt.Errorf("sched: opening device: %w", err)
	}

	if err := dev.SetRXSampleRate(cfg.Device.Rate); err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	if cfg.Device.Bandwidth > 0 {
		if err := dev.SetRXBandwidth(cfg.Device.Bandwidth); err != nil {
			return fmt.Errorf("sched: %w", err)
		}
	}
	if err := dev.SetRXGain(cfg.Device.GainMode, cfg.Device.Gain); err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	if err := dev.SetFrequencyCorrection(cfg.Device.FreqCorrPPB); err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	// actual = frequency - transverter (supplemented transverter-offset
	// feature, spec.md's app_config transverter handling).
	if err := dev.SetRXFrequency(cfg.Device.EffectiveFrequency()); err != nil {
		return fmt.Errorf("sched: %w", err)
	}

	quadRate := float64(cfg.Device.Rate)
	var inputDec *decim.Chain
	if cfg.Device.Decimation > 1 {
		inputDec, err = decim.NewChain(int(cfg.Device.Decimation), 100)
		if err != nil {
			return fmt.Errorf("sched: %w", err)
		}
		quadRate = float64(cfg.Device.Rate) / float64(inputDec.Factor())
	}

	rxCfg := cfg.Receiver
	rxCfg.InputRate = quadRate
	rx, err := receiver.New(rxCfg)
	if err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	rx.SetTuningOffset(float64(cfg.Device.NCO))

	fftCfg := cfg.FFT
	if fftCfg.FFTSize == 0 {
		fftCfg.FFTSize = fft.MinSize
	}
	engine, err := fft.NewEngine(int(fftCfg.FFTSize))
	if err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	fftThread := spectrum.New(engine, fftCfg)

	needed := int(quadRate * blockMS / 1000)
	if needed < 1 {
		needed = 1
	}
	if cfg.Device.Decimation > 1 {
		needed *= int(cfg.Device.Decimation)
	}

	s.dev = dev
	s.rx = rx
	s.fft = fftThread
	s.inputDec = inputDec
	s.cfg = cfg
	s.stats = Stats{StartedAt: time.Now()}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true

	if err := dev.StartRX(); err != nil {
		s.running = false
		return fmt.Errorf("sched: %w", err)
	}
	fftThread.Start()

	go s.run(needed)

	return nil
}

// Stop requests interruption of the pipeline goroutine, joins it within a
// bounded timeout, and tears down the device and FFT thread (spec.md
// §4.13's stop sequence). Returns an error if the pipeline does not stop
// within 10s — spec.md §5 calls this a detected fault.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	close(s.stop)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("sched: pipeline did not stop within 10s")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.StoppedAt = time.Now()
	s.running = false
	s.fft.Stop()
	return s.dev.StopRX()
}

func (s *Scheduler) run(needed int) {
	defer close(s.done)

	inBuf := make(sdr.SamplesC64, needed)
	rateWindow := newRateTracker()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if avail := s.dev.Status(); !avail.RXRunning {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		n, err := s.dev.ReadSamples(inBuf)
		if err != nil || n == 0 {
			time.Sleep(pollInterval)
			continue
		}

		samples := inBuf[:n]
		s.mu.Lock()
		s.stats.SamplesIn += uint64(n)
		s.mu.Unlock()

		if s.inputDec != nil {
			m := s.inputDec.Process(samples)
			samples = samples[:m]
			if m == 0 {
				continue
			}
		}

		s.fft.AddInput(samples)

		out, err := s.rx.Process(samples)
		if err != nil {
			// squelched: no audio this block. A block consumed by
			// decimator/filter history returns (nil, nil), skipped below.
			continue
		}
		if len(out) == 0 {
			continue
		}

		pcm := make([]int16, len(out))
		for i, v := range out {
			pcm[i] = int16(32767.0 * v)
		}
		if err := s.sink.Write(pcm); err == nil {
			s.mu.Lock()
			s.stats.SamplesOut += uint64(len(pcm))
			s.mu.Unlock()
		}

		rateWindow.update(len(samples), len(pcm))
		in, outR := rateWindow.rates()
		s.rateMu.Lock()
		s.inRate, s.outRate = in, outR
		s.rateMu.Unlock()
	}
}

// Stats returns a snapshot of the pipeline's sample counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Rates returns a running average of input/output samples per second over
// roughly the last second (supplemented feature: parity with
// sdr_thread.cpp's status-bar rate display).
func (s *Scheduler) Rates() (inRate, outRate float64) {
	s.rateMu.Lock()
	defer s.rateMu.Unlock()
	return s.inRate, s.outRate
}

// SetFrequency is a hot-settable control (spec.md §4.13): it requires no
// stop/restart.
func (s *Scheduler) SetFrequency(f rf.Hz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("sched: not running")
	}
	return s.dev.SetRXFrequency(f)
}

// SetTuningOffset is a hot-settable control.
func (s *Scheduler) SetTuningOffset(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.rx.SetTuningOffset(hz)
	}
}

// SetFilter is a hot-settable control.
func (s *Scheduler) SetFilter(lowCut, highCut float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("sched: not running")
	}
	return s.rx.SetFilter(lowCut, highCut)
}

// SetCWOffset is a hot-settable control.
func (s *Scheduler) SetCWOffset(hz float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.rx.SetCWOffset(hz)
	}
}

// SetGain is a hot-settable control.
func (s *Scheduler) SetGain(mode device.GainMode, gain int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("sched: not running")
	}
	return s.dev.SetRXGain(mode, gain)
}

// TryFFTOutput drains the FFT thread's latest spectrum, if any (used by a
// UI thread on a timer, per spec.md §5).
func (s *Scheduler) TryFFTOutput() ([]complex64, bool) {
	return s.fft.TryOutput()
}

// SignalStrength returns the receiver's most recent S-meter reading.
func (s *Scheduler) SignalStrength() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rx.SignalStrength()
}

// Config returns the configuration the scheduler was last started with.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}
