// Package device implements the SDR device abstraction (spec.md §4.11,
// C11): a uniform capability trait over heterogeneous front ends, each
// normalizing native sample formats into hz.tools/sdr's SamplesC64 and
// exposing an hz.tools/sdr.Reader-shaped capture surface backed by a
// bounded ring buffer.
package device

import (
	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/nerr"
)

// GainMode selects automatic vs. manual gain, mirroring spec.md §3's
// device-configuration `gain_mode` field.
type GainMode int32

const (
	GainAuto GainMode = iota
	GainManual
)

// Config is spec.md §3's device configuration group.
type Config struct {
	Type        string
	Path        string // backend-specific source, e.g. the file backend's file path
	Frequency   rf.Hz
	NCO         rf.Hz // software tuning offset inside the captured band
	Transverter rf.Hz // front-end LO offset (supplemented feature)
	Rate        uint32
	Decimation  uint32
	Bandwidth   uint32 // 0 = auto
	FreqCorrPPB int32
	GainMode    GainMode
	Gain        int32 // 0-100
}

// EffectiveFrequency folds the transverter offset into the tuned
// frequency (supplemented feature, grounded on app_config's transverter
// handling): actual = frequency - transverter.
func (c Config) EffectiveFrequency() rf.Hz {
	return c.Frequency - c.Transverter
}

// Status is spec.md §3's device status: monotone per lifecycle phase.
type Status struct {
	DriverLoaded bool
	DeviceOpen   bool
	RXRunning    bool
}

// Stats is spec.md §3's device stats, monotonically non-decreasing while
// running. Every backend resets them in StartRX; StopRX leaves them at
// their last values.
type Stats struct {
	RXSamples   uint64
	RXOverruns  uint64
}

// Device is the polymorphic capability trait from spec.md §4.11. Every
// backend (rtlsdr, airspy, bladerf, limesdr, sdrplay, sdriq, stdin, file)
// implements it; nanosdr's pipeline code depends only on this interface,
// and through it, on sdr.Reader for the actual sample stream.
type Device interface {
	sdr.Reader

	Open() error
	Close() error
	StartRX() error
	StopRX() error

	// ReadSamples fills buf with exactly len(buf) samples, or returns 0
	// if fewer are currently available (spec.md §4.11: no partial
	// reads).
	ReadSamples(buf sdr.SamplesC64) (int, error)

	SetRXFrequency(rf.Hz) error
	RXFrequency() rf.Hz
	SetRXSampleRate(uint32) error
	SetRXBandwidth(uint32) error
	SetRXGain(mode GainMode, gain int32) error
	SetFrequencyCorrection(ppb int32) error

	SupportedRates() []uint32
	FrequencyRange() rf.Range

	TypeID() string
	Status() Status
	Stats() Stats
}

// Factory builds a new, unopened Device of the named backend type.
type Factory func(cfg Config) (Device, error)

var registry = map[string]Factory{}

// Register adds a backend factory under typeID, called from each
// backend package's init().
func Register(typeID string, f Factory) {
	registry[typeID] = f
}

// Create dispatches to the registered backend for cfg.Type (spec.md
// §4.11's factory).
func Create(cfg Config) (Device, error) {
	f, ok := registry[cfg.Type]
	if !ok {
		return nil, nerr.New(nerr.ENOTFOUND, "device: no backend registered for type %q", cfg.Type)
	}
	return f(cfg)
}
