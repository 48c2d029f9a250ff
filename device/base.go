package device

import (
	"sync"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/nerr"
	"hz.tools/nanosdr/ringbuffer"
)

// ringBufferMS is the target ring-buffer depth in milliseconds of audio
// at the device's current rate (spec.md §9: "~500 ms of samples").
const ringBufferMS = 500

// Base is embedded by every backend; it owns the bounded ring buffer, the
// device mutex serializing cross-thread control calls against the
// producer, and the status/stats bookkeeping common to all of them.
type Base struct {
	mu     sync.Mutex
	buf    *ringbuffer.ComplexBuffer
	rate   uint32
	status Status
	stats  Stats

	freq        rf.Hz
	freqCorrPPB int32
}

func newRingBuffer(rateHz uint32) *ringbuffer.ComplexBuffer {
	n := int(uint64(rateHz) * ringBufferMS / 1000)
	if n < 1 {
		n = 1
	}
	return ringbuffer.NewComplex(n)
}

// PushSamples is called by a backend's producer goroutine/callback; it is
// the only operation the producer performs under the device mutex
// (spec.md §9: "the only work performed there is a single ring-buffer
// write").
func (b *Base) PushSamples(samples []complex64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.buf.Len()
	b.buf.Write(samples)
	after := b.buf.Len()
	// an overrun is counted only when the buffer was already full before
	// this write (then every pushed sample overwrites oldest data); a
	// write that overflows a partly filled buffer is not counted.
	if after-before < len(samples) && before == b.buf.Cap() {
		b.stats.RXOverruns += uint64(len(samples))
	}
}

// ReadSamples implements the device.Device contract: 0 if under-full,
// exactly len(buf) otherwise.
func (b *Base) ReadSamples(buf sdr.SamplesC64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() < len(buf) {
		return 0, nil
	}
	n := b.buf.Read(buf)
	b.stats.RXSamples += uint64(n)
	return n, nil
}

// Read implements sdr.Reader by blocking-free best-effort reads; callers
// needing the full-read contract should use sdr.ReadFull. Every backend in
// this tree only ever produces SamplesC64 (native formats are normalized to
// complex64 before they reach the ring buffer), so a buf of any other
// concrete sdr.Samples type is rejected rather than converted.
func (b *Base) Read(buf sdr.Samples) (int, error) {
	c64, ok := buf.(sdr.SamplesC64)
	if !ok {
		return 0, nerr.New(nerr.EINVAL, "device: Read only supports SamplesC64, got %T", buf)
	}
	return b.ReadSamples(c64)
}

func (b *Base) SampleRate() uint {
	return uint(b.rate)
}

func (b *Base) SampleFormat() sdr.SampleFormat {
	return sdr.SampleFormatC64
}

func (b *Base) Status() Status {
	return b.status
}

func (b *Base) Stats() Stats {
	return b.stats
}

func (b *Base) resetStats() {
	b.stats = Stats{}
}

func (b *Base) setRate(rate uint32) error {
	if b.status.RXRunning {
		return nerr.ErrBusy
	}
	b.rate = rate
	b.buf = newRingBuffer(rate)
	return nil
}

// RXFrequency returns the last frequency accepted by SetRXFrequency.
func (b *Base) RXFrequency() rf.Hz {
	return b.freq
}

// Init sets up the embeddable fields a vendor backend outside this
// package cannot reach directly (they're unexported so a single mutex
// and ring buffer stay paired). Vendor backends (device/rtlsdr and
// siblings) call this from their factory in place of the direct field
// assignments file.go/stdin.go use from inside the package.
func (b *Base) Init(rate uint32, freq rf.Hz, freqCorrPPB int32) {
	b.rate = rate
	b.buf = newRingBuffer(rate)
	b.freq = freq
	b.freqCorrPPB = freqCorrPPB
}

// Rate returns the device's current configured sample rate.
func (b *Base) Rate() uint32 {
	return b.rate
}

// FreqCorrPPB returns the last value accepted by SetFrequencyCorrection.
func (b *Base) FreqCorrPPB() int32 {
	return b.freqCorrPPB
}

// SetFreq records the last frequency accepted by SetRXFrequency; vendor
// backends call this after successfully retuning the hardware.
func (b *Base) SetFreq(f rf.Hz) {
	b.freq = f
}

// SetFreqCorrPPB records the last accepted frequency-correction value.
func (b *Base) SetFreqCorrPPB(ppb int32) {
	b.freqCorrPPB = ppb
}

// SetRate is the exported form of setRate for vendor backends outside
// this package; it refuses to resize the ring buffer while RX is
// running, same as setRate.
func (b *Base) SetRate(rate uint32) error {
	return b.setRate(rate)
}

// ResetStats zeroes the stats counters; vendor backends call this from
// StartRX the way file.go/stdin.go call the unexported resetStats.
func (b *Base) ResetStats() {
	b.resetStats()
}

// SetDriverLoaded records whether the vendor library/driver has been
// successfully loaded.
func (b *Base) SetDriverLoaded(v bool) {
	b.status.DriverLoaded = v
}

// SetDeviceOpen records whether the hardware handle is open.
func (b *Base) SetDeviceOpen(v bool) {
	b.status.DeviceOpen = v
}

// SetRXRunning records whether the capture stream is active.
func (b *Base) SetRXRunning(v bool) {
	b.status.RXRunning = v
}
