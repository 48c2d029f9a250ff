//go:build rtlsdr

// Package rtlsdr is a cgo backend over librtlsdr for RTL2832U dongles
// (spec.md §4.11, C11). librtlsdr itself isn't in the example pack, so
// this follows the #cgo pkg-config / rvToErr-style error wrapping / async
// read-callback idiom established by device/limesdr and device/sdrplay
// (themselves grounded on the pack's lime.go and mirsdr.go), applied to
// librtlsdr's well-known rtlsdr_read_async API.
package rtlsdr

/*
#cgo pkg-config: librtlsdr
#include <rtl-sdr.h>
#include <stdlib.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/device"
	"hz.tools/nanosdr/nerr"
)

func init() {
	device.Register("rtlsdr", newRTLSDR)
}

// rtlDSFreq is the direct-sampling switchover frequency (spec.md §4.11):
// above it the tuner path is used, below it (down to ~500kHz) the ADC
// samples the HF input directly. SetRXFrequency puts the tuner back into
// manual gain mode after each DS_CHANNEL_Q/I switch (Open Question 4,
// DESIGN.md).
const rtlDSFreq = 24000000

// RTLSDR implements device.Device over librtlsdr.
type RTLSDR struct {
	device.Base

	dev        *C.rtlsdr_dev_t
	index      C.uint32_t
	directSamp bool
	handle     cgo.Handle
	running    bool
}

func newRTLSDR(cfg device.Config) (device.Device, error) {
	d := &RTLSDR{}
	rate := cfg.Rate
	if rate == 0 {
		rate = 2048000
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *RTLSDR) Open() error {
	if C.rtlsdr_get_device_count() == 0 {
		return nerr.New(nerr.ENOTFOUND, "rtlsdr: no devices found")
	}
	if rv := C.rtlsdr_open(&d.dev, d.index); rv != 0 {
		return nerr.New(nerr.EOPEN, "rtlsdr: open: %d", int(rv))
	}
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	C.rtlsdr_set_sample_rate(d.dev, C.uint32_t(d.Rate()))
	C.rtlsdr_set_tuner_gain_mode(d.dev, 1)
	return nil
}

func (d *RTLSDR) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	if d.dev == nil {
		return nil
	}
	return nerr.Wrap(int(C.rtlsdr_close(d.dev)))
}

func (d *RTLSDR) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	if rv := C.rtlsdr_reset_buffer(d.dev); rv != 0 {
		return nerr.New(nerr.ELIB, "rtlsdr: reset_buffer: %d", int(rv))
	}
	d.handle = cgo.NewHandle(d)
	d.ResetStats()
	d.running = true
	d.SetRXRunning(true)
	go func() {
		// rtlsdr_read_async blocks until rtlsdr_cancel_async is called
		// from StopRX; run it on its own OS-driven goroutine.
		C.rtlsdr_read_async(d.dev, C.rtlsdr_read_async_cb_t(C.readAsyncCb), unsafe.Pointer(&d.handle), 0, 16*16384)
	}()
	return nil
}

func (d *RTLSDR) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	d.running = false
	C.rtlsdr_cancel_async(d.dev)
	d.handle.Delete()
	d.SetRXRunning(false)
	return nil
}

//export readAsyncCb
func readAsyncCb(buf *C.uchar, length C.uint32_t, ctx unsafe.Pointer) {
	h := *(*cgo.Handle)(ctx)
	d, ok := h.Value().(*RTLSDR)
	if !ok || !d.running {
		return
	}
	n := int(length) / 2
	raw := unsafe.Slice((*uint8)(unsafe.Pointer(buf)), int(length))
	chunk := make([]complex64, n)
	for i := 0; i < n; i++ {
		// u8 IQ normalization (spec.md §4.11): (x - 127.4) / 127.5.
		re := (float32(raw[2*i]) - 127.4) / 127.5
		im := (float32(raw[2*i+1]) - 127.4) / 127.5
		chunk[i] = complex(re, im)
	}
	d.PushSamples(chunk)
}

func (d *RTLSDR) SetRXFrequency(f rf.Hz) error {
	if d.dev == nil {
		d.SetFreq(f)
		return nil
	}
	wasDS := d.directSamp
	d.directSamp = f < rtlDSFreq
	if rv := C.rtlsdr_set_direct_sampling(d.dev, boolToC(d.directSamp)); rv != 0 {
		return nerr.New(nerr.ELIB, "rtlsdr: set_direct_sampling: %d", int(rv))
	}
	if rv := C.rtlsdr_set_center_freq(d.dev, C.uint32_t(f)); rv != 0 {
		return nerr.New(nerr.ELIB, "rtlsdr: set_center_freq: %d", int(rv))
	}
	if wasDS != d.directSamp {
		// Open Question 4: the tuner gain chain resets when direct
		// sampling toggles, so manual gain mode is set again here. The
		// gain value last passed to SetRXGain is not re-sent, and an
		// automatic gain mode is not restored.
		C.rtlsdr_set_tuner_gain_mode(d.dev, 1)
	}
	d.SetFreq(f)
	return nil
}

func boolToC(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (d *RTLSDR) SetRXSampleRate(rate uint32) error {
	if d.dev != nil {
		if rv := C.rtlsdr_set_sample_rate(d.dev, C.uint32_t(rate)); rv != 0 {
			return nerr.New(nerr.ELIB, "rtlsdr: set_sample_rate: %d", int(rv))
		}
	}
	return d.SetRate(rate)
}

func (d *RTLSDR) SetRXBandwidth(bw uint32) error {
	if d.dev == nil {
		return nil
	}
	return nerr.Wrap(int(C.rtlsdr_set_tuner_bandwidth(d.dev, C.uint32_t(bw))))
}

func (d *RTLSDR) SetRXGain(mode device.GainMode, gain int32) error {
	if d.dev == nil {
		return nil
	}
	if mode == device.GainAuto {
		return nerr.Wrap(int(C.rtlsdr_set_tuner_gain_mode(d.dev, 0)))
	}
	C.rtlsdr_set_tuner_gain_mode(d.dev, 1)
	return nerr.Wrap(int(C.rtlsdr_set_tuner_gain(d.dev, C.int(gain*10))))
}

func (d *RTLSDR) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	if d.dev == nil {
		return nil
	}
	return nerr.Wrap(int(C.rtlsdr_set_freq_correction(d.dev, C.int(ppb/1000))))
}

func (d *RTLSDR) SupportedRates() []uint32 {
	return []uint32{250000, 1024000, 1536000, 1920000, 2048000, 2400000, 3200000}
}

func (d *RTLSDR) FrequencyRange() rf.Range {
	return rf.Range{500 * rf.KHz, 1766 * rf.MHz}
}

func (d *RTLSDR) TypeID() string {
	return "rtlsdr"
}

func (d *RTLSDR) HardwareInfo() sdr.HardwareInfo {
	var manuf, product, serial [256]C.char
	if d.dev != nil {
		C.rtlsdr_get_usb_strings(d.dev, &manuf[0], &product[0], &serial[0])
	}
	return sdr.HardwareInfo{
		Manufacturer: C.GoString(&manuf[0]),
		Product:      C.GoString(&product[0]),
		Serial:       C.GoString(&serial[0]),
	}
}
