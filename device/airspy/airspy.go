//go:build airspy

// Package airspy is a cgo backend over libairspy for Airspy front ends
// (spec.md §4.11, C11). Same established idiom as device/rtlsdr and
// device/limesdr (#cgo pkg-config, a C-callback-into-Go push path via
// runtime/cgo.Handle), applied to libairspy's airspy_start_rx API.
// Airspy's native sample format is already float32 I/Q (spec.md §4.11),
// so no scale/offset conversion is needed on the hot path.
package airspy

/*
#cgo pkg-config: libairspy
#include <libairspy/airspy.h>
#include <stdlib.h>

extern int goAirspyCallback(airspy_transfer *transfer);
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
	device.Register("airspy", newAirspy)
}

// Airspy implements device.Device over libairspy.
type Airspy struct {
	device.Base

	dev     *C.struct_airspy_device
	handle  cgo.Handle
	running bool
}

func newAirspy(cfg device.Config) (device.Device, error) {
	d := &Airspy{}
	rate := cfg.Rate
	if rate == 0 {
		rate = 10000000
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *Airspy) Open() error {
	if rv := C.airspy_open(&d.dev); rv != C.AIRSPY_SUCCESS {
		return nerr.New(nerr.EOPEN, "airspy: open: %d", int(rv))
	}
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	C.airspy_set_sample_type(d.dev, C.AIRSPY_SAMPLE_FLOAT32_IQ)
	C.airspy_set_samplerate(d.dev, C.uint32_t(d.Rate()))
	return nil
}

func (d *Airspy) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	if d.dev == nil {
		return nil
	}
	return nerr.Wrap(int(C.airspy_close(d.dev)))
}

func (d *Airspy) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	d.handle = cgo.NewHandle(d)
	d.running = true
	if rv := C.airspy_start_rx(d.dev,
		(C.airspy_sample_block_cb_fn)(C.goAirspyCallback),
		unsafe.Pointer(&d.handle)); rv != C.AIRSPY_SUCCESS {
		d.running = false
		d.handle.Delete()
		return nerr.New(nerr.ELIB, "airspy: start_rx: %d", int(rv))
	}
	d.ResetStats()
	d.SetRXRunning(true)
	return nil
}

func (d *Airspy) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	d.running = false
	C.airspy_stop_rx(d.dev)
	d.handle.Delete()
	d.SetRXRunning(false)
	return nil
}

//export goAirspyCallback
func goAirspyCallback(transfer *C.airspy_transfer) C.int {
	h := *(*cgo.Handle)(transfer.ctx)
	d, ok := h.Value().(*Airspy)
	if !ok || !d.running {
		return 0
	}
	n := int(transfer.sample_count)
	raw := unsafe.Slice((*float32)(transfer.samples), n*2)
	chunk := make([]complex64, n)
	for i := 0; i < n; i++ {
		chunk[i] = complex(raw[2*i], raw[2*i+1])
	}
	d.PushSamples(chunk)
	return 0
}

func (d *Airspy) SetRXFrequency(f rf.Hz) error {
	if d.dev != nil {
		if rv := C.airspy_set_freq(d.dev, C.uint32_t(f)); rv != C.AIRSPY_SUCCESS {
			return nerr.New(nerr.ELIB, "airspy: set_freq: %d", int(rv))
		}
	}
	d.SetFreq(f)
	return nil
}

func (d *Airspy) SetRXSampleRate(rate uint32) error {
	if d.dev != nil {
		if rv := C.airspy_set_samplerate(d.dev, C.uint32_t(rate)); rv != C.AIRSPY_SUCCESS {
			return nerr.New(nerr.ELIB, "airspy: set_samplerate: %d", int(rv))
		}
	}
	return d.SetRate(rate)
}

func (d *Airspy) SetRXBandwidth(uint32) error {
	return nil
}

func (d *Airspy) SetRXGain(mode device.GainMode, gain int32) error {
	if d.dev == nil {
		return nil
	}
	if mode == device.GainAuto {
		C.airspy_set_lna_agc(d.dev, 1)
		return nerr.Wrap(int(C.airspy_set_mixer_agc(d.dev, 1)))
	}
	C.airspy_set_lna_agc(d.dev, 0)
	C.airspy_set_mixer_agc(d.dev, 0)
	return nerr.Wrap(int(C.airspy_set_linearity_gain(d.dev, C.uint8_t(gain*21/100))))
}

func (d *Airspy) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	return nil
}

func (d *Airspy) SupportedRates() []uint32 {
	return []uint32{2500000, 6000000, 10000000}
}

func (d *Airspy) FrequencyRange() rf.Range {
	return rf.Range{24 * rf.MHz, 1800 * rf.MHz}
}

func (d *Airspy) TypeID() string {
	return "airspy"
}

func (d *Airspy) HardwareInfo() sdr.HardwareInfo {
	return sdr.HardwareInfo{Manufacturer: "Airspy", Product: "Airspy"}
}
