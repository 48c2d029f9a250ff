//go:build bladerf

// Package bladerf is a cgo backend over libbladeRF for BladeRF front
// ends (spec.md §4.11, C11). Same established idiom as the other vendor
// backends in this tree, applied to libbladeRF's synchronous streaming
// API (bladerf_sync_config/bladerf_sync_rx) rather than an async
// callback, since libbladeRF's sync interface is the documented simple
// path for a single RX channel.
package bladerf

/*
#cgo pkg-config: libbladeRF
#include <libbladeRF.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/device"
	"hz.tools/nanosdr/nerr"
)

func init() {
	device.Register("bladerf", newBladeRF)
}

// bladeRFScale normalizes BladeRF's native signed 12-bit-in-16-bit I/Q
// samples (spec.md §4.11: s12 format divides by 2048).
const bladeRFScale = 2048.0

// BladeRF implements device.Device over libbladeRF.
type BladeRF struct {
	device.Base

	dev     *C.struct_bladerf
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func newBladeRF(cfg device.Config) (device.Device, error) {
	d := &BladeRF{}
	rate := cfg.Rate
	if rate == 0 {
		rate = 10000000
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *BladeRF) Open() error {
	if rv := C.bladerf_open(&d.dev, nil); rv != 0 {
		return nerr.New(nerr.EOPEN, "bladerf: open: %d", int(rv))
	}
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	C.bladerf_set_sample_rate(d.dev, C.BLADERF_CHANNEL_RX(0), C.uint(d.Rate()), nil)
	const numBuffers, bufSize, numTransfers, streamTimeoutMS = 16, 8192, 8, 3500
	if rv := C.bladerf_sync_config(d.dev, C.BLADERF_RX_X1, C.BLADERF_FORMAT_SC16_Q11,
		numBuffers, bufSize, numTransfers, streamTimeoutMS); rv != 0 {
		return nerr.New(nerr.ELIB, "bladerf: sync_config: %d", int(rv))
	}
	return nil
}

func (d *BladeRF) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	if d.dev == nil {
		return nil
	}
	C.bladerf_close(d.dev)
	return nil
}

func (d *BladeRF) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	if rv := C.bladerf_enable_module(d.dev, C.BLADERF_CHANNEL_RX(0), true); rv != 0 {
		return nerr.New(nerr.ELIB, "bladerf: enable_module: %d", int(rv))
	}
	d.ResetStats()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.running = true
	d.SetRXRunning(true)
	go d.produce()
	return nil
}

func (d *BladeRF) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	d.running = false
	close(d.stop)
	<-d.done
	C.bladerf_enable_module(d.dev, C.BLADERF_CHANNEL_RX(0), false)
	d.SetRXRunning(false)
	return nil
}

func (d *BladeRF) produce() {
	defer close(d.done)
	const chunkLen = 4096
	raw := make([]C.int16_t, chunkLen*2)
	chunk := make([]complex64, chunkLen)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		rv := C.bladerf_sync_rx(d.dev, unsafe.Pointer(&raw[0]), C.uint(chunkLen), nil, 3500)
		if rv != 0 {
			continue
		}
		for i := 0; i < chunkLen; i++ {
			re := float32(raw[2*i]) / bladeRFScale
			im := float32(raw[2*i+1]) / bladeRFScale
			chunk[i] = complex(re, im)
		}
		d.PushSamples(chunk)
	}
}

func (d *BladeRF) SetRXFrequency(f rf.Hz) error {
	if d.dev != nil {
		if rv := C.bladerf_set_frequency(d.dev, C.BLADERF_CHANNEL_RX(0), C.uint64_t(f)); rv != 0 {
			return nerr.New(nerr.ELIB, "bladerf: set_frequency: %d", int(rv))
		}
	}
	d.SetFreq(f)
	return nil
}

func (d *BladeRF) SetRXSampleRate(rate uint32) error {
	if d.dev != nil {
		if rv := C.bladerf_set_sample_rate(d.dev, C.BLADERF_CHANNEL_RX(0), C.uint(rate), nil); rv != 0 {
			return nerr.New(nerr.ELIB, "bladerf: set_sample_rate: %d", int(rv))
		}
	}
	return d.SetRate(rate)
}

func (d *BladeRF) SetRXBandwidth(bw uint32) error {
	if d.dev == nil {
		return nil
	}
	return nerr.Wrap(int(C.bladerf_set_bandwidth(d.dev, C.BLADERF_CHANNEL_RX(0), C.uint(bw), nil)))
}

func (d *BladeRF) SetRXGain(mode device.GainMode, gain int32) error {
	if d.dev == nil {
		return nil
	}
	if mode == device.GainAuto {
		return nerr.Wrap(int(C.bladerf_set_gain_mode(d.dev, C.BLADERF_CHANNEL_RX(0), C.BLADERF_GAIN_DEFAULT)))
	}
	C.bladerf_set_gain_mode(d.dev, C.BLADERF_CHANNEL_RX(0), C.BLADERF_GAIN_MGC)
	return nerr.Wrap(int(C.bladerf_set_gain(d.dev, C.BLADERF_CHANNEL_RX(0), C.int(gain))))
}

func (d *BladeRF) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	return nil
}

func (d *BladeRF) SupportedRates() []uint32 {
	return []uint32{520834, 1000000, 5000000, 10000000, 20000000, 40000000}
}

func (d *BladeRF) FrequencyRange() rf.Range {
	return rf.Range{47 * rf.MHz, 6000 * rf.MHz}
}

func (d *BladeRF) TypeID() string {
	return "bladerf"
}

func (d *BladeRF) HardwareInfo() sdr.HardwareInfo {
	var serial C.struct_bladerf_serial
	if d.dev != nil {
		C.bladerf_get_serial_struct(d.dev, &serial)
	}
	return sdr.HardwareInfo{
		Manufacturer: "Nuand",
		Product:      "BladeRF",
		Serial:       C.GoString(&serial.serial[0]),
	}
}
