//go:build limesdr

// Package limesdr is a cgo backend over LimeSuite for LimeSDR front ends
// (spec.md §4.11, C11), grounded on
// other_examples/fee00e27_hztools-go-sdr__lime-lime.go.go: the
// #cgo pkg-config: LimeSuite preamble, the rvToErr nonzero-return-means-
// check-LMS_GetLastErrorMessage convention, and the Options/Sdr struct
// shape used for Open/SetSampleRate/SetCenterFrequency. That file shows
// no streaming code (only device lifecycle and configuration calls), so
// the capture loop here is extrapolated from LimeSuite's documented
// streaming API (LMS_SetupStream/LMS_StartStream/LMS_RecvStream) rather
// than transcribed — noted in DESIGN.md.
package limesdr

/*
#cgo pkg-config: LimeSuite
#include <lime/LimeSuite.h>
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
	device.Register("limesdr", newLimeSDR)
}

// rvToErr mirrors lime.go's own rvToErr: a nonzero LimeSuite return code
// means check LMS_GetLastErrorMessage.
func rvToErr(rv C.int) error {
	if rv == 0 {
		return nil
	}
	return nerr.New(nerr.ELIB, "limesdr: %s", C.GoString(C.LMS_GetLastErrorMessage()))
}

// LimeSDR implements device.Device over a LimeSuite device handle.
type LimeSDR struct {
	device.Base

	dev     C.lms_device_t
	stream  C.lms_stream_t
	channel int

	stop chan struct{}
	done chan struct{}
}

func newLimeSDR(cfg device.Config) (device.Device, error) {
	d := &LimeSDR{}
	rate := cfg.Rate
	if rate == 0 {
		rate = 10000000
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *LimeSDR) Open() error {
	var list *C.lms_info_str_t
	n := C.LMS_GetDeviceList(list)
	if n < 0 {
		return rvToErr(C.int(n))
	}
	if rv := C.LMS_Open(&d.dev, nil, nil); rv != 0 {
		return rvToErr(rv)
	}
	if rv := C.LMS_Reset(d.dev); rv != 0 {
		return rvToErr(rv)
	}
	if rv := C.LMS_Init(d.dev); rv != 0 {
		return rvToErr(rv)
	}
	if rv := C.LMS_EnableChannel(d.dev, C.LMS_CH_RX, C.size_t(d.channel), true); rv != 0 {
		return rvToErr(rv)
	}
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	return d.SetRXSampleRate(d.Rate())
}

func (d *LimeSDR) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	if d.dev == nil {
		return nil
	}
	return rvToErr(C.LMS_Close(d.dev))
}

func (d *LimeSDR) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	d.stream = C.lms_stream_t{
		channel:        C.uint(d.channel),
		fifoSize:       1 << 20,
		throughputVsLatency: 0.5,
		isTx:           false,
		dataFmt:        C.LMS_FMT_F32,
	}
	if rv := C.LMS_SetupStream(d.dev, &d.stream); rv != 0 {
		return rvToErr(rv)
	}
	if rv := C.LMS_StartStream(&d.stream); rv != 0 {
		return rvToErr(rv)
	}
	d.ResetStats()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.SetRXRunning(true)
	go d.produce()
	return nil
}

func (d *LimeSDR) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	close(d.stop)
	<-d.done
	C.LMS_StopStream(&d.stream)
	C.LMS_DestroyStream(d.dev, &d.stream)
	d.SetRXRunning(false)
	return nil
}

// produce pulls interleaved float32 I/Q pairs from LMS_RecvStream. This
// loop's shape (poll, convert, push) is extrapolated from LimeSuite's
// documented F32 streaming contract, not transcribed from the example.
func (d *LimeSDR) produce() {
	defer close(d.done)
	const chunkLen = 4096
	raw := make([]C.float, chunkLen*2)
	chunk := make([]complex64, chunkLen)
	for {
		select {
		case <-d.stop:
			return
		default:
		}
		var meta C.lms_stream_meta_t
		n := C.LMS_RecvStream(&d.stream, unsafe.Pointer(&raw[0]), C.size_t(chunkLen), &meta, 1000)
		if n <= 0 {
			continue
		}
		for i := 0; i < int(n); i++ {
			chunk[i] = complex(float32(raw[2*i]), float32(raw[2*i+1]))
		}
		d.PushSamples(chunk[:n])
	}
}

func (d *LimeSDR) SetRXFrequency(f rf.Hz) error {
	if err := rvToErr(C.LMS_SetLOFrequency(d.dev, C.LMS_CH_RX, C.size_t(d.channel), C.double(f))); err != nil {
		return err
	}
	d.SetFreq(f)
	return nil
}

func (d *LimeSDR) SetRXSampleRate(rate uint32) error {
	if d.dev != nil {
		if rv := C.LMS_SetSampleRate(d.dev, C.double(rate), 0); rv != 0 {
			return rvToErr(rv)
		}
	}
	return d.SetRate(rate)
}

func (d *LimeSDR) SetRXBandwidth(bw uint32) error {
	if d.dev == nil {
		return nil
	}
	return rvToErr(C.LMS_SetLPFBW(d.dev, C.LMS_CH_RX, C.size_t(d.channel), C.double(bw)))
}

func (d *LimeSDR) SetRXGain(mode device.GainMode, gain int32) error {
	if d.dev == nil {
		return nil
	}
	if mode == device.GainAuto {
		return rvToErr(C.LMS_SetGFIRLPF(d.dev, C.LMS_CH_RX, C.size_t(d.channel), true, C.double(d.Rate())/2))
	}
	return rvToErr(C.LMS_SetNormalizedGain(d.dev, C.LMS_CH_RX, C.size_t(d.channel), C.double(gain)/100.0))
}

func (d *LimeSDR) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	if d.dev == nil {
		return nil
	}
	return rvToErr(C.LMS_SetClockFreq(d.dev, C.LMS_CLOCK_SXR, C.double(ppb)))
}

func (d *LimeSDR) SupportedRates() []uint32 {
	return []uint32{1000000, 2000000, 5000000, 10000000, 20000000}
}

func (d *LimeSDR) FrequencyRange() rf.Range {
	return rf.Range{100 * rf.KHz, 3800 * rf.MHz}
}

func (d *LimeSDR) TypeID() string {
	return "limesdr"
}

func (d *LimeSDR) HardwareInfo() sdr.HardwareInfo {
	var info C.lms_dev_info_t
	if d.dev != nil {
		C.LMS_GetDeviceInfo(d.dev, &info)
	}
	return sdr.HardwareInfo{
		Manufacturer: "Lime",
		Product:      C.GoString(&info.deviceName[0]),
		Serial:       C.GoString(&info.boardSerialNumber[0]),
	}
}
