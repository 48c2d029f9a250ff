//go:build sdrplay

// Package sdrplay is a cgo backend over mirsdrapi-rsp for SDRplay RSP
// front ends (spec.md §4.11, C11), grounded on
// other_examples/8db9fc51_iclac-sdrplay__mirsdr.go.go: the
// #cgo CFLAGS/LDFLAGS preamble, the extern StreamCallback/AGCCallback
// forward declarations wired into mir_sdr_StreamInit through a static
// inline C trampoline (streamInit), and the mir_sdr_ErrT-based error
// convention. That file's own //export StreamCallback Go implementation
// lives in a sibling source file this pack doesn't carry, so the sample
// delivery side below is grounded on the well-known cgo pattern for a
// C-driven push callback: a runtime/cgo.Handle passed through the
// callback's void *cbContext so the C side can't hold a raw Go pointer.
package sdrplay

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmirsdrapi-rsp
#include <mirsdrapi-rsp.h>
#include <stdlib.h>

extern void goStreamCallback(short *xi, short *xq, unsigned int firstSampleNum,
	int grChanged, int rfChanged, int fsChanged, unsigned int numSamples,
	unsigned int reset, void *cbContext);
extern void goAGCCallback(unsigned int grdB, unsigned int lnagrdB, void *cbContext);

static void streamCallback(short *xi, short *xq, unsigned int firstSampleNum,
	int grChanged, int rfChanged, int fsChanged, unsigned int numSamples,
	unsigned int reset, void *cbContext) {
	goStreamCallback(xi, xq, firstSampleNum, grChanged, rfChanged, fsChanged,
		numSamples, reset, cbContext);
}

static void agcCallback(unsigned int grdB, unsigned int lnagrdB, void *cbContext) {
	goAGCCallback(grdB, lnagrdB, cbContext);
}

static mir_sdr_ErrT streamInit(int *gRdB, double fsMHz, double rfMHz,
	mir_sdr_Bw_MHzT bwType, mir_sdr_If_kHzT ifType, int LNAEnable,
	int *gRdBsystem, int useGrAltMode, int *samplesPerPacket, void *ctx) {
	return mir_sdr_StreamInit(gRdB, fsMHz, rfMHz, bwType, ifType, LNAEnable,
		gRdBsystem, useGrAltMode, samplesPerPacket, streamCallback,
		agcCallback, ctx);
}
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
	device.Register("sdrplay", newSDRplay)
}

// Normalization constant for mirsdrapi-rsp's signed-16-bit baseband
// samples (spec.md §4.11: SDRplay's native format normalizes as
// (x - 0.5) / 32767.5).
const sdrplayNormOffset = 0.5
const sdrplayNormScale = 32767.5

func toErr(e C.mir_sdr_ErrT) error {
	if e == C.mir_sdr_Success {
		return nil
	}
	return nerr.New(nerr.ELIB, "sdrplay: mir_sdr error %d", int(e))
}

// SDRplay implements device.Device over mirsdrapi-rsp.
type SDRplay struct {
	device.Base

	gr      C.int
	grSys   C.int
	spp     C.int
	handle  cgo.Handle
	running bool
}

func newSDRplay(cfg device.Config) (device.Device, error) {
	d := &SDRplay{}
	rate := cfg.Rate
	if rate == 0 {
		rate = 2048000
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *SDRplay) Open() error {
	var vr C.float
	if ev := C.mir_sdr_ApiVersion(&vr); ev != 0 {
		return nerr.New(nerr.ELIB, "sdrplay: api version check: %d", int(ev))
	}
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	return nil
}

func (d *SDRplay) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	return nil
}

func (d *SDRplay) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	d.handle = cgo.NewHandle(d)
	fsMHz := float64(d.Rate()) / 1e6
	rfMHz := float64(d.RXFrequency()) / 1e6
	if err := toErr(C.streamInit(&d.gr, C.double(fsMHz), C.double(rfMHz),
		C.mir_sdr_BW_1_536, C.mir_sdr_IF_Zero, 0, &d.grSys, 1, &d.spp,
		unsafe.Pointer(&d.handle))); err != nil {
		d.handle.Delete()
		return err
	}
	d.ResetStats()
	d.SetRXRunning(true)
	d.running = true
	return nil
}

func (d *SDRplay) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	err := toErr(C.mir_sdr_StreamUninit())
	d.handle.Delete()
	d.running = false
	d.SetRXRunning(false)
	return err
}

//export goStreamCallback
func goStreamCallback(xi, xq *C.short, firstSampleNum C.uint, grChanged, rfChanged, fsChanged C.int, numSamples, reset C.uint, cbContext unsafe.Pointer) {
	h := *(*cgo.Handle)(cbContext)
	d, ok := h.Value().(*SDRplay)
	if !ok || !d.running {
		return
	}
	n := int(numSamples)
	xiSlice := unsafe.Slice(xi, n)
	xqSlice := unsafe.Slice(xq, n)
	chunk := make([]complex64, n)
	for i := 0; i < n; i++ {
		re := (float32(xiSlice[i]) - sdrplayNormOffset) / sdrplayNormScale
		im := (float32(xqSlice[i]) - sdrplayNormOffset) / sdrplayNormScale
		chunk[i] = complex(re, im)
	}
	d.PushSamples(chunk)
}

//export goAGCCallback
func goAGCCallback(grdB, lnagrdB C.uint, cbContext unsafe.Pointer) {}

func (d *SDRplay) SetRXFrequency(f rf.Hz) error {
	if d.running {
		if err := toErr(C.mir_sdr_SetRf(C.double(float64(f)), 1, 0)); err != nil {
			return err
		}
	}
	d.SetFreq(f)
	return nil
}

func (d *SDRplay) SetRXSampleRate(rate uint32) error {
	return d.SetRate(rate)
}

func (d *SDRplay) SetRXBandwidth(uint32) error {
	return nil
}

func (d *SDRplay) SetRXGain(mode device.GainMode, gain int32) error {
	if !d.running {
		return nil
	}
	reduction := C.int(gain)
	return toErr(C.mir_sdr_SetGrAltMode(&reduction, 0, &d.grSys, 1, 0))
}

func (d *SDRplay) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	if !d.running {
		return nil
	}
	return toErr(C.mir_sdr_SetPpm(C.double(ppb)))
}

func (d *SDRplay) SupportedRates() []uint32 {
	return []uint32{2048000, 4000000, 6000000, 8000000, 10000000}
}

func (d *SDRplay) FrequencyRange() rf.Range {
	return rf.Range{1 * rf.MHz, 2000 * rf.MHz}
}

func (d *SDRplay) TypeID() string {
	return "sdrplay"
}

func (d *SDRplay) HardwareInfo() sdr.HardwareInfo {
	return sdr.HardwareInfo{Manufacturer: "SDRplay", Product: "RSP"}
}
