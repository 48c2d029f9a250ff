package device

import (
	"io"
	"os"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/nerr"
)

func init() {
	Register("file", newFile)
}

// File is a pure-Go backend that reads interleaved float32 I/Q pairs from
// a seekable file, standing in for the "file/stdin" vendor-less backends
// spec.md §4.11 lists — it needs no cgo and is what the test suite and
// scenario 2 (file backend, SSB) drive end-to-end.
type File struct {
	Base

	path string
	f    *os.File
	stop chan struct{}
	done chan struct{}
}

func newFile(cfg Config) (Device, error) {
	d := &File{path: cfg.Path}
	d.rate = cfg.Rate
	if d.rate == 0 {
		d.rate = DefaultFileRate
	}
	d.buf = newRingBuffer(d.rate)
	d.freq = cfg.Frequency
	d.freqCorrPPB = cfg.FreqCorrPPB
	return d, nil
}

// DefaultFileRate is used when a file-backend Config doesn't specify a
// sample rate.
const DefaultFileRate = 48000

func (d *File) Open() error {
	f, err := os.Open(d.path)
	if err != nil {
		return nerr.New(nerr.ENOTFOUND, "file: %v", err)
	}
	d.f = f
	d.status.DriverLoaded = true
	d.status.DeviceOpen = true
	return nil
}

func (d *File) Close() error {
	if d.status.RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.status.DeviceOpen = false
	if d.f == nil {
		return nil
	}
	return d.f.Close()
}

func (d *File) StartRX() error {
	if d.status.RXRunning {
		return nerr.ErrBusy
	}
	d.resetStats()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.status.RXRunning = true
	go d.produce()
	return nil
}

func (d *File) StopRX() error {
	if !d.status.RXRunning {
		return nil
	}
	close(d.stop)
	<-d.done
	d.status.RXRunning = false
	return nil
}

func (d *File) produce() {
	defer close(d.done)
	chunk := make([]complex64, 4096)
	raw := make([]float32, len(chunk)*2)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		n, err := readFloat32LE(d.f, raw)
		if n > 0 {
			for i := 0; i < n/2; i++ {
				chunk[i] = complex(raw[2*i], raw[2*i+1])
			}
			d.PushSamples(chunk[:n/2])
		}
		if err == io.EOF {
			return
		}
	}
}

func (d *File) SetRXFrequency(f rf.Hz) error {
	d.freq = f
	return nil
}

func (d *File) SetRXSampleRate(rate uint32) error {
	return d.setRate(rate)
}

func (d *File) SetRXBandwidth(uint32) error {
	return nil
}

func (d *File) SetRXGain(GainMode, int32) error {
	return nil
}

func (d *File) SetFrequencyCorrection(ppb int32) error {
	d.freqCorrPPB = ppb
	return nil
}

func (d *File) SupportedRates() []uint32 {
	return []uint32{d.rate}
}

func (d *File) FrequencyRange() rf.Range {
	return rf.Range{0, 6000 * rf.MHz}
}

func (d *File) TypeID() string {
	return "file"
}

func (d *File) HardwareInfo() sdr.HardwareInfo {
	return sdr.HardwareInfo{Product: "nanosdr file backend", Manufacturer: "nanosdr"}
}
