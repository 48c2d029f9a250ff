package device

import (
	"io"
	"os"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/nerr"
)

func init() {
	Register("stdin", newStdin)
}

// Stdin reads a raw interleaved float32 I/Q stream from os.Stdin. Like
// File, it needs no vendor library and is the other backend the test
// suite can drive end-to-end.
type Stdin struct {
	Base

	r    io.Reader
	stop chan struct{}
	done chan struct{}
}

func newStdin(cfg Config) (Device, error) {
	d := &Stdin{r: os.Stdin}
	d.rate = cfg.Rate
	if d.rate == 0 {
		d.rate = DefaultFileRate
	}
	d.buf = newRingBuffer(d.rate)
	d.freq = cfg.Frequency
	d.freqCorrPPB = cfg.FreqCorrPPB
	return d, nil
}

func (d *Stdin) Open() error {
	d.status.DriverLoaded = true
	d.status.DeviceOpen = true
	return nil
}

func (d *Stdin) Close() error {
	if d.status.RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.status.DeviceOpen = false
	return nil
}

func (d *Stdin) StartRX() error {
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

func (d *Stdin) StopRX() error {
	if !d.status.RXRunning {
		return nil
	}
	close(d.stop)
	<-d.done
	d.status.RXRunning = false
	return nil
}

func (d *Stdin) produce() {
	defer close(d.done)
	chunk := make([]complex64, 4096)
	raw := make([]float32, len(chunk)*2)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		n, err := readFloat32LE(d.r, raw)
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

func (d *Stdin) SetRXFrequency(f rf.Hz) error {
	d.freq = f
	return nil
}

func (d *Stdin) SetRXSampleRate(rate uint32) error {
	return d.setRate(rate)
}

func (d *Stdin) SetRXBandwidth(uint32) error {
	return nil
}

func (d *Stdin) SetRXGain(GainMode, int32) error {
	return nil
}

func (d *Stdin) SetFrequencyCorrection(ppb int32) error {
	d.freqCorrPPB = ppb
	return nil
}

func (d *Stdin) SupportedRates() []uint32 {
	return []uint32{d.rate}
}

func (d *Stdin) FrequencyRange() rf.Range {
	return rf.Range{0, 6000 * rf.MHz}
}

func (d *Stdin) TypeID() string {
	return "stdin"
}

func (d *Stdin) HardwareInfo() sdr.HardwareInfo {
	return sdr.HardwareInfo{Product: "nanosdr stdin backend", Manufacturer: "nanosdr"}
}
