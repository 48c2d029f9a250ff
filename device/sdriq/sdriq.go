// Package sdriq is a pure-Go backend for the RFSPACE SDR-IQ, which
// enumerates as a USB-serial device and speaks a small control/data-item
// framing protocol over that port rather than a vendor cgo library
// (spec.md §4.11, C11). Uses github.com/tarm/serial, the serial-port
// library carried by the example pack's nwpulei-cw module, to open the
// port; the item framing itself (2-byte little-endian length/type header
// + payload) is modeled on the SDR-IQ's published USB protocol, the same
// way device/file models raw interleaved float32 I/Q framing.
package sdriq

import (
	"encoding/binary"
	"io"

	"github.com/tarm/serial"

	"hz.tools/rf"
	"hz.tools/sdr"

	"hz.tools/nanosdr/device"
	"hz.tools/nanosdr/nerr"
)

func init() {
	device.Register("sdriq", newSDRIQ)
}

// itemType values are the 3-bit type field in the top bits of the SDR-IQ
// item header: 0 for control items (set/ack), 4 for streaming I/Q data.
const (
	itemControl = 0x0
	itemIQData  = 0x4
)

const sdrIQScale = 32768.0

// SDRIQ implements device.Device over the SDR-IQ's USB-serial framing.
type SDRIQ struct {
	device.Base

	portName string
	port     io.ReadWriteCloser

	stop chan struct{}
	done chan struct{}
}

func newSDRIQ(cfg device.Config) (device.Device, error) {
	d := &SDRIQ{portName: cfg.Path}
	rate := cfg.Rate
	if rate == 0 {
		rate = 196078 // SDR-IQ's native 190kHz-class decimation rate
	}
	d.Init(rate, cfg.Frequency, cfg.FreqCorrPPB)
	return d, nil
}

func (d *SDRIQ) Open() error {
	if d.portName == "" {
		d.portName = "/dev/ttyUSB0"
	}
	cfg := &serial.Config{Name: d.portName, Baud: 4000000}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nerr.New(nerr.EOPEN, "sdriq: %v", err)
	}
	d.port = port
	d.SetDriverLoaded(true)
	d.SetDeviceOpen(true)
	return nil
}

func (d *SDRIQ) Close() error {
	if d.Status().RXRunning {
		if err := d.StopRX(); err != nil {
			return err
		}
	}
	d.SetDeviceOpen(false)
	if d.port == nil {
		return nil
	}
	return d.port.Close()
}

// sendControlItem writes a SDR-IQ control item: 2-byte little-endian
// length-and-type header, then payload.
func (d *SDRIQ) sendControlItem(typ uint16, payload []byte) error {
	header := uint16(len(payload)+2) | (typ << 13 & 0xe000)
	buf := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], header)
	copy(buf[2:], payload)
	_, err := d.port.Write(buf)
	return err
}

func (d *SDRIQ) StartRX() error {
	if d.Status().RXRunning {
		return nerr.ErrBusy
	}
	// Item 0x0018, IQ data output mode "on". The payload is fixed; the
	// configured sample rate is not sent to the device.
	if err := d.sendControlItem(0x0018, []byte{0x80, 0x02, 0x01}); err != nil {
		return nerr.New(nerr.ELIB, "sdriq: start: %v", err)
	}
	d.ResetStats()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.SetRXRunning(true)
	go d.produce()
	return nil
}

func (d *SDRIQ) StopRX() error {
	if !d.Status().RXRunning {
		return nil
	}
	_ = d.sendControlItem(0x0018, []byte{0x80, 0x01, 0x00})
	close(d.stop)
	<-d.done
	d.SetRXRunning(false)
	return nil
}

func (d *SDRIQ) produce() {
	defer close(d.done)
	header := make([]byte, 2)
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		if _, err := io.ReadFull(d.port, header); err != nil {
			if err == io.EOF {
				return
			}
			continue
		}
		h := binary.LittleEndian.Uint16(header)
		length := int(h & 0x1fff)
		typ := (h >> 13) & 0x7
		if length < 2 {
			continue
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(d.port, payload); err != nil {
			if err == io.EOF {
				return
			}
			continue
		}
		if typ != itemIQData {
			continue
		}

		n := len(payload) / 4 // 2 bytes I + 2 bytes Q, s16 each
		chunk := make([]complex64, n)
		for i := 0; i < n; i++ {
			re := int16(binary.LittleEndian.Uint16(payload[4*i:]))
			im := int16(binary.LittleEndian.Uint16(payload[4*i+2:]))
			chunk[i] = complex(float32(re)/sdrIQScale, float32(im)/sdrIQScale)
		}
		d.PushSamples(chunk)
	}
}

func (d *SDRIQ) SetRXFrequency(f rf.Hz) error {
	if d.port != nil {
		payload := make([]byte, 6)
		payload[0] = 0 // NCO channel 0
		binary.LittleEndian.PutUint32(payload[1:5], uint32(f))
		if err := d.sendControlItem(0x0020, payload[:5]); err != nil {
			return nerr.New(nerr.ELIB, "sdriq: set_frequency: %v", err)
		}
	}
	d.SetFreq(f)
	return nil
}

func (d *SDRIQ) SetRXSampleRate(rate uint32) error {
	return d.SetRate(rate)
}

func (d *SDRIQ) SetRXBandwidth(uint32) error {
	return nil
}

func (d *SDRIQ) SetRXGain(mode device.GainMode, gain int32) error {
	if d.port == nil {
		return nil
	}
	var rfGain byte
	if mode == device.GainAuto {
		rfGain = 0
	} else {
		rfGain = byte(gain)
	}
	return d.sendControlItem(0x0038, []byte{0x00, rfGain})
}

func (d *SDRIQ) SetFrequencyCorrection(ppb int32) error {
	d.SetFreqCorrPPB(ppb)
	return nil
}

func (d *SDRIQ) SupportedRates() []uint32 {
	return []uint32{8138, 16276, 37793, 55556, 111111, 196078}
}

func (d *SDRIQ) FrequencyRange() rf.Range {
	return rf.Range{0, 33 * rf.MHz}
}

func (d *SDRIQ) TypeID() string {
	return "sdriq"
}

func (d *SDRIQ) HardwareInfo() sdr.HardwareInfo {
	return sdr.HardwareInfo{Manufacturer: "RFSPACE", Product: "SDR-IQ"}
}
