package sdriq

import (
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/nanosdr/device"
)

type fakePort struct {
	io.Reader
	io.Writer
}

func (fakePort) Close() error { return nil }

func TestSendControlItemHeaderEncodesLengthAndType(t *testing.T) {
	r, w := io.Pipe()
	d := &SDRIQ{}
	d.port = fakePort{Reader: r, Writer: w}

	go func() {
		require.NoError(t, d.sendControlItem(itemControl, []byte{0x01, 0x02}))
	}()

	header := make([]byte, 4)
	_, err := io.ReadFull(r, header)
	require.NoError(t, err)

	h := binary.LittleEndian.Uint16(header[0:2])
	assert.Equal(t, 4, int(h&0x1fff))
	assert.Equal(t, []byte{0x01, 0x02}, header[2:4])
}

func TestProducePushesDecodedIQSamples(t *testing.T) {
	r, w := io.Pipe()
	d := &SDRIQ{}
	d.Init(196078, 0, 0)
	d.port = fakePort{Reader: r, Writer: w}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go d.produce()
	defer func() {
		close(d.stop)
		w.Close()
		<-d.done
	}()

	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], uint16(int16(1000)))
	binary.LittleEndian.PutUint16(payload[2:4], uint16(int16(-2000)))

	header := uint16(len(payload)+2) | (itemIQData << 13 & 0xe000)
	frame := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(frame[0:2], header)
	copy(frame[2:], payload)

	go func() {
		_, _ = w.Write(frame)
	}()

	require.Eventually(t, func() bool {
		buf := make([]complex64, 1)
		n, _ := d.ReadSamples(buf)
		return n == 1
	}, time.Second, time.Millisecond)
}

func TestNewSDRIQDefaultsRate(t *testing.T) {
	d, err := newSDRIQ(device.Config{})
	require.NoError(t, err)
	assert.Equal(t, uint32(196078), d.(*SDRIQ).Rate())
}
