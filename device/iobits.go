package device

import (
	"encoding/binary"
	"io"
	"math"
)

// readFloat32LE fills dst with little-endian float32 values read from r,
// returning the number of float32 elements filled. Used by the pure-Go
// file and stdin backends to parse a raw interleaved I/Q stream.
func readFloat32LE(r io.Reader, dst []float32) (int, error) {
	raw := make([]byte, len(dst)*4)
	n, err := io.ReadFull(r, raw)
	full := n / 4
	for i := 0; i < full; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		dst[i] = math.Float32frombits(bits)
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return full, err
}
