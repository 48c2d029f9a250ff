package ringbuffer

import "unsafe"

// complexToBytes reinterprets a []complex64 as a []byte without copying, so
// ComplexBuffer can reuse Buffer's byte-oriented storage on the hot path.
func complexToBytes(p []complex64) []byte {
	if len(p) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&p[0])), len(p)*complexSize)
}
