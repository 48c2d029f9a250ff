package ringbuffer

// ComplexBuffer is a thin wrapper around Buffer that stores complex64
// samples instead of raw bytes — the inter-stage sample bus type used
// everywhere except the final PCM audio output (spec.md §3).
//
// It scales counts by the element size (8 bytes: two float32s) and
// reinterprets the backing array, so the overwrite-on-full and
// short-read-returns-zero semantics of Buffer carry over unchanged.
type ComplexBuffer struct {
	inner *Buffer
}

const complexSize = 8 // 2 * 4 bytes (re, im as float32)

// NewComplex allocates a ComplexBuffer that holds at most n complex64
// samples.
func NewComplex(n int) *ComplexBuffer {
	return &ComplexBuffer{inner: New(n * complexSize)}
}

// Len returns the number of complex64 samples currently stored.
func (c *ComplexBuffer) Len() int {
	return c.inner.Len() / complexSize
}

// Cap returns the buffer's fixed capacity in samples.
func (c *ComplexBuffer) Cap() int {
	return c.inner.Cap() / complexSize
}

// Full reports whether the buffer holds Cap() samples.
func (c *ComplexBuffer) Full() bool {
	return c.inner.Full()
}

// Resize discards the buffer's contents and reallocates it to hold n
// complex64 samples.
func (c *ComplexBuffer) Resize(n int) {
	c.inner.Resize(n * complexSize)
}

// Clear empties the buffer without reallocating.
func (c *ComplexBuffer) Clear() {
	c.inner.Clear()
}

// Write stores p into the buffer, dropping the oldest samples on overflow,
// and returns the number of samples retained.
func (c *ComplexBuffer) Write(p []complex64) int {
	return c.inner.Write(complexToBytes(p)) / complexSize
}

// Read copies up to len(p) of the oldest stored samples into p. It returns
// the number of samples copied, or 0 if fewer than len(p) samples are
// available.
func (c *ComplexBuffer) Read(p []complex64) int {
	return c.inner.Read(complexToBytes(p)) / complexSize
}
