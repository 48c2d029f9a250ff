package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(16)
	in := []byte("hello world12345")[:16]
	n := b.Write(in)
	require.Equal(t, 16, n)
	require.True(t, b.Full())

	out := make([]byte, 16)
	n = b.Read(out)
	require.Equal(t, 16, n)
	assert.Equal(t, in, out)
	assert.Equal(t, 0, b.Len())
}

func TestReadMoreThanAvailableReturnsZero(t *testing.T) {
	b := New(8)
	b.Write([]byte("ab"))

	out := make([]byte, 4)
	n := b.Read(out)
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, b.Len(), "a failed read must not advance the cursor")
}

func TestOverwriteOnFullKeepsNewest(t *testing.T) {
	b := New(4)
	b.Write([]byte{1, 2, 3, 4})
	n := b.Write([]byte{5, 6})
	require.Equal(t, 2, n)
	require.Equal(t, 4, b.Len())

	out := make([]byte, 4)
	b.Read(out)
	assert.Equal(t, []byte{3, 4, 5, 6}, out)
}

func TestResizeDiscardsContents(t *testing.T) {
	b := New(4)
	b.Write([]byte{1, 2, 3, 4})
	b.Resize(8)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 8, b.Cap())
}

func TestWriteLargerThanCapacityKeepsOnlyNewest(t *testing.T) {
	b := New(4)
	n := b.Write([]byte{1, 2, 3, 4, 5, 6})
	require.Equal(t, 4, n)

	out := make([]byte, 4)
	b.Read(out)
	assert.Equal(t, []byte{3, 4, 5, 6}, out)
}

// TestWrapAroundRoundTrip exercises the two-memcpy wrap path by writing and
// reading in a pattern that walks start across the end of the backing array.
func TestWrapAroundRoundTrip(t *testing.T) {
	b := New(8)
	scratch := make([]byte, 8)

	for round := 0; round < 20; round++ {
		data := []byte{byte(round), byte(round + 1), byte(round + 2)}
		b.Write(data)
		n := b.Read(scratch[:3])
		require.Equal(t, 3, n)
		assert.Equal(t, data, scratch[:3])
	}
}

// PROPERTY: writing N random bytes into an empty buffer of size >= N and then
// reading N bytes back reproduces the original sequence (spec.md §8).
func TestPropertyRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 256).Draw(rt, "size")
		n := rapid.IntRange(0, size).Draw(rt, "n")
		data := rapid.SliceOfN(rapid.Byte(), n, n).Draw(rt, "data")

		b := New(size)
		written := b.Write(data)
		if written != n {
			rt.Fatalf("wrote %d, wanted %d", written, n)
		}

		out := make([]byte, n)
		read := b.Read(out)
		if read != n {
			rt.Fatalf("read %d, wanted %d", read, n)
		}
		for i := range data {
			if data[i] != out[i] {
				rt.Fatalf("byte %d mismatch: %d != %d", i, data[i], out[i])
			}
		}
	})
}

// PROPERTY: after writing k <= size bytes into a buffer holding c bytes,
// count == min(c+k, size) (spec.md §8).
func TestPropertyCountInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 128).Draw(rt, "size")
		c := rapid.IntRange(0, size).Draw(rt, "c")
		k := rapid.IntRange(0, size).Draw(rt, "k")

		b := New(size)
		b.Write(make([]byte, c))
		b.Write(make([]byte, k))

		want := c + k
		if want > size {
			want = size
		}
		if b.Len() != want {
			rt.Fatalf("count = %d, want %d", b.Len(), want)
		}
	})
}

func TestComplexRoundTrip(t *testing.T) {
	b := NewComplex(4)
	in := []complex64{1 + 2i, 3 + 4i, 5 + 6i, 7 + 8i}
	n := b.Write(in)
	require.Equal(t, 4, n)

	out := make([]complex64, 4)
	n = b.Read(out)
	require.Equal(t, 4, n)
	assert.Equal(t, in, out)
}

func TestComplexOverwriteOnFull(t *testing.T) {
	b := NewComplex(2)
	b.Write([]complex64{1, 2})
	b.Write([]complex64{3})

	out := make([]complex64, 2)
	b.Read(out)
	assert.Equal(t, []complex64{2, 3}, out)
}
