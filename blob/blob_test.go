package blob

import (
	"testing"

	"github.com/forgecore/enginecore/alloc"
	"github.com/stretchr/testify/require"
)

func TestBlobStringRoundTrip(t *testing.T) {
	b := New(alloc.Heap{}, GrowMultiply, 0)
	defer b.Free()

	want := "the quick brown fox jumps over the lazy dog"
	require.NoError(t, b.WriteStringBinary(want))
	b.Rewind()

	dst := make([]byte, len(want))
	n, err := b.ReadStringBinary(dst)
	require.NoError(t, err)
	require.Equal(t, want, string(dst[:n]))
}

func TestBlobTypedRoundTrip(t *testing.T) {
	b := New(alloc.Heap{}, GrowLinear, 64)
	defer b.Free()

	require.NoError(t, WriteT[uint32](b, 0xDEADBEEF))
	require.NoError(t, WriteT[int64](b, -12345))
	b.Rewind()

	v1, err := ReadT[uint32](b)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v1)

	v2, err := ReadT[int64](b)
	require.NoError(t, err)
	require.Equal(t, int64(-12345), v2)
}

func TestBlobInvariantReadOffsetLEQSize(t *testing.T) {
	b := New(alloc.Heap{}, GrowMultiply, 0)
	defer b.Free()

	require.NoError(t, b.Write([]byte("hello")))
	dst := make([]byte, 10)
	require.Error(t, b.Read(dst), "expected short read error")
	require.LessOrEqual(t, b.ReadOffset(), b.Size())
}

func TestBlobDetach(t *testing.T) {
	b := New(alloc.Heap{}, GrowMultiply, 0)
	require.NoError(t, b.Write([]byte("payload")))
	buf, size := b.Detach()
	require.Equal(t, 7, size)
	require.Equal(t, "payload", string(buf))
	require.Equal(t, 0, b.Size())
	require.Equal(t, 0, b.Capacity())
}

func TestBlobFixedCapacityRejectsGrowth(t *testing.T) {
	b := New(alloc.Heap{}, GrowNone, 0)
	defer b.Free()
	require.ErrorIs(t, b.Write([]byte("x")), ErrFixedCapacity)
}
