package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTLSFAllocFreeValidate(t *testing.T) {
	tl := NewTLSF(1<<16, true)
	require.True(t, tl.Validate(), "fresh pool should validate")

	a := tl.Malloc(100, 8)
	b := tl.Malloc(200, 8)
	c := tl.Malloc(50, 8)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	require.True(t, tl.Validate(), "pool should validate after allocations")

	tl.Free(b, 8)
	require.True(t, tl.Validate(), "pool should validate after free")

	frag := tl.CalculateFragmentation()
	require.GreaterOrEqual(t, frag, 0.0)
	require.LessOrEqual(t, frag, 1.0)

	tl.Free(a, 8)
	tl.Free(c, 8)
	require.True(t, tl.Validate(), "pool should validate after freeing everything")
	require.Equal(t, 0, tl.Allocated(), "expected 0 allocated after freeing all")
}

func TestTLSFCoalescesAdjacentFreeBlocks(t *testing.T) {
	tl := NewTLSF(4096, false)
	a := tl.Malloc(100, 8)
	b := tl.Malloc(100, 8)
	c := tl.Malloc(100, 8)

	tl.Free(a, 8)
	tl.Free(b, 8)
	tl.Free(c, 8)

	require.True(t, tl.Validate(), "adjacent free blocks should coalesce and remain valid")

	// A single large allocation should now be satisfiable from the
	// coalesced remainder.
	big := tl.Malloc(3000, 8)
	require.NotNil(t, big, "expected coalesced free space to satisfy a large allocation")
}
