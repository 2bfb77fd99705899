package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompositePacking(t *testing.T) {
	h := Heap{}
	b := NewCompositeBuilder(16, 8)
	b.AddField("name", 0, 1, 32, 1, false)
	b.AddField("children", 8, 4, 10, 4, true)

	c := b.Calloc(h)
	require.NotNil(t, c, "calloc failed")

	total := b.TotalSize()
	require.Len(t, c.Base(), total)

	name := c.ResolveField("name")
	require.Len(t, name, 32)
	children := c.ResolveField("children")
	require.Len(t, children, 40)

	// Every resolved field must land within the allocated block.
	base := c.Base()
	baseStart := addrOf(base)
	for _, region := range [][]byte{name, children} {
		if len(region) == 0 {
			continue
		}
		s := addrOf(region)
		require.False(t, s < baseStart || s+uintptr(len(region)) > baseStart+uintptr(len(base)), "field escaped allocated block")
	}
}
