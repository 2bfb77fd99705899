package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTempArenaScoping(t *testing.T) {
	a, err := NewTempArena(1<<20, 4096, true)
	require.NoError(t, err)
	defer a.Release()

	before := a.bump.Offset()
	outer := a.Push()
	a.Malloc(128, 8)

	inner := a.Push()
	a.Malloc(64, 8)
	a.Pop(inner)

	a.Malloc(32, 8)
	a.Pop(outer)

	require.Equal(t, before, a.bump.Offset(), "offset after outer pop")
}

func TestTempArenaPopAssertsID(t *testing.T) {
	a, err := NewTempArena(1<<20, 4096, false)
	require.NoError(t, err)
	defer a.Release()

	id := a.Push()
	_ = a.Push()

	require.Panics(t, func() { a.Pop(id) }, "expected panic on mismatched pop id")
}
