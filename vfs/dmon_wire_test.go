package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEncodeDecodeChangeEventsWireFormat pins the DMON payload to spec.md's
// built-in-command wire table: count:u32, { len:u32, bytes }* — one
// length-prefixed path per event, not one per field.
func TestEncodeDecodeChangeEventsWireFormat(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()
	v := New(nil)
	defer v.Close()
	_, err := v.MountLocal(dir1, "assets", false)
	require.NoError(t, err)
	_, err = v.MountLocal(dir2, "shaders", false)
	require.NoError(t, err)

	events := []changeEvent{
		{alias: "assets", relPath: "sub/texture.png"},
		{alias: "shaders", relPath: "lit.glsl"},
	}

	payload := encodeChangeEvents(events)

	// Exactly one length-prefixed string per event: 4 (count) + per-event
	// (4 + len(joined path)).
	wantLen := 4
	for _, ev := range events {
		wantLen += 4 + len(ev.alias) + 1 + len(ev.relPath)
	}
	require.Len(t, payload, wantLen)

	got := v.decodeChangeEvents(payload)
	require.Equal(t, events, got)
}

func TestDecodeChangeEventsUnresolvedAliasIsEmpty(t *testing.T) {
	v := New(nil)
	defer v.Close()

	payload := encodeChangeEvents([]changeEvent{{alias: "ghost", relPath: "x.bin"}})
	got := v.decodeChangeEvents(payload)
	require.Len(t, got, 1)
	require.Equal(t, "", got[0].alias)
	require.Equal(t, "ghost/x.bin", got[0].relPath)
}
