package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootAndShutdown(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.ini")
	h, err := Boot(settingsPath)
	require.NoError(t, err)
	require.NotNil(t, h.Proxy("vfs"), "expected a named vfs proxy")
	require.NoError(t, h.Shutdown())
}

func TestUpdateAdvancesFrameIndex(t *testing.T) {
	settingsPath := filepath.Join(t.TempDir(), "settings.ini")
	h, err := Boot(settingsPath)
	require.NoError(t, err)
	defer h.Shutdown()

	var gotDt float64
	h.SetUpdateFn(func(dt float64) { gotDt = dt })
	h.Update(0.016)
	require.EqualValues(t, 1, h.FrameIndex())
	require.Equal(t, 0.016, gotDt)

	h.Update(0.016)
	require.EqualValues(t, 2, h.FrameIndex())
}

func TestShortcutChordParsing(t *testing.T) {
	table := NewShortcutTable()
	fired := false
	table.Register("K+SHIFT+CTRL", func() { fired = true })

	require.True(t, table.Dispatch("k+ctrl+shift"), "expected chord with reordered modifiers to dispatch")
	require.True(t, fired, "expected callback to fire")

	require.False(t, table.Dispatch("K+SHIFT"), "expected a chord missing a modifier to not match")
}
