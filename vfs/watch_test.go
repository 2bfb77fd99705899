package vfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestWatchResolvesAliasAndRelPath covers the watcher's mapping from an
// fsnotify absolute path back to the (alias, relPath) pair a
// FileChangeCallback expects, per spec.md §4.8.
func TestWatchResolvesAliasAndRelPath(t *testing.T) {
	dir := t.TempDir()
	w, err := newWatcher()
	require.NoError(t, err)
	defer w.close()

	require.NoError(t, w.watchDir("assets", dir))

	alias, rel := w.resolve(filepath.Join(dir, "sub", "texture.png"))
	require.Equal(t, "assets", alias)
	require.Equal(t, "sub/texture.png", rel)
}

// TestWatchCallbackReceivesAliasOnLiveEvent exercises the full fsnotify path:
// a real file write under a watched mount must invoke a registered
// FileChangeCallback with the mount's alias, not an empty string.
func TestWatchCallbackReceivesAliasOnLiveEvent(t *testing.T) {
	dir := t.TempDir()
	v := New(nil)
	defer v.Close()

	_, err := v.MountLocal(dir, "assets", true)
	require.NoError(t, err)

	seen := make(chan string, 1)
	v.RegisterFileChangeCallback(func(alias, relPath string) {
		select {
		case seen <- alias:
		default:
		}
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "touched.bin"), []byte{1}, 0o644))

	select {
	case alias := <-seen:
		require.Equal(t, "assets", alias)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file change callback")
	}
}
