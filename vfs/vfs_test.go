package vfs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestBootAndShutdown is the "Boot and shutdown" scenario from spec.md §8.
func TestBootAndShutdown(t *testing.T) {
	dir := t.TempDir()
	v := New(nil)
	_, err := v.MountLocal(dir, "data", false)
	require.NoError(t, err)
	require.NoError(t, v.Close())
}

// TestLocalRead is the "Local read" scenario from spec.md §8.
func TestLocalRead(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.bin"), data, 0o644))

	v := New(nil)
	defer v.Close()
	_, err := v.MountLocal(dir, "data", false)
	require.NoError(t, err)

	done := make(chan struct{})
	var got []byte
	var gotErr error
	v.ReadFileAsync(&Request{Path: "/data/hello.bin", Callback: func(_ *Request, d []byte, _ Info, err error) {
		got, gotErr = d, err
		close(done)
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read callback")
	}
	require.NoError(t, gotErr)
	require.Len(t, got, 12)
	for i, b := range got {
		require.Equal(t, i, int(b))
	}
}

// TestTextFlagAppendsNul is the "Text flag" scenario from spec.md §8.
func TestTextFlagAppendsNul(t *testing.T) {
	dir := t.TempDir()
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.bin"), data, 0o644))

	v := New(nil)
	defer v.Close()
	_, err := v.MountLocal(dir, "data", false)
	require.NoError(t, err)

	got, err := v.ReadFileBlocking("/data/hello.bin", TextFile, nil)
	require.NoError(t, err)
	require.Len(t, got, 13)
	require.Zero(t, got[12], "last byte should be the appended NUL")
}

// TestAtomicWriteCreatesDirs is the "Atomic write" scenario from spec.md §8.
func TestAtomicWriteCreatesDirs(t *testing.T) {
	dir := t.TempDir()
	v := New(nil)
	defer v.Close()
	_, err := v.MountLocal(dir, "data", false)
	require.NoError(t, err)

	require.NoError(t, v.WriteFile("/data/new/sub/file.bin", []byte{1, 2, 3, 4}, CreateDirs))

	target := filepath.Join(dir, "new", "sub", "file.bin")
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

// TestAsyncReadOrdering is testable property #8 from spec.md §8: reads
// enqueued in order on the same mount complete in that order.
func TestAsyncReadOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bin", "b.bin"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}

	v := New(nil)
	defer v.Close()
	_, err := v.MountLocal(dir, "data", false)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 2)

	cb := func(req *Request, _ []byte, _ Info, _ error) {
		mu.Lock()
		order = append(order, req.Path)
		mu.Unlock()
		done <- struct{}{}
	}
	v.ReadFileAsync(&Request{Path: "/data/a.bin", Callback: cb})
	v.ReadFileAsync(&Request{Path: "/data/b.bin", Callback: cb})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reads")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/data/a.bin", "/data/b.bin"}, order)
}
