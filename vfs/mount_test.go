package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestResolveMountedAlias is testable property #7 from spec.md §8.
func TestResolveMountedAlias(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	table := NewMountTable()
	_, err := table.MountLocal(dir, "assets", false)
	require.NoError(t, err)

	m, rest := table.Resolve("/assets/x/y")
	require.NotNil(t, m, "expected a mount match")
	require.Equal(t, "x/y", rest)
	require.Equal(t, m.RootPath+"/x/y", m.FullPath(rest))
}

func TestResolveFallsThroughUnmatched(t *testing.T) {
	t.Parallel()
	table := NewMountTable()
	m, rest := table.Resolve("/other/x")
	require.Nil(t, m, "expected no mount, got %+v", m)
	require.Equal(t, "/other/x", rest)
}

func TestResolveDoesNotMatchAcrossSlashBoundary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	table := NewMountTable()
	_, err := table.MountLocal(dir, "asset", false)
	require.NoError(t, err)
	m, rest := table.Resolve("/assets/x")
	require.Nil(t, m, "expected no match for overlapping prefix, got %+v rest=%q", m, rest)
}

func TestMountLocalRejectsDuplicateAlias(t *testing.T) {
	t.Parallel()
	dir1, dir2 := t.TempDir(), t.TempDir()
	table := NewMountTable()
	_, err := table.MountLocal(dir1, "assets", false)
	require.NoError(t, err)

	require.Panics(t, func() {
		table.MountLocal(dir2, "assets", false)
	}, "expected panic on duplicate alias")
}
