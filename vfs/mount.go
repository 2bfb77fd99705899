// Package vfs implements the Virtual File System: mount points over local
// directories, remote peers, and packaged bundles, with blocking and
// asynchronous I/O, atomic writes, and change notification (spec.md §4.7-§4.8).
package vfs

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("subsystem", "vfs")

// Kind distinguishes the three mount backings (spec.md §3 "VFS Mount").
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
	KindPackageBundle
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	case KindPackageBundle:
		return "package-bundle"
	default:
		return "unknown"
	}
}

// Mount is {kind, rootPath, alias, watchToken}, per spec.md §3.
type Mount struct {
	Kind     Kind
	RootPath string
	Alias    string
	Watch    bool
}

// MountTable maps alias-rooted paths to local directories, remote peers, or
// packaged bundles (spec.md §4.7).
type MountTable struct {
	mu      sync.RWMutex
	mounts  []*Mount
	byAlias map[string]*Mount
	byRoot  map[string]*Mount
}

// NewMountTable constructs an empty table.
func NewMountTable() *MountTable {
	return &MountTable{
		byAlias: make(map[string]*Mount),
		byRoot:  make(map[string]*Mount),
	}
}

// normalizePath converts backslashes to slashes (Windows input, per spec.md
// §6 "Filesystem layout") and collapses to a clean unix-style path.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean(p)
}

// MountLocal asserts rootDir exists and is a directory, normalises it to an
// absolute unix path, and refuses duplicate aliases or duplicate roots, per
// spec.md §4.7.
func (t *MountTable) MountLocal(rootDir, alias string, watch bool) (*Mount, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: mount local %q", rootDir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("vfs: mount local %q: not a directory", rootDir)
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: mount local %q", rootDir)
	}
	abs = normalizePath(abs)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.byAlias[alias]; dup {
		log.WithField("alias", alias).Panic("vfs: duplicate mount alias")
	}
	if _, dup := t.byRoot[abs]; dup {
		log.WithField("root", abs).Panic("vfs: duplicate mount root")
	}

	m := &Mount{Kind: KindLocal, RootPath: abs, Alias: alias, Watch: watch}
	t.mounts = append(t.mounts, m)
	t.byAlias[alias] = m
	t.byRoot[abs] = m
	return m, nil
}

// MountRemote records alias against the configured remote peer; the caller
// (vfs.VFS) is responsible for starting the DMON poller once globally, per
// spec.md §4.7.
func (t *MountTable) MountRemote(alias string, watch bool) (*Mount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.byAlias[alias]; dup {
		log.WithField("alias", alias).Panic("vfs: duplicate mount alias")
	}
	m := &Mount{Kind: KindRemote, Alias: alias, Watch: watch}
	t.mounts = append(t.mounts, m)
	t.byAlias[alias] = m
	return m, nil
}

// MountPackageBundle routes reads through the platform asset manager;
// mobile-only in the original, a stub surface here since no platform asset
// manager collaborator exists in this module (spec.md §1 "out of scope").
func (t *MountTable) MountPackageBundle(alias string) (*Mount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.byAlias[alias]; dup {
		log.WithField("alias", alias).Panic("vfs: duplicate mount alias")
	}
	m := &Mount{Kind: KindPackageBundle, Alias: alias}
	t.mounts = append(t.mounts, m)
	t.byAlias[alias] = m
	return m, nil
}

// Resolve strips a leading '/', finds the mount whose alias equals the first
// path segment, and returns that mount plus the remainder. Unmatched paths
// fall through to raw host access (spec.md §4.7, testable property #7).
func (t *MountTable) Resolve(p string) (mount *Mount, rest string) {
	p = normalizePath(p)
	trimmed := strings.TrimPrefix(p, "/")

	seg := trimmed
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		seg = trimmed[:idx]
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.byAlias[seg]
	if !ok {
		return nil, p
	}
	rest = strings.TrimPrefix(trimmed, seg)
	rest = strings.TrimPrefix(rest, "/")
	return m, rest
}

// FullPath joins a local mount's root with a resolved remainder path.
func (m *Mount) FullPath(rest string) string {
	return path.Join(m.RootPath, rest)
}

// Mounts returns a snapshot of all registered mounts.
func (t *MountTable) Mounts() []*Mount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Mount, len(t.mounts))
	copy(out, t.mounts)
	return out
}
