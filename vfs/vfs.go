package vfs

import (
	"encoding/binary"
	"path"
	"sync"
	"time"

	"github.com/forgecore/enginecore/alloc"
	"github.com/forgecore/enginecore/remote"
	"github.com/forgecore/enginecore/wire"
	"github.com/pkg/errors"
)

// pollInterval is the DMON poller's period for remote mounts, per spec.md
// §4.7 "starts (once globally) a background poller that periodically
// issues the DMON command".
const pollInterval = 2 * time.Second

// VFS ties the mount table, the async worker, remote ferrying, and change
// watching into the single entry point the asset manager calls, per
// spec.md §4.7-§4.8.
type VFS struct {
	mounts *MountTable
	worker *worker
	remote *remoteIO
	reg    *remote.Registry

	watcherMu sync.Mutex
	watcher   *watcher

	pollOnce sync.Once
	pollQuit chan struct{}
}

// New constructs a VFS bound to an already-constructed remote registry.
// reg may be nil when only local mounts are used.
func New(reg *remote.Registry) *VFS {
	v := &VFS{
		mounts:   NewMountTable(),
		reg:      reg,
		pollQuit: make(chan struct{}),
	}
	v.worker = newWorker(v.runRequest)
	if reg != nil {
		v.remote = newRemoteIO(reg)
		v.remote.registerHandlers(v.localReadForServer, v.localWriteForServer, v.localStatForServer)
		v.registerDMON()
	}
	return v
}

func (v *VFS) localReadForServer(path string, flags Flags) ([]byte, error) {
	m, rest := v.mounts.Resolve(path)
	full := rest
	if m != nil && m.Kind == KindLocal {
		full = m.FullPath(rest)
	}
	return readLocalBlocking(full, flags)
}

func (v *VFS) localWriteForServer(path string, data []byte, flags Flags) (int, error) {
	m, rest := v.mounts.Resolve(path)
	full := rest
	if m != nil && m.Kind == KindLocal {
		full = m.FullPath(rest)
	}
	return writeLocalBlocking(full, data, flags)
}

func (v *VFS) localStatForServer(path string) (Info, error) {
	m, rest := v.mounts.Resolve(path)
	full := rest
	if m != nil && m.Kind == KindLocal {
		full = m.FullPath(rest)
	}
	return statLocal(full)
}

// MountLocal exposes MountTable.MountLocal, additionally watching the mount
// root (not its subdirectories) when requested (spec.md §4.7/§4.8).
func (v *VFS) MountLocal(rootDir, alias string, watch bool) (*Mount, error) {
	m, err := v.mounts.MountLocal(rootDir, alias, watch)
	if err != nil {
		return nil, err
	}
	if watch {
		if err := v.ensureWatcher(); err != nil {
			log.WithError(err).Warn("vfs: failed to start directory watcher")
		} else {
			if err := v.watcher.watchDir(m.Alias, m.RootPath); err != nil {
				log.WithError(err).WithField("root", m.RootPath).Warn("vfs: failed to watch mount root")
			}
		}
	}
	return m, nil
}

// MountRemote exposes MountTable.MountRemote and, when watch is set, starts
// the global DMON poller (once per VFS), per spec.md §4.7. Remote mounts
// made with watch unset do not start the poller.
func (v *VFS) MountRemote(alias string, watch bool) (*Mount, error) {
	m, err := v.mounts.MountRemote(alias, watch)
	if err != nil {
		return nil, err
	}
	if watch {
		v.pollOnce.Do(v.startPoller)
	}
	return m, nil
}

// MountPackageBundle exposes MountTable.MountPackageBundle.
func (v *VFS) MountPackageBundle(alias string) (*Mount, error) {
	return v.mounts.MountPackageBundle(alias)
}

func (v *VFS) ensureWatcher() error {
	v.watcherMu.Lock()
	defer v.watcherMu.Unlock()
	if v.watcher != nil {
		return nil
	}
	w, err := newWatcher()
	if err != nil {
		return err
	}
	v.watcher = w
	return nil
}

// RegisterFileChangeCallback installs a callback invoked immediately on
// local watch events, per spec.md §4.8.
func (v *VFS) RegisterFileChangeCallback(fn FileChangeCallback) {
	if err := v.ensureWatcher(); err != nil {
		log.WithError(err).Warn("vfs: failed to start directory watcher")
		return
	}
	v.watcherMu.Lock()
	w := v.watcher
	v.watcherMu.Unlock()
	w.onCallback(fn)
}

// ReadFileAsync enqueues a read on the worker (local/package-bundle mounts)
// or issues a remote request, resolving the path via the mount table first.
func (v *VFS) ReadFileAsync(req *Request) {
	v.dispatch(CmdRead, req)
}

// WriteFileAsync enqueues a write.
func (v *VFS) WriteFileAsync(req *Request) {
	v.dispatch(CmdWrite, req)
}

// StatAsync enqueues an Info request.
func (v *VFS) StatAsync(req *Request) {
	v.dispatch(CmdInfo, req)
}

func (v *VFS) dispatch(cmd Command, req *Request) {
	req.Command = cmd
	m, rest := v.mounts.Resolve(req.Path)
	req.mount = m
	req.rest = rest

	if m != nil && m.Kind == KindRemote {
		if v.remote == nil || !v.reg.Connected() {
			log.WithField("path", req.Path).Warn("vfs: remote mount not connected, dropping request")
			return
		}
		switch cmd {
		case CmdRead:
			v.remote.submitRead(req)
		case CmdWrite:
			v.remote.submitWrite(req)
		case CmdInfo:
			v.remote.submitInfo(req)
		}
		return
	}

	v.worker.enqueue(req)
}

func (v *VFS) fullPath(req *Request) string {
	if req.mount != nil && (req.mount.Kind == KindLocal || req.mount.Kind == KindPackageBundle) {
		return req.mount.FullPath(req.rest)
	}
	return req.rest
}

// runRequest executes one request on the worker goroutine (spec.md §4.8
// "Async worker").
func (v *VFS) runRequest(req *Request) {
	full := v.fullPath(req)
	switch req.Command {
	case CmdRead:
		data, err := readLocalBlocking(full, req.Flags)
		if err != nil {
			log.WithError(err).WithField("path", req.Path).Warn("vfs: async read failed")
			req.Callback(req, nil, Info{}, err)
			return
		}
		req.Callback(req, data, Info{}, nil)
	case CmdWrite:
		_, err := writeLocalBlocking(full, req.Data, req.Flags)
		if err != nil {
			log.WithError(err).WithField("path", req.Path).Warn("vfs: async write failed")
			req.Callback(req, nil, Info{}, err)
		} else {
			req.Callback(req, nil, Info{}, nil)
		}
		if req.Flags&NoCopy == 0 {
			req.Data = nil
		}
	case CmdInfo:
		info, err := statLocal(full)
		if err != nil {
			req.Callback(req, nil, Info{}, err)
			return
		}
		req.Callback(req, nil, info, nil)
	}
}

// ReadFileBlocking is permitted only on local and package-bundle mounts; it
// is a synchronous convenience wrapper. A remote blocking read is
// implemented as an async read that waits on a channel and logs a
// performance warning, per spec.md §4.8.
func (v *VFS) ReadFileBlocking(path string, flags Flags, a alloc.Allocator) ([]byte, error) {
	m, _ := v.mounts.Resolve(path)
	if m != nil && m.Kind == KindRemote {
		log.WithField("path", path).Warn("vfs: blocking read on remote mount, this is slow")
		return v.blockingRemoteRead(path, flags)
	}

	done := make(chan struct{})
	var data []byte
	var outErr error
	req := &Request{Path: path, Flags: flags, Allocator: a, Callback: func(_ *Request, d []byte, _ Info, err error) {
		data, outErr = d, err
		close(done)
	}}
	v.ReadFileAsync(req)
	<-done
	return data, outErr
}

func (v *VFS) blockingRemoteRead(path string, flags Flags) ([]byte, error) {
	done := make(chan struct{})
	var data []byte
	var outErr error
	req := &Request{Path: path, Flags: flags, Callback: func(_ *Request, d []byte, _ Info, err error) {
		data, outErr = d, err
		close(done)
	}}
	v.ReadFileAsync(req)
	select {
	case <-done:
	case <-time.After(pendingTTL):
		return nil, errors.New("vfs: blocking remote read timed out")
	}
	return data, outErr
}

// WriteFile is the synchronous write convenience wrapper.
func (v *VFS) WriteFile(path string, data []byte, flags Flags) error {
	done := make(chan struct{})
	var outErr error
	req := &Request{Path: path, Data: data, Flags: flags, Callback: func(_ *Request, _ []byte, _ Info, err error) {
		outErr = err
		close(done)
	}}
	v.WriteFileAsync(req)
	<-done
	return outErr
}

// registerDMON wires the DMON built-in command: the server replies with the
// drained local change buffer, the client dispatches each entry to its
// remote-mounted file-change callbacks, per spec.md §4.8 and §6.
func (v *VFS) registerDMON() {
	v.reg.Register(remote.Descriptor{
		FourCC: wire.DMON,
		ServerFn: func(_ interface{}, _ []byte) ([]byte, bool, bool, string) {
			v.watcherMu.Lock()
			w := v.watcher
			v.watcherMu.Unlock()
			if w == nil {
				return encodeCount(0), false, true, ""
			}
			events := w.drain()
			return encodeChangeEvents(events), false, true, ""
		},
		ClientFn: func(_ interface{}, isErr bool, payload []byte, errText string) {
			if isErr {
				log.WithField("error", errText).Warn("vfs: DMON poll failed")
				return
			}
			for _, ev := range v.decodeChangeEvents(payload) {
				v.watcherMu.Lock()
				w := v.watcher
				v.watcherMu.Unlock()
				if w != nil {
					w.mu.Lock()
					cbs := append([]FileChangeCallback(nil), w.callback...)
					w.mu.Unlock()
					for _, cb := range cbs {
						cb(ev.alias, ev.relPath)
					}
				}
			}
		},
	})
}

func (v *VFS) startPoller() {
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-v.pollQuit:
				return
			case <-ticker.C:
				if v.reg != nil && v.reg.Connected() {
					_ = v.reg.ExecuteCommand(wire.DMON, nil)
				}
			}
		}
	}()
}

func encodeCount(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

// encodeChangeEvents writes count:u32, { len:u32, bytes }* — one
// length-prefixed path per event, alias and relPath joined into a single
// unix path before length-prefixing, per spec.md's DMON wire table.
func encodeChangeEvents(events []changeEvent) []byte {
	out := encodeCount(uint32(len(events)))
	for _, ev := range events {
		out = append(out, encodeString(path.Join(ev.alias, ev.relPath))...)
	}
	return out
}

// decodeChangeEvents reads the DMON payload back into (alias, relPath)
// pairs, recovering the alias by resolving the joined path against the
// registered mount table, the same way Resolve splits any other VFS path.
func (v *VFS) decodeChangeEvents(payload []byte) []changeEvent {
	if len(payload) < 4 {
		return nil
	}
	count := binary.LittleEndian.Uint32(payload[:4])
	rest := payload[4:]
	out := make([]changeEvent, 0, count)
	for i := uint32(0); i < count; i++ {
		joined, next, err := decodeString(rest)
		if err != nil {
			break
		}
		rest = next
		m, relPath := v.mounts.Resolve(joined)
		alias := ""
		if m != nil {
			alias = m.Alias
		}
		out = append(out, changeEvent{alias: alias, relPath: relPath})
	}
	return out
}

// Close stops the worker, the watcher, and the remote poller, per spec.md
// §4.8 "Cancellation and shutdown": set quit, post the semaphore, join the
// worker. It does not close any socket; the remote registry's own Close
// does that. In-flight remote requests are abandoned; their callbacks are
// not invoked.
func (v *VFS) Close() error {
	select {
	case <-v.pollQuit:
	default:
		close(v.pollQuit)
	}
	v.worker.close()
	v.watcherMu.Lock()
	w := v.watcher
	v.watcherMu.Unlock()
	if w != nil {
		w.close()
	}
	return nil
}
