// Package engine implements the Engine Frame Harness: subsystem boot order,
// the per-frame update, and the init heap every other subsystem's named
// proxy allocators are rooted in (spec.md §4.9).
package engine

import (
	"strconv"

	"github.com/forgecore/enginecore/alloc"
	"github.com/forgecore/enginecore/config"
	"github.com/forgecore/enginecore/remote"
	"github.com/forgecore/enginecore/vfs"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("subsystem", "engine")

// defaultReserve is the init heap's default VM reservation, per spec.md
// §4.9 "sized generously, e.g. 2 GiB reserved".
const defaultReserve = 2 << 30 // 2 GiB

const initPageSize = 64 * 1024

// Harness owns the init heap, the named proxy allocators, settings, the
// remote layer, and the VFS, and drives per-frame update, per spec.md §4.9.
type Harness struct {
	initHeap *alloc.Bump
	proxies  map[string]*alloc.Proxy
	temp     *alloc.TempArena

	settings *config.Settings
	registry *remote.Registry
	vfs      *vfs.VFS

	frameIndex uint64
	shortcuts  *ShortcutTable

	updateFn func(dt float64)
}

// namedProxies are registered on boot for accounting, per spec.md §4.9
// "register named proxy allocators for the logging, asset, VFS, and
// graphics subsystems" and Domain Stack's prometheus wiring.
var namedProxies = []string{"logging", "asset", "vfs", "graphics"}

// Boot initialises subsystems in the order spec.md §4.9 mandates: init
// heap, named proxies, settings, remote, VFS.
func Boot(settingsPath string) (*Harness, error) {
	reserve := sizeInitHeapReserve()
	heap, err := alloc.NewBump(reserve, initPageSize)
	if err != nil {
		return nil, errors.Wrap(err, "engine: init heap reservation failed")
	}

	h := &Harness{
		initHeap:  heap,
		proxies:   make(map[string]*alloc.Proxy),
		shortcuts: NewShortcutTable(),
	}
	for _, name := range namedProxies {
		h.proxies[name] = alloc.NewProxy(name, heap, false)
	}

	settings, err := config.Load(settingsPath)
	if err != nil {
		h.initHeap.Release()
		return nil, errors.Wrap(err, "engine: settings load failed")
	}
	h.settings = settings

	debugAlloc := settings.Engine().DebugAllocations
	temp, err := alloc.NewTempArena(defaultReserve/4, initPageSize, debugAlloc)
	if err != nil {
		h.initHeap.Release()
		return nil, errors.Wrap(err, "engine: temp arena reservation failed")
	}
	h.temp = temp

	h.registry = remote.NewRegistry()
	tooling := settings.Tooling()
	engineOpts := settings.Engine()
	if tooling.EnableServer {
		addr := listenAddrForPort(tooling.ServerPort)
		if err := h.registry.StartServer(addr); err != nil {
			log.WithError(err).Warn("engine: failed to start remote server")
		}
	}
	if engineOpts.ConnectToServer {
		if err := h.registry.Connect(engineOpts.RemoteServicesURL); err != nil {
			log.WithError(err).Warn("engine: failed to connect to remote services")
		}
	}

	h.vfs = vfs.New(h.registry)

	log.Info("engine: boot complete")
	return h, nil
}

// Shutdown tears down subsystems in strict reverse boot order, per spec.md
// §4.9.
func (h *Harness) Shutdown() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(h.vfs.Close())
	record(h.registry.Close())
	if err := h.settings.Save(); err != nil {
		log.WithError(err).Warn("engine: settings save failed")
	}
	record(h.temp.Release())
	record(h.initHeap.Release())

	log.Info("engine: shutdown complete")
	return firstErr
}

// SetUpdateFn installs the per-frame callback invoked by Update.
func (h *Harness) SetUpdateFn(fn func(dt float64)) {
	h.updateFn = fn
}

// Update advances one frame: advances the frame index, resets the temp
// allocator (possibly decaying committed memory), and invokes the update
// callback with dt, per spec.md §4.9. The harness does not store dt.
func (h *Harness) Update(dt float64) {
	h.frameIndex++
	h.temp.Reset(dt)
	if h.updateFn != nil {
		h.updateFn(dt)
	}
}

// FrameIndex reports the current frame count.
func (h *Harness) FrameIndex() uint64 { return h.frameIndex }

// Settings exposes the loaded settings store.
func (h *Harness) Settings() *config.Settings { return h.settings }

// Registry exposes the remote command registry.
func (h *Harness) Registry() *remote.Registry { return h.registry }

// VFS exposes the virtual file system.
func (h *Harness) VFS() *vfs.VFS { return h.vfs }

// Temp exposes the per-frame temp arena.
func (h *Harness) Temp() *alloc.TempArena { return h.temp }

// Proxy looks up a named proxy allocator registered at boot.
func (h *Harness) Proxy(name string) *alloc.Proxy { return h.proxies[name] }

// Shortcuts exposes the key-chord dispatch table.
func (h *Harness) Shortcuts() *ShortcutTable { return h.shortcuts }

// sizeInitHeapReserve caps the default reservation at an eighth of host
// memory when that is smaller, so the harness behaves reasonably on
// memory-constrained hosts (Domain Stack: gopsutil "host memory stats used
// to size the init heap's VM reservation").
func sizeInitHeapReserve() int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.WithError(err).Warn("engine: failed to read host memory stats, using default reserve")
		return defaultReserve
	}
	budget := int(vm.Total / 8)
	if budget > 0 && budget < defaultReserve {
		log.WithField("hostMemTotal", vm.Total).WithField("reserve", budget).
			Warn("engine: constrained host memory, reducing init heap reservation")
		return budget
	}
	return defaultReserve
}

func listenAddrForPort(port int) string {
	return ":" + strconv.Itoa(port)
}
