package vfs

import (
	"strings"
	"sync"
	"time"

	"github.com/aalpar/deheap"
	"github.com/fsnotify/fsnotify"
)

// FileChangeCallback is invoked for each dedup'd change event, per spec.md
// §4.8 "Locally-registered FileChangeCallbacks are invoked immediately."
type FileChangeCallback func(alias, relPath string)

// changeEvent is "(alias + relative-path) pairs" ordered by arrival time so
// DMON drains oldest-first, per spec.md §4.8.
type changeEvent struct {
	alias   string
	relPath string
	seenAt  time.Time
	index   int
}

// changeEventHeap implements deheap.Interface (Len/Less/Swap/Push/Pop,
// ordered by seenAt) so the watcher can maintain a time-ordered,
// dedup'd set of pending change events (Domain Stack: deheap "time-ordered
// draining of dedup'd file-change events").
type changeEventHeap []*changeEvent

func (h changeEventHeap) Len() int            { return len(h) }
func (h changeEventHeap) Less(i, j int) bool   { return h[i].seenAt.Before(h[j].seenAt) }
func (h changeEventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *changeEventHeap) Push(x interface{}) {
	ev := x.(*changeEvent)
	ev.index = len(*h)
	*h = append(*h, ev)
}
func (h *changeEventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// watcher holds directory watches on the roots of watch-enabled local mounts
// and the dedup'd, time-ordered pending change set drained by both
// locally-registered callbacks and the DMON command (spec.md §4.8
// "Watching").
type watcher struct {
	mu       sync.Mutex
	heap     changeEventHeap
	seen     map[string]*changeEvent // "alias\x00relPath" -> entry
	roots    map[string]string       // normalized root path -> alias
	fsw      *fsnotify.Watcher
	callback []FileChangeCallback

	quit chan struct{}
	done chan struct{}
}

func newWatcher() (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		seen:  make(map[string]*changeEvent),
		roots: make(map[string]string),
		fsw:   fsw,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	deheap.Init(&w.heap)
	go w.loop()
	return w, nil
}

// watchDir adds root to the OS-level watch and remembers which mount alias
// it belongs to, so events arriving as absolute paths can be reported back
// as (alias, relPath) pairs. Only root itself is watched: changes inside
// its subdirectories produce no events.
func (w *watcher) watchDir(alias, root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	w.mu.Lock()
	w.roots[normalizePath(root)] = alias
	w.mu.Unlock()
	return nil
}

// resolve maps an absolute fsnotify event path back to its mount alias and
// path relative to that mount's root, using the longest matching root.
func (w *watcher) resolve(absPath string) (alias, relPath string) {
	clean := normalizePath(absPath)

	w.mu.Lock()
	defer w.mu.Unlock()
	bestRoot := ""
	for root := range w.roots {
		if (clean == root || strings.HasPrefix(clean, root+"/")) && len(root) > len(bestRoot) {
			bestRoot = root
		}
	}
	if bestRoot == "" {
		return "", clean
	}
	return w.roots[bestRoot], strings.TrimPrefix(strings.TrimPrefix(clean, bestRoot), "/")
}

func (w *watcher) onCallback(fn FileChangeCallback) {
	w.mu.Lock()
	w.callback = append(w.callback, fn)
	w.mu.Unlock()
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			alias, relPath := w.resolve(ev.Name)
			w.record(alias, relPath)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Logged, not fatal: a transient watch error does not tear down
			// the session (spec.md §7 recoverable I/O errors policy).
			log.WithError(err).Warn("vfs: directory watch error")
		}
	}
}

func (w *watcher) record(alias, relPath string) {
	key := alias + "\x00" + relPath

	w.mu.Lock()
	if ev, dup := w.seen[key]; dup {
		ev.seenAt = time.Now()
		deheap.Fix(&w.heap, ev.index)
	} else {
		ev := &changeEvent{alias: alias, relPath: relPath, seenAt: time.Now()}
		w.seen[key] = ev
		deheap.Push(&w.heap, ev)
	}
	callbacks := append([]FileChangeCallback(nil), w.callback...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(alias, relPath)
	}
}

// drain pops every pending event in arrival order and clears the buffer,
// for the DMON command handler (spec.md §4.8).
func (w *watcher) drain() []changeEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]changeEvent, 0, w.heap.Len())
	for w.heap.Len() > 0 {
		ev := deheap.PopMin(&w.heap).(*changeEvent)
		delete(w.seen, ev.alias+"\x00"+ev.relPath)
		out = append(out, *ev)
	}
	return out
}

func (w *watcher) close() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
	w.fsw.Close()
	<-w.done
}
