package vfs

// Bridge marshals VFS completion callbacks (fired on the worker or a remote
// I/O goroutine) onto a single consumer goroutine, e.g. the engine's main
// thread. This is the "optional queue-to-thread helper" spec.md §9 calls
// for without mandating it.
type Bridge struct {
	ch chan func()
}

// NewBridge creates a Bridge with the given backlog capacity.
func NewBridge(capacity int) *Bridge {
	return &Bridge{ch: make(chan func(), capacity)}
}

// Wrap returns a Callback that posts fn's invocation onto the bridge
// channel instead of calling it inline.
func (b *Bridge) Wrap(fn Callback) Callback {
	return func(req *Request, data []byte, info Info, err error) {
		b.ch <- func() { fn(req, data, info, err) }
	}
}

// Drain runs every pending posted callback on the calling goroutine; a
// typical caller is the engine's per-frame update (spec.md §4.9).
func (b *Bridge) Drain() {
	for {
		select {
		case fn := <-b.ch:
			fn()
		default:
			return
		}
	}
}
