package alloc

import (
	"runtime"
	"sync/atomic"
)

const cacheLineSize = 64

// ThreadSafe wraps a base Allocator in a spin-lock, cache-line padded to
// avoid false sharing with neighboring fields (spec.md §4.1). It is the
// only supported path for sharing a non-thread-safe allocator (Bump, TLSF)
// across goroutines, per spec.md §5.
type ThreadSafe struct {
	locked int32
	_      [cacheLineSize - 4]byte // padding, see above
	base   Allocator
}

// NewThreadSafe wraps base with a spin-lock.
func NewThreadSafe(base Allocator) *ThreadSafe {
	return &ThreadSafe{base: base}
}

func (t *ThreadSafe) Kind() Kind { return KindThreadSafe }

func (t *ThreadSafe) lock() {
	for !atomic.CompareAndSwapInt32(&t.locked, 0, 1) {
		runtime.Gosched()
	}
}

func (t *ThreadSafe) unlock() {
	atomic.StoreInt32(&t.locked, 0)
}

func (t *ThreadSafe) Malloc(size, align int) []byte {
	t.lock()
	defer t.unlock()
	return t.base.Malloc(size, align)
}

func (t *ThreadSafe) Realloc(buf []byte, size, align int) []byte {
	t.lock()
	defer t.unlock()
	return t.base.Realloc(buf, size, align)
}

func (t *ThreadSafe) Free(buf []byte, align int) {
	t.lock()
	defer t.unlock()
	t.base.Free(buf, align)
}
