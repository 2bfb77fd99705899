// Package alloc provides the engine's byte allocator family: a uniform
// polymorphic contract (Allocator) plus the concrete scoped-bump, segregated
// fit, thread-safe, proxy, and single-shot composite allocators used
// throughout the rest of the module.
package alloc

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Kind self-describes a concrete Allocator implementation.
type Kind int

// Allocator kinds, per spec.md §3.
const (
	KindHeap Kind = iota
	KindTemp
	KindBump
	KindTlsf
	KindProxy
	KindThreadSafe
)

func (k Kind) String() string {
	switch k {
	case KindHeap:
		return "heap"
	case KindTemp:
		return "temp"
	case KindBump:
		return "bump"
	case KindTlsf:
		return "tlsf"
	case KindProxy:
		return "proxy"
	case KindThreadSafe:
		return "thread-safe"
	default:
		return "unknown"
	}
}

// WordSize is the minimum alignment every allocator guarantees.
const WordSize = 8

// Allocator is the polymorphic capability every concrete allocator in this
// package satisfies. Alignment is always >= WordSize; the caller that
// allocated aligned is responsible for freeing aligned since alignment is
// never stored in an allocation header (spec.md §3).
type Allocator interface {
	// Malloc returns size bytes aligned to align, or nil on failure.
	Malloc(size int, align int) []byte
	// Realloc resizes a previously-allocated (or nil) slice to size bytes.
	// The returned slice may or may not alias buf.
	Realloc(buf []byte, size int, align int) []byte
	// Free releases buf. align must match the value passed to Malloc.
	Free(buf []byte, align int)
	// Kind self-describes this allocator for reporting and assertions.
	Kind() Kind
}

// FailCallback is invoked immediately before a top-level allocation wrapper
// asserts on an out-of-memory condition. Tests may override it to avoid
// process termination.
var FailCallback func(requested int, align int, kind Kind)

var log = logrus.WithField("subsystem", "alloc")

// MustMalloc wraps a.Malloc and asserts (panics) on nil, invoking
// FailCallback first, matching spec.md §3/§7's OutOfMemory policy: "top
// level malloc wrappers assert on null".
func MustMalloc(a Allocator, size int, align int) []byte {
	buf := a.Malloc(size, align)
	if buf == nil {
		if FailCallback != nil {
			FailCallback(size, align, a.Kind())
		}
		log.WithFields(logrus.Fields{
			"kind":  a.Kind(),
			"size":  size,
			"align": align,
		}).Panic("out of memory")
	}
	return buf
}

// alignUp rounds n up to the next multiple of align. align must be a power
// of two.
func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
