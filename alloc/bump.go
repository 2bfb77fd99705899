package alloc

import (
	"github.com/pkg/errors"
)

const defaultPageSize = 4096

// Bump is a VM-backed bump allocator: a reserved virtual range R with a
// committed prefix C <= R and an offset O <= C. Allocation advances O,
// committing additional pages as needed. Free only rewinds when the freed
// pointer was the most recent allocation; every other free is a no-op.
// Per spec.md §4.1 "Bump (VM-backed)". Not thread-safe — wrap with
// ThreadSafe to share across goroutines.
type Bump struct {
	vm       vmReservation
	region   []byte
	reserved int
	pageSize int
	committed int
	offset    int

	lastOff int
	lastLen int
	hasLast bool

	peak int
}

// NewBump reserves `reserve` bytes of address space without committing them.
// pageSize governs the commit granularity; 0 selects a sane default.
func NewBump(reserve int, pageSize int) (*Bump, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	vm := newVMReservation()
	region, err := vm.reserve(reserve)
	if err != nil {
		return nil, errors.Wrap(err, "bump: reserve")
	}
	return &Bump{
		vm:       vm,
		region:   region,
		reserved: reserve,
		pageSize: pageSize,
	}, nil
}

func (b *Bump) Kind() Kind { return KindBump }

func (b *Bump) ensureCommitted(upto int) error {
	if upto <= b.committed {
		return nil
	}
	target := alignUp(upto, b.pageSize)
	if target > b.reserved {
		target = b.reserved
	}
	if target < upto {
		return errors.New("bump: out of reserved address space")
	}
	if err := b.vm.commit(b.region, target); err != nil {
		return errors.Wrap(err, "bump: commit")
	}
	b.committed = target
	return nil
}

// Malloc advances the bump offset, committing pages on demand.
func (b *Bump) Malloc(size int, align int) []byte {
	if size <= 0 {
		size = 0
	}
	if align < WordSize {
		align = WordSize
	}
	start := alignUp(b.offset, align)
	end := start + size
	if end > b.reserved {
		return nil
	}
	if err := b.ensureCommitted(end); err != nil {
		return nil
	}
	b.offset = end
	b.lastOff = start
	b.lastLen = size
	b.hasLast = true
	if b.offset > b.peak {
		b.peak = b.offset
	}
	return b.region[start:end:end]
}

// Realloc adjusts in place when buf is the most recent allocation,
// otherwise allocates fresh and copies.
func (b *Bump) Realloc(buf []byte, size int, align int) []byte {
	if buf == nil {
		return b.Malloc(size, align)
	}
	if b.hasLast && b.sameRegion(buf, b.lastOff, b.lastLen) {
		newEnd := b.lastOff + size
		if newEnd <= b.reserved && b.ensureCommitted(newEnd) == nil {
			b.offset = newEnd
			b.lastLen = size
			if b.offset > b.peak {
				b.peak = b.offset
			}
			return b.region[b.lastOff:newEnd:newEnd]
		}
	}
	newBuf := b.Malloc(size, align)
	if newBuf == nil {
		return nil
	}
	copy(newBuf, buf)
	return newBuf
}

// Free rewinds the offset only if buf was the most recent allocation.
func (b *Bump) Free(buf []byte, align int) {
	if b.hasLast && b.sameRegion(buf, b.lastOff, b.lastLen) {
		b.offset = b.lastOff
		b.hasLast = false
	}
}

func (b *Bump) sameRegion(buf []byte, off, length int) bool {
	if len(buf) != length || length == 0 {
		return len(buf) == 0 && length == 0
	}
	return &buf[0] == &b.region[off]
}

// Reset rewinds the offset to zero without decommitting, per spec.md §4.1.
func (b *Bump) Reset() {
	b.offset = 0
	b.hasLast = false
}

// Release decommits and releases the whole reservation. The Bump must not
// be used afterwards.
func (b *Bump) Release() error {
	err := b.vm.release(b.region)
	b.region = nil
	b.committed = 0
	b.offset = 0
	b.hasLast = false
	return err
}

// RewindTo force-rewinds the offset to an arbitrary prior value. Used by
// TempArena to implement matched push/pop; callers other than TempArena
// should prefer Free, which only rewinds the most recent allocation.
func (b *Bump) RewindTo(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > b.offset {
		return
	}
	b.offset = offset
	b.hasLast = false
}

// DecayCommitted decommits pages beyond target, leaving the offset
// untouched. It is the implementation of the Temp Allocator's per-frame
// "decay toward peak" policy (spec.md §4.1 Reset(dt)); it never decommits
// below the current offset.
func (b *Bump) DecayCommitted(target int) error {
	if target < b.offset {
		target = b.offset
	}
	target = alignUp(target, b.pageSize)
	if target >= b.committed {
		return nil
	}
	if err := b.vm.decommit(b.region, target); err != nil {
		return errors.Wrap(err, "bump: decommit")
	}
	b.committed = target
	return nil
}

// Offset reports the current bump offset (bytes in use).
func (b *Bump) Offset() int { return b.offset }

// Peak reports the high-water offset observed since the last Release.
func (b *Bump) Peak() int { return b.peak }

// Committed reports bytes currently committed.
func (b *Bump) Committed() int { return b.committed }

// Reserved reports the total reserved address space.
func (b *Bump) Reserved() int { return b.reserved }
