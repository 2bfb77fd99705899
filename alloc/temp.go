package alloc

import (
	"runtime"
)

// TempArena is a scoped stack-like allocator frame: each Push returns the
// current frame id, each Pop asserts the id matches and rewinds the bump
// offset. Frame memory is page-reserved, page-committed on growth, and
// rewound — not decommitted — on Pop; only the per-frame Reset(dt) call may
// decommit, and only when the arena was idle that frame. Per spec.md §3
// "Temp Allocator scope" and §4.1.
//
// Go has no OS-thread-pinned user code by default, so unlike the original's
// implicit per-thread stack, a TempArena is an explicit value the owning
// goroutine threads through its calls (see context.go for the
// context.Context convenience wrapper).
type TempArena struct {
	bump   *Bump
	marks  []int
	poison bool

	activeThisPeriod bool
	periodPeak       int
}

// allocSite is recorded per allocation by a Proxy only when it was created
// with captureSites set, to bound the cost of call-stack capture to debug
// use (spec.md §9 "Supplemented features").
type allocSite struct {
	offset int
	pc     uintptr
}

// NewTempArena creates a frame stack over a fresh VM-backed bump region.
// poison controls whether Pop overwrites rewound memory with a poison byte,
// matching config.DebugAllocations from spec.md §6.
func NewTempArena(reserve int, pageSize int, poison bool) (*TempArena, error) {
	bump, err := NewBump(reserve, pageSize)
	if err != nil {
		return nil, err
	}
	return &TempArena{bump: bump, poison: poison}, nil
}

func (t *TempArena) Kind() Kind { return KindTemp }

// Push returns the current frame id (its depth marker).
func (t *TempArena) Push() int {
	t.activeThisPeriod = true
	id := len(t.marks)
	t.marks = append(t.marks, t.bump.Offset())
	return id
}

// Pop asserts id matches the top of the stack and rewinds the offset to the
// id's saved position.
func (t *TempArena) Pop(id int) {
	assert(id == len(t.marks)-1, "alloc: temp arena pop id %d does not match top frame %d", id, len(t.marks)-1)
	mark := t.marks[id]
	if t.poison {
		poisonRange(t.bump.region, mark, t.bump.Offset())
	}
	t.marks = t.marks[:id]
	t.bump.RewindTo(mark)
}

const poisonByte = 0xDD

func poisonRange(region []byte, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(region) {
		to = len(region)
	}
	for i := from; i < to; i++ {
		region[i] = poisonByte
	}
}

// Malloc allocates within the current (innermost) frame.
func (t *TempArena) Malloc(size, align int) []byte {
	buf := t.bump.Malloc(size, align)
	if buf != nil && t.bump.Offset() > t.periodPeak {
		t.periodPeak = t.bump.Offset()
	}
	return buf
}

func (t *TempArena) Realloc(buf []byte, size, align int) []byte {
	return t.bump.Realloc(buf, size, align)
}

func (t *TempArena) Free(buf []byte, align int) {
	t.bump.Free(buf, align)
}

// Depth reports the number of currently-pushed frames.
func (t *TempArena) Depth() int { return len(t.marks) }

// Reset is called once per frame by the Engine Frame Harness. If no frames
// were pushed since the previous Reset call, the committed region decays
// toward the observed peak for this period; otherwise it is left intact.
// dt is accepted for parity with the harness's per-frame signature even
// though the decay policy here is usage- rather than time-driven.
func (t *TempArena) Reset(dt float64) {
	if !t.activeThisPeriod {
		_ = t.bump.DecayCommitted(t.periodPeak)
	}
	t.activeThisPeriod = false
	t.periodPeak = t.bump.Offset()
}

// Release tears down the underlying VM reservation.
func (t *TempArena) Release() error {
	return t.bump.Release()
}

// captureSite is a debug helper used by the Proxy allocator: it returns the
// program counter of the caller skip frames above its own caller.
func captureSite(skip int) uintptr {
	var pcs [1]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return 0
	}
	return pcs[0]
}
