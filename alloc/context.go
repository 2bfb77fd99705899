package alloc

import "context"

type arenaKey struct{}

// WithArena attaches a TempArena to ctx, giving goroutines that receive ctx
// ergonomic access to "their" scoped allocator without a global thread-local
// lookup (spec.md §9 "context objects threaded through constructors, with a
// thin facade re-exporting default context entry points").
func WithArena(ctx context.Context, arena *TempArena) context.Context {
	return context.WithValue(ctx, arenaKey{}, arena)
}

// ArenaFromContext returns the TempArena attached by WithArena, or nil.
func ArenaFromContext(ctx context.Context) *TempArena {
	a, _ := ctx.Value(arenaKey{}).(*TempArena)
	return a
}
