package engine

import "strings"

// ShortcutTable maps key chords, parsed from strings like "K+SHIFT+CTRL",
// to callbacks, per spec.md §4.9.
type ShortcutTable struct {
	entries map[string]func()
}

// NewShortcutTable constructs an empty table.
func NewShortcutTable() *ShortcutTable {
	return &ShortcutTable{entries: make(map[string]func())}
}

// Chord is a parsed key chord: a primary key plus an order-independent set
// of modifiers.
type Chord struct {
	Key       string
	Modifiers map[string]bool
}

// ParseChord parses "K+SHIFT+CTRL" into its primary key and modifier set.
// The first '+'-separated segment is the key; the rest are modifiers,
// upper-cased for comparison.
func ParseChord(s string) Chord {
	parts := strings.Split(s, "+")
	c := Chord{Modifiers: make(map[string]bool)}
	if len(parts) == 0 {
		return c
	}
	c.Key = strings.ToUpper(strings.TrimSpace(parts[0]))
	for _, mod := range parts[1:] {
		mod = strings.ToUpper(strings.TrimSpace(mod))
		if mod != "" {
			c.Modifiers[mod] = true
		}
	}
	return c
}

// canonical renders a chord back to a normalised, order-independent string
// used as the table key.
func (c Chord) canonical() string {
	mods := make([]string, 0, len(c.Modifiers))
	for m := range c.Modifiers {
		mods = append(mods, m)
	}
	// Sort for a stable key regardless of modifier declaration order.
	for i := 1; i < len(mods); i++ {
		for j := i; j > 0 && mods[j-1] > mods[j]; j-- {
			mods[j-1], mods[j] = mods[j], mods[j-1]
		}
	}
	out := c.Key
	for _, m := range mods {
		out += "+" + m
	}
	return out
}

// Register binds chord to fn, overwriting any previous binding.
func (t *ShortcutTable) Register(chord string, fn func()) {
	t.entries[ParseChord(chord).canonical()] = fn
}

// Dispatch invokes the callback bound to chord, if any, and reports whether
// one was found.
func (t *ShortcutTable) Dispatch(chord string) bool {
	fn, ok := t.entries[ParseChord(chord).canonical()]
	if !ok {
		return false
	}
	fn()
	return true
}
