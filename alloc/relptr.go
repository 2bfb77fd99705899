package alloc

// RelativeOffset models the original's RelativePtr<T>: a 32-bit offset from
// the field itself rather than a free pointer, so self-relative structures
// survive memcpy/serialize. Per spec.md §9 "Raw pointers + offsets".
type RelativeOffset struct {
	base        []byte
	fieldOffset int
	delta       int32
}

// Resolve returns the byte region the offset points at.
func (r RelativeOffset) Resolve(size int) []byte {
	target := r.fieldOffset + int(r.delta)
	if target < 0 || target+size > len(r.base) {
		return nil
	}
	return r.base[target : target+size]
}
