package alloc

import "encoding/binary"

// FieldDesc is one field descriptor accumulated by CompositeBuilder:
// (offsetInStruct, elementSize, count, align, isRelativePointer) per
// spec.md §3 "Single-Shot Composite".
type FieldDesc struct {
	Name         string
	OffsetInHead int // where the pointer slot itself lives, within the head
	ElemSize     int
	Count        int
	Align        int
	Relative     bool // true: patch a 32-bit self-relative offset; false: patch a base-relative offset (the safe Go substitute for a raw pointer, see relptr.go)
}

func (f FieldDesc) size() int { return f.ElemSize * f.Count }

// CompositeBuilder accumulates field descriptors and yields a total size;
// one underlying Malloc(total, alignOf(head)) is performed by Calloc.
type CompositeBuilder struct {
	headSize  int
	headAlign int
	fields    []FieldDesc
}

// NewCompositeBuilder starts a builder for a head struct of the given size
// and alignment (the struct that holds the patched pointer slots).
func NewCompositeBuilder(headSize, headAlign int) *CompositeBuilder {
	if headAlign < WordSize {
		headAlign = WordSize
	}
	return &CompositeBuilder{headSize: headSize, headAlign: headAlign}
}

// AddField records one field descriptor and returns the builder for
// chaining.
func (b *CompositeBuilder) AddField(name string, offsetInHead, elemSize, count, align int, relative bool) *CompositeBuilder {
	if align < 1 {
		align = 1
	}
	b.fields = append(b.fields, FieldDesc{
		Name: name, OffsetInHead: offsetInHead,
		ElemSize: elemSize, Count: count, Align: align, Relative: relative,
	})
	return b
}

// layout computes, for each field in declaration order, offset = previous
// cumulative size aligned up to the field's align (spec.md §4.1).
func (b *CompositeBuilder) layout() (total int, offsets map[string]int) {
	offsets = make(map[string]int, len(b.fields))
	cursor := b.headSize
	for _, f := range b.fields {
		off := alignUp(cursor, f.Align)
		offsets[f.Name] = off
		cursor = off + f.size()
	}
	return cursor, offsets
}

// TotalSize reports the aligned total size without allocating.
func (b *CompositeBuilder) TotalSize() int {
	total, _ := b.layout()
	return total
}

// Composite is the result of Calloc: one allocation, several carved
// sub-regions, with every recorded pointer slot patched.
type Composite struct {
	base      []byte
	allocator Allocator
	align     int
	descs     map[string]FieldDesc
	offsets   map[string]int
}

// Calloc performs the single allocation, zero-initializes it, and patches
// every recorded field's pointer slot to reference its carved-out
// sub-region.
func (b *CompositeBuilder) Calloc(a Allocator) *Composite {
	total, offsets := b.layout()
	buf := a.Malloc(total, b.headAlign)
	if buf == nil {
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	descs := make(map[string]FieldDesc, len(b.fields))
	for _, f := range b.fields {
		descs[f.Name] = f
		target := offsets[f.Name]
		slot := buf[f.OffsetInHead:]
		if f.Relative {
			delta := int32(target - f.OffsetInHead)
			binary.LittleEndian.PutUint32(slot, uint32(delta))
		} else {
			binary.LittleEndian.PutUint64(slot, uint64(target))
		}
	}
	return &Composite{base: buf, allocator: a, align: b.headAlign, descs: descs, offsets: offsets}
}

// Base returns the single underlying allocation.
func (c *Composite) Base() []byte { return c.base }

// Field returns the carved sub-region for name directly (bypassing the
// patched pointer slot — useful for construction/tests).
func (c *Composite) Field(name string) []byte {
	d, ok := c.descs[name]
	if !ok {
		return nil
	}
	off := c.offsets[name]
	return c.base[off : off+d.size() : off+d.size()]
}

// ResolveField reads the patched pointer slot for name and returns the
// region it references, verifying the patch is self-consistent.
func (c *Composite) ResolveField(name string) []byte {
	d, ok := c.descs[name]
	if !ok {
		return nil
	}
	slot := c.base[d.OffsetInHead:]
	var target int
	if d.Relative {
		delta := int32(binary.LittleEndian.Uint32(slot))
		target = d.OffsetInHead + int(delta)
	} else {
		target = int(binary.LittleEndian.Uint64(slot))
	}
	size := d.size()
	if target < 0 || target+size > len(c.base) {
		return nil
	}
	return c.base[target : target+size : target+size]
}

// Free releases the single underlying allocation.
func (c *Composite) Free() {
	c.allocator.Free(c.base, c.align)
}
