package alloc

import "unsafe"

// uintptrOf returns the numeric address of p, used only to compute a
// byte's offset within a pool slice it is known to belong to (TLSF.Free).
func uintptrOf(p *byte) uintptr {
	return uintptr(unsafe.Pointer(p))
}
