//go:build unix

package alloc

import "golang.org/x/sys/unix"

// mmapReservation reserves address space with PROT_NONE and widens the
// committed (PROT_READ|PROT_WRITE) prefix with mprotect as the bump offset
// advances, per spec.md §4.1.
type mmapReservation struct{}

func newVMReservation() vmReservation {
	return mmapReservation{}
}

func (mmapReservation) reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func (mmapReservation) commit(region []byte, nbytes int) error {
	if nbytes <= 0 {
		return nil
	}
	if nbytes > len(region) {
		nbytes = len(region)
	}
	return unix.Mprotect(region[:nbytes], unix.PROT_READ|unix.PROT_WRITE)
}

func (mmapReservation) decommit(region []byte, keepBytes int) error {
	if keepBytes < 0 {
		keepBytes = 0
	}
	if keepBytes >= len(region) {
		return nil
	}
	return unix.Mprotect(region[keepBytes:], unix.PROT_NONE)
}

func (mmapReservation) release(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	return unix.Munmap(region)
}
