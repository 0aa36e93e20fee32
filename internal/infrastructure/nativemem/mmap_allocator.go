//go:build unix

package nativemem

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

// MmapAllocator hands out anonymous private mappings. Every allocation occupies at least one page.
type MmapAllocator struct {
	mu          sync.Mutex
	allocations map[uintptr]mmapAllocation
}

type mmapAllocation struct {
	data []byte
	size int
}

// NewMmapAllocator creates an allocator backed by mmap and munmap
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{allocations: make(map[uintptr]mmapAllocation)}
}

func newMmapAllocator() (kdf.Allocator, error) {
	return NewMmapAllocator(), nil
}

// Allocate maps size bytes of zeroed memory
func (a *MmapAllocator) Allocate(size int) (uintptr, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("%w: mmap(%d): %v", kdf.ErrAllocationFailed, size, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	addr := uintptr(unsafe.Pointer(&data[0]))
	a.allocations[addr] = mmapAllocation{data: data, size: size}
	return addr, nil
}

// WriteAt copies data into the mapping at base
func (a *MmapAllocator) WriteAt(base uintptr, offset int, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if err := checkBounds(al.size, offset, len(data)); err != nil {
		return err
	}
	copy(al.data[offset:], data)
	return nil
}

// ReadAt copies bytes out of the mapping at base
func (a *MmapAllocator) ReadAt(base uintptr, offset, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if err := checkBounds(al.size, offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, al.data[offset:offset+length])
	return out, nil
}

// Free unmaps the allocation at base
func (a *MmapAllocator) Free(base uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	delete(a.allocations, base)
	if err := unix.Munmap(al.data); err != nil {
		return fmt.Errorf("munmap 0x%x: %w", base, err)
	}
	return nil
}

// Live returns the number of mappings not yet freed
func (a *MmapAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.allocations)
}
