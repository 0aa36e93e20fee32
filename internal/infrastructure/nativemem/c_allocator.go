//go:build cgo

package nativemem

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

type cAllocation struct {
	ptr  unsafe.Pointer
	size int
}

// CAllocator allocates from the C heap
type CAllocator struct {
	mu          sync.Mutex
	allocations map[uintptr]cAllocation
}

// NewCAllocator creates an allocator backed by malloc and free
func NewCAllocator() *CAllocator {
	return &CAllocator{allocations: make(map[uintptr]cAllocation)}
}

func newCAllocator() (kdf.Allocator, error) {
	return NewCAllocator(), nil
}

// Allocate returns zeroed C memory of the given size
func (a *CAllocator) Allocate(size int) (uintptr, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	ptr := C.malloc(C.size_t(size))
	if ptr == nil {
		return 0, fmt.Errorf("%w: malloc(%d) returned NULL", kdf.ErrAllocationFailed, size)
	}
	C.memset(ptr, 0, C.size_t(size))

	a.mu.Lock()
	defer a.mu.Unlock()
	addr := uintptr(ptr)
	a.allocations[addr] = cAllocation{ptr: ptr, size: size}
	return addr, nil
}

// WriteAt copies data into the allocation at base
func (a *CAllocator) WriteAt(base uintptr, offset int, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if err := checkBounds(al.size, offset, len(data)); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	copy(unsafe.Slice((*byte)(unsafe.Add(al.ptr, offset)), len(data)), data)
	return nil
}

// ReadAt copies bytes out of the allocation at base
func (a *CAllocator) ReadAt(base uintptr, offset, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if err := checkBounds(al.size, offset, length); err != nil {
		return nil, err
	}
	return C.GoBytes(unsafe.Add(al.ptr, offset), C.int(length)), nil
}

// Free releases the allocation at base
func (a *CAllocator) Free(base uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.allocations[base]
	if !ok {
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	delete(a.allocations, base)
	C.free(al.ptr)
	return nil
}

// Live returns the number of allocations not yet freed
func (a *CAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.allocations)
}
