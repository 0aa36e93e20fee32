package testutil

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

// CountingAllocator is a Go-heap stand-in for the native memory service. It hands out
// synthetic addresses (by default fitting in 32 bits), counts every call and can be told to fail.
type CountingAllocator struct {
	mu          sync.Mutex
	next        uintptr
	live        map[uintptr][]byte
	freed       map[uintptr]bool
	allocations int
	frees       int
	doubleFrees int
	failAfter   int
}

// NewCountingAllocator creates an allocator that never fails
func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{
		next:      0x10000,
		live:      make(map[uintptr][]byte),
		freed:     make(map[uintptr]bool),
		failAfter: -1,
	}
}

// NewCountingAllocatorAt creates an allocator whose first address is base
func NewCountingAllocatorAt(base uintptr) *CountingAllocator {
	a := NewCountingAllocator()
	a.next = base
	return a
}

// FailAfter makes every allocation after the first n successful ones fail with ErrAllocationFailed
func (a *CountingAllocator) FailAfter(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failAfter = n
}

// Allocate implements kdf.Allocator
func (a *CountingAllocator) Allocate(size int) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size <= 0 {
		return 0, fmt.Errorf("%w: allocation size must be positive, got %d", kdf.ErrInvalidArgument, size)
	}
	if a.failAfter >= 0 && a.allocations >= a.failAfter {
		return 0, fmt.Errorf("%w: injected failure after %d allocations", kdf.ErrAllocationFailed, a.allocations)
	}

	addr := a.next
	a.next += uintptr((size+15)/16*16) + 16
	a.live[addr] = make([]byte, size)
	a.allocations++
	return addr, nil
}

// WriteAt implements kdf.Allocator
func (a *CountingAllocator) WriteAt(base uintptr, offset int, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.live[base]
	if !ok {
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if offset < 0 || offset+len(data) > len(buf) {
		return fmt.Errorf("%w: offset=%d length=%d size=%d", kdf.ErrOutOfBounds, offset, len(data), len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

// ReadAt implements kdf.Allocator
func (a *CountingAllocator) ReadAt(base uintptr, offset, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	buf, ok := a.live[base]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	if offset < 0 || length < 0 || offset+length > len(buf) {
		return nil, fmt.Errorf("%w: offset=%d length=%d size=%d", kdf.ErrOutOfBounds, offset, length, len(buf))
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, nil
}

// Free implements kdf.Allocator. Freeing an address twice is recorded and reported.
func (a *CountingAllocator) Free(base uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.live[base]; !ok {
		if a.freed[base] {
			a.doubleFrees++
		}
		return fmt.Errorf("%w: 0x%x", kdf.ErrUnknownAddress, base)
	}
	delete(a.live, base)
	a.freed[base] = true
	a.frees++
	return nil
}

// Allocations returns the number of successful allocations
func (a *CountingAllocator) Allocations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocations
}

// Frees returns the number of successful frees
func (a *CountingAllocator) Frees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frees
}

// DoubleFrees returns how often an already freed address was freed again
func (a *CountingAllocator) DoubleFrees() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doubleFrees
}

// Live returns the number of allocations not yet freed
func (a *CountingAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// LiveSizes returns the sizes of the allocations not yet freed, ascending
func (a *CountingAllocator) LiveSizes() []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	sizes := make([]int, 0, len(a.live))
	for _, buf := range a.live {
		sizes = append(sizes, len(buf))
	}
	sort.Ints(sizes)
	return sizes
}
