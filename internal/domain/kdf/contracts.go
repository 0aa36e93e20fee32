package kdf

import (
	"context"

	"github.com/google/uuid"
)

// Allocator is the native memory service. Addresses returned by Allocate live outside the
// Go heap and stay valid until Free, so they can be handed to a native token call.
// Implementations must be safe for concurrent use: finalizers free from their own goroutine.
type Allocator interface {
	// Allocate reserves size bytes and returns the base address
	Allocate(size int) (uintptr, error)
	// WriteAt copies data into the allocation starting at base+offset
	WriteAt(base uintptr, offset int, data []byte) error
	// ReadAt copies length bytes out of the allocation starting at base+offset
	ReadAt(base uintptr, offset, length int) ([]byte, error)
	// Free releases the allocation at base
	Free(base uintptr) error
}

// MechanismParams is a mechanism parameter block owning native memory
type MechanismParams interface {
	// ID identifies the block in logs
	ID() uuid.UUID
	// Layout is the native layout the block was built with
	Layout() Layout
	// ToMarshalableStructure returns the live header; fails with ErrObjectDisposed after Release
	ToMarshalableStructure() (Params, error)
	// MarshalBinary encodes the header in the block's layout; fails with ErrObjectDisposed after Release
	MarshalBinary() ([]byte, error)
	// Records reads the native record array back; fails with ErrObjectDisposed after Release
	Records() ([]DataParamRecord, error)
	// Release frees all native memory; calling it again is a no-op
	Release() error
}

// Deriver performs the token-side derive call with a marshaled parameter block
type Deriver interface {
	DeriveKey(ctx context.Context, mechanism uint64, params Params, encoded []byte) error
}
