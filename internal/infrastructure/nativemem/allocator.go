package nativemem

import (
	"fmt"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

// Allocator kinds accepted by New
const (
	KindAuto = "auto"
	KindCgo  = "cgo"
	KindMmap = "mmap"
)

// New creates the allocator of the given kind
func New(kind string) (kdf.Allocator, error) {
	switch kind {
	case KindAuto, "":
		return NewDefault()
	case KindCgo:
		return newCAllocator()
	case KindMmap:
		return newMmapAllocator()
	default:
		return nil, fmt.Errorf("unsupported allocator kind: %s", kind)
	}
}

// NewDefault prefers the C heap and falls back to anonymous mappings
func NewDefault() (kdf.Allocator, error) {
	if a, err := newCAllocator(); err == nil {
		return a, nil
	}
	a, err := newMmapAllocator()
	if err != nil {
		return nil, fmt.Errorf("no native allocator available on this platform: %w", err)
	}
	return a, nil
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: allocation size must be positive, got %d", kdf.ErrInvalidArgument, size)
	}
	return nil
}

func checkBounds(size, offset, length int) error {
	if offset < 0 || length < 0 || offset+length > size {
		return fmt.Errorf("%w: offset=%d length=%d size=%d", kdf.ErrOutOfBounds, offset, length, size)
	}
	return nil
}
