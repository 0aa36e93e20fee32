//go:build !cgo

package nativemem

import (
	"errors"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

func newCAllocator() (kdf.Allocator, error) {
	return nil, errors.New("C heap allocator requires cgo")
}
