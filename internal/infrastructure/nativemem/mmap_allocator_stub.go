//go:build !unix

package nativemem

import (
	"errors"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

func newMmapAllocator() (kdf.Allocator, error) {
	return nil, errors.New("mmap allocator is only available on unix systems")
}
