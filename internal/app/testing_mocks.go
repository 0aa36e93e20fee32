//go:build unit
// +build unit

package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

// MockDeriver is a mock implementation of kdf.Deriver
type MockDeriver struct {
	mock.Mock
}

func (m *MockDeriver) DeriveKey(ctx context.Context, mechanism uint64, params kdf.Params, encoded []byte) error {
	args := m.Called(ctx, mechanism, params, encoded)
	return args.Error(0)
}
