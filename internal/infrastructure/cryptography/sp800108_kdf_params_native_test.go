//go:build unit && unix
// +build unit,unix

package cryptography

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/infrastructure/nativemem"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/testutil"
)

func TestSP800108KdfParams_NativeMemory(t *testing.T) {
	allocator, err := nativemem.NewDefault()
	require.NoError(t, err)

	block, err := NewSP800108KdfParams(allocator, kdf.NativeLayout(), testPrfType, counterModeParams(), testutil.SetupTestLogger(t))
	require.NoError(t, err)

	records, err := block.Records()
	require.NoError(t, err)
	require.Len(t, records, 4)

	label, err := allocator.ReadAt(records[1].Value, 0, int(records[1].ValueLen))
	require.NoError(t, err)
	assert.Equal(t, []byte("label"), label)

	ctx, err := allocator.ReadAt(records[2].Value, 0, int(records[2].ValueLen))
	require.NoError(t, err)
	assert.Equal(t, []byte("ctx"), ctx)

	require.NoError(t, block.Release())
	require.NoError(t, block.Release())

	_, err = allocator.ReadAt(records[1].Value, 0, 1)
	assert.ErrorIs(t, err, kdf.ErrUnknownAddress)
}

func TestSP800108KdfParams_NativeMemoryWith32BitPointers(t *testing.T) {
	allocator := nativemem.NewMmapAllocator()

	block, err := NewSP800108KdfParams(allocator, kdf.LayoutAPI41(4), testPrfType, counterModeParams(), testutil.SetupTestLogger(t))
	if err != nil {
		// mappings above 4 GiB cannot be described by 4 byte pointers
		assert.ErrorIs(t, err, kdf.ErrAllocationFailed)
		assert.Nil(t, block)
		assert.Equal(t, 0, allocator.Live())
		return
	}
	defer func() { require.NoError(t, block.Release()) }()

	header, err := block.ToMarshalableStructure()
	require.NoError(t, err)
	encoded, err := block.MarshalBinary()
	require.NoError(t, err)
	layout := kdf.LayoutAPI41(4)
	assert.Equal(t, header.DataParams, layout.Pointer(encoded[layout.Header().Offsets[2]:]))

	records, err := block.Records()
	require.NoError(t, err)
	label, err := allocator.ReadAt(records[1].Value, 0, int(records[1].ValueLen))
	require.NoError(t, err)
	assert.Equal(t, []byte("label"), label)
	ctx, err := allocator.ReadAt(records[2].Value, 0, int(records[2].ValueLen))
	require.NoError(t, err)
	assert.Equal(t, []byte("ctx"), ctx)
}
