//go:build unit
// +build unit

package cryptography

import (
	"encoding/binary"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/testutil"
)

const testPrfType = 0x00000264

// SP800108KdfParamsTests holds the collaborators shared by the parameter block tests
type SP800108KdfParamsTests struct {
	allocator *testutil.CountingAllocator
	layout    kdf.Layout
	logger    logger.Logger
}

// NewSP800108KdfParamsTests creates the test fixture with a counting allocator and the 64-bit Unix layout
func NewSP800108KdfParamsTests(t *testing.T) *SP800108KdfParamsTests {
	return &SP800108KdfParamsTests{
		allocator: testutil.NewCountingAllocator(),
		layout:    kdf.LayoutAPI81(8),
		logger:    testutil.SetupTestLogger(t),
	}
}

func (tt *SP800108KdfParamsTests) build(t *testing.T, dataParams []kdf.PrfDataParam) *sp800108KdfParams {
	t.Helper()
	params, err := NewSP800108KdfParams(tt.allocator, tt.layout, testPrfType, dataParams, tt.logger)
	require.NoError(t, err)
	block, ok := params.(*sp800108KdfParams)
	require.True(t, ok)
	return block
}

func (tt *SP800108KdfParamsTests) readValue(t *testing.T, rec kdf.DataParamRecord) []byte {
	t.Helper()
	value, err := tt.allocator.ReadAt(rec.Value, 0, int(rec.ValueLen))
	require.NoError(t, err)
	return value
}

func counterModeParams() []kdf.PrfDataParam {
	return []kdf.PrfDataParam{
		{Type: kdf.PrfDataTypeIterationVariable},
		{Type: kdf.PrfDataTypePrfLabel, Value: []byte("label")},
		{Type: kdf.PrfDataTypePrfContext, Value: []byte("ctx")},
		{Type: kdf.PrfDataTypeDKMLength},
	}
}

func TestSP800108KdfParams_EndToEnd(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, counterModeParams())

	params, err := block.ToMarshalableStructure()
	require.NoError(t, err)
	assert.Equal(t, uint64(testPrfType), params.PrfType)
	assert.Equal(t, uint64(4), params.NumberOfDataParams)
	assert.NotZero(t, params.DataParams)

	records, err := block.Records()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, kdf.PrfDataTypeIterationVariable, records[0].Type)
	assert.Zero(t, records[0].Value)
	assert.Zero(t, records[0].ValueLen)

	assert.Equal(t, kdf.PrfDataTypePrfLabel, records[1].Type)
	assert.Equal(t, uint64(5), records[1].ValueLen)
	assert.Equal(t, []byte("label"), tt.readValue(t, records[1]))

	assert.Equal(t, kdf.PrfDataTypePrfContext, records[2].Type)
	assert.Equal(t, uint64(3), records[2].ValueLen)
	assert.Equal(t, []byte("ctx"), tt.readValue(t, records[2]))

	assert.Equal(t, kdf.PrfDataTypeDKMLength, records[3].Type)
	assert.Zero(t, records[3].Value)
	assert.Zero(t, records[3].ValueLen)

	// record array plus two value buffers
	assert.Equal(t, 3, tt.allocator.Allocations())
	assert.Equal(t, []int{3, 5, 4 * tt.layout.Record().Size}, tt.allocator.LiveSizes())

	require.NoError(t, block.Release())
	assert.Equal(t, 3, tt.allocator.Frees())
	assert.Equal(t, 0, tt.allocator.Live())
	assert.Equal(t, 0, tt.allocator.DoubleFrees())
}

func TestSP800108KdfParams_LayoutsProduceMatchingRecords(t *testing.T) {
	layouts := map[string]kdf.Layout{
		"api40 ptr4": kdf.LayoutAPI40(4),
		"api40 ptr8": kdf.LayoutAPI40(8),
		"api41 ptr4": kdf.LayoutAPI41(4),
		"api41 ptr8": kdf.LayoutAPI41(8),
		"api80 ptr8": kdf.LayoutAPI80(8),
		"api81 ptr8": kdf.LayoutAPI81(8),
		"big endian": {ULongSize: 8, PointerSize: 8, ByteOrder: binary.BigEndian},
		"native":     kdf.NativeLayout(),
	}

	for name, layout := range layouts {
		t.Run(name, func(t *testing.T) {
			tt := NewSP800108KdfParamsTests(t)
			tt.layout = layout
			input := counterModeParams()
			block := tt.build(t, input)
			defer func() { require.NoError(t, block.Release()) }()

			records, err := block.Records()
			require.NoError(t, err)
			require.Len(t, records, len(input))

			for i, rec := range records {
				assert.Equal(t, input[i].Type, rec.Type)
				assert.Equal(t, uint64(len(input[i].Value)), rec.ValueLen)
				if input[i].HasValue() {
					assert.Equal(t, input[i].Value, tt.readValue(t, rec))
				}
			}

			assert.Contains(t, tt.allocator.LiveSizes(), layout.Record().Size*len(input))
		})
	}
}

func TestSP800108KdfParams_NilAndEmptyValuesEncodeIdentically(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, []kdf.PrfDataParam{
		{Type: kdf.PrfDataTypeByteArray, Value: nil},
		{Type: kdf.PrfDataTypeByteArray, Value: []byte{}},
	})
	defer func() { require.NoError(t, block.Release()) }()

	records, err := block.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, records[0], records[1])
	assert.Zero(t, records[0].Value)
	assert.Zero(t, records[0].ValueLen)

	// only the record array
	assert.Equal(t, 1, tt.allocator.Allocations())
}

func TestSP800108KdfParams_PreservesOrder(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	input := counterModeParams()
	permuted := []kdf.PrfDataParam{input[2], input[0], input[3], input[1]}

	block := tt.build(t, permuted)
	defer func() { require.NoError(t, block.Release()) }()

	records, err := block.Records()
	require.NoError(t, err)
	require.Len(t, records, len(permuted))
	for i, rec := range records {
		assert.Equal(t, permuted[i].Type, rec.Type)
		if permuted[i].HasValue() {
			assert.Equal(t, permuted[i].Value, tt.readValue(t, rec))
		}
	}
}

func TestSP800108KdfParams_ValueBuffersAreDistinct(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, []kdf.PrfDataParam{
		{Type: kdf.PrfDataTypePrfLabel, Value: []byte("same")},
		{Type: kdf.PrfDataTypePrfContext, Value: []byte("same")},
	})
	defer func() { require.NoError(t, block.Release()) }()

	records, err := block.Records()
	require.NoError(t, err)
	assert.NotEqual(t, records[0].Value, records[1].Value)
}

func TestSP800108KdfParams_SnapshotsValues(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	input := []kdf.PrfDataParam{{Type: kdf.PrfDataTypePrfLabel, Value: []byte("label")}}

	block := tt.build(t, input)
	defer func() { require.NoError(t, block.Release()) }()

	input[0].Value[0] = 'X'
	input[0].Type = kdf.PrfDataTypePrfContext

	records, err := block.Records()
	require.NoError(t, err)
	assert.Equal(t, kdf.PrfDataTypePrfLabel, records[0].Type)
	assert.Equal(t, []byte("label"), tt.readValue(t, records[0]))
}

func TestSP800108KdfParams_UnknownTypePassesThrough(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, []kdf.PrfDataParam{{Type: kdf.PrfDataType(0x80000001), Value: []byte{0x01}}})
	defer func() { require.NoError(t, block.Release()) }()

	records, err := block.Records()
	require.NoError(t, err)
	assert.Equal(t, kdf.PrfDataType(0x80000001), records[0].Type)
}

func TestSP800108KdfParams_MarshalBinaryEncodesHeader(t *testing.T) {
	for _, layout := range []kdf.Layout{kdf.LayoutAPI40(8), kdf.LayoutAPI41(4), kdf.LayoutAPI81(8)} {
		t.Run(layout.String(), func(t *testing.T) {
			tt := NewSP800108KdfParamsTests(t)
			tt.layout = layout
			block := tt.build(t, counterModeParams())
			defer func() { require.NoError(t, block.Release()) }()

			params, err := block.ToMarshalableStructure()
			require.NoError(t, err)

			encoded, err := block.MarshalBinary()
			require.NoError(t, err)

			h := layout.Header()
			require.Len(t, encoded, h.Size)
			assert.Equal(t, uint64(testPrfType), layout.ULong(encoded[h.Offsets[0]:]))
			assert.Equal(t, uint64(4), layout.ULong(encoded[h.Offsets[1]:]))
			assert.Equal(t, params.DataParams, layout.Pointer(encoded[h.Offsets[2]:]))
		})
	}
}

func TestSP800108KdfParams_RejectsMissingParams(t *testing.T) {
	tests := []struct {
		name       string
		dataParams []kdf.PrfDataParam
	}{
		{name: "nil", dataParams: nil},
		{name: "empty", dataParams: []kdf.PrfDataParam{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewSP800108KdfParamsTests(t)

			params, err := NewSP800108KdfParams(tt.allocator, tt.layout, testPrfType, tc.dataParams, tt.logger)
			require.Error(t, err)
			assert.ErrorIs(t, err, kdf.ErrInvalidArgument)
			assert.Nil(t, params)
			assert.Equal(t, 0, tt.allocator.Allocations())
		})
	}
}

func TestSP800108KdfParams_RejectsUnrepresentableValues(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	tt.layout = kdf.LayoutAPI41(4)

	_, err := NewSP800108KdfParams(tt.allocator, tt.layout, 0x1_0000_0000, counterModeParams(), tt.logger)
	assert.ErrorIs(t, err, kdf.ErrInvalidArgument)

	_, err = NewSP800108KdfParams(nil, tt.layout, testPrfType, counterModeParams(), tt.logger)
	assert.ErrorIs(t, err, kdf.ErrInvalidArgument)

	_, err = NewSP800108KdfParams(tt.allocator, kdf.Layout{}, testPrfType, counterModeParams(), tt.logger)
	assert.ErrorIs(t, err, kdf.ErrInvalidArgument)

	assert.Equal(t, 0, tt.allocator.Allocations())
}

func TestSP800108KdfParams_RollsBackOnAllocationFailure(t *testing.T) {
	// counterModeParams needs three allocations: the array and two values
	for failAfter := 0; failAfter < 3; failAfter++ {
		tt := NewSP800108KdfParamsTests(t)
		tt.allocator.FailAfter(failAfter)

		params, err := NewSP800108KdfParams(tt.allocator, tt.layout, testPrfType, counterModeParams(), tt.logger)
		require.Error(t, err, "failAfter=%d", failAfter)
		assert.ErrorIs(t, err, kdf.ErrAllocationFailed)
		assert.Nil(t, params)
		assert.Equal(t, failAfter, tt.allocator.Allocations())
		assert.Equal(t, failAfter, tt.allocator.Frees())
		assert.Equal(t, 0, tt.allocator.Live())
	}
}

func TestSP800108KdfParams_RejectsAddressesWiderThanLayoutPointers(t *testing.T) {
	if kdf.NativePointerSize < 8 {
		t.Skip("addresses above 4 GiB need a 64-bit host")
	}
	var shift uint = 32

	tests := []struct {
		name   string
		base   uintptr
		allocs int
	}{
		// array already above 4 GiB
		{name: "data params array", base: uintptr(1) << shift, allocs: 1},
		// array fits, next allocation (the label value) crosses 4 GiB
		{name: "value buffer", base: 0xFFFFFFC0, allocs: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := NewSP800108KdfParamsTests(t)
			tt.allocator = testutil.NewCountingAllocatorAt(tc.base)

			params, err := NewSP800108KdfParams(tt.allocator, kdf.LayoutAPI41(4), testPrfType, counterModeParams(), tt.logger)
			require.Error(t, err)
			assert.ErrorIs(t, err, kdf.ErrAllocationFailed)
			assert.Nil(t, params)
			assert.Equal(t, tc.allocs, tt.allocator.Allocations())
			assert.Equal(t, tc.allocs, tt.allocator.Frees())
			assert.Equal(t, 0, tt.allocator.Live())
		})
	}

	tt := NewSP800108KdfParamsTests(t)
	tt.allocator = testutil.NewCountingAllocatorAt(uintptr(1) << shift)
	block := tt.build(t, counterModeParams())
	require.NoError(t, block.Release(), "8 byte pointer layouts take any address")
}

func TestSP800108KdfParams_RetryAfterRollbackSucceeds(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	tt.allocator.FailAfter(2)

	_, err := NewSP800108KdfParams(tt.allocator, tt.layout, testPrfType, counterModeParams(), tt.logger)
	require.Error(t, err)

	tt.allocator.FailAfter(-1)
	block := tt.build(t, counterModeParams())
	require.NoError(t, block.Release())
	assert.Equal(t, 0, tt.allocator.Live())
}

func TestSP800108KdfParams_ReleaseIsIdempotent(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, counterModeParams())

	require.NoError(t, block.Release())
	require.NoError(t, block.Release())

	assert.Equal(t, 3, tt.allocator.Frees())
	assert.Equal(t, 0, tt.allocator.DoubleFrees())
}

func TestSP800108KdfParams_AccessAfterReleaseFails(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, counterModeParams())
	require.NoError(t, block.Release())

	_, err := block.ToMarshalableStructure()
	assert.ErrorIs(t, err, kdf.ErrObjectDisposed)

	_, err = block.MarshalBinary()
	assert.ErrorIs(t, err, kdf.ErrObjectDisposed)

	_, err = block.Records()
	assert.ErrorIs(t, err, kdf.ErrObjectDisposed)

	assert.Zero(t, block.lowLevel.DataParams)
	assert.Zero(t, block.lowLevel.NumberOfDataParams)
	assert.Zero(t, block.dataParamsArray)
	assert.Empty(t, block.valuePtrs)
}

func TestSP800108KdfParams_FinalizeThenReleaseFreesOnce(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)
	block := tt.build(t, counterModeParams())

	block.finalize()
	assert.Equal(t, 0, tt.allocator.Live())

	require.NoError(t, block.Release())
	block.finalize()
	assert.Equal(t, 3, tt.allocator.Frees())
	assert.Equal(t, 0, tt.allocator.DoubleFrees())
}

func TestSP800108KdfParams_FinalizerFreesForgottenBlock(t *testing.T) {
	tt := NewSP800108KdfParamsTests(t)

	func() {
		_, err := NewSP800108KdfParams(tt.allocator, tt.layout, testPrfType, counterModeParams(), tt.logger)
		require.NoError(t, err)
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return tt.allocator.Live() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, tt.allocator.DoubleFrees())
}
