package cryptography

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
)

// sp800108KdfParams owns the native CK_SP800_108_KDF_PARAMS data of the counter-mode KDF mechanism:
// one contiguous CK_PRF_DATA_PARAM array plus one buffer per segment that carries a value.
//
// The block is not safe for concurrent use. The header returned by ToMarshalableStructure points
// into memory owned by the block, so the block must stay reachable until the token call returns.
type sp800108KdfParams struct {
	id        uuid.UUID
	allocator kdf.Allocator
	layout    kdf.Layout
	logger    logger.Logger

	lowLevel        kdf.Params
	dataParamsArray uintptr
	valuePtrs       []uintptr
	released        bool
}

// NewSP800108KdfParams builds the native parameter block for the given PRF and data segments.
// Segment order is preserved. Values are copied, so later changes to dataParams do not affect the block.
// On failure every allocation made so far is freed before the error is returned.
func NewSP800108KdfParams(allocator kdf.Allocator, layout kdf.Layout, prfType uint64, dataParams []kdf.PrfDataParam, logger logger.Logger) (kdf.MechanismParams, error) {
	if len(dataParams) == 0 {
		return nil, fmt.Errorf("%w: dataParams cannot be nil or empty", kdf.ErrInvalidArgument)
	}
	if allocator == nil {
		return nil, fmt.Errorf("%w: allocator is required", kdf.ErrInvalidArgument)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", kdf.ErrInvalidArgument)
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate layout: %w", err)
	}
	if !layout.FitsULong(prfType) {
		return nil, fmt.Errorf("%w: prf type 0x%x does not fit a %d byte CK_ULONG", kdf.ErrInvalidArgument, prfType, layout.ULongSize)
	}
	for i, dataParam := range dataParams {
		if !layout.FitsULong(uint64(dataParam.Type)) || !layout.FitsULong(uint64(len(dataParam.Value))) {
			return nil, fmt.Errorf("%w: data param %d does not fit a %d byte CK_ULONG", kdf.ErrInvalidArgument, i, layout.ULongSize)
		}
	}

	id := uuid.New()
	p := &sp800108KdfParams{
		id:        id,
		allocator: allocator,
		layout:    layout,
		logger:    logger.With("params_id", id.String(), "layout", layout.String()),
		valuePtrs: make([]uintptr, 0, len(dataParams)),
	}

	if err := p.build(prfType, dataParams); err != nil {
		if freeErr := p.free(); freeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to roll back partial allocations: %w", freeErr))
		}
		return nil, err
	}

	runtime.SetFinalizer(p, (*sp800108KdfParams).finalize)
	p.logger.Info("SP800-108 KDF params built with ", len(dataParams), " data params")
	return p, nil
}

func (p *sp800108KdfParams) build(prfType uint64, dataParams []kdf.PrfDataParam) error {
	recordSize := p.layout.Record().Size

	array, err := p.allocator.Allocate(recordSize * len(dataParams))
	if err != nil {
		return allocationError("data params array", err)
	}
	p.dataParamsArray = array
	if err := p.checkPointer("data params array", array); err != nil {
		return err
	}

	records := make([]byte, recordSize*len(dataParams))
	for i, dataParam := range dataParams {
		record := kdf.DataParamRecord{Type: dataParam.Type}

		if dataParam.HasValue() {
			valuePtr, err := p.allocator.Allocate(len(dataParam.Value))
			if err != nil {
				return allocationError(fmt.Sprintf("value of data param %d", i), err)
			}
			p.valuePtrs = append(p.valuePtrs, valuePtr)
			if err := p.checkPointer(fmt.Sprintf("value of data param %d", i), valuePtr); err != nil {
				return err
			}

			if err := p.allocator.WriteAt(valuePtr, 0, dataParam.Value); err != nil {
				return fmt.Errorf("failed to copy value of data param %d: %w", i, err)
			}
			record.Value = valuePtr
			record.ValueLen = uint64(len(dataParam.Value))
		}

		kdf.EncodeDataParamRecord(p.layout, records[i*recordSize:(i+1)*recordSize], record)
	}

	if err := p.allocator.WriteAt(array, 0, records); err != nil {
		return fmt.Errorf("failed to write data params array: %w", err)
	}

	p.lowLevel = kdf.Params{
		PrfType:            prfType,
		NumberOfDataParams: uint64(len(dataParams)),
		DataParams:         array,
	}
	return nil
}

// checkPointer rejects addresses the layout's pointer field would truncate
func (p *sp800108KdfParams) checkPointer(what string, addr uintptr) error {
	if p.layout.FitsPointer(addr) {
		return nil
	}
	return fmt.Errorf("%w: %s at 0x%x does not fit a %d byte pointer", kdf.ErrAllocationFailed, what, addr, p.layout.PointerSize)
}

func allocationError(what string, err error) error {
	if errors.Is(err, kdf.ErrAllocationFailed) {
		return fmt.Errorf("failed to allocate %s: %w", what, err)
	}
	return fmt.Errorf("%w: failed to allocate %s: %w", kdf.ErrAllocationFailed, what, err)
}

// ID identifies the block in logs
func (p *sp800108KdfParams) ID() uuid.UUID {
	return p.id
}

// Layout is the native layout the block was built with
func (p *sp800108KdfParams) Layout() kdf.Layout {
	return p.layout
}

// ToMarshalableStructure returns the live CK_SP800_108_KDF_PARAMS header
func (p *sp800108KdfParams) ToMarshalableStructure() (kdf.Params, error) {
	if p.released {
		return kdf.Params{}, fmt.Errorf("%w: SP800-108 KDF params %s", kdf.ErrObjectDisposed, p.id)
	}
	return p.lowLevel, nil
}

// MarshalBinary encodes the header in the block's native layout
func (p *sp800108KdfParams) MarshalBinary() ([]byte, error) {
	params, err := p.ToMarshalableStructure()
	if err != nil {
		return nil, err
	}
	return params.Encode(p.layout), nil
}

// Records reads the native CK_PRF_DATA_PARAM array back
func (p *sp800108KdfParams) Records() ([]kdf.DataParamRecord, error) {
	params, err := p.ToMarshalableStructure()
	if err != nil {
		return nil, err
	}

	recordSize := p.layout.Record().Size
	count := int(params.NumberOfDataParams)
	raw, err := p.allocator.ReadAt(params.DataParams, 0, recordSize*count)
	if err != nil {
		return nil, fmt.Errorf("failed to read data params array: %w", err)
	}

	records := make([]kdf.DataParamRecord, count)
	for i := range records {
		records[i], err = kdf.DecodeDataParamRecord(p.layout, raw[i*recordSize:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode data param %d: %w", i, err)
		}
	}
	return records, nil
}

// Release frees all native memory owned by the block. Subsequent calls are no-ops.
func (p *sp800108KdfParams) Release() error {
	if p.released {
		return nil
	}
	runtime.SetFinalizer(p, nil)

	if err := p.free(); err != nil {
		p.logger.Error("SP800-108 KDF params released with errors: ", err)
		return fmt.Errorf("failed to release SP800-108 KDF params %s: %w", p.id, err)
	}
	p.logger.Info("SP800-108 KDF params released")
	return nil
}

// finalize runs when the owner dropped the block without releasing it
func (p *sp800108KdfParams) finalize() {
	if p.released {
		return
	}
	p.logger.Warn("SP800-108 KDF params were not released, freeing from finalizer")
	if err := p.free(); err != nil {
		p.logger.Error("finalizer failed to free native memory: ", err)
	}
}

// free releases value buffers first, then the record array, and marks the block released
func (p *sp800108KdfParams) free() error {
	var errs []error

	for _, ptr := range p.valuePtrs {
		if err := p.allocator.Free(ptr); err != nil {
			errs = append(errs, fmt.Errorf("failed to free value buffer 0x%x: %w", ptr, err))
		}
	}
	p.valuePtrs = nil

	if p.dataParamsArray != 0 {
		if err := p.allocator.Free(p.dataParamsArray); err != nil {
			errs = append(errs, fmt.Errorf("failed to free data params array 0x%x: %w", p.dataParamsArray, err))
		}
		p.dataParamsArray = 0
	}

	p.lowLevel.DataParams = 0
	p.lowLevel.NumberOfDataParams = 0
	p.released = true

	return errors.Join(errs...)
}
