package kdf

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PrfDataParam describes one PRF data segment of the SP 800-108 counter-mode KDF.
// It is a plain carrier: nothing is checked when it is built, and a nil Value is
// encoded exactly like an empty one.
type PrfDataParam struct {
	Type  PrfDataType `mapstructure:"type" validate:"prfdatatype"`
	Value []byte      `mapstructure:"value"`
}

// HasValue reports whether the segment carries a payload
func (p PrfDataParam) HasValue() bool {
	return len(p.Value) > 0
}

// Validate checks that the segment type is part of the catalog.
// The parameter block builder does not call it; unknown types are passed through to the token.
func (p *PrfDataParam) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("prfdatatype", func(fl validator.FieldLevel) bool {
		return PrfDataType(fl.Field().Uint()).IsKnown()
	}); err != nil {
		return fmt.Errorf("failed to register prfdatatype validation: %w", err)
	}

	err := validate.Struct(p)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var messages []string
			for _, fieldErr := range validationErrors {
				messages = append(messages, fmt.Sprintf("Field: %s, Tag: %s", fieldErr.Field(), fieldErr.Tag()))
			}
			return fmt.Errorf("validation failed: %v", messages)
		}
		return fmt.Errorf("validation error: %w", err)
	}

	return nil
}

// Params is the by-value header of CK_SP800_108_KDF_PARAMS handed to the token.
// DataParams points at the live record array owned by the parameter block.
type Params struct {
	PrfType            uint64
	NumberOfDataParams uint64
	DataParams         uintptr
}

// Encode renders the header in the given native layout
func (p Params) Encode(layout Layout) []byte {
	h := layout.Header()
	buf := make([]byte, h.Size)
	layout.PutULong(buf[h.Offsets[0]:], p.PrfType)
	layout.PutULong(buf[h.Offsets[1]:], p.NumberOfDataParams)
	layout.PutPointer(buf[h.Offsets[2]:], p.DataParams)
	return buf
}

// DataParamRecord is the decoded form of one CK_PRF_DATA_PARAM record
type DataParamRecord struct {
	Type     PrfDataType `json:"type"`
	Value    uintptr     `json:"value"`
	ValueLen uint64      `json:"value_len"`
}

// DecodeDataParamRecord parses a single record laid out with layout
func DecodeDataParamRecord(layout Layout, buf []byte) (DataParamRecord, error) {
	r := layout.Record()
	if len(buf) < r.Size {
		return DataParamRecord{}, fmt.Errorf("%w: record needs %d bytes, got %d", ErrInvalidArgument, r.Size, len(buf))
	}
	return DataParamRecord{
		Type:     PrfDataType(layout.ULong(buf[r.Offsets[0]:])),
		Value:    layout.Pointer(buf[r.Offsets[1]:]),
		ValueLen: layout.ULong(buf[r.Offsets[2]:]),
	}, nil
}

// EncodeDataParamRecord renders a single record into buf, which must hold layout.Record().Size bytes
func EncodeDataParamRecord(layout Layout, buf []byte, rec DataParamRecord) {
	r := layout.Record()
	layout.PutULong(buf[r.Offsets[0]:], uint64(rec.Type))
	layout.PutPointer(buf[r.Offsets[1]:], rec.Value)
	layout.PutULong(buf[r.Offsets[2]:], rec.ValueLen)
}
