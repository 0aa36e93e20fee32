package kdf

import "fmt"

// CounterFormat is the payload of a PrfDataTypeCounterFormat segment
type CounterFormat struct {
	LittleEndian bool
	WidthInBits  uint64
}

// DKMLengthFormat is the payload of a PrfDataTypeDKMFormat segment
type DKMLengthFormat struct {
	Method       DKMLengthMethod
	LittleEndian bool
	WidthInBits  uint64
}

// Counter widths accepted by tokens for the iteration variable
var counterWidths = map[uint64]bool{8: true, 16: true, 24: true, 32: true}

// Encode renders CK_SP800_108_COUNTER_FORMAT in the given layout
func (f CounterFormat) Encode(layout Layout) ([]byte, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if !counterWidths[f.WidthInBits] {
		return nil, fmt.Errorf("%w: counter width must be 8, 16, 24 or 32 bits, got %d", ErrInvalidArgument, f.WidthInBits)
	}

	s := layout.CounterFormat()
	buf := make([]byte, s.Size)
	PutBool(buf[s.Offsets[0]:], f.LittleEndian)
	layout.PutULong(buf[s.Offsets[1]:], f.WidthInBits)
	return buf, nil
}

// Param wraps the encoded format into a segment
func (f CounterFormat) Param(layout Layout) (PrfDataParam, error) {
	value, err := f.Encode(layout)
	if err != nil {
		return PrfDataParam{}, err
	}
	return PrfDataParam{Type: PrfDataTypeCounterFormat, Value: value}, nil
}

// Encode renders CK_SP800_108_DKM_LENGTH_FORMAT in the given layout
func (f DKMLengthFormat) Encode(layout Layout) ([]byte, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if !f.Method.IsKnown() {
		return nil, fmt.Errorf("%w: unknown DKM length method %d", ErrInvalidArgument, uint32(f.Method))
	}
	if f.WidthInBits == 0 || f.WidthInBits > 64 || f.WidthInBits%8 != 0 {
		return nil, fmt.Errorf("%w: DKM length width must be a multiple of 8 between 8 and 64 bits, got %d", ErrInvalidArgument, f.WidthInBits)
	}

	s := layout.DKMLengthFormat()
	buf := make([]byte, s.Size)
	layout.PutULong(buf[s.Offsets[0]:], uint64(f.Method))
	PutBool(buf[s.Offsets[1]:], f.LittleEndian)
	layout.PutULong(buf[s.Offsets[2]:], f.WidthInBits)
	return buf, nil
}

// Param wraps the encoded format into a segment
func (f DKMLengthFormat) Param(layout Layout) (PrfDataParam, error) {
	value, err := f.Encode(layout)
	if err != nil {
		return PrfDataParam{}, err
	}
	return PrfDataParam{Type: PrfDataTypeDKMFormat, Value: value}, nil
}
