package kdf

import (
	"fmt"
	"strings"
)

// PrfDataType identifies the kind of a PRF data segment. Values are CK_SP800_108 wire codes.
type PrfDataType uint32

// PRF data segment types
const (
	// PrfDataTypeIterationVariable is the iteration variable (counter)
	PrfDataTypeIterationVariable PrfDataType = 0x0001
	// PrfDataTypeDKMLength is the derived key material length
	PrfDataTypeDKMLength PrfDataType = 0x0002
	// PrfDataTypeByteArray is a literal byte array
	PrfDataTypeByteArray PrfDataType = 0x0003
	// PrfDataTypeCounterFormat is the counter format
	PrfDataTypeCounterFormat PrfDataType = 0x0004
	// PrfDataTypePrfLabel is the PRF label
	PrfDataTypePrfLabel PrfDataType = 0x0005
	// PrfDataTypePrfContext is the PRF context
	PrfDataTypePrfContext PrfDataType = 0x0006
	// PrfDataTypeDKMFormat is the derived key material format
	PrfDataTypeDKMFormat PrfDataType = 0x0007
)

// DKMLengthMethod selects how the derived key material length is computed.
type DKMLengthMethod uint32

// DKM length methods
const (
	// DKMLengthSumOfKeys sums the lengths of all derived keys
	DKMLengthSumOfKeys DKMLengthMethod = 1
	// DKMLengthSumOfSegments sums the lengths of all PRF output segments
	DKMLengthSumOfSegments DKMLengthMethod = 2
)

var prfDataTypeNames = map[PrfDataType]string{
	PrfDataTypeIterationVariable: "iteration-variable",
	PrfDataTypeDKMLength:         "dkm-length",
	PrfDataTypeByteArray:         "byte-array",
	PrfDataTypeCounterFormat:     "counter-format",
	PrfDataTypePrfLabel:          "prf-label",
	PrfDataTypePrfContext:        "prf-context",
	PrfDataTypeDKMFormat:         "dkm-format",
}

var dkmLengthMethodNames = map[DKMLengthMethod]string{
	DKMLengthSumOfKeys:     "sum-of-keys",
	DKMLengthSumOfSegments: "sum-of-segments",
}

// IsKnown reports whether t is one of the catalog values.
func (t PrfDataType) IsKnown() bool {
	_, ok := prfDataTypeNames[t]
	return ok
}

func (t PrfDataType) String() string {
	if name, ok := prfDataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("prf-data-type(0x%04x)", uint32(t))
}

// IsKnown reports whether m is one of the catalog values.
func (m DKMLengthMethod) IsKnown() bool {
	_, ok := dkmLengthMethodNames[m]
	return ok
}

func (m DKMLengthMethod) String() string {
	if name, ok := dkmLengthMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("dkm-length-method(%d)", uint32(m))
}

// ParsePrfDataType resolves a segment type from its catalog name (e.g. "prf-label")
func ParsePrfDataType(name string) (PrfDataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range prfDataTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown PRF data type %q", ErrInvalidArgument, name)
}

// ParseDKMLengthMethod resolves a DKM length method from its catalog name (e.g. "sum-of-keys")
func ParseDKMLengthMethod(name string) (DKMLengthMethod, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range dkmLengthMethodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown DKM length method %q", ErrInvalidArgument, name)
}

// MechanismSP800108CounterKDF is CKM_SP800_108_COUNTER_KDF from PKCS#11 v3.0.
// Vendor variants such as the CloudHSM counter KDF take the same parameter block.
const MechanismSP800108CounterKDF uint64 = 0x000003ac
