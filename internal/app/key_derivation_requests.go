package app

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/validators"
)

// SegmentRequest is one PRF data segment addressed by its catalog name
type SegmentRequest struct {
	Type  string `validate:"required,prfdatatypename"`
	Value []byte
}

// DerivationRequest describes a counter-mode derive call
type DerivationRequest struct {
	Mechanism uint64 `validate:"required"`
	PrfType   uint64
	Segments  []SegmentRequest `validate:"required,min=1,dive"`
}

// FormatRequest describes a counter or DKM length format payload
type FormatRequest struct {
	Kind         string `validate:"required,oneof=counter dkm"`
	Method       string `validate:"formatmethod"`
	LittleEndian bool
	WidthInBits  uint64 `validate:"widthinbits"`
}

// Validate for validating DerivationRequest struct
func (r *DerivationRequest) Validate() error {
	return validateStruct(r)
}

// DataParams resolves the segment names into typed data params, keeping the order
func (r *DerivationRequest) DataParams() ([]kdf.PrfDataParam, error) {
	dataParams := make([]kdf.PrfDataParam, 0, len(r.Segments))
	for i, segment := range r.Segments {
		t, err := kdf.ParsePrfDataType(segment.Type)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		dataParams = append(dataParams, kdf.PrfDataParam{Type: t, Value: segment.Value})
	}
	return dataParams, nil
}

// Validate for validating FormatRequest struct
func (r *FormatRequest) Validate() error {
	return validateStruct(r)
}

func validateStruct(s interface{}) error {
	validate := validator.New()

	customValidations := map[string]validator.Func{
		"prfdatatypename": validators.PrfDataTypeNameValidation,
		"formatmethod":    validators.FormatMethodValidation,
		"widthinbits":     validators.WidthInBitsValidation,
	}
	for tag, fn := range customValidations {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register custom validator: %w", err)
		}
	}

	err := validate.Struct(s)
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
