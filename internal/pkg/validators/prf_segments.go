package validators

import (
	"github.com/go-playground/validator/v10"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
)

// Format kinds accepted by format requests
const (
	FormatKindCounter = "counter"
	FormatKindDKM     = "dkm"
)

// PrfDataTypeNameValidation validates that the field names a PRF data segment type (e.g. "prf-label").
func PrfDataTypeNameValidation(fl validator.FieldLevel) bool {
	_, err := kdf.ParsePrfDataType(fl.Field().String())
	return err == nil
}

// FormatMethodValidation validates the DKM length method based on the format kind (counter or dkm).
// Counter formats carry no method.
func FormatMethodValidation(fl validator.FieldLevel) bool {
	kind := fl.Parent().FieldByName("Kind").String()
	method := fl.Field().String()

	switch kind {
	case FormatKindCounter:
		return method == ""
	case FormatKindDKM:
		_, err := kdf.ParseDKMLengthMethod(method)
		return err == nil
	default:
		return false
	}
}

// WidthInBitsValidation validates the encoded width based on the format kind (counter or dkm).
func WidthInBitsValidation(fl validator.FieldLevel) bool {
	kind := fl.Parent().FieldByName("Kind").String()
	width := fl.Field().Uint()

	switch kind {
	case FormatKindCounter:
		return width == 8 || width == 16 || width == 24 || width == 32
	case FormatKindDKM:
		return width >= 8 && width <= 64 && width%8 == 0
	default:
		return false
	}
}
