package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// KdfSettings selects the native layout and memory service used to build KDF parameter blocks
type KdfSettings struct {
	// Layout is one of native, api40, api41, api80, api81
	Layout string `mapstructure:"layout" validate:"required,oneof=native api40 api41 api80 api81"`
	// PointerSize overrides the pointer width for non-native layouts (0 means the running build's)
	PointerSize int `mapstructure:"pointer_size" validate:"omitempty,oneof=4 8"`
	// Allocator is one of auto, cgo, mmap
	Allocator string `mapstructure:"allocator" validate:"required,oneof=auto cgo mmap"`
}

// Validate checks that all fields in KdfSettings are valid
func (s *KdfSettings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for KdfSettings: %w", err)
	}

	return nil
}
