package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MGTheTrain/crypto-vault-kdf/internal/domain/kdf"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/logger"
	"github.com/MGTheTrain/crypto-vault-kdf/internal/pkg/validators"
)

// KeyDerivationService drives counter-mode key derivation on a token
type KeyDerivationService interface {
	// Derive builds the parameter block, hands it to the token and releases it.
	// It returns the ID of the parameter block used for the call.
	Derive(ctx context.Context, req *DerivationRequest) (uuid.UUID, error)
	// EncodeFormat renders a counter or DKM length format segment in the service's layout
	EncodeFormat(req *FormatRequest) (kdf.PrfDataParam, error)
}

// keyDerivationService implements the KeyDerivationService interface
type keyDerivationService struct {
	allocator kdf.Allocator
	layout    kdf.Layout
	deriver   kdf.Deriver
	logger    logger.Logger
}

// NewKeyDerivationService creates a new keyDerivationService instance
func NewKeyDerivationService(allocator kdf.Allocator, layout kdf.Layout, deriver kdf.Deriver, logger logger.Logger) (KeyDerivationService, error) {
	if allocator == nil {
		return nil, fmt.Errorf("%w: allocator is required", kdf.ErrInvalidArgument)
	}
	if deriver == nil {
		return nil, fmt.Errorf("%w: deriver is required", kdf.ErrInvalidArgument)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required", kdf.ErrInvalidArgument)
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate layout: %w", err)
	}

	return &keyDerivationService{
		allocator: allocator,
		layout:    layout,
		deriver:   deriver,
		logger:    logger,
	}, nil
}

// Derive builds the native parameter block for req, calls the token and always releases the block
func (s *keyDerivationService) Derive(ctx context.Context, req *DerivationRequest) (id uuid.UUID, err error) {
	if req == nil {
		return uuid.Nil, fmt.Errorf("%w: derivation request is required", kdf.ErrInvalidArgument)
	}
	if err := req.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", kdf.ErrInvalidArgument, err)
	}

	dataParams, err := req.DataParams()
	if err != nil {
		return uuid.Nil, err
	}

	if err := ctx.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("derivation cancelled: %w", err)
	}

	params, err := cryptography.NewSP800108KdfParams(s.allocator, s.layout, req.PrfType, dataParams, s.logger)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to build KDF params: %w", err)
	}
	defer func() {
		if releaseErr := params.Release(); releaseErr != nil {
			s.logger.Error("failed to release KDF params ", params.ID(), ": ", releaseErr)
			err = errors.Join(err, fmt.Errorf("failed to release KDF params: %w", releaseErr))
		}
	}()

	header, err := params.ToMarshalableStructure()
	if err != nil {
		return uuid.Nil, err
	}
	encoded, err := params.MarshalBinary()
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.deriver.DeriveKey(ctx, req.Mechanism, header, encoded); err != nil {
		return uuid.Nil, fmt.Errorf("failed to derive key with mechanism 0x%x: %w", req.Mechanism, err)
	}

	s.logger.Info("Derived key with mechanism ", fmt.Sprintf("0x%x", req.Mechanism), " using KDF params ", params.ID())
	return params.ID(), nil
}

// EncodeFormat encodes the format segment described by req in the service's layout
func (s *keyDerivationService) EncodeFormat(req *FormatRequest) (kdf.PrfDataParam, error) {
	return EncodeFormat(s.layout, req)
}

// EncodeFormat validates req and encodes the matching format segment in layout
func EncodeFormat(layout kdf.Layout, req *FormatRequest) (kdf.PrfDataParam, error) {
	if req == nil {
		return kdf.PrfDataParam{}, fmt.Errorf("%w: format request is required", kdf.ErrInvalidArgument)
	}
	if err := req.Validate(); err != nil {
		return kdf.PrfDataParam{}, fmt.Errorf("%w: %w", kdf.ErrInvalidArgument, err)
	}

	switch req.Kind {
	case validators.FormatKindCounter:
		return kdf.CounterFormat{LittleEndian: req.LittleEndian, WidthInBits: req.WidthInBits}.Param(layout)
	default:
		method, err := kdf.ParseDKMLengthMethod(req.Method)
		if err != nil {
			return kdf.PrfDataParam{}, err
		}
		return kdf.DKMLengthFormat{Method: method, LittleEndian: req.LittleEndian, WidthInBits: req.WidthInBits}.Param(layout)
	}
}
