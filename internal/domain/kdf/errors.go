package kdf

import "errors"

var (
	// ErrInvalidArgument is returned when the input to a builder or encoder is unusable
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAllocationFailed is returned when the native memory service cannot satisfy an allocation
	ErrAllocationFailed = errors.New("native memory allocation failed")
	// ErrObjectDisposed is returned when a released parameter block is accessed
	ErrObjectDisposed = errors.New("object has been released")
	// ErrUnknownAddress is returned by allocators for addresses they do not own
	ErrUnknownAddress = errors.New("address not owned by allocator")
	// ErrOutOfBounds is returned by allocators for reads or writes past the end of an allocation
	ErrOutOfBounds = errors.New("access outside allocation bounds")
)
