package kdf

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"
	"unsafe"
)

// NativePointerSize is the pointer width of the running build in bytes
const NativePointerSize = int(unsafe.Sizeof(uintptr(0)))

// Layout names accepted by ParseLayout
const (
	LayoutNameNative = "native"
	LayoutNameAPI40  = "api40"
	LayoutNameAPI41  = "api41"
	LayoutNameAPI80  = "api80"
	LayoutNameAPI81  = "api81"
)

// Layout describes how cryptoki structures are laid out in native memory.
//
// CK_ULONG and pointers do not always share a width (LLP64 Windows has a 4 byte
// CK_ULONG next to 8 byte pointers) and Windows cryptoki headers pack structures
// to 1 byte, so both widths and the packing are explicit.
type Layout struct {
	ULongSize   int
	PointerSize int
	Packed      bool
	ByteOrder   binary.ByteOrder
}

// StructLayout holds the computed field offsets and total size of a structure
type StructLayout struct {
	Offsets []int `json:"offsets"`
	Size    int   `json:"size"`
}

// LayoutAPI40 has a 4 byte CK_ULONG and 1 byte packing (Windows)
func LayoutAPI40(pointerSize int) Layout {
	return Layout{ULongSize: 4, PointerSize: pointerSize, Packed: true, ByteOrder: binary.NativeEndian}
}

// LayoutAPI41 has a 4 byte CK_ULONG and natural alignment (32 bit Unix)
func LayoutAPI41(pointerSize int) Layout {
	return Layout{ULongSize: 4, PointerSize: pointerSize, Packed: false, ByteOrder: binary.NativeEndian}
}

// LayoutAPI80 has an 8 byte CK_ULONG and 1 byte packing
func LayoutAPI80(pointerSize int) Layout {
	return Layout{ULongSize: 8, PointerSize: pointerSize, Packed: true, ByteOrder: binary.NativeEndian}
}

// LayoutAPI81 has an 8 byte CK_ULONG and natural alignment (64 bit Unix)
func LayoutAPI81(pointerSize int) Layout {
	return Layout{ULongSize: 8, PointerSize: pointerSize, Packed: false, ByteOrder: binary.NativeEndian}
}

// NativeLayout returns the layout used by cryptoki modules of the running platform
func NativeLayout() Layout {
	if runtime.GOOS == "windows" {
		return LayoutAPI40(NativePointerSize)
	}
	if NativePointerSize == 8 {
		return LayoutAPI81(NativePointerSize)
	}
	return LayoutAPI41(NativePointerSize)
}

// ParseLayout resolves a layout by name for the given pointer width
func ParseLayout(name string, pointerSize int) (Layout, error) {
	var l Layout
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LayoutNameNative, "":
		l = NativeLayout()
	case LayoutNameAPI40:
		l = LayoutAPI40(pointerSize)
	case LayoutNameAPI41:
		l = LayoutAPI41(pointerSize)
	case LayoutNameAPI80:
		l = LayoutAPI80(pointerSize)
	case LayoutNameAPI81:
		l = LayoutAPI81(pointerSize)
	default:
		return Layout{}, fmt.Errorf("%w: unknown layout %q", ErrInvalidArgument, name)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks the field widths and byte order
func (l Layout) Validate() error {
	if l.ULongSize != 4 && l.ULongSize != 8 {
		return fmt.Errorf("%w: CK_ULONG size must be 4 or 8 bytes, got %d", ErrInvalidArgument, l.ULongSize)
	}
	if l.PointerSize != 4 && l.PointerSize != 8 {
		return fmt.Errorf("%w: pointer size must be 4 or 8 bytes, got %d", ErrInvalidArgument, l.PointerSize)
	}
	if l.ByteOrder == nil {
		return fmt.Errorf("%w: byte order is required", ErrInvalidArgument)
	}
	return nil
}

func (l Layout) String() string {
	packing := "natural"
	if l.Packed {
		packing = "packed"
	}
	return fmt.Sprintf("ulong=%d ptr=%d %s %s", l.ULongSize, l.PointerSize, packing, l.ByteOrder)
}

// structOf lays out fields of the given sizes in order
func (l Layout) structOf(sizes ...int) StructLayout {
	offsets := make([]int, len(sizes))
	offset, maxAlign := 0, 1
	for i, size := range sizes {
		align := size
		if l.Packed {
			align = 1
		}
		if align > maxAlign {
			maxAlign = align
		}
		offset = alignUp(offset, align)
		offsets[i] = offset
		offset += size
	}
	return StructLayout{Offsets: offsets, Size: alignUp(offset, maxAlign)}
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// Header is CK_SP800_108_KDF_PARAMS {prftype, ulNumberOfDataParams, pDataParams}
func (l Layout) Header() StructLayout {
	return l.structOf(l.ULongSize, l.ULongSize, l.PointerSize)
}

// Record is CK_PRF_DATA_PARAM {type, pValue, ulValueLen}
func (l Layout) Record() StructLayout {
	return l.structOf(l.ULongSize, l.PointerSize, l.ULongSize)
}

// CounterFormat is CK_SP800_108_COUNTER_FORMAT {bLittleEndian, ulWidthInBits}
func (l Layout) CounterFormat() StructLayout {
	return l.structOf(1, l.ULongSize)
}

// DKMLengthFormat is CK_SP800_108_DKM_LENGTH_FORMAT {dkmLengthMethod, bLittleEndian, ulWidthInBits}
func (l Layout) DKMLengthFormat() StructLayout {
	return l.structOf(l.ULongSize, 1, l.ULongSize)
}

// FitsULong reports whether v is representable as a CK_ULONG of this layout
func (l Layout) FitsULong(v uint64) bool {
	return l.ULongSize == 8 || v <= 0xFFFFFFFF
}

// FitsPointer reports whether addr is representable as a pointer of this layout
func (l Layout) FitsPointer(addr uintptr) bool {
	return l.PointerSize == 8 || uint64(addr) <= 0xFFFFFFFF
}

// PutULong writes v as a CK_ULONG at the start of buf
func (l Layout) PutULong(buf []byte, v uint64) {
	if l.ULongSize == 4 {
		l.ByteOrder.PutUint32(buf, uint32(v))
		return
	}
	l.ByteOrder.PutUint64(buf, v)
}

// ULong reads a CK_ULONG from the start of buf
func (l Layout) ULong(buf []byte) uint64 {
	if l.ULongSize == 4 {
		return uint64(l.ByteOrder.Uint32(buf))
	}
	return l.ByteOrder.Uint64(buf)
}

// PutPointer writes addr as a native pointer at the start of buf
func (l Layout) PutPointer(buf []byte, addr uintptr) {
	if l.PointerSize == 4 {
		l.ByteOrder.PutUint32(buf, uint32(addr))
		return
	}
	l.ByteOrder.PutUint64(buf, uint64(addr))
}

// Pointer reads a native pointer from the start of buf
func (l Layout) Pointer(buf []byte) uintptr {
	if l.PointerSize == 4 {
		return uintptr(l.ByteOrder.Uint32(buf))
	}
	return uintptr(l.ByteOrder.Uint64(buf))
}

// PutBool writes a CK_BBOOL
func PutBool(buf []byte, v bool) {
	if v {
		buf[0] = 1
		return
	}
	buf[0] = 0
}
