// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import "math"

// VoxelType is the closed tagged union spec.md §9 calls for in place of the
// source's templates over scalar types. Every component that needs to
// dispatch on voxel scalar type switches exhaustively over these cases;
// an unhandled case (I64/U64 in stats and the evaluator, see §9 open
// questions) surfaces [ErrUnsupportedType] rather than silently
// miscomputing.
type VoxelType int

const (
	I8 VoxelType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
)

func (t VoxelType) String() string {
	switch t {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "invalid"
	}
}

// ByteWidth returns the size in bytes of one component of this type.
func (t VoxelType) ByteWidth() int {
	switch t {
	case I8, U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

// IsSigned reports whether the type is signed (always true for floats, per
// VolumeMeta's invariant "if is-float then signed").
func (t VoxelType) IsSigned() bool {
	switch t {
	case I8, I16, I32, I64, F32, F64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the type is a floating-point type.
func (t VoxelType) IsFloat() bool {
	return t == F32 || t == F64
}

// VoxelTypeFor maps a (bitWidth, signed, isFloat) triple from a VolumeMeta
// into the corresponding VoxelType, or false if the combination is not one
// of the ten supported cases.
func VoxelTypeFor(bitWidth int, signed, isFloat bool) (VoxelType, bool) {
	switch {
	case isFloat && bitWidth == 32:
		return F32, true
	case isFloat && bitWidth == 64:
		return F64, true
	case isFloat:
		return 0, false
	case bitWidth == 8 && signed:
		return I8, true
	case bitWidth == 8 && !signed:
		return U8, true
	case bitWidth == 16 && signed:
		return I16, true
	case bitWidth == 16 && !signed:
		return U16, true
	case bitWidth == 32 && signed:
		return I32, true
	case bitWidth == 32 && !signed:
		return U32, true
	case bitWidth == 64 && signed:
		return I64, true
	case bitWidth == 64 && !signed:
		return U64, true
	default:
		return 0, false
	}
}

// Range returns the representable [min,max] of an integer VoxelType as
// float64. The expression evaluator does not call it; it rescales with
// Scale and Bias only. It panics for float types, which have no fixed range.
func (t VoxelType) Range() (min, max float64) {
	switch t {
	case I8:
		return math.MinInt8, math.MaxInt8
	case U8:
		return 0, math.MaxUint8
	case I16:
		return math.MinInt16, math.MaxInt16
	case U16:
		return 0, math.MaxUint16
	case I32:
		return math.MinInt32, math.MaxInt32
	case U32:
		return 0, math.MaxUint32
	case I64:
		return math.MinInt64, math.MaxInt64
	case U64:
		return 0, math.MaxUint64
	default:
		panic("VoxelType.Range: float type has no fixed range: " + t.String())
	}
}

// widestCommon computes the "widest" VoxelType across inputs per spec.md
// §4.6.3: componentwise max of bit width, OR of is-float, OR of is-signed.
func widestCommon(types []VoxelType) (VoxelType, bool) {
	if len(types) == 0 {
		return 0, false
	}
	width := 0
	signed := false
	isFloat := false
	for _, t := range types {
		if w := t.ByteWidth() * 8; w > width {
			width = w
		}
		signed = signed || t.IsSigned()
		isFloat = isFloat || t.IsFloat()
	}
	return VoxelTypeFor(width, signed, isFloat)
}

// decodeVoxel reads one voxel component at index i (not byte offset) from
// buf as a float64, dispatching on t. It is the shared decoder used by the
// stats builder, the merger, the evaluator and the iso extractor; 64-bit
// integer values beyond 2^53 lose precision in the conversion.
func decodeVoxel(t VoxelType, buf []byte, i int) float64 {
	off := i * t.ByteWidth()
	switch t {
	case I8:
		return float64(int8(buf[off]))
	case U8:
		return float64(buf[off])
	case I16:
		return float64(int16(leUint16(buf[off:])))
	case U16:
		return float64(leUint16(buf[off:]))
	case I32:
		return float64(int32(leUint32(buf[off:])))
	case U32:
		return float64(leUint32(buf[off:]))
	case I64:
		return float64(int64(leUint64(buf[off:])))
	case U64:
		return float64(leUint64(buf[off:]))
	case F32:
		return float64(math.Float32frombits(leUint32(buf[off:])))
	case F64:
		return math.Float64frombits(leUint64(buf[off:]))
	default:
		return 0
	}
}

// encodeVoxel writes v, previously produced by decodeVoxel or evaluator
// arithmetic, into buf at component index i as type t, clamping integer
// types to their representable range.
func encodeVoxel(t VoxelType, buf []byte, i int, v float64) {
	off := i * t.ByteWidth()
	switch t {
	case I8:
		buf[off] = byte(int8(clamp(v, math.MinInt8, math.MaxInt8)))
	case U8:
		buf[off] = byte(clamp(v, 0, math.MaxUint8))
	case I16:
		putLeUint16(buf[off:], uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
	case U16:
		putLeUint16(buf[off:], uint16(clamp(v, 0, math.MaxUint16)))
	case I32:
		putLeUint32(buf[off:], uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	case U32:
		putLeUint32(buf[off:], uint32(clamp(v, 0, math.MaxUint32)))
	case I64:
		putLeUint64(buf[off:], uint64(int64(clamp(v, math.MinInt64, math.MaxInt64))))
	case U64:
		putLeUint64(buf[off:], uint64(clamp(v, 0, math.MaxUint64)))
	case F32:
		putLeUint32(buf[off:], math.Float32bits(float32(v)))
	case F64:
		putLeUint64(buf[off:], math.Float64bits(v))
	}
}

// swapEndianInPlace byte-swaps every sample of the given allocated bit
// width in buf, per spec.md §4.2.2's endian normalization: "byte-swap when
// the stack's endianness differs from the host". 8-bit samples are a
// no-op.
func swapEndianInPlace(buf []byte, bitWidth int) {
	switch bitWidth {
	case 8:
		return
	case 16:
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	case 32:
		for i := 0; i+3 < len(buf); i += 4 {
			buf[i], buf[i+1], buf[i+2], buf[i+3] = buf[i+3], buf[i+2], buf[i+1], buf[i]
		}
	case 64:
		for i := 0; i+7 < len(buf); i += 8 {
			for j := 0; j < 4; j++ {
				buf[i+j], buf[i+7-j] = buf[i+7-j], buf[i+j]
			}
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putLeUint16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLeUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
func putLeUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
