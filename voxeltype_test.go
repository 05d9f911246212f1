// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestVoxelTypeFor(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		width   int
		signed  bool
		isFloat bool
		want    VoxelType
	}{
		{8, true, false, I8},
		{8, false, false, U8},
		{16, true, false, I16},
		{16, false, false, U16},
		{32, true, false, I32},
		{32, false, false, U32},
		{64, true, false, I64},
		{64, false, false, U64},
		{32, true, true, F32},
		{64, true, true, F64},
	}
	for _, tc := range cases {
		got, ok := VoxelTypeFor(tc.width, tc.signed, tc.isFloat)
		c.Assert(ok, qt.IsTrue)
		c.Assert(got, qt.Equals, tc.want)
	}

	_, ok := VoxelTypeFor(16, true, true)
	c.Assert(ok, qt.IsFalse)
	_, ok = VoxelTypeFor(12, true, false)
	c.Assert(ok, qt.IsFalse)
}

func TestVoxelTypeByteWidthAndString(t *testing.T) {
	c := qt.New(t)
	c.Assert(I8.ByteWidth(), qt.Equals, 1)
	c.Assert(U16.ByteWidth(), qt.Equals, 2)
	c.Assert(F32.ByteWidth(), qt.Equals, 4)
	c.Assert(F64.ByteWidth(), qt.Equals, 8)
	c.Assert(I8.String(), qt.Equals, "i8")
	c.Assert(F64.String(), qt.Equals, "f64")
	c.Assert(VoxelType(99).String(), qt.Equals, "invalid")
}

func TestVoxelTypeIsSignedIsFloat(t *testing.T) {
	c := qt.New(t)
	c.Assert(U8.IsSigned(), qt.IsFalse)
	c.Assert(I8.IsSigned(), qt.IsTrue)
	c.Assert(F32.IsSigned(), qt.IsTrue)
	c.Assert(F32.IsFloat(), qt.IsTrue)
	c.Assert(I32.IsFloat(), qt.IsFalse)
}

func TestDecodeEncodeVoxelRoundTrip(t *testing.T) {
	c := qt.New(t)

	for _, vt := range []VoxelType{I8, U8, I16, U16, I32, U32, F32, F64} {
		buf := make([]byte, vt.ByteWidth())
		encodeVoxel(vt, buf, 0, 42)
		got := decodeVoxel(vt, buf, 0)
		c.Assert(got, qt.Equals, float64(42), qt.Commentf("type %s", vt))
	}
}

func TestEncodeVoxelClamps(t *testing.T) {
	c := qt.New(t)
	buf := make([]byte, 1)
	encodeVoxel(U8, buf, 0, 1000)
	c.Assert(decodeVoxel(U8, buf, 0), qt.Equals, float64(255))
	encodeVoxel(U8, buf, 0, -10)
	c.Assert(decodeVoxel(U8, buf, 0), qt.Equals, float64(0))
}

func TestWidestCommon(t *testing.T) {
	c := qt.New(t)

	got, ok := widestCommon([]VoxelType{I8, I16, U8})
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, I16)

	got, ok = widestCommon([]VoxelType{U8, F32})
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, F32)

	_, ok = widestCommon(nil)
	c.Assert(ok, qt.IsFalse)
}

func TestSwapEndianInPlace(t *testing.T) {
	c := qt.New(t)

	buf := []byte{0x01, 0x02}
	swapEndianInPlace(buf, 16)
	c.Assert(buf, qt.DeepEquals, []byte{0x02, 0x01})

	buf4 := []byte{0x01, 0x02, 0x03, 0x04}
	swapEndianInPlace(buf4, 32)
	c.Assert(buf4, qt.DeepEquals, []byte{0x04, 0x03, 0x02, 0x01})

	buf8 := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	swapEndianInPlace(buf8, 64)
	c.Assert(buf8, qt.DeepEquals, []byte{7, 6, 5, 4, 3, 2, 1, 0})

	buf1 := []byte{0xAB}
	swapEndianInPlace(buf1, 8)
	c.Assert(buf1, qt.DeepEquals, []byte{0xAB})
}

func TestVoxelTypeRangePanicsOnFloat(t *testing.T) {
	c := qt.New(t)
	c.Assert(func() { F32.Range() }, qt.PanicMatches, ".*float type has no fixed range.*")

	min, max := U8.Range()
	c.Assert(min, qt.Equals, float64(0))
	c.Assert(max, qt.Equals, float64(255))
}
