// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/okieraised/gonii/pkg/nifti"
)

func TestNiftiVoxelTypeRoundTrip(t *testing.T) {
	c := qt.New(t)
	for _, vt := range []VoxelType{I8, U8, I16, U16, I32, U32, F32, F64} {
		code := niftiDatatypeCode(vt)
		c.Assert(code, qt.Not(qt.Equals), int32(0))
		got, ok := niftiVoxelType(&nifti.Nii{Datatype: code})
		c.Assert(ok, qt.IsTrue)
		c.Assert(got, qt.Equals, vt)
	}
}

func TestNiftiVoxelTypeRejectsUnknownCode(t *testing.T) {
	c := qt.New(t)
	_, ok := niftiVoxelType(&nifti.Nii{Datatype: 9999})
	c.Assert(ok, qt.IsFalse)
}

func TestAnalyzeConvertToNativeThenToRaw(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	meta := VolumeMeta{
		ComponentBitWidth: 16, ComponentCount: 1, IsSigned: true,
		NX: 4, NY: 3, NZ: 2, FX: 1.5, FY: 1.5, FZ: 3,
	}
	raw := make([]byte, meta.RawByteSize())
	for i := range raw {
		raw[i] = byte(i)
	}
	rawPath := filepath.Join(dir, "vol.raw")
	c.Assert(os.WriteFile(rawPath, raw, 0o644), qt.IsNil)

	niiPath := filepath.Join(dir, "vol.nii")
	conv := analyzeConverter{}
	c.Assert(conv.ConvertToNative(rawPath, niiPath, 0, meta, false, false), qt.IsNil)

	first512, err := readPrefix(niiPath, sniffLen)
	c.Assert(err, qt.IsNil)
	c.Assert(conv.CanRead(niiPath, first512), qt.IsTrue)

	gotPath, del, headerSkip, gotMeta, _, err := conv.ConvertToRaw(niiPath, dir, false)
	c.Assert(err, qt.IsNil)
	c.Assert(del, qt.IsFalse)
	c.Assert(gotPath, qt.Equals, niiPath)
	c.Assert(headerSkip, qt.Equals, int64(352))
	c.Assert(gotMeta.NX, qt.Equals, 4)
	c.Assert(gotMeta.NY, qt.Equals, 3)
	c.Assert(gotMeta.NZ, qt.Equals, 2)
	c.Assert(gotMeta.ComponentBitWidth, qt.Equals, 16)
	c.Assert(gotMeta.IsSigned, qt.IsTrue)

	full, err := os.ReadFile(niiPath)
	c.Assert(err, qt.IsNil)
	c.Assert(full[headerSkip:], qt.DeepEquals, raw)
}
