// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNRRDRoundTrip(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	meta := VolumeMeta{
		ComponentBitWidth: 8, ComponentCount: 1,
		NX: 2, NY: 2, NZ: 1, FX: 1, FY: 1, FZ: 1,
	}
	raw := []byte{1, 2, 3, 4}
	rawPath := filepath.Join(dir, "vol.raw")
	c.Assert(os.WriteFile(rawPath, raw, 0o644), qt.IsNil)

	nrrdPath := filepath.Join(dir, "vol.nrrd")
	conv := nrrdConverter{}
	c.Assert(conv.ConvertToNative(rawPath, nrrdPath, 0, meta, false, false), qt.IsNil)

	first512, err := readPrefix(nrrdPath, sniffLen)
	c.Assert(err, qt.IsNil)
	c.Assert(conv.CanRead(nrrdPath, first512), qt.IsTrue)

	gotPath, del, headerSkip, gotMeta, semantic, err := conv.ConvertToRaw(nrrdPath, dir, false)
	c.Assert(err, qt.IsNil)
	c.Assert(del, qt.IsFalse)
	c.Assert(gotPath, qt.Equals, nrrdPath)
	c.Assert(semantic, qt.Equals, "generic scalar")
	c.Assert(gotMeta.NX, qt.Equals, 2)
	c.Assert(gotMeta.NY, qt.Equals, 2)
	c.Assert(gotMeta.NZ, qt.Equals, 1)
	c.Assert(gotMeta.ComponentBitWidth, qt.Equals, 8)

	full, err := os.ReadFile(nrrdPath)
	c.Assert(err, qt.IsNil)
	c.Assert(full[headerSkip:], qt.DeepEquals, raw)
}

func TestNRRDCanReadRejectsNonNRRD(t *testing.T) {
	c := qt.New(t)
	conv := nrrdConverter{}
	c.Assert(conv.CanRead("x.bin", []byte("not nrrd at all")), qt.IsFalse)
}

func TestNRRDConvertToRawRejectsBadMagic(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	path := filepath.Join(dir, "bad.nrrd")
	c.Assert(os.WriteFile(path, []byte("NOTNRRD\ntype: uint8\n"), 0o644), qt.IsNil)

	conv := nrrdConverter{}
	_, _, _, _, _, err := conv.ConvertToRaw(path, dir, false)
	c.Assert(err, qt.Not(qt.IsNil))
}
