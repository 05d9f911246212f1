// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/wcoco/tuvok/uvf"
)

func TestRawToUVFBuilder(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	raw := make([]byte, 8*8*8)
	for i := range raw {
		raw[i] = byte(i)
	}
	rawPath := filepath.Join(dir, "vol.raw")
	c.Assert(os.WriteFile(rawPath, raw, 0o644), qt.IsNil)

	meta := VolumeMeta{
		ComponentBitWidth: 8, ComponentCount: 1,
		NX: 8, NY: 8, NZ: 8, FX: 1, FY: 1, FZ: 1,
		ValueSemantic: "generic scalar",
	}

	target := filepath.Join(dir, "out.uvf")
	m := NewIOManager()
	c.Assert(m.RawToUVFBuilder(rawPath, meta, target, 4, 0), qt.IsNil)

	r, err := uvf.Open(target)
	c.Assert(err, qt.IsNil)
	c.Assert(r.DomainMeta().NX, qt.Equals, 8)
	c.Assert(len(r.MinMax()), qt.Equals, len(r.LODs()))
}

func TestRawToUVFBuilderRejectsInvalidMeta(t *testing.T) {
	c := qt.New(t)
	m := NewIOManager()
	err := m.RawToUVFBuilder("/nonexistent", VolumeMeta{}, filepath.Join(c.TempDir(), "out.uvf"), 4, 0)
	c.Assert(err, qt.Not(qt.IsNil))
	terr, ok := err.(*Error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(terr.Kind, qt.Equals, KindWriteFailure)
}

func TestConvertStack(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	// Two 2x2 single-component slices.
	slice0 := []byte{0, 1, 2, 3}
	slice1 := []byte{4, 5, 6, 7}

	stack := &StackDescriptor{
		FileType:       "IMAGE",
		Width:          2,
		Height:         2,
		SliceCount:     2,
		BitsAllocated:  8,
		BitsStored:     8,
		ComponentCount: 1,
		AspectX:        1, AspectY: 1, AspectZ: 1,
		Modality:    "generic scalar",
		Description: "test stack",
		Elements: []StackElement{
			{Path: "slice0", readPayload: func() ([]byte, error) { return slice0, nil }},
			{Path: "slice1", readPayload: func() ([]byte, error) { return slice1, nil }},
		},
	}

	target := filepath.Join(dir, "stack.uvf")
	m := NewIOManager()
	c.Assert(m.ConvertStack(stack, target, ConvertOptions{TempDir: dir}), qt.IsNil)

	r, err := uvf.Open(target)
	c.Assert(err, qt.IsNil)
	c.Assert(r.DomainMeta().NX, qt.Equals, 2)
	c.Assert(r.DomainMeta().NZ, qt.Equals, 2)
}

func TestPad3to4(t *testing.T) {
	c := qt.New(t)
	rgb := []byte{1, 2, 3, 4, 5, 6}
	rgba := pad3to4(rgb)
	c.Assert(rgba, qt.DeepEquals, []byte{1, 2, 3, 0xFF, 4, 5, 6, 0xFF})
}
