// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func validMeta() VolumeMeta {
	return VolumeMeta{
		ComponentBitWidth: 16,
		ComponentCount:    1,
		IsSigned:          false,
		IsFloat:           false,
		NX:                4, NY: 4, NZ: 4,
		FX: 1, FY: 1, FZ: 1,
	}
}

func TestVolumeMetaValidate(t *testing.T) {
	c := qt.New(t)

	c.Assert(validMeta().Validate(), qt.IsNil)

	bad := validMeta()
	bad.IsFloat = true
	bad.ComponentBitWidth = 16
	c.Assert(bad.Validate(), qt.ErrorMatches, ".*float component must be 32 or 64 bits.*")

	bad2 := validMeta()
	bad2.ComponentBitWidth = 12
	c.Assert(bad2.Validate(), qt.ErrorMatches, ".*unsupported component bit width.*")

	bad3 := validMeta()
	bad3.ComponentCount = 2
	c.Assert(bad3.Validate(), qt.ErrorMatches, ".*unsupported component count.*")

	bad4 := validMeta()
	bad4.NX = 0
	c.Assert(bad4.Validate(), qt.ErrorMatches, ".*non-positive domain size.*")
}

func TestVolumeMetaDerived(t *testing.T) {
	c := qt.New(t)
	m := validMeta()
	vt, ok := m.VoxelType()
	c.Assert(ok, qt.IsTrue)
	c.Assert(vt, qt.Equals, U16)
	c.Assert(m.VoxelByteWidth(), qt.Equals, 2)
	c.Assert(m.VoxelCount(), qt.Equals, 64)
	c.Assert(m.RawByteSize(), qt.Equals, int64(128))
}

func TestSameDynamicRange(t *testing.T) {
	c := qt.New(t)
	a := validMeta()
	b := validMeta()
	c.Assert(sameDynamicRange(a, b), qt.IsTrue)

	b.NX = 8
	c.Assert(sameDynamicRange(a, b), qt.IsFalse)

	b = validMeta()
	b.IsSigned = true
	c.Assert(sameDynamicRange(a, b), qt.IsFalse)

	// Aspect mismatch does not affect dynamic-range compatibility.
	b = validMeta()
	b.FX = 2.5
	c.Assert(sameDynamicRange(a, b), qt.IsTrue)
}
