// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import "fmt"

// VolumeMeta is carried through the pipeline end to end, per spec.md §3.
// Invariant: if IsFloat then ComponentBitWidth is 32 or 64.
type VolumeMeta struct {
	ComponentBitWidth int // 8, 16, 32, or 64
	ComponentCount    int // 1, 3, or 4
	IsSigned          bool
	IsFloat           bool
	SwapEndian        bool

	NX, NY, NZ int     // domain size
	FX, FY, FZ float64 // aspect ratio

	ValueSemantic string // e.g. "CT", "MRI", "generic scalar"
	Title         string
	Source        string
}

// Validate checks VolumeMeta's invariants and returns an error describing
// the first violation found.
func (m VolumeMeta) Validate() error {
	if m.IsFloat && m.ComponentBitWidth != 32 && m.ComponentBitWidth != 64 {
		return fmt.Errorf("volume meta: float component must be 32 or 64 bits, got %d", m.ComponentBitWidth)
	}
	switch m.ComponentBitWidth {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("volume meta: unsupported component bit width %d", m.ComponentBitWidth)
	}
	switch m.ComponentCount {
	case 1, 3, 4:
	default:
		return fmt.Errorf("volume meta: unsupported component count %d", m.ComponentCount)
	}
	if m.NX <= 0 || m.NY <= 0 || m.NZ <= 0 {
		return fmt.Errorf("volume meta: non-positive domain size %dx%dx%d", m.NX, m.NY, m.NZ)
	}
	return nil
}

// VoxelType returns the scalar VoxelType for one component of this volume.
func (m VolumeMeta) VoxelType() (VoxelType, bool) {
	return VoxelTypeFor(m.ComponentBitWidth, m.IsSigned, m.IsFloat)
}

// VoxelByteWidth returns the byte size of a single full voxel (all
// components).
func (m VolumeMeta) VoxelByteWidth() int {
	return (m.ComponentBitWidth / 8) * m.ComponentCount
}

// VoxelCount returns the number of voxels in the domain.
func (m VolumeMeta) VoxelCount() int {
	return m.NX * m.NY * m.NZ
}

// RawByteSize returns the expected length of a raw stream carrying this
// volume's full domain.
func (m VolumeMeta) RawByteSize() int64 {
	return int64(m.VoxelCount()) * int64(m.VoxelByteWidth())
}

// sameDynamicRange reports whether a and b share the fields the merge and
// evaluator mergeability checks require: bit width, component count,
// signedness, float-ness, domain size. Endian-delta and aspect are
// compared separately by callers (aspect mismatch is a warning only, per
// spec.md §4.2.4 and §7).
func sameDynamicRange(a, b VolumeMeta) bool {
	return a.ComponentBitWidth == b.ComponentBitWidth &&
		a.ComponentCount == b.ComponentCount &&
		a.IsSigned == b.IsSigned &&
		a.IsFloat == b.IsFloat &&
		a.NX == b.NX && a.NY == b.NY && a.NZ == b.NZ
}
