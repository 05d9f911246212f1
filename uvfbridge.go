// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import "github.com/wcoco/tuvok/uvf"

// toDomainMeta narrows a VolumeMeta down to the uvf package's contract.
func (m VolumeMeta) toDomainMeta() uvf.DomainMeta {
	return uvf.DomainMeta{
		ComponentBitWidth: m.ComponentBitWidth,
		ComponentCount:    m.ComponentCount,
		IsSigned:          m.IsSigned,
		IsFloat:           m.IsFloat,
		NX:                m.NX, NY: m.NY, NZ: m.NZ,
		FX: m.FX, FY: m.FY, FZ: m.FZ,
		ValueSemantic: m.ValueSemantic,
		Title:         m.Title,
		Source:        m.Source,
	}
}

// fromDomainMeta widens a uvf.DomainMeta back into a full VolumeMeta.
func fromDomainMeta(d uvf.DomainMeta) VolumeMeta {
	return VolumeMeta{
		ComponentBitWidth: d.ComponentBitWidth,
		ComponentCount:    d.ComponentCount,
		IsSigned:          d.IsSigned,
		IsFloat:           d.IsFloat,
		NX:                d.NX, NY: d.NY, NZ: d.NZ,
		FX: d.FX, FY: d.FY, FZ: d.FZ,
		ValueSemantic: d.ValueSemantic,
		Title:         d.Title,
		Source:        d.Source,
	}
}

func newUVFWriter(target string, meta VolumeMeta, maxBrick, overlap int) (*uvf.Writer, error) {
	return uvf.Create(target, meta.toDomainMeta(), maxBrick, overlap)
}

func openUVF(path string) (*uvf.Reader, error) {
	return uvf.Open(path)
}

// BrickKey mirrors uvf.BrickKey under the name spec.md §3 uses.
type BrickKey = uvf.BrickKey

// BrickStats mirrors uvf.BrickStats under the name spec.md §3 uses.
type BrickStats = uvf.BrickStats
