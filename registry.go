// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

// NewDefaultIOManager returns an IOManager with every format plugin this
// repo ships registered, in the dispatch order spec.md §4.1 assumes:
// format-specific converters first (evaluated in registration order by
// Identify), finalRawConverter last as the fallback. Mesh converters are
// independent of the raw/volume registry and are added the same way.
//
// finalRaw carries the dimensions/layout a raw fallback needs, since a
// headerless file has no self-describing geometry; callers that never
// expect to fall back to raw can pass a zero-value finalRawConverter and
// will get a clear error if it's ever reached.
func NewDefaultIOManager(finalRaw finalRawConverter) *IOManager {
	m := NewIOManager()
	m.RegisterConverter(dicomConverter{})
	m.RegisterConverter(tiffConverter{})
	m.RegisterConverter(analyzeConverter{})
	m.RegisterConverter(nrrdConverter{})
	m.RegisterConverter(imageStackConverter{})
	m.RegisterFinalConverter(finalRaw)

	m.RegisterMeshConverter(objMeshConverter{})
	m.RegisterMeshConverter(iqmMeshConverter{})
	return m
}
