// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import "strings"

// Vertex is one mesh vertex: position, normal, and an RGBA color, per
// spec.md §4.5 ("triangles that are appended to a mesh (vertices, normals,
// colors from the supplied RGBA)").
type Vertex struct {
	X, Y, Z    float32
	NX, NY, NZ float32
	R, G, B, A float32
}

// Mesh is the polygonal output of isosurface extraction: an indexed
// triangle list.
type Mesh struct {
	Vertices []Vertex
	// Indices holds vertex indices, three per triangle.
	Indices []uint32
}

// AppendTriangle appends three vertices as one triangle, reusing existing
// vertices is left to producers — the iso extractor emits one unique
// vertex per triangle corner, matching the source's non-indexed marching
// cubes emission.
func (m *Mesh) AppendTriangle(a, b, c Vertex) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, a, b, c)
	m.Indices = append(m.Indices, base, base+1, base+2)
}

// MeshConverter is the per-mesh-format plugin contract, spec.md §6.
type MeshConverter interface {
	SupportedExtensions() []string
	CanRead(path string) bool
	ConvertToMesh(path string) (Mesh, error)
	ConvertToNative(mesh Mesh, target string) error
}

func meshConverterForExtension(converters []MeshConverter, target string) MeshConverter {
	ext := strings.ToLower(strings.TrimPrefix(extOf(target), "."))
	for _, c := range converters {
		for _, e := range c.SupportedExtensions() {
			if strings.ToLower(e) == ext {
				return c
			}
		}
	}
	return nil
}
