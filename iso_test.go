// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/wcoco/tuvok/uvf"
)

func TestExtractIsosurfaceProducesTriangles(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	// 2x2x2 scalar field: one corner hot (200), rest cold (0), isovalue 100
	// should produce a small triangulated corner cap.
	vals := []byte{0, 0, 0, 0, 0, 0, 0, 200}
	meta := uvf.DomainMeta{ComponentBitWidth: 8, ComponentCount: 1, NX: 2, NY: 2, NZ: 2, FX: 1, FY: 1, FZ: 1}
	srcPath := filepath.Join(dir, "src.uvf")
	w, err := uvf.Create(srcPath, meta, 8, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(w.WriteRaster(bytes.NewReader(vals)), qt.IsNil)
	sb := NewStatsBuilder(w)
	c.Assert(sb.Build(), qt.IsNil)
	c.Assert(w.Finalize(), qt.IsNil)

	extractor := NewIsoExtractor([]MeshConverter{objMeshConverter{}}, MessageBusFunc(func(Severity, string, ...any) {}))
	target := filepath.Join(dir, "surface.obj")
	c.Assert(extractor.ExtractIsosurface(srcPath, 0, 100, [4]float32{1, 0, 0, 1}, target), qt.IsNil)

	mesh, err := objMeshConverter{}.ConvertToMesh(target)
	c.Assert(err, qt.IsNil)
	c.Assert(len(mesh.Vertices) > 0, qt.IsTrue)
	c.Assert(len(mesh.Indices)%3, qt.Equals, 0)
}

func TestExtractIsosurfaceRejectsMultiComponent(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	meta := uvf.DomainMeta{ComponentBitWidth: 8, ComponentCount: 3, NX: 2, NY: 2, NZ: 2, FX: 1, FY: 1, FZ: 1}
	srcPath := filepath.Join(dir, "src.uvf")
	w, err := uvf.Create(srcPath, meta, 8, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(w.WriteRaster(bytes.NewReader(make([]byte, 8*3))), qt.IsNil)
	w.SetMinMax(nil)
	w.SetHistogram1D(nil)
	w.SetHistogram2D(nil)
	c.Assert(w.Finalize(), qt.IsNil)

	extractor := NewIsoExtractor([]MeshConverter{objMeshConverter{}}, MessageBusFunc(func(Severity, string, ...any) {}))
	err = extractor.ExtractIsosurface(srcPath, 0, 100, [4]float32{1, 0, 0, 1}, filepath.Join(dir, "out.obj"))
	c.Assert(err, qt.Not(qt.IsNil))
	terr, ok := err.(*Error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(terr.Kind, qt.Equals, KindUnsupportedType)
}

func TestMarchTetrahedronAllInsideOrOutsideEmitsNothing(t *testing.T) {
	c := qt.New(t)
	var mesh Mesh
	corners := [4]isoCorner{{val: 0}, {val: 0}, {val: 0}, {val: 0}}
	marchTetrahedron(&mesh, corners, 50, [4]float32{1, 1, 1, 1})
	c.Assert(mesh.Vertices, qt.HasLen, 0)

	allHot := [4]isoCorner{{val: 200}, {val: 200}, {val: 200}, {val: 200}}
	marchTetrahedron(&mesh, allHot, 50, [4]float32{1, 1, 1, 1})
	c.Assert(mesh.Vertices, qt.HasLen, 0)
}

func TestComputeFlatNormals(t *testing.T) {
	c := qt.New(t)
	var mesh Mesh
	mesh.AppendTriangle(
		Vertex{X: 0, Y: 0, Z: 0},
		Vertex{X: 1, Y: 0, Z: 0},
		Vertex{X: 0, Y: 1, Z: 0},
	)
	computeFlatNormals(&mesh)
	c.Assert(mesh.Vertices[0].NZ > 0, qt.IsTrue)
	c.Assert(mesh.Vertices[0].NZ, qt.Equals, mesh.Vertices[1].NZ)
}
