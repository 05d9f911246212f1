// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestIQMMeshRoundTrip(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	var mesh Mesh
	mesh.AppendTriangle(
		Vertex{X: 0, Y: 0, Z: 0, NX: 0, NY: 0, NZ: 1, R: 1, G: 0, B: 0, A: 1},
		Vertex{X: 1, Y: 0, Z: 0, NX: 0, NY: 0, NZ: 1, R: 0, G: 1, B: 0, A: 1},
		Vertex{X: 0, Y: 1, Z: 0, NX: 0, NY: 0, NZ: 1, R: 0, G: 0, B: 1, A: 1},
	)

	conv := iqmMeshConverter{}
	path := filepath.Join(dir, "tri.iqm")
	c.Assert(conv.ConvertToNative(mesh, path), qt.IsNil)
	c.Assert(conv.CanRead(path), qt.IsTrue)

	got, err := conv.ConvertToMesh(path)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Vertices, qt.HasLen, 3)
	c.Assert(got.Indices, qt.HasLen, 3)
	c.Assert(got.Vertices[0].R, qt.Equals, float32(1))
	c.Assert(got.Vertices[1].G, qt.Equals, float32(1))
}

func TestClamp01(t *testing.T) {
	c := qt.New(t)
	c.Assert(clamp01(-1), qt.Equals, float32(0))
	c.Assert(clamp01(2), qt.Equals, float32(1))
	c.Assert(clamp01(0.5), qt.Equals, float32(0.5))
}

func TestIQMMeshRejectsBadMagic(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	path := filepath.Join(dir, "bad.iqm")
	conv := iqmMeshConverter{}
	c.Assert(os.WriteFile(path, []byte("NOTANIQMFILE...."), 0o644), qt.IsNil)
	c.Assert(conv.CanRead(path), qt.IsFalse)
}
