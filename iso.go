// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"fmt"
)

// isoCorner is one of a cell's 8 grid corners: its position within the
// cell (0 or 1 on each axis) and its scalar value.
type isoCorner struct {
	x, y, z float32
	val     float64
}

// cubeTetrahedra is the classic decomposition of a cell into 6
// tetrahedra sharing the main diagonal between corners 0 and 6. Using
// tetrahedra instead of the 256-case cube table sidesteps marching cubes'
// face/interior ambiguity cases entirely: every tetrahedron has only 16
// (by symmetry 6 meaningful) sign configurations, each unambiguous.
var cubeTetrahedra = [6][4]int{
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
	{0, 5, 1, 6},
}

// cubeCornerOffsets gives the (x,y,z) unit offsets of a cell's 8 corners,
// in the numbering cubeTetrahedra indexes into.
var cubeCornerOffsets = [8][3]float32{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// marchCell extracts the triangles of one grid cell at the given isovalue
// into mesh, tetrahedron by tetrahedron. color is applied to every
// emitted vertex, per spec.md §4.5 ("colors from the supplied RGBA").
func marchCell(mesh *Mesh, corners [8]isoCorner, iso float64, color [4]float32) {
	for _, tet := range cubeTetrahedra {
		var v [4]isoCorner
		for i, ci := range tet {
			v[i] = corners[ci]
		}
		marchTetrahedron(mesh, v, iso, color)
	}
}

func marchTetrahedron(mesh *Mesh, v [4]isoCorner, iso float64, color [4]float32) {
	mask := 0
	for i := 0; i < 4; i++ {
		if v[i].val >= iso {
			mask |= 1 << i
		}
	}
	inside := popcount4(mask)
	if inside == 0 || inside == 4 {
		return
	}

	interp := func(a, b int) Vertex {
		return lerpVertex(v[a], v[b], iso, color)
	}

	switch inside {
	case 1, 3:
		var a int
		for i := 0; i < 4; i++ {
			if bitSet(mask, i) == (inside == 1) {
				a = i
				break
			}
		}
		others := otherThree(a)
		p0, p1, p2 := interp(a, others[0]), interp(a, others[1]), interp(a, others[2])
		if inside == 1 {
			mesh.AppendTriangle(p0, p1, p2)
		} else {
			// Complementary case: reverse winding so the surface still
			// faces the "inside" half-space consistently.
			mesh.AppendTriangle(p0, p2, p1)
		}
	case 2:
		var insideIdx, outsideIdx []int
		for i := 0; i < 4; i++ {
			if bitSet(mask, i) {
				insideIdx = append(insideIdx, i)
			} else {
				outsideIdx = append(outsideIdx, i)
			}
		}
		i1, i2 := insideIdx[0], insideIdx[1]
		o1, o2 := outsideIdx[0], outsideIdx[1]
		a := interp(i1, o1)
		b := interp(i1, o2)
		c := interp(i2, o2)
		d := interp(i2, o1)
		mesh.AppendTriangle(a, b, c)
		mesh.AppendTriangle(a, c, d)
	}
}

func popcount4(mask int) int {
	n := 0
	for i := 0; i < 4; i++ {
		if mask&(1<<i) != 0 {
			n++
		}
	}
	return n
}

func bitSet(mask, i int) bool { return mask&(1<<i) != 0 }

func otherThree(a int) [3]int {
	var out [3]int
	n := 0
	for i := 0; i < 4; i++ {
		if i != a {
			out[n] = i
			n++
		}
	}
	return out
}

func lerpVertex(a, b isoCorner, iso float64, color [4]float32) Vertex {
	t := float32(0.5)
	if b.val != a.val {
		t = float32((iso - a.val) / (b.val - a.val))
	}
	pos := func(ac, bc float32) float32 { return ac + (bc-ac)*t }
	return Vertex{
		X: pos(a.x, b.x), Y: pos(a.y, b.y), Z: pos(a.z, b.z),
		// Normals are filled in by the caller once the full triangle is
		// known (flat, per-face shading); left zero here.
		R: color[0], G: color[1], B: color[2], A: color[3],
	}
}

// IsoExtractor streams bricks of a scalar source LOD through the
// tetrahedral marching-cubes kernel, per spec.md §4.5. Non-scalar sources
// (ComponentCount != 1) fail up front.
type IsoExtractor struct {
	meshConverters []MeshConverter
	bus            MessageBus
}

// NewIsoExtractor returns an extractor that serializes through one of
// meshConverters, selected by the target file's extension.
func NewIsoExtractor(meshConverters []MeshConverter, bus MessageBus) *IsoExtractor {
	return &IsoExtractor{meshConverters: meshConverters, bus: bus}
}

// ExtractIsosurface reads sourceUVF's lod, extracts the isosurface at
// isovalue (converted to the volume's own voxel type before comparison),
// tints every triangle with color, and serializes the result to target via
// whichever registered MeshConverter matches target's extension.
func (e *IsoExtractor) ExtractIsosurface(sourceUVF string, lod int, isovalue float64, color [4]float32, target string) error {
	r, err := openUVF(sourceUVF)
	if err != nil {
		return newError("ExtractIsosurface", KindReadFailure, err)
	}
	meta := fromDomainMeta(r.DomainMeta())
	if meta.ComponentCount != 1 {
		return newError("ExtractIsosurface", KindUnsupportedType, fmt.Errorf("iso extraction requires a scalar source, got %d components", meta.ComponentCount))
	}
	vt, ok := meta.VoxelType()
	if !ok {
		return newError("ExtractIsosurface", KindUnsupportedType, fmt.Errorf("unsupported voxel type"))
	}
	isoBuf := make([]byte, vt.ByteWidth())
	encodeVoxel(vt, isoBuf, 0, isovalue)
	isovalue = decodeVoxel(vt, isoBuf, 0)

	lods := r.LODs()
	if lod < 0 || lod >= len(lods) {
		return newError("ExtractIsosurface", KindReadFailure, fmt.Errorf("lod %d out of range", lod))
	}
	domain := lods[lod].Domain

	var mesh Mesh
	nBricks := lods[lod].BrickCount[0] * lods[lod].BrickCount[1] * lods[lod].BrickCount[2]
	for idx := 0; idx < nBricks; idx++ {
		voxels, err := r.BrickVoxels(BrickKey{LOD: lod, Index: idx})
		if err != nil {
			return newError("ExtractIsosurface", KindReadFailure, err)
		}
		marchBrick(&mesh, voxels, vt, domain, isovalue, color)
		progress(e.bus, "ExtractIsosurface", idx+1, nBricks)
	}
	computeFlatNormals(&mesh)

	mc := meshConverterForExtension(e.meshConverters, target)
	if mc == nil {
		return newError("ExtractIsosurface", KindNoConverter, fmt.Errorf("no mesh converter for extension %q", extOf(target)))
	}
	if err := mc.ConvertToNative(mesh, target); err != nil {
		return newError("ExtractIsosurface", KindWriteFailure, err)
	}
	return nil
}

// marchBrick walks every unit cell of a brick's voxel buffer (treated as a
// dense domain[0] x domain[1] x domain[2] scalar grid) and feeds each
// cell's 8 corners through marchCell.
func marchBrick(mesh *Mesh, voxels []byte, vt VoxelType, domain [3]int, iso float64, color [4]float32) {
	at := func(x, y, z int) float64 {
		idx := (z*domain[1]+y)*domain[0] + x
		return decodeVoxel(vt, voxels, idx)
	}
	for z := 0; z+1 < domain[2]; z++ {
		for y := 0; y+1 < domain[1]; y++ {
			for x := 0; x+1 < domain[0]; x++ {
				var corners [8]isoCorner
				for i, off := range cubeCornerOffsets {
					corners[i] = isoCorner{
						x: float32(x) + off[0], y: float32(y) + off[1], z: float32(z) + off[2],
						val: at(x+int(off[0]), y+int(off[1]), z+int(off[2])),
					}
				}
				marchCell(mesh, corners, iso, color)
			}
		}
	}
}

// computeFlatNormals derives one flat face normal per triangle from its
// winding and assigns it to all three corner vertices.
func computeFlatNormals(mesh *Mesh) {
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a := &mesh.Vertices[mesh.Indices[i]]
		b := &mesh.Vertices[mesh.Indices[i+1]]
		c := &mesh.Vertices[mesh.Indices[i+2]]
		ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
		vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
		nx := uy*vz - uz*vy
		ny := uz*vx - ux*vz
		nz := ux*vy - uy*vx
		a.NX, a.NY, a.NZ = nx, ny, nz
		b.NX, b.NY, b.NZ = nx, ny, nz
		c.NX, c.NY, c.NZ = nx, ny, nz
	}
}
