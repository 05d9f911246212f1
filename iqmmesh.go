// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// iqmMagic and iqmVersion mirror Inter-Quake Model's own header constants
// (16-byte magic, version 2), per the vertex-array/header layout in
// other_examples' IQM loader: a fixed header naming byte offsets into a
// flat data block, followed by typed vertex-array blocks. This converter
// emits a reduced single-mesh variant of that layout (position, normal,
// color arrays only — no joints, no animation), generalized from "game
// mesh with skeleton" to "static isosurface mesh".
var iqmMagic = [16]byte{'I', 'Q', 'M', 0x32, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

const iqmVersion = 2

// iqmHeader lays out the fixed-size header written before the vertex and
// index data blocks.
type iqmHeader struct {
	Magic       [16]byte
	Version     uint32
	FileSize    uint32
	NumVertexes uint32
	NumTriangles uint32
	OfsPosition uint32
	OfsNormal   uint32
	OfsColor    uint32
	OfsTriangles uint32
}

// iqmMeshConverter implements MeshConverter for the reduced IQM-style
// binary layout above, per spec.md §6/§4.5.
type iqmMeshConverter struct{}

func (iqmMeshConverter) SupportedExtensions() []string { return []string{"iqm"} }

func (iqmMeshConverter) CanRead(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [16]byte
	if _, err := f.Read(magic[:]); err != nil {
		return false
	}
	return bytes.Equal(magic[:3], iqmMagic[:3])
}

func (iqmMeshConverter) ConvertToMesh(path string) (Mesh, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Mesh{}, err
	}
	r := bytes.NewReader(buf)

	var hdr iqmHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return Mesh{}, fmt.Errorf("iqmmesh: invalid header: %w", err)
	}
	if !bytes.Equal(hdr.Magic[:3], iqmMagic[:3]) {
		return Mesh{}, fmt.Errorf("iqmmesh: bad magic")
	}
	if hdr.Version != iqmVersion {
		return Mesh{}, fmt.Errorf("iqmmesh: unsupported version %d", hdr.Version)
	}

	positions := make([]float32, hdr.NumVertexes*3)
	if err := readFloat32Block(buf, hdr.OfsPosition, positions); err != nil {
		return Mesh{}, err
	}
	normals := make([]float32, hdr.NumVertexes*3)
	if err := readFloat32Block(buf, hdr.OfsNormal, normals); err != nil {
		return Mesh{}, err
	}
	colors := make([]byte, hdr.NumVertexes*4)
	if err := readBytesBlock(buf, hdr.OfsColor, colors); err != nil {
		return Mesh{}, err
	}
	indices := make([]uint32, hdr.NumTriangles*3)
	if err := readUint32Block(buf, hdr.OfsTriangles, indices); err != nil {
		return Mesh{}, err
	}

	verts := make([]Vertex, hdr.NumVertexes)
	for i := range verts {
		verts[i] = Vertex{
			X: positions[i*3], Y: positions[i*3+1], Z: positions[i*3+2],
			NX: normals[i*3], NY: normals[i*3+1], NZ: normals[i*3+2],
			R: float32(colors[i*4]) / 255, G: float32(colors[i*4+1]) / 255,
			B: float32(colors[i*4+2]) / 255, A: float32(colors[i*4+3]) / 255,
		}
	}

	var mesh Mesh
	for t := 0; t+2 < len(indices); t += 3 {
		mesh.AppendTriangle(verts[indices[t]], verts[indices[t+1]], verts[indices[t+2]])
	}
	return mesh, nil
}

func readFloat32Block(buf []byte, offset uint32, out []float32) error {
	r := bytes.NewReader(buf[offset:])
	return binary.Read(r, binary.LittleEndian, out)
}

func readUint32Block(buf []byte, offset uint32, out []uint32) error {
	r := bytes.NewReader(buf[offset:])
	return binary.Read(r, binary.LittleEndian, out)
}

func readBytesBlock(buf []byte, offset uint32, out []byte) error {
	if int(offset)+len(out) > len(buf) {
		return fmt.Errorf("iqmmesh: block at offset %d truncated", offset)
	}
	copy(out, buf[offset:])
	return nil
}

// ConvertToNative writes mesh as a flat header followed by non-indexed
// position/normal/color arrays (one unique vertex per triangle corner,
// matching how the iso extractor emits meshes) and the triangle index
// block.
func (iqmMeshConverter) ConvertToNative(mesh Mesh, target string) error {
	numVerts := uint32(len(mesh.Vertices))
	numTris := uint32(len(mesh.Indices) / 3)

	var body bytes.Buffer
	headerSize := uint32(binary.Size(iqmHeader{}))

	ofsPosition := headerSize
	positions := make([]float32, numVerts*3)
	normals := make([]float32, numVerts*3)
	colors := make([]byte, numVerts*4)
	for i, v := range mesh.Vertices {
		positions[i*3], positions[i*3+1], positions[i*3+2] = v.X, v.Y, v.Z
		normals[i*3], normals[i*3+1], normals[i*3+2] = v.NX, v.NY, v.NZ
		colors[i*4] = byte(clamp01(v.R) * 255)
		colors[i*4+1] = byte(clamp01(v.G) * 255)
		colors[i*4+2] = byte(clamp01(v.B) * 255)
		colors[i*4+3] = byte(clamp01(v.A) * 255)
	}
	if err := binary.Write(&body, binary.LittleEndian, positions); err != nil {
		return err
	}
	ofsNormal := ofsPosition + uint32(len(positions))*4
	if err := binary.Write(&body, binary.LittleEndian, normals); err != nil {
		return err
	}
	ofsColor := ofsNormal + uint32(len(normals))*4
	if err := binary.Write(&body, binary.LittleEndian, colors); err != nil {
		return err
	}
	ofsTriangles := ofsColor + uint32(len(colors))
	if err := binary.Write(&body, binary.LittleEndian, mesh.Indices); err != nil {
		return err
	}

	hdr := iqmHeader{
		Magic:        iqmMagic,
		Version:      iqmVersion,
		FileSize:     headerSize + uint32(body.Len()),
		NumVertexes:  numVerts,
		NumTriangles: numTris,
		OfsPosition:  ofsPosition,
		OfsNormal:    ofsNormal,
		OfsColor:     ofsColor,
		OfsTriangles: ofsTriangles,
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, hdr); err != nil {
		return err
	}
	_, err = f.Write(body.Bytes())
	return err
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
