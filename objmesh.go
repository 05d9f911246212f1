// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// objMeshConverter implements MeshConverter for Wavefront OBJ, per
// spec.md §6/§4.5. OBJ is a trivial line-oriented text format (v/vn/f
// records) with no ecosystem parsing library in the pack worth pulling in
// for it; this is the standard-library-only mesh format, justified in
// DESIGN.md. Vertex color is carried as a non-standard 4th/5th/6th/7th "v"
// extension (x y z r g b a) some OBJ consumers (MeshLab, Tuvok itself)
// accept, rather than dropped.
type objMeshConverter struct{}

func (objMeshConverter) SupportedExtensions() []string { return []string{"obj"} }

func (objMeshConverter) CanRead(path string) bool {
	return strings.EqualFold(extOf(path), "obj")
}

func (objMeshConverter) ConvertToMesh(path string) (Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return Mesh{}, err
	}
	defer f.Close()

	var mesh Mesh
	var positions [][3]float32
	var normals [][3]float32
	var colors [][4]float32

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			p, c, perr := parseOBJVertex(fields[1:])
			if perr != nil {
				return Mesh{}, perr
			}
			positions = append(positions, p)
			colors = append(colors, c)
		case "vn":
			n, nerr := parseOBJVec3(fields[1:])
			if nerr != nil {
				return Mesh{}, nerr
			}
			normals = append(normals, n)
		case "f":
			tri, ferr := parseOBJFace(fields[1:], positions, normals, colors)
			if ferr != nil {
				return Mesh{}, ferr
			}
			mesh.AppendTriangle(tri[0], tri[1], tri[2])
		}
	}
	if err := sc.Err(); err != nil {
		return Mesh{}, err
	}
	return mesh, nil
}

func parseOBJVec3(fields []string) ([3]float32, error) {
	var v [3]float32
	if len(fields) < 3 {
		return v, fmt.Errorf("objmesh: expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseOBJVertex(fields []string) ([3]float32, [4]float32, error) {
	p, err := parseOBJVec3(fields)
	if err != nil {
		return p, [4]float32{}, err
	}
	c := [4]float32{1, 1, 1, 1}
	if len(fields) >= 7 {
		for i := 0; i < 4; i++ {
			f, ferr := strconv.ParseFloat(fields[3+i], 32)
			if ferr != nil {
				return p, c, ferr
			}
			c[i] = float32(f)
		}
	}
	return p, c, nil
}

func parseOBJFace(fields []string, positions, normals [][3]float32, colors [][4]float32) ([3]Vertex, error) {
	var out [3]Vertex
	if len(fields) != 3 {
		return out, fmt.Errorf("objmesh: only triangulated faces are supported, got %d vertices", len(fields))
	}
	for i, tok := range fields {
		parts := strings.Split(tok, "/")
		pi, err := objIndex(parts[0], len(positions))
		if err != nil {
			return out, err
		}
		v := Vertex{X: positions[pi][0], Y: positions[pi][1], Z: positions[pi][2]}
		if pi < len(colors) {
			c := colors[pi]
			v.R, v.G, v.B, v.A = c[0], c[1], c[2], c[3]
		}
		if len(parts) >= 3 && parts[2] != "" {
			ni, nerr := objIndex(parts[2], len(normals))
			if nerr != nil {
				return out, nerr
			}
			n := normals[ni]
			v.NX, v.NY, v.NZ = n[0], n[1], n[2]
		}
		out[i] = v
	}
	return out, nil
}

func objIndex(tok string, count int) (int, error) {
	i, err := strconv.Atoi(tok)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return count + i, nil
	}
	return i - 1, nil
}

func (objMeshConverter) ConvertToNative(mesh Mesh, target string) error {
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for _, v := range mesh.Vertices {
		if _, err := fmt.Fprintf(w, "v %g %g %g %g %g %g %g\n", v.X, v.Y, v.Z, v.R, v.G, v.B, v.A); err != nil {
			return err
		}
	}
	for _, v := range mesh.Vertices {
		if _, err := fmt.Fprintf(w, "vn %g %g %g\n", v.NX, v.NY, v.NZ); err != nil {
			return err
		}
	}
	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		a, b, c := mesh.Indices[i]+1, mesh.Indices[i+1]+1, mesh.Indices[i+2]+1
		if _, err := fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c); err != nil {
			return err
		}
	}
	return nil
}
