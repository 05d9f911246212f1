// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package uvf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// magic tags the simplified on-disk layout this stand-in package writes.
// Not a real UVF magic number; this format is never read by anything but
// this package.
const magic = uint32(0x55564600) // "UVF\x00"

func writeHeader(w *bufio.Writer, meta DomainMeta, maxBrick, overlap int) error {
	fields := []any{
		magic,
		int32(meta.ComponentBitWidth), int32(meta.ComponentCount),
		boolToInt32(meta.IsSigned), boolToInt32(meta.IsFloat),
		int32(meta.NX), int32(meta.NY), int32(meta.NZ),
		meta.FX, meta.FY, meta.FZ,
		int32(maxBrick), int32(overlap),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("uvf: write header: %w", err)
		}
	}
	if err := writeString(w, meta.ValueSemantic); err != nil {
		return err
	}
	if err := writeString(w, meta.Title); err != nil {
		return err
	}
	return writeString(w, meta.Source)
}

func readHeader(r *bufio.Reader) (meta DomainMeta, maxBrick, overlap int, err error) {
	var got uint32
	if err = binary.Read(r, binary.LittleEndian, &got); err != nil {
		return meta, 0, 0, fmt.Errorf("uvf: read magic: %w", err)
	}
	if got != magic {
		return meta, 0, 0, fmt.Errorf("uvf: bad magic %x", got)
	}
	var bitWidth, count, signed, isFloat, nx, ny, nz, mb, ov int32
	for _, f := range []*int32{&bitWidth, &count} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return meta, 0, 0, err
		}
	}
	for _, f := range []*int32{&signed, &isFloat, &nx, &ny, &nz} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return meta, 0, 0, err
		}
	}
	var fx, fy, fz float64
	for _, f := range []*float64{&fx, &fy, &fz} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return meta, 0, 0, err
		}
	}
	for _, f := range []*int32{&mb, &ov} {
		if err = binary.Read(r, binary.LittleEndian, f); err != nil {
			return meta, 0, 0, err
		}
	}
	valueSemantic, err := readString(r)
	if err != nil {
		return meta, 0, 0, err
	}
	title, err := readString(r)
	if err != nil {
		return meta, 0, 0, err
	}
	source, err := readString(r)
	if err != nil {
		return meta, 0, 0, err
	}

	meta = DomainMeta{
		ComponentBitWidth: int(bitWidth),
		ComponentCount:    int(count),
		IsSigned:          signed != 0,
		IsFloat:           isFloat != 0,
		NX:                int(nx), NY: int(ny), NZ: int(nz),
		FX: fx, FY: fy, FZ: fz,
		ValueSemantic: valueSemantic,
		Title:         title,
		Source:        source,
	}
	return meta, int(mb), int(ov), nil
}

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r *bufio.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func writeMinMax(w *bufio.Writer, stats [][]BrickStats) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(stats))); err != nil {
		return err
	}
	for _, lodStats := range stats {
		if err := binary.Write(w, binary.LittleEndian, int32(len(lodStats))); err != nil {
			return err
		}
		for _, s := range lodStats {
			vals := [4]float64{s.Min, s.Max, s.GradMin, s.GradMax}
			if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
				return err
			}
		}
	}
	return nil
}

func readMinMax(r *bufio.Reader) ([][]BrickStats, error) {
	var nLODs int32
	if err := binary.Read(r, binary.LittleEndian, &nLODs); err != nil {
		return nil, err
	}
	out := make([][]BrickStats, nLODs)
	for i := range out {
		var n int32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		lodStats := make([]BrickStats, n)
		for j := range lodStats {
			var vals [4]float64
			if err := binary.Read(r, binary.LittleEndian, &vals); err != nil {
				return nil, err
			}
			lodStats[j] = BrickStats{Min: vals[0], Max: vals[1], GradMin: vals[2], GradMax: vals[3]}
		}
		out[i] = lodStats
	}
	return out, nil
}

func writeHistograms(w *bufio.Writer, h1 []uint64, h2 [][]uint64) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(h1))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h1); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(h2))); err != nil {
		return err
	}
	for _, row := range h2 {
		if err := binary.Write(w, binary.LittleEndian, int32(len(row))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

func readHistograms(r *bufio.Reader) ([]uint64, [][]uint64, error) {
	var n1 int32
	if err := binary.Read(r, binary.LittleEndian, &n1); err != nil {
		return nil, nil, err
	}
	h1 := make([]uint64, n1)
	if n1 > 0 {
		if err := binary.Read(r, binary.LittleEndian, h1); err != nil {
			return nil, nil, err
		}
	}
	var n2 int32
	if err := binary.Read(r, binary.LittleEndian, &n2); err != nil {
		return nil, nil, err
	}
	h2 := make([][]uint64, n2)
	for i := range h2 {
		var m int32
		if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
			return nil, nil, err
		}
		row := make([]uint64, m)
		if m > 0 {
			if err := binary.Read(r, binary.LittleEndian, row); err != nil {
				return nil, nil, err
			}
		}
		h2[i] = row
	}
	return h1, h2, nil
}
