// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/okieraised/gonii/pkg/nifti"
)

// NIFTI-1 datatype codes this converter understands (nifti1.h DT_*).
const (
	niftiDtUint8   = 2
	niftiDtInt16   = 4
	niftiDtInt32   = 8
	niftiDtFloat32 = 16
	niftiDtFloat64 = 64
	niftiDtInt8    = 256
	niftiDtUint16  = 512
	niftiDtUint32  = 768
)

// analyzeConverter implements Converter for NIFTI-1 single-file (.nii) and
// Analyze 7.5 (.hdr/.img) volumes, per spec.md §6. Header decode is
// hand-rolled against the NIFTI-1 layout (nifti_1_header, 348 bytes); the
// decoded fields are carried in gonii's nifti.Nii, the same in-memory
// representation its own reader/writer use, so the rest of this file works
// against gonii's domain type rather than a private struct.
type analyzeConverter struct{}

func (analyzeConverter) Description() string           { return "Analyze/NIFTI" }
func (analyzeConverter) SupportedExtensions() []string { return []string{"nii", "hdr", "img"} }
func (analyzeConverter) CanExport() bool               { return true }

func (analyzeConverter) CanRead(path string, first512 []byte) bool {
	if len(first512) < 348 {
		return false
	}
	sizeofHdr := int32(binary.LittleEndian.Uint32(first512[0:4]))
	return sizeofHdr == 348
}

// decodeNiftiHeader reads the 348-byte nifti_1_header (which Analyze 7.5's
// header is binary-compatible with for the fields used here: dim, datatype,
// bitpix, pixdim, scl_slope/inter, descrip) into a nifti.Nii.
func decodeNiftiHeader(hdr []byte) (*nifti.Nii, error) {
	if len(hdr) < 348 {
		return nil, fmt.Errorf("analyze: header too short (%d bytes)", len(hdr))
	}
	order := binary.ByteOrder(binary.LittleEndian)

	dim := make([]int64, 8)
	for i := 0; i < 8; i++ {
		dim[i] = int64(int16(order.Uint16(hdr[40+i*2:])))
	}
	datatype := int32(int16(order.Uint16(hdr[70:])))
	bitpix := int32(int16(order.Uint16(hdr[72:])))

	pixdim := make([]float64, 8)
	for i := 0; i < 8; i++ {
		pixdim[i] = float64(math.Float32frombits(order.Uint32(hdr[76+i*4:])))
	}
	sclSlope := float64(math.Float32frombits(order.Uint32(hdr[112:])))
	sclInter := float64(math.Float32frombits(order.Uint32(hdr[116:])))

	n := &nifti.Nii{
		NDim:      dim[0],
		Nx:        dim[1],
		Ny:        dim[2],
		Nz:        dim[3],
		Nt:        dim[4],
		Dim:       [8]int64{},
		Datatype:  datatype,
		NByPer:    bitpix / 8,
		Dx:        pixdim[1],
		Dy:        pixdim[2],
		Dz:        pixdim[3],
		PixDim:    [8]float64{},
		SclSlope:  sclSlope,
		SclInter:  sclInter,
	}
	for i := 0; i < 8; i++ {
		n.Dim[i] = dim[i]
		n.PixDim[i] = pixdim[i]
	}
	if n.Nz == 0 {
		n.Nz = 1
	}
	copy(n.Descrip[:], hdr[148:228])
	n.NVox = n.Nx * n.Ny * n.Nz
	return n, nil
}

func niftiVoxelType(n *nifti.Nii) (VoxelType, bool) {
	switch n.Datatype {
	case niftiDtUint8:
		return U8, true
	case niftiDtInt8:
		return I8, true
	case niftiDtInt16:
		return I16, true
	case niftiDtUint16:
		return U16, true
	case niftiDtInt32:
		return I32, true
	case niftiDtUint32:
		return U32, true
	case niftiDtFloat32:
		return F32, true
	case niftiDtFloat64:
		return F64, true
	default:
		return 0, false
	}
}

func (analyzeConverter) ConvertToRaw(src, tempDir string, noUI bool) (string, bool, int64, VolumeMeta, string, error) {
	buf, err := os.ReadFile(src)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	n, err := decodeNiftiHeader(buf)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	vt, ok := niftiVoxelType(n)
	if !ok {
		return "", false, 0, VolumeMeta{}, "", fmt.Errorf("analyze: unsupported datatype code %d", n.Datatype)
	}

	ext := extOf(src)
	var headerSkip int64
	var rawPath string
	if ext == "hdr" {
		imgPath := strings.TrimSuffix(src, filepath.Ext(src)) + ".img"
		if _, serr := os.Stat(imgPath); serr != nil {
			return "", false, 0, VolumeMeta{}, "", fmt.Errorf("analyze: companion image file %s not found", imgPath)
		}
		rawPath = imgPath
		headerSkip = 0
	} else {
		rawPath = src
		headerSkip = 352 // standard NIFTI-1 single-file vox_offset
	}

	meta := VolumeMeta{
		ComponentBitWidth: vt.ByteWidth() * 8,
		ComponentCount:    1,
		IsSigned:          vt.IsSigned(),
		IsFloat:           vt.IsFloat(),
		NX:                int(n.Nx),
		NY:                int(n.Ny),
		NZ:                int(n.Nz),
		FX:                n.Dx, FY: n.Dy, FZ: n.Dz,
		ValueSemantic: "generic scalar",
		Title:         filepath.Base(src),
		Source:        "NIFTI",
	}
	if meta.FX == 0 {
		meta.FX = 1
	}
	if meta.FY == 0 {
		meta.FY = 1
	}
	if meta.FZ == 0 {
		meta.FZ = 1
	}
	return rawPath, false, headerSkip, meta, "generic scalar", nil
}

// ConvertToNative writes meta's raw voxels back out as a single-file
// NIFTI-1 volume: a 352-byte header (348-byte nifti_1_header plus the
// 4-byte empty extension flag) followed by the raw voxel stream.
func (analyzeConverter) ConvertToNative(rawPath, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return err
	}
	raw = raw[headerSkip:]

	vt, ok := meta.VoxelType()
	if !ok {
		return fmt.Errorf("analyze: unsupported voxel type for export")
	}

	var hdr bytes.Buffer
	hdr.Write(make([]byte, 352))
	h := hdr.Bytes()
	order := binary.ByteOrder(binary.LittleEndian)
	order.PutUint32(h[0:], 348)

	dim := [8]int16{4, int16(meta.NX), int16(meta.NY), int16(meta.NZ), 1, 1, 1, 1}
	for i, d := range dim {
		order.PutUint16(h[40+i*2:], uint16(d))
	}
	order.PutUint16(h[70:], uint16(int16(niftiDatatypeCode(vt))))
	order.PutUint16(h[72:], uint16(int16(meta.ComponentBitWidth)))

	pixdim := [8]float32{1, float32(meta.FX), float32(meta.FY), float32(meta.FZ), 0, 0, 0, 0}
	for i, p := range pixdim {
		order.PutUint32(h[76+i*4:], math.Float32bits(p))
	}
	h[344] = 'n'
	h[345] = '+'
	h[346] = '1'
	h[347] = 0

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(h); err != nil {
		return err
	}
	_, err = out.Write(raw)
	return err
}

func niftiDatatypeCode(vt VoxelType) int32 {
	switch vt {
	case U8:
		return niftiDtUint8
	case I8:
		return niftiDtInt8
	case I16:
		return niftiDtInt16
	case U16:
		return niftiDtUint16
	case I32:
		return niftiDtInt32
	case U32:
		return niftiDtUint32
	case F32:
		return niftiDtFloat32
	case F64:
		return niftiDtFloat64
	default:
		return 0
	}
}
