// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codeninja55/go-radx/dicom"
	"github.com/codeninja55/go-radx/dicom/tag"
	"github.com/codeninja55/go-radx/dicom/value"
	"github.com/cocosip/go-dicom-codec/jpeg/baseline"
	"golang.org/x/text/encoding/charmap"
)

var (
	tagSeriesInstanceUID    = tag.New(0x0020, 0x000E)
	tagModality             = tag.New(0x0008, 0x0060)
	tagSeriesDescription    = tag.New(0x0008, 0x103E)
	tagPixelSpacing         = tag.New(0x0028, 0x0030)
	tagSliceThickness       = tag.New(0x0018, 0x0050)
	tagInstanceNumber       = tag.New(0x0020, 0x0013)
	tagSpecificCharacterSet = tag.New(0x0008, 0x0005)
)

// jpegBaselineTransferSyntaxes are the two baseline JPEG transfer syntax
// UIDs decodeBaselineJPEG/isValidBaselineJPEG handle; any other compressed
// syntax is out of scope (spec.md §1's format list is a contract surface,
// not a guarantee every vendor codec is implemented).
var jpegBaselineTransferSyntaxes = map[string]bool{
	"1.2.840.10008.1.2.4.50": true,
	"1.2.840.10008.1.2.4.51": true,
}

type dicomSlice struct {
	path           string
	instanceNumber int
	rows, columns  int
	bitsAllocated  int
	bitsStored     int
	signed         bool
	samplesPerPixel int
	pixelData      []byte
	jpegEncoded    bool
	pixelSpacingX  float64
	pixelSpacingY  float64
	sliceThickness float64
	modality       string
	description    string
	seriesUID      string
}

func readDicomSlice(path string) (*dicomSlice, error) {
	ds, err := dicom.ParseFile(path)
	if err != nil {
		return nil, err
	}

	s := &dicomSlice{path: path, pixelSpacingX: 1, pixelSpacingY: 1, sliceThickness: 1}
	s.seriesUID = dicomString(ds, tagSeriesInstanceUID)
	s.modality = dicomString(ds, tagModality)
	s.description = decodeDicomText(ds, dicomString(ds, tagSeriesDescription), dicomString(ds, tagSpecificCharacterSet))
	s.instanceNumber = dicomInt(ds, tagInstanceNumber, 0)

	if ps := dicomFloats(ds, tagPixelSpacing); len(ps) == 2 {
		s.pixelSpacingX, s.pixelSpacingY = ps[0], ps[1]
	}
	if st := dicomFloats(ds, tagSliceThickness); len(st) == 1 {
		s.sliceThickness = st[0]
	}

	rows := dicomInt(ds, tag.Rows, 0)
	cols := dicomInt(ds, tag.Columns, 0)
	bitsAllocated := dicomInt(ds, tag.BitsAllocated, 16)
	bitsStored := dicomInt(ds, tag.BitsStored, bitsAllocated)
	pixelRepr := dicomInt(ds, tag.PixelRepresentation, 0)
	samples := dicomInt(ds, tag.SamplesPerPixel, 1)
	ts := dicomString(ds, tag.TransferSyntaxUID)

	elem, err := ds.Get(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("%s: no pixel data: %w", path, err)
	}
	bv, ok := elem.Value().(*value.BytesValue)
	if !ok {
		return nil, fmt.Errorf("%s: pixel data has unexpected value type %T", path, elem.Value())
	}

	s.rows, s.columns = rows, cols
	s.bitsAllocated, s.bitsStored = bitsAllocated, bitsStored
	s.signed = pixelRepr != 0
	s.samplesPerPixel = samples
	s.pixelData = bv.Bytes()
	s.jpegEncoded = jpegBaselineTransferSyntaxes[ts]
	return s, nil
}

func dicomString(ds *dicom.DataSet, t tag.Tag) string {
	elem, err := ds.Get(t)
	if err != nil {
		return ""
	}
	if sv, ok := elem.Value().(*value.StringValue); ok {
		if strs := sv.Strings(); len(strs) > 0 {
			return strings.TrimSpace(strs[0])
		}
	}
	return strings.TrimSpace(elem.Value().String())
}

func dicomInt(ds *dicom.DataSet, t tag.Tag, def int) int {
	elem, err := ds.Get(t)
	if err != nil {
		return def
	}
	if iv, ok := elem.Value().(*value.IntValue); ok {
		if ints := iv.Ints(); len(ints) > 0 {
			return int(ints[0])
		}
	}
	return def
}

func dicomFloats(ds *dicom.DataSet, t tag.Tag) []float64 {
	elem, err := ds.Get(t)
	if err != nil {
		return nil
	}
	sv, ok := elem.Value().(*value.StringValue)
	if !ok {
		return nil
	}
	var out []float64
	for _, part := range sv.Strings() {
		for _, f := range strings.Split(part, "\\") {
			var v float64
			if _, err := fmt.Sscanf(strings.TrimSpace(f), "%g", &v); err == nil {
				out = append(out, v)
			}
		}
	}
	return out
}

// decodeDicomText re-decodes s through the DICOM SpecificCharacterSet when
// it names a charmap this repo understands (ISO_IR 100 family), per
// spec.md's original-source note that non-ASCII series descriptions were
// previously mangled.
func decodeDicomText(ds *dicom.DataSet, s, charset string) string {
	_ = ds
	var cm *charmap.Charmap
	switch strings.TrimSpace(charset) {
	case "ISO_IR 100":
		cm = charmap.ISO8859_1
	case "ISO_IR 126":
		cm = charmap.ISO8859_7
	case "ISO_IR 144":
		cm = charmap.ISO8859_5
	default:
		return s
	}
	decoded, err := cm.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return decoded
}

// scanDICOMStacks walks root recursively, parses every file that looks like
// a DICOM instance, groups slices by SeriesInstanceUID in InstanceNumber
// order, and returns one StackDescriptor per series plus the set of file
// paths it consumed so scanImageStacks does not re-examine them.
func scanDICOMStacks(root string) ([]*StackDescriptor, map[string]bool, error) {
	consumed := map[string]bool{}
	bySeries := map[string][]*dicomSlice{}
	order := []string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		slice, serr := readDicomSlice(path)
		if serr != nil {
			return nil // not a DICOM file, or unreadable; leave for the image scanner
		}
		consumed[path] = true
		if _, ok := bySeries[slice.seriesUID]; !ok {
			order = append(order, slice.seriesUID)
		}
		bySeries[slice.seriesUID] = append(bySeries[slice.seriesUID], slice)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var out []*StackDescriptor
	for _, uid := range order {
		slices := bySeries[uid]
		sort.Slice(slices, func(i, j int) bool { return slices[i].instanceNumber < slices[j].instanceNumber })

		first := slices[0]
		desc := &StackDescriptor{
			FileType:       "DICOM",
			Width:          first.columns,
			Height:         first.rows,
			SliceCount:     len(slices),
			BitsAllocated:  first.bitsAllocated,
			BitsStored:     first.bitsStored,
			ComponentCount: first.samplesPerPixel,
			BigEndian:      false, // File Meta mandates explicit byte order per element; go-radx normalizes to host already
			JPEGEncoded:    first.jpegEncoded,
			AspectX:        first.pixelSpacingX,
			AspectY:        first.pixelSpacingY,
			AspectZ:        first.sliceThickness,
			Description:    first.description,
			Modality:       first.modality,
		}
		for _, s := range slices {
			payload := s.pixelData
			desc.Elements = append(desc.Elements, StackElement{
				Path:        s.path,
				readPayload: func() ([]byte, error) { return payload, nil },
			})
		}
		out = append(out, desc)
	}
	return out, consumed, nil
}

// isValidBaselineJPEG reports whether payload starts with a JPEG SOI marker
// and fully decodes under the baseline decoder, per spec.md §4.2.1's
// "a stack containing even one invalid JPEG element is dropped entirely".
func isValidBaselineJPEG(payload []byte) bool {
	if len(payload) < 2 || payload[0] != 0xFF || payload[1] != 0xD8 {
		return false
	}
	_, _, _, _, err := baseline.Decode(payload)
	return err == nil
}

// decodeBaselineJPEG decodes one baseline-JPEG-encoded DICOM frame,
// returning its pixel bytes and the effective bits-allocated (always 8 for
// baseline JPEG, per the codec's precision restriction).
func decodeBaselineJPEG(payload []byte) ([]byte, int, error) {
	pixels, _, _, _, err := baseline.Decode(payload)
	if err != nil {
		return nil, 0, err
	}
	return pixels, 8, nil
}

// dicomConverter implements Converter for single-file DICOM instances
// (e.g. a lone slice exported outside a series), per spec.md §6. Whole
// multi-slice series go through ScanDirectory/ConvertStack instead.
type dicomConverter struct{}

func (dicomConverter) Description() string        { return "DICOM" }
func (dicomConverter) SupportedExtensions() []string { return []string{"dcm", "dicom", "ima"} }
func (dicomConverter) CanExport() bool             { return false }

func (dicomConverter) CanRead(path string, first512 []byte) bool {
	return len(first512) >= 132 && bytes.Equal(first512[128:132], []byte("DICM"))
}

func (dicomConverter) ConvertToRaw(src, tempDir string, noUI bool) (string, bool, int64, VolumeMeta, string, error) {
	slice, err := readDicomSlice(src)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	payload := slice.pixelData
	bits := slice.bitsAllocated
	if slice.jpegEncoded {
		decoded, decBits, derr := decodeBaselineJPEG(payload)
		if derr != nil {
			return "", false, 0, VolumeMeta{}, "", derr
		}
		payload, bits = decoded, decBits
	}
	if slice.samplesPerPixel == 3 {
		payload = pad3to4(payload)
	}

	rawPath, err := uniqueTempPath(tempDir, "dicom")
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	if err := os.WriteFile(rawPath, payload, 0o644); err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}

	components := slice.samplesPerPixel
	if components == 3 {
		components = 4
	}
	meta := VolumeMeta{
		ComponentBitWidth: bits,
		ComponentCount:    components,
		IsSigned:          slice.signed || bits >= 32,
		IsFloat:           false,
		NX:                slice.columns,
		NY:                slice.rows,
		NZ:                1,
		FX:                slice.pixelSpacingX,
		FY:                slice.pixelSpacingY,
		FZ:                slice.sliceThickness,
		ValueSemantic:     slice.modality,
		Title:             slice.description,
		Source:            "DICOM",
	}
	return rawPath, true, 0, meta, slice.modality, nil
}

func (dicomConverter) ConvertToNative(rawPath, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error {
	return fmt.Errorf("dicom: export is not supported")
}
