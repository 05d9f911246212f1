// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// ImageFormat identifies a raster container stackDescriptionTag knows how to
// locate an embedded EXIF block inside.
type ImageFormat int

const (
	// ImageFormatAuto means the format is unsupported or undetected.
	ImageFormatAuto ImageFormat = iota
	JPEG
	TIFF
	PNG
)

func (f ImageFormat) String() string {
	switch f {
	case JPEG:
		return "JPEG"
	case TIFF:
		return "TIFF"
	case PNG:
		return "PNG"
	default:
		return "ImageFormatAuto"
	}
}

// exifTagImageDescription is IFD0's ImageDescription tag ID.
const exifTagImageDescription = 0x010e

// exifTypeASCII is the EXIF/TIFF field type for a NUL-terminated string.
const exifTypeASCII = 2

var (
	jpegAPP1Marker = []byte{0xff, 0xe1}
	jpegEXIFHeader = []byte("Exif\x00\x00")
	pngEXIFChunkID = []byte("eXIf")
)

// readEXIFImageDescription locates format's embedded TIFF/EXIF block inside
// r (JPEG's APP1 segment, PNG's eXIf chunk, or the file itself for a bare
// TIFF) and returns IFD0's ImageDescription tag. Grounded on the byte-order
// detection and IFD0 tag walk of
// other_examples/052ea1c3_garyhouston-tiff66__tiff66.go.go's GetHeader/GetIFD
// shape, reduced to the single ASCII tag imagestack.go's stackDescriptionTag
// needs: no sub-IFDs, no IPTC/XMP, no non-ASCII field types.
func readEXIFImageDescription(r io.ReadSeeker, format ImageFormat) (string, bool) {
	tiff, ok := locateEXIFBlock(r, format)
	if !ok {
		return "", false
	}
	return ifd0ASCIITag(tiff, exifTagImageDescription)
}

func locateEXIFBlock(r io.ReadSeeker, format ImageFormat) ([]byte, bool) {
	switch format {
	case JPEG:
		return locateJPEGEXIFBlock(r)
	case PNG:
		return locatePNGEXIFBlock(r)
	case TIFF:
		buf, err := io.ReadAll(r)
		if err != nil {
			return nil, false
		}
		return buf, true
	default:
		return nil, false
	}
}

// locateJPEGEXIFBlock walks JPEG markers looking for the APP1 segment whose
// payload starts with the "Exif\0\0" header, and returns the TIFF structure
// that follows it.
func locateJPEGEXIFBlock(r io.ReadSeeker) ([]byte, bool) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil || hdr[0] != 0xff || hdr[1] != 0xd8 {
		return nil, false
	}
	for {
		var marker [2]byte
		if _, err := io.ReadFull(r, marker[:]); err != nil {
			return nil, false
		}
		if marker[0] != 0xff {
			return nil, false
		}
		if marker[1] == 0xd9 || marker[1] == 0xda { // EOI or start of scan
			return nil, false
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, false
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if segLen < 0 {
			return nil, false
		}
		payload := make([]byte, segLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, false
		}

		if bytes.Equal(marker[:], jpegAPP1Marker) && bytes.HasPrefix(payload, jpegEXIFHeader) {
			return payload[len(jpegEXIFHeader):], true
		}
	}
}

// locatePNGEXIFBlock scans PNG chunks for "eXIf", whose data is a bare TIFF
// structure (no "Exif\0\0" header, unlike JPEG's APP1).
func locatePNGEXIFBlock(r io.ReadSeeker) ([]byte, bool) {
	var sig [8]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, false
	}
	for {
		var lenBuf, idBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, false
		}
		length := binary.BigEndian.Uint32(lenBuf[:])
		if _, err := io.ReadFull(r, idBuf[:]); err != nil {
			return nil, false
		}
		if bytes.Equal(idBuf[:], pngEXIFChunkID) {
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, false
			}
			return data, true
		}
		if idBuf[0] == 'I' && idBuf[1] == 'E' && idBuf[2] == 'N' && idBuf[3] == 'D' {
			return nil, false
		}
		if _, err := r.Seek(int64(length)+4, io.SeekCurrent); err != nil { // data + CRC
			return nil, false
		}
	}
}

// ifd0ASCIITag reads tiff's byte-order mark and IFD0 offset, then scans
// IFD0's entries for tag with an ASCII type, returning its trimmed value.
func ifd0ASCIITag(tiff []byte, tag uint16) (string, bool) {
	if len(tiff) < 8 {
		return "", false
	}
	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return "", false
	}

	ifdOffset := order.Uint32(tiff[4:8])
	if int(ifdOffset)+2 > len(tiff) {
		return "", false
	}
	numEntries := int(order.Uint16(tiff[ifdOffset:]))
	entriesStart := int(ifdOffset) + 2

	for i := 0; i < numEntries; i++ {
		off := entriesStart + i*12
		if off+12 > len(tiff) {
			return "", false
		}
		entryTag := order.Uint16(tiff[off:])
		entryType := order.Uint16(tiff[off+2:])
		count := order.Uint32(tiff[off+4:])
		if entryTag != tag || entryType != exifTypeASCII {
			continue
		}

		var valBytes []byte
		if count <= 4 {
			valBytes = tiff[off+8 : off+8+int(count)]
		} else {
			valOff := order.Uint32(tiff[off+8:])
			end := int(valOff) + int(count)
			if end > len(tiff) {
				return "", false
			}
			valBytes = tiff[valOff:end]
		}
		s := strings.TrimRight(string(valBytes), "\x00")
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		return s, true
	}
	return "", false
}
