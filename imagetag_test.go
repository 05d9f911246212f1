// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

// buildTIFFWithDescription returns a minimal TIFF byte stream with one IFD0
// entry: ImageDescription (ASCII), matching the layout ifd0ASCIITag reads.
func buildTIFFWithDescription(order binary.ByteOrder, description string) []byte {
	value := append([]byte(description), 0) // NUL-terminated, per EXIF ASCII fields
	const ifdOffset = 8
	const entryOff = ifdOffset + 2
	const dataOff = entryOff + 12 + 4 // one entry + next-IFD pointer

	buf := make([]byte, dataOff+len(value))
	if order == binary.LittleEndian {
		buf[0], buf[1] = 'I', 'I'
	} else {
		buf[0], buf[1] = 'M', 'M'
	}
	order.PutUint16(buf[2:], 42)
	order.PutUint32(buf[4:], ifdOffset)

	order.PutUint16(buf[ifdOffset:], 1) // one entry
	order.PutUint16(buf[entryOff:], exifTagImageDescription)
	order.PutUint16(buf[entryOff+2:], exifTypeASCII)
	order.PutUint32(buf[entryOff+4:], uint32(len(value)))
	order.PutUint32(buf[entryOff+8:], uint32(dataOff))
	order.PutUint32(buf[entryOff+12:], 0) // next IFD
	copy(buf[dataOff:], value)
	return buf
}

func TestIFD0ASCIITag(t *testing.T) {
	c := qt.New(t)
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		tiff := buildTIFFWithDescription(order, "a test volume")
		got, ok := ifd0ASCIITag(tiff, exifTagImageDescription)
		c.Assert(ok, qt.IsTrue)
		c.Assert(got, qt.Equals, "a test volume")
	}
}

func TestIFD0ASCIITagMissing(t *testing.T) {
	c := qt.New(t)
	tiff := buildTIFFWithDescription(binary.LittleEndian, "caption")
	_, ok := ifd0ASCIITag(tiff, 0x9999)
	c.Assert(ok, qt.IsFalse)
}

func TestIFD0ASCIITagRejectsBadByteOrderMark(t *testing.T) {
	c := qt.New(t)
	_, ok := ifd0ASCIITag([]byte("not a tiff header...."), exifTagImageDescription)
	c.Assert(ok, qt.IsFalse)
}

func TestReadEXIFImageDescriptionFromJPEG(t *testing.T) {
	c := qt.New(t)
	tiff := buildTIFFWithDescription(binary.BigEndian, "slice stack")

	var jpg bytes.Buffer
	jpg.Write([]byte{0xff, 0xd8}) // SOI

	var app1 bytes.Buffer
	app1.Write(jpegEXIFHeader)
	app1.Write(tiff)
	segLen := app1.Len() + 2
	jpg.Write(jpegAPP1Marker)
	jpg.WriteByte(byte(segLen >> 8))
	jpg.WriteByte(byte(segLen))
	jpg.Write(app1.Bytes())

	jpg.Write([]byte{0xff, 0xda}) // start of scan, decoder stops here

	r := bytes.NewReader(jpg.Bytes())
	got, ok := readEXIFImageDescription(r, JPEG)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, "slice stack")
}

func TestReadEXIFImageDescriptionFromPNG(t *testing.T) {
	c := qt.New(t)
	tiff := buildTIFFWithDescription(binary.LittleEndian, "png caption")

	var png bytes.Buffer
	png.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}) // signature

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(tiff)))
	png.Write(lenBuf[:])
	png.Write(pngEXIFChunkID)
	png.Write(tiff)
	png.Write([]byte{0, 0, 0, 0}) // CRC placeholder, unchecked by locatePNGEXIFBlock

	r := bytes.NewReader(png.Bytes())
	got, ok := readEXIFImageDescription(r, PNG)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, "png caption")
}

func TestReadEXIFImageDescriptionFromBareTIFF(t *testing.T) {
	c := qt.New(t)
	tiff := buildTIFFWithDescription(binary.LittleEndian, "tiff volume")
	r := bytes.NewReader(tiff)
	got, ok := readEXIFImageDescription(r, TIFF)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, "tiff volume")
}

func TestImageFormatString(t *testing.T) {
	c := qt.New(t)
	c.Assert(JPEG.String(), qt.Equals, "JPEG")
	c.Assert(TIFF.String(), qt.Equals, "TIFF")
	c.Assert(PNG.String(), qt.Equals, "PNG")
	c.Assert(ImageFormatAuto.String(), qt.Equals, "ImageFormatAuto")
}
