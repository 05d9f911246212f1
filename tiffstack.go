// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/garyhouston/tiff66"
	imgtiff "golang.org/x/image/tiff"
)

// tiffConverter implements Converter for multi-page TIFF volumes, per
// spec.md §6. A single TIFF file can carry a whole Z stack as successive
// IFDs; tiffConverter walks the IFD chain with tiff66 to recover the page
// count and per-page geometry before handing pixel decode to
// golang.org/x/image/tiff, which only exposes the first page.
type tiffConverter struct{}

func (tiffConverter) Description() string           { return "TIFF Volume" }
func (tiffConverter) SupportedExtensions() []string { return []string{"tif", "tiff"} }
func (tiffConverter) CanExport() bool               { return false }

func (tiffConverter) CanRead(path string, first512 []byte) bool {
	if len(first512) < 8 {
		return false
	}
	valid, _, _ := tiff66.GetHeader(first512)
	return valid
}

// tiffPage is one IFD's geometry, read through tiff66's tag accessors.
type tiffPage struct {
	width, height int
	bitsPerSample int
	samplesPerPix int
	xres, yres    float64
}

// readTIFFPages walks buf's IFD chain (tiff66.GetIFD, following each IFD's
// "next" pointer) and returns one tiffPage per top-level IFD, in file
// order. Sub-IFDs (Exif, GPS, thumbnails) are not volume slices and are
// ignored; readTIFFPages only follows the main chain.
func readTIFFPages(buf []byte) ([]tiffPage, binary.ByteOrder, error) {
	valid, order, pos := tiff66.GetHeader(buf)
	if !valid {
		return nil, nil, fmt.Errorf("tiffstack: not a TIFF file")
	}

	var pages []tiffPage
	for pos != 0 {
		ifd, next, err := tiff66.GetIFD(buf, order, pos, tiff66.TIFFImageData)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, pageFromIFD(ifd, order))
		pos = next
	}
	return pages, order, nil
}

func pageFromIFD(ifd tiff66.IFD_T, order binary.ByteOrder) tiffPage {
	p := tiffPage{bitsPerSample: 8, samplesPerPix: 1, xres: 1, yres: 1}
	for _, f := range ifd.Fields {
		switch f.Tag {
		case tiff66.ImageWidth:
			p.width = int(f.AnyInteger(0, order))
		case tiff66.ImageLength:
			p.height = int(f.AnyInteger(0, order))
		case tiff66.BitsPerSample:
			p.bitsPerSample = int(f.AnyInteger(0, order))
		case tiff66.SamplesPerPixel:
			p.samplesPerPix = int(f.AnyInteger(0, order))
		case tiff66.XResolution:
			n, d := f.AnyRational(0, order)
			if n != 0 {
				p.xres = float64(d) / float64(n)
			}
		case tiff66.YResolution:
			n, d := f.AnyRational(0, order)
			if n != 0 {
				p.yres = float64(d) / float64(n)
			}
		}
	}
	return p
}

func (tiffConverter) ConvertToRaw(src, tempDir string, noUI bool) (string, bool, int64, VolumeMeta, string, error) {
	buf, err := os.ReadFile(src)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}

	pages, _, err := readTIFFPages(buf)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	if len(pages) == 0 {
		return "", false, 0, VolumeMeta{}, "", fmt.Errorf("tiffstack: %s has no IFDs", src)
	}
	first := pages[0]

	var out bytes.Buffer
	for i := range pages {
		img, ierr := decodeTIFFPage(buf, i)
		if ierr != nil {
			return "", false, 0, VolumeMeta{}, "", ierr
		}
		appendImagePixels(&out, img, first.samplesPerPix)
	}

	rawPath, err := uniqueTempPath(tempDir, "tiff")
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	if err := os.WriteFile(rawPath, out.Bytes(), 0o644); err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}

	meta := VolumeMeta{
		ComponentBitWidth: first.bitsPerSample,
		ComponentCount:    first.samplesPerPix,
		IsSigned:          false,
		IsFloat:           false,
		NX:                first.width,
		NY:                first.height,
		NZ:                len(pages),
		FX:                first.xres, FY: first.yres, FZ: 1,
		ValueSemantic: "generic scalar",
		Title:         filepath.Base(src),
		Source:        "TIFF",
	}
	return rawPath, true, 0, meta, "generic scalar", nil
}

// decodeTIFFPage decodes page index of a multi-page TIFF. golang.org/x/image/tiff
// has no multi-page API — tiff.Decode always reads the file's first IFD —
// so decodeTIFFPage walks the chain with tiff66 to locate the target IFD,
// repacks it as a standalone single-page TIFF sharing the original strip/
// tile data, and hands that synthetic buffer to tiff.Decode.
func decodeTIFFPage(buf []byte, index int) (image.Image, error) {
	valid, order, pos := tiff66.GetHeader(buf)
	if !valid {
		return nil, fmt.Errorf("tiffstack: not a TIFF file")
	}
	for i := 0; pos != 0; i++ {
		ifd, next, err := tiff66.GetIFD(buf, order, pos, tiff66.TIFFImageData)
		if err != nil {
			return nil, err
		}
		if i == index {
			single, serr := singleIFDTIFF(order, ifd)
			if serr != nil {
				return nil, serr
			}
			return imgtiff.Decode(bytes.NewReader(single))
		}
		pos = next
	}
	return nil, fmt.Errorf("tiffstack: page %d not found", index)
}

// singleIFDTIFF rewrites ifd as a standalone one-page TIFF (no Next, no
// sub-IFDs) so imgtiff.Decode, which always reads the first IFD, can be
// pointed at an arbitrary page.
func singleIFDTIFF(order binary.ByteOrder, ifd tiff66.IFD_T) ([]byte, error) {
	size := 8 + ifd.TotalSize(order)
	out := make([]byte, size)
	tiff66.PutHeader(out, order, 8)
	if _, err := ifd.Put(out, order, 8, nil, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func appendImagePixels(out *bytes.Buffer, img image.Image, components int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if components == 1 {
				out.WriteByte(byte(r >> 8))
			} else {
				out.WriteByte(byte(r >> 8))
				out.WriteByte(byte(g >> 8))
				out.WriteByte(byte(bl >> 8))
			}
		}
	}
}

func (tiffConverter) ConvertToNative(rawPath, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error {
	return fmt.Errorf("tiffstack: export is not supported")
}
