// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestComponentsForColorModel(t *testing.T) {
	c := qt.New(t)
	c.Assert(componentsForColorModel(image.GrayModel), qt.Equals, 1)
	c.Assert(componentsForColorModel(image.Gray16Model), qt.Equals, 1)
	c.Assert(componentsForColorModel(image.RGBAModel), qt.Equals, 3)
	c.Assert(componentsForColorModel(image.NRGBAModel), qt.Equals, 3)
}

func TestImageFormatFor(t *testing.T) {
	c := qt.New(t)
	c.Assert(imageFormatFor("a.jpg"), qt.Equals, JPEG)
	c.Assert(imageFormatFor("a.JPEG"), qt.Equals, JPEG)
	c.Assert(imageFormatFor("a.tif"), qt.Equals, TIFF)
	c.Assert(imageFormatFor("a.png"), qt.Equals, PNG)
	c.Assert(imageFormatFor("a.bmp"), qt.Equals, ImageFormatAuto)
}

func writeTestPNG(t *testing.T, path string, w, h int, gray bool) {
	t.Helper()
	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.SetGray(x, y, color.Gray{Y: uint8(x + y*w)})
			}
		}
		img = g
	} else {
		g := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 1, A: 255})
			}
		}
		img = g
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImageStackConverterCanReadAndConvertToRaw(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	path := filepath.Join(dir, "a.png")
	writeTestPNG(t, path, 4, 3, true)

	first512, err := readPrefix(path, sniffLen)
	c.Assert(err, qt.IsNil)

	conv := imageStackConverter{}
	c.Assert(conv.CanRead(path, first512), qt.IsTrue)

	rawPath, del, headerSkip, meta, _, err := conv.ConvertToRaw(path, dir, false)
	c.Assert(err, qt.IsNil)
	c.Assert(del, qt.IsTrue)
	c.Assert(headerSkip, qt.Equals, int64(0))
	c.Assert(meta.NX, qt.Equals, 4)
	c.Assert(meta.NY, qt.Equals, 3)
	c.Assert(meta.ComponentCount, qt.Equals, 1)

	raw, err := os.ReadFile(rawPath)
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.HasLen, 12)
}

func TestScanImageStacksGroupsByGeometry(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	writeTestPNG(t, filepath.Join(dir, "a.png"), 4, 3, true)
	writeTestPNG(t, filepath.Join(dir, "b.png"), 4, 3, true)
	writeTestPNG(t, filepath.Join(dir, "c.png"), 2, 2, false)

	stacks, err := scanImageStacks(dir, map[string]bool{})
	c.Assert(err, qt.IsNil)
	c.Assert(stacks, qt.HasLen, 2)

	var grayStack *StackDescriptor
	for _, s := range stacks {
		if s.ComponentCount == 1 {
			grayStack = s
		}
	}
	c.Assert(grayStack, qt.Not(qt.IsNil))
	c.Assert(grayStack.SliceCount, qt.Equals, 2)
	c.Assert(grayStack.Width, qt.Equals, 4)
	c.Assert(grayStack.Height, qt.Equals, 3)
}
