// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// imageStackKey groups generic image files that share a geometry into one
// logical volume, per spec.md §4.2.1 ("a run of same-geometry generic
// images").
type imageStackKey struct {
	width, height, components int
}

// scanImageStacks walks root, decodes the header of every file not already
// consumed by scanDICOMStacks, and groups same-geometry images (within one
// directory, in filename order) into StackDescriptors.
func scanImageStacks(root string, consumed map[string]bool) ([]*StackDescriptor, error) {
	type found struct {
		path string
		cfg  image.Config
	}
	byDir := map[string][]found{}
	var dirOrder []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || consumed[path] {
			return err
		}
		f, oerr := os.Open(path)
		if oerr != nil {
			return nil
		}
		defer f.Close()
		cfg, _, derr := image.DecodeConfig(f)
		if derr != nil {
			return nil // not a decodable image; ignore
		}
		dir := filepath.Dir(path)
		if _, ok := byDir[dir]; !ok {
			dirOrder = append(dirOrder, dir)
		}
		byDir[dir] = append(byDir[dir], found{path: path, cfg: cfg})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []*StackDescriptor
	for _, dir := range dirOrder {
		files := byDir[dir]
		sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })

		byKey := map[imageStackKey]*StackDescriptor{}
		var keyOrder []imageStackKey
		for _, fr := range files {
			comps := componentsForColorModel(fr.cfg.ColorModel)
			key := imageStackKey{fr.cfg.Width, fr.cfg.Height, comps}
			desc, ok := byKey[key]
			if !ok {
				desc = &StackDescriptor{
					FileType:       "IMAGE",
					Width:          fr.cfg.Width,
					Height:         fr.cfg.Height,
					BitsAllocated:  8,
					BitsStored:     8,
					ComponentCount: comps,
					AspectX:        1, AspectY: 1, AspectZ: 1,
					Description: filepath.Base(dir),
					Modality:    "generic scalar",
				}
				byKey[key] = desc
				keyOrder = append(keyOrder, key)
			}
			path := fr.path
			desc.Elements = append(desc.Elements, StackElement{
				Path:        path,
				readPayload: func() ([]byte, error) { return readImagePixels(path, desc.ComponentCount) },
			})
		}
		if ax, ay, az, ok := imageResolutionAspect(files[0].path); ok {
			for _, key := range keyOrder {
				byKey[key].AspectX, byKey[key].AspectY, byKey[key].AspectZ = ax, ay, az
			}
		}
		if desc, ok := stackDescriptionTag(files[0].path); ok {
			for _, key := range keyOrder {
				byKey[key].Description = desc
			}
		}
		for _, key := range keyOrder {
			d := byKey[key]
			d.SliceCount = len(d.Elements)
			out = append(out, d)
		}
	}
	return out, nil
}

func componentsForColorModel(m image.ColorModel) int {
	switch m {
	case image.GrayModel, image.Gray16Model:
		return 1
	default:
		return 3
	}
}

// imageResolutionAspect reads XResolution/YResolution from path's EXIF
// block (if any) and derives a z-aspect of 1, a supplemental feature this
// repo's distillation dropped: the original computed stack aspect from
// TIFF/EXIF resolution tags rather than always assuming isotropic spacing.
func imageResolutionAspect(path string) (x, y, z float64, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, false
	}
	defer f.Close()
	x0, err := exif.Decode(f)
	if err != nil {
		return 0, 0, 0, false
	}
	xr, xerr := x0.Get(exif.XResolution)
	yr, yerr := x0.Get(exif.YResolution)
	if xerr != nil || yerr != nil {
		return 0, 0, 0, false
	}
	xn, xd, e1 := xr.Rat2(0)
	yn, yd, e2 := yr.Rat2(0)
	if e1 != nil || e2 != nil || xn == 0 || yn == 0 {
		return 0, 0, 0, false
	}
	return float64(xd) / float64(xn), float64(yd) / float64(yn), 1, true
}

// imageFormatFor maps a file extension to the ImageFormat
// readEXIFImageDescription needs, or ImageFormatAuto if unsupported.
func imageFormatFor(path string) ImageFormat {
	switch strings.ToLower(extOf(path)) {
	case "jpg", "jpeg":
		return JPEG
	case "tif", "tiff":
		return TIFF
	case "png":
		return PNG
	default:
		return ImageFormatAuto
	}
}

// stackDescriptionTag reads path's ImageDescription EXIF tag (falling back
// to nothing), so generic image stacks pick up a real human-entered caption
// instead of always falling back to the containing directory's name.
func stackDescriptionTag(path string) (string, bool) {
	format := imageFormatFor(path)
	if format == ImageFormatAuto {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	return readEXIFImageDescription(f, format)
}

// readImagePixels decodes path and returns its pixels as tightly packed
// 8-bit samples, gray or RGB, matching components.
func readImagePixels(path string, components int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*components)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if components == 1 {
				out = append(out, byte(r>>8))
			} else {
				out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
			}
		}
	}
	return out, nil
}

// imageStackConverter implements Converter for single generic raster image
// files (BMP/TIFF/PNG/JPEG), per spec.md §6. Multi-slice runs go through
// ScanDirectory/ConvertStack instead.
type imageStackConverter struct{}

func (imageStackConverter) Description() string { return "Generic Image" }
func (imageStackConverter) SupportedExtensions() []string {
	return []string{"bmp", "tif", "tiff", "png", "jpg", "jpeg"}
}
func (imageStackConverter) CanExport() bool { return true }

func (imageStackConverter) CanRead(path string, first512 []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(first512))
	return err == nil
}

func (imageStackConverter) ConvertToRaw(src, tempDir string, noUI bool) (string, bool, int64, VolumeMeta, string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	comps := componentsForColorModel(cfg.ColorModel)
	pixels, err := readImagePixels(src, comps)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	rawPath, err := uniqueTempPath(tempDir, "image")
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	if err := os.WriteFile(rawPath, pixels, 0o644); err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	meta := VolumeMeta{
		ComponentBitWidth: 8,
		ComponentCount:    comps,
		IsSigned:          false,
		IsFloat:           false,
		NX:                cfg.Width,
		NY:                cfg.Height,
		NZ:                1,
		FX:                1, FY: 1, FZ: 1,
		ValueSemantic: "generic scalar",
		Title:         filepath.Base(src),
		Source:        "IMAGE",
	}
	return rawPath, true, 0, meta, "generic scalar", nil
}

func (imageStackConverter) ConvertToNative(rawPath string, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return err
	}
	raw = raw[headerSkip:]

	img := image.NewRGBA(image.Rect(0, 0, meta.NX, meta.NY))
	stride := meta.ComponentCount
	for y := 0; y < meta.NY; y++ {
		for x := 0; x < meta.NX; x++ {
			off := (y*meta.NX + x) * stride
			if off+stride > len(raw) {
				break
			}
			var r, g, b byte
			if stride == 1 {
				r, g, b = raw[off], raw[off], raw[off]
			} else {
				r, g, b = raw[off], raw[off+1], raw[off+2]
			}
			img.Set(x, y, imageRGBA{r, g, b, 255})
		}
	}

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	switch extOf(target) {
	case "bmp":
		return bmp.Encode(out, img)
	case "tif", "tiff":
		return tiff.Encode(out, img, nil)
	case "png":
		return png.Encode(out, img)
	case "jpg", "jpeg":
		return jpeg.Encode(out, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("imagestack: unsupported export extension %q", extOf(target))
	}
}

type imageRGBA struct{ r, g, b, a uint8 }

func (c imageRGBA) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, uint32(c.a) * 0x101
}
