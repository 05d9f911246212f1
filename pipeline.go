// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// RawToUVFBuilder assembles a raw stream plus geometry metadata into a
// bricked, multi-LOD UVF, per spec.md §2. Brick layout itself is delegated
// to the uvf package (the out-of-scope external collaborator's stand-in,
// see SPEC_FULL.md); this method owns the pipeline contract: build the
// raster, compute stats and histograms via [StatsBuilder], append them,
// and finalize.
func (m *IOManager) RawToUVFBuilder(rawPath string, meta VolumeMeta, target string, maxBrick, overlap int) error {
	if err := meta.Validate(); err != nil {
		return newError("RawToUVFBuilder", KindWriteFailure, err)
	}
	f, err := os.Open(rawPath)
	if err != nil {
		return newError("RawToUVFBuilder", KindReadFailure, err)
	}
	defer f.Close()

	w, err := newUVFWriter(target, meta, maxBrick, overlap)
	if err != nil {
		return newError("RawToUVFBuilder", KindWriteFailure, err)
	}
	if err := w.WriteRaster(f); err != nil {
		return newError("RawToUVFBuilder", KindWriteFailure, err)
	}

	sb := NewStatsBuilder(w)
	if err := sb.Build(); err != nil {
		if tErr, ok := err.(*Error); ok {
			return tErr
		}
		return newError("RawToUVFBuilder", KindUnsupportedType, err)
	}

	if err := w.Finalize(); err != nil {
		return newError("RawToUVFBuilder", KindWriteFailure, err)
	}
	return nil
}

// ConvertStack implements spec.md §4.2.2: for each element, obtain its
// payload (decompressing JPEG when flagged), byte-swap to host order when
// needed, pad 3-component data to 4, concatenate into one temp raw file in
// slice-major order, then invoke RawToUVFBuilder. The temp raw file is
// always removed, success or failure.
func (m *IOManager) ConvertStack(stack *StackDescriptor, targetUVF string, opts ConvertOptions) (err error) {
	opts = m.fillConvertDefaults(opts)

	rawPath := tempRawPath(opts.TempDir, targetUVF)
	tmp := IntermediateFile{Path: rawPath, DeleteOnDone: true}
	defer tmp.remove(m.bus())

	f, err := os.Create(rawPath)
	if err != nil {
		return newError("ConvertStack", KindWriteFailure, err)
	}

	effectiveBits := stack.BitsAllocated
	componentCount := stack.ComponentCount

	total := len(stack.Elements)
	for i, el := range stack.Elements {
		payload, err := el.ReadPayload()
		if err != nil {
			f.Close()
			return newError("ConvertStack", KindReadFailure, err)
		}

		if stack.JPEGEncoded {
			decoded, bits, derr := decodeBaselineJPEG(payload)
			if derr != nil {
				f.Close()
				return newError("ConvertStack", KindInvalidPayload, derr)
			}
			payload = decoded
			effectiveBits = bits
		}

		if stack.BigEndian != hostIsBigEndian() {
			swapEndianInPlace(payload, effectiveBits)
		}

		if componentCount == 3 {
			payload = pad3to4(payload)
		}

		if _, err := f.Write(payload); err != nil {
			f.Close()
			return newError("ConvertStack", KindWriteFailure, err)
		}
		progress(m.bus(), "ConvertStack", i+1, total)
	}
	if err := f.Close(); err != nil {
		return newError("ConvertStack", KindWriteFailure, err)
	}

	outComponents := componentCount
	if outComponents == 3 {
		outComponents = 4
	}

	meta := VolumeMeta{
		ComponentBitWidth: effectiveBits,
		ComponentCount:    outComponents,
		IsSigned:          stack.FileType == "DICOM" && effectiveBits >= 32,
		IsFloat:           false,
		NX:                stack.Width,
		NY:                stack.Height,
		NZ:                stack.SliceCount,
		FX:                stack.AspectX,
		FY:                stack.AspectY,
		FZ:                stack.AspectZ,
		ValueSemantic:     stack.Modality,
		Title:             stack.Description,
		Source:            stack.FileType,
	}

	return m.RawToUVFBuilder(rawPath, meta, targetUVF, opts.MaxBrick, opts.BrickOverlap)
}

// ConvertFile implements spec.md §4.2.3. paths holds one source, or
// multiple only when target is UVF and some converter accepts a
// multi-file (time-series) assembly.
func (m *IOManager) ConvertFile(paths []string, target string, opts ConvertOptions) error {
	if len(paths) == 0 {
		return newError("ConvertFile", KindNoConverter, fmt.Errorf("no input paths"))
	}
	opts = m.fillConvertDefaults(opts)
	targetExt := extOf(target)

	if targetExt == "uvf" {
		return m.convertToUVF(paths, target, opts)
	}

	if len(paths) != 1 {
		return newError("ConvertFile", KindMultiInputToNative, fmt.Errorf("multiple sources with non-UVF target %q", target))
	}
	return m.convertSingleToNative(paths[0], target, opts)
}

func (m *IOManager) convertToUVF(paths []string, target string, opts ConvertOptions) error {
	candidates, err := m.Identify(paths[0])
	if err != nil {
		return newError("ConvertFile", KindReadFailure, err)
	}
	if m.converters.final != nil {
		candidates = append(candidates, m.converters.final)
	}

	if len(paths) > 1 {
		for _, c := range candidates {
			uc, ok := c.(multiFileUVFConverter)
			if !ok || !uc.SupportsMultiFile() {
				continue
			}
			if err := uc.ConvertToUVF(paths, target, opts.TempDir, opts.NoUI, opts.MaxBrick, opts.BrickOverlap, opts.Quantize8); err == nil {
				return nil
			}
		}
		return newError("ConvertFile", KindNoConverter, fmt.Errorf("no converter accepts multi-file UVF assembly for %v", paths))
	}

	for _, c := range candidates {
		if uc, ok := c.(UVFConverter); ok {
			if err := uc.ConvertToUVF(paths, target, opts.TempDir, opts.NoUI, opts.MaxBrick, opts.BrickOverlap, opts.Quantize8); err == nil {
				return nil
			}
		}
		if err := m.convertViaRawBuilder(c, paths[0], target, opts); err == nil {
			return nil
		}
	}

	return newError("ConvertFile", KindNoConverter, fmt.Errorf("no converter could produce UVF from %s", paths[0]))
}

// multiFileUVFConverter is implemented by converters that additionally
// support assembling several source paths (a time series) into one UVF.
type multiFileUVFConverter interface {
	UVFConverter
	SupportsMultiFile() bool
}

func (m *IOManager) convertViaRawBuilder(c Converter, src, target string, opts ConvertOptions) error {
	rawPath, del, headerSkip, meta, _, err := c.ConvertToRaw(src, opts.TempDir, opts.NoUI)
	if err != nil {
		return err
	}
	tmp := IntermediateFile{Path: rawPath, HeaderSkip: headerSkip, DeleteOnDone: del}
	defer tmp.remove(m.bus())

	return m.rawToUVFSkippingHeader(rawPath, headerSkip, meta, target, opts.MaxBrick, opts.BrickOverlap)
}

func (m *IOManager) rawToUVFSkippingHeader(rawPath string, headerSkip int64, meta VolumeMeta, target string, maxBrick, overlap int) error {
	if headerSkip == 0 {
		return m.RawToUVFBuilder(rawPath, meta, target, maxBrick, overlap)
	}
	stripped, err := uniqueTempPath(tempDirOf(rawPath), "stripped")
	if err != nil {
		return newError("RawToUVFBuilder", KindWriteFailure, err)
	}
	if err := copyFileSkipping(rawPath, stripped, headerSkip); err != nil {
		return newError("RawToUVFBuilder", KindReadFailure, err)
	}
	defer os.Remove(stripped)
	return m.RawToUVFBuilder(stripped, meta, target, maxBrick, overlap)
}

func (m *IOManager) convertSingleToNative(src, target string, opts ConvertOptions) error {
	var rawPath string
	var headerSkip int64
	var meta VolumeMeta
	var del bool

	if extOf(src) == "uvf" {
		r, err := openUVF(src)
		if err != nil {
			return newError("ConvertFile", KindReadFailure, err)
		}
		path, merr := uniqueTempPath(opts.TempDir, "export")
		if merr != nil {
			return newError("ConvertFile", KindWriteFailure, merr)
		}
		out, err := os.Create(path)
		if err != nil {
			return newError("ConvertFile", KindWriteFailure, err)
		}
		if err := r.ExportRaw(r.HighestResolutionLOD(), out); err != nil {
			out.Close()
			return newError("ConvertFile", KindReadFailure, err)
		}
		out.Close()
		rawPath = path
		del = true
		meta = fromDomainMeta(r.DomainMeta())
	} else {
		p, d, hs, md, merr := m.materializeRaw(src, opts.TempDir, opts.NoUI)
		if merr != nil {
			return newError("ConvertFile", KindNoConverter, merr)
		}
		rawPath, del, headerSkip, meta = p, d, hs, md
	}

	tmp := IntermediateFile{Path: rawPath, HeaderSkip: headerSkip, DeleteOnDone: del}
	defer tmp.remove(m.bus())

	targetConv := m.ConverterForExtension(extOf(target), true)
	if targetConv == nil {
		return newError("ConvertFile", KindNoConverter, fmt.Errorf("no exporting converter for extension %q", extOf(target)))
	}
	if err := targetConv.ConvertToNative(rawPath, target, headerSkip, meta, opts.NoUI, opts.Quantize8); err != nil {
		return newError("ConvertFile", KindWriteFailure, err)
	}
	return nil
}

// ExportDataset implements spec.md §4.2.6: pick a converter by target
// extension, export lod to a temp raw, invoke its ConvertToNative.
func (m *IOManager) ExportDataset(sourceUVF string, lod int, target, tempDir string) (err error) {
	r, err := openUVF(sourceUVF)
	if err != nil {
		return newError("ExportDataset", KindReadFailure, err)
	}
	path, merr := uniqueTempPath(tempDir, "export")
	if merr != nil {
		return newError("ExportDataset", KindWriteFailure, merr)
	}
	tmp := IntermediateFile{Path: path, DeleteOnDone: true}
	defer tmp.remove(m.bus())

	out, err := os.Create(path)
	if err != nil {
		return newError("ExportDataset", KindWriteFailure, err)
	}
	if err := r.ExportRaw(lod, out); err != nil {
		out.Close()
		return newError("ExportDataset", KindReadFailure, err)
	}
	out.Close()

	conv := m.ConverterForExtension(extOf(target), true)
	if conv == nil {
		return newError("ExportDataset", KindNoConverter, fmt.Errorf("no exporting converter for extension %q", extOf(target)))
	}
	meta := fromDomainMeta(r.DomainMeta())
	return conv.ConvertToNative(path, target, 0, meta, false, false)
}

// Rebrick implements spec.md §4.2.5: a two-phase export-to-NRRD then
// reconvert-to-UVF with new brick parameters.
func (m *IOManager) Rebrick(sourceUVF, targetUVF string, opts RebrickOptions) (err error) {
	neutral, merr := uniqueTempPath(opts.TempDir, "rebrick")
	if merr != nil {
		return newError("Rebrick", KindWriteFailure, merr)
	}
	neutral += ".nrrd"
	tmp := IntermediateFile{Path: neutral, DeleteOnDone: true}
	defer tmp.remove(m.bus())

	if err := m.ExportDataset(sourceUVF, 0, neutral, opts.TempDir); err != nil {
		return err
	}

	convOpts := ConvertOptions{
		TempDir:      opts.TempDir,
		MaxBrick:     opts.MaxBrick,
		BrickOverlap: opts.Overlap,
		Quantize8:    opts.Quantize8,
	}
	return m.ConvertFile([]string{neutral}, targetUVF, convOpts)
}

func hostIsBigEndian() bool {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	return buf[0] == 0
}

func pad3to4(rgb []byte) []byte {
	n := len(rgb) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4+0] = rgb[i*3+0]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 0xFF
	}
	return out
}

func copyFileSkipping(src, dst string, skip int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := in.Seek(skip, 0); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	buf := make([]byte, 1<<20)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			break
		}
	}
	return nil
}

func tempDirOf(path string) string {
	i := bytes.LastIndexByte([]byte(path), '/')
	if i < 0 {
		return "."
	}
	return path[:i]
}
