// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"fmt"
	"io"
	"os"
)

// mergerChunkVoxels bounds how many voxels the merger holds in memory per
// streaming window, per spec.md §4.4 ("streams brick-sized windows; does
// not require the whole volume in memory"). It is independent of the
// eventual UVF's own brick size — the merge happens before RawToUVFBuilder
// ever runs.
const mergerChunkVoxels = 1 << 16

// Merge implements spec.md §4.2.4 and §4.4: convert every source to a raw
// intermediate, require they share mergeable dynamic range, combine them
// with Merger, then build or export the result.
func (m *IOManager) Merge(sources []string, scales, biases []float64, target string, opts MergeOptions) (err error) {
	if len(sources) == 0 {
		return newError("Merge", KindIncompatibleInputs, fmt.Errorf("no sources"))
	}
	if len(scales) != len(sources) || len(biases) != len(sources) {
		return newError("Merge", KindIncompatibleInputs, fmt.Errorf("scales/biases length must match sources"))
	}

	var intermediates []IntermediateFile
	var metas []VolumeMeta
	defer func() {
		for _, im := range intermediates {
			im.remove(m.bus())
		}
	}()

	for _, src := range sources {
		var path string
		var del bool
		var headerSkip int64
		var meta VolumeMeta

		if extOf(src) == "uvf" {
			r, oerr := openUVF(src)
			if oerr != nil {
				return newError("Merge", KindReadFailure, oerr)
			}
			p, uerr := uniqueTempPath(opts.TempDir, "mergesrc")
			if uerr != nil {
				return newError("Merge", KindWriteFailure, uerr)
			}
			f, cerr := os.Create(p)
			if cerr != nil {
				return newError("Merge", KindWriteFailure, cerr)
			}
			if eerr := r.ExportRaw(r.HighestResolutionLOD(), f); eerr != nil {
				f.Close()
				return newError("Merge", KindReadFailure, eerr)
			}
			f.Close()
			path, del, meta = p, true, fromDomainMeta(r.DomainMeta())
		} else {
			p, d, hs, md, merr := m.materializeRaw(src, opts.TempDir, opts.NoUI)
			if merr != nil {
				return newError("Merge", KindReadFailure, merr)
			}
			path, del, headerSkip, meta = p, d, hs, md
		}

		intermediates = append(intermediates, IntermediateFile{Path: path, HeaderSkip: headerSkip, DeleteOnDone: del})
		metas = append(metas, meta)
	}

	first := metas[0]
	for i, mt := range metas[1:] {
		if !sameDynamicRange(first, mt) || first.SwapEndian != mt.SwapEndian {
			return newError("Merge", KindIncompatibleInputs,
				fmt.Errorf("source %d is incompatible with source 0 (bit width/component count/signedness/float-ness/domain/endian-delta must match)", i+1))
		}
		if first.FX != mt.FX || first.FY != mt.FY || first.FZ != mt.FZ {
			m.bus().Message(SeverityWarning, "source %d has a different aspect ratio than source 0", i+1)
		}
	}

	vt, ok := first.VoxelType()
	if !ok {
		return newError("Merge", KindUnsupportedType, fmt.Errorf("unsupported merge voxel type"))
	}

	mergedPath := mergedRawPath(opts.TempDir)
	merged := IntermediateFile{Path: mergedPath, DeleteOnDone: true}
	defer merged.remove(m.bus())

	paths := make([]string, len(intermediates))
	skips := make([]int64, len(intermediates))
	for i, im := range intermediates {
		paths[i] = im.Path
		skips[i] = im.HeaderSkip
	}
	if err := streamMerge(paths, skips, scales, biases, vt, first.ComponentCount, first.VoxelCount(), mergedPath, opts.UseMax); err != nil {
		return newError("Merge", KindWriteFailure, err)
	}

	if extOf(target) == "uvf" {
		return m.RawToUVFBuilder(mergedPath, first, target, m.DefaultMaxBrick, m.DefaultOverlap)
	}
	conv := m.ConverterForExtension(extOf(target), true)
	if conv == nil {
		return newError("Merge", KindNoConverter, fmt.Errorf("no exporting converter for extension %q", extOf(target)))
	}
	return conv.ConvertToNative(mergedPath, target, 0, first, opts.NoUI, false)
}

// materializeRaw runs the identify()/final-converter chain spec.md §4.2.3
// describes to turn a non-UVF source into a raw intermediate. It is shared
// by ConvertFile's native-target path and Merge.
func (m *IOManager) materializeRaw(src, tempDir string, noUI bool) (path string, del bool, headerSkip int64, meta VolumeMeta, err error) {
	candidates, ierr := m.Identify(src)
	if ierr != nil {
		return "", false, 0, VolumeMeta{}, ierr
	}
	if m.converters.final != nil {
		candidates = append(candidates, m.converters.final)
	}
	var lastErr error
	for _, c := range candidates {
		p, d, hs, md, _, cerr := c.ConvertToRaw(src, tempDir, noUI)
		if cerr != nil {
			lastErr = cerr
			continue
		}
		return p, d, hs, md, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no converter accepted %s", src)
	}
	return "", false, 0, VolumeMeta{}, lastErr
}

// streamMerge combines N aligned raw inputs voxel-by-voxel in
// mergerChunkVoxels-sized windows, emitting max(scale*x+bias) or
// Σ(scale*x+bias) to out, per spec.md §4.4.
func streamMerge(paths []string, headerSkips []int64, scales, biases []float64, vt VoxelType, components, voxelCount int, out string, useMax bool) (err error) {
	files := make([]*os.File, len(paths))
	for i, p := range paths {
		f, oerr := os.Open(p)
		if oerr != nil {
			return oerr
		}
		defer f.Close()
		if headerSkips[i] != 0 {
			if _, serr := f.Seek(headerSkips[i], io.SeekStart); serr != nil {
				return serr
			}
		}
		files[i] = f
	}

	outFile, cerr := os.Create(out)
	if cerr != nil {
		return cerr
	}
	defer func() {
		cerrClose := outFile.Close()
		if err == nil {
			err = cerrClose
		}
	}()

	vw := vt.ByteWidth()
	elemsPerVoxel := components
	chunkElems := mergerChunkVoxels * elemsPerVoxel
	bufs := make([][]byte, len(files))
	for i := range bufs {
		bufs[i] = make([]byte, chunkElems*vw)
	}
	outBuf := make([]byte, chunkElems*vw)

	remaining := voxelCount * elemsPerVoxel
	for remaining > 0 {
		n := chunkElems
		if n > remaining {
			n = remaining
		}
		for i, f := range files {
			if _, rerr := io.ReadFull(f, bufs[i][:n*vw]); rerr != nil {
				return fmt.Errorf("merge: read source %d: %w", i, rerr)
			}
		}
		for e := 0; e < n; e++ {
			var acc float64
			for i := range files {
				x := decodeVoxel(vt, bufs[i], e)
				v := scales[i]*x + biases[i]
				if useMax {
					if i == 0 || v > acc {
						acc = v
					}
				} else {
					acc += v
				}
			}
			encodeVoxel(vt, outBuf, e, acc)
		}
		if _, werr := outFile.Write(outBuf[:n*vw]); werr != nil {
			return fmt.Errorf("merge: write: %w", werr)
		}
		remaining -= n
	}
	return nil
}
