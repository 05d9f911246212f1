// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// sniffLen is the number of leading bytes every sniffer is offered, per
// spec.md §4.1/§6: "sniffing is limited to the first 512 bytes".
const sniffLen = 512

// RangeInfo is the result of a converter's optional Analyze operation.
type RangeInfo struct {
	Min, Max float64
}

// Converter is the per-format plugin contract, spec.md §6. Implementers
// provide at minimum Description/SupportedExtensions/CanExport/CanRead/
// ConvertToRaw/ConvertToNative; ConvertToUVF and Analyze are optional
// shortcuts a format may implement when it can target UVF directly or
// report a voxel range without a full conversion.
type Converter interface {
	Description() string
	SupportedExtensions() []string
	CanExport() bool
	// CanRead reports whether this converter accepts path, given the
	// first sniffLen bytes already read from it (fewer if the file is
	// shorter).
	CanRead(path string, first512 []byte) bool
	// ConvertToRaw materializes src as a raw intermediate file under
	// tempDir, returning its path, whether the caller should delete it,
	// a header-skip byte count, the resulting VolumeMeta, and a
	// value-semantic tag (e.g. "CT", "generic scalar").
	ConvertToRaw(src, tempDir string, noUI bool) (rawPath string, del bool, headerSkip int64, meta VolumeMeta, valueSemantic string, err error)
	// ConvertToNative writes rawPath (skipping headerSkip bytes) out as
	// this format to target.
	ConvertToNative(rawPath, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error
}

// UVFConverter is the optional convert-to-UVF shortcut spec.md §4.2.3
// describes: a converter that can assemble one or more source files
// directly into a UVF without the caller driving a separate raw stage.
// Implementing this alone does not make a converter accept multiple source
// paths: the multi-file path in ConvertFile only uses converters that also
// implement SupportsMultiFile and report true.
type UVFConverter interface {
	Converter
	ConvertToUVF(srcList []string, target, tempDir string, noUI bool, maxBrick, overlap int, quantize8 bool) error
}

// Analyzer is the optional analyze shortcut spec.md §6 describes.
type Analyzer interface {
	Converter
	Analyze(src, tempDir string, noUI bool) (RangeInfo, error)
}

// converterRegistry holds the ordinary and final converters an IOManager
// dispatches across. It is mutated only during setup (RegisterConverter /
// RegisterFinalConverter) and is read-only during conversion, per
// spec.md §5.
type converterRegistry struct {
	converters []Converter
	final      Converter
}

// RegisterConverter adds c to the ordinary converter list, in registration
// order — identify() evaluates converters in this stable order.
func (io *IOManager) RegisterConverter(c Converter) {
	io.converters.converters = append(io.converters.converters, c)
}

// RegisterFinalConverter installs the fallback converter tried when no
// ordinary converter accepts a file.
func (io *IOManager) RegisterFinalConverter(c Converter) {
	io.converters.final = c
}

// RegisterMeshConverter adds a mesh format plugin.
func (io *IOManager) RegisterMeshConverter(c MeshConverter) {
	io.meshConverters = append(io.meshConverters, c)
}

// Identify reads exactly the first sniffLen bytes of path once and offers
// them, plus the path, to every registered converter's CanRead. It returns
// every converter that accepts, in registration order — not a first match,
// so the pipeline can retry successors when the first accepting plugin
// fails mid-conversion (spec.md §4.1).
func (io *IOManager) Identify(path string) ([]Converter, error) {
	first512, err := readPrefix(path, sniffLen)
	if err != nil {
		return nil, newError("Identify", KindReadFailure, err)
	}

	var matches []Converter
	for _, c := range io.converters.converters {
		if c.CanRead(path, first512) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// ConverterForExtension does a case-insensitive lookup of a converter
// supporting ext; if mustExport is set, only converters whose CanExport is
// true are considered.
func (io *IOManager) ConverterForExtension(ext string, mustExport bool) Converter {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, c := range io.converters.converters {
		if mustExport && !c.CanExport() {
			continue
		}
		for _, e := range c.SupportedExtensions() {
			if strings.ToLower(e) == ext {
				return c
			}
		}
	}
	if io.converters.final != nil {
		if !mustExport || io.converters.final.CanExport() {
			for _, e := range io.converters.final.SupportedExtensions() {
				if strings.ToLower(e) == ext {
					return io.converters.final
				}
			}
		}
	}
	return nil
}

// readPrefix reads up to n bytes from the start of path, returning fewer
// if the file is shorter. It never returns io.EOF as an error.
func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, n)
	buf := make([]byte, n)
	read, err := io.ReadFull(br, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i+1:])
}
