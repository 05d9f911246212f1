// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"fmt"
	"os"
	"path/filepath"
)

// finalRawConverter is the registered fallback converter spec.md §4.1
// describes: when no ordinary converter's CanRead accepts a file, the
// facade falls back to it, treating the file as a headerless raw volume
// assembled from the caller-supplied domain/format flags. Mirrors the
// raw-fallback path referenced in original_source/_INDEX.md.
type finalRawConverter struct {
	NX, NY, NZ        int
	ComponentBitWidth int
	ComponentCount    int
	IsSigned          bool
	IsFloat           bool
}

func (finalRawConverter) Description() string           { return "Raw Volume" }
func (finalRawConverter) SupportedExtensions() []string { return []string{"raw", "dat"} }
func (finalRawConverter) CanExport() bool                { return true }

// CanRead never rejects a file — it is only ever consulted as the final
// converter, after every ordinary converter has already declined.
func (finalRawConverter) CanRead(path string, first512 []byte) bool { return true }

func (c finalRawConverter) ConvertToRaw(src, tempDir string, noUI bool) (string, bool, int64, VolumeMeta, string, error) {
	if c.NX <= 0 || c.NY <= 0 || c.NZ <= 0 {
		return "", false, 0, VolumeMeta{}, "", fmt.Errorf("finalraw: no domain size configured for %s; raw fallback requires explicit dimensions", src)
	}
	meta := VolumeMeta{
		ComponentBitWidth: c.ComponentBitWidth,
		ComponentCount:    c.ComponentCount,
		IsSigned:          c.IsSigned,
		IsFloat:           c.IsFloat,
		NX:                c.NX,
		NY:                c.NY,
		NZ:                c.NZ,
		FX:                1, FY: 1, FZ: 1,
		ValueSemantic: "generic scalar",
		Title:         filepath.Base(src),
		Source:        "RAW",
	}
	if err := meta.Validate(); err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", false, 0, VolumeMeta{}, "", err
	}
	if info.Size() < meta.RawByteSize() {
		return "", false, 0, VolumeMeta{}, "", fmt.Errorf("finalraw: %s is %d bytes, expected at least %d for %dx%dx%d", src, info.Size(), meta.RawByteSize(), c.NX, c.NY, c.NZ)
	}
	return src, false, 0, meta, "generic scalar", nil
}

func (finalRawConverter) ConvertToNative(rawPath, target string, headerSkip int64, meta VolumeMeta, noUI, quantize8 bool) error {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return err
	}
	raw = raw[headerSkip:]
	return os.WriteFile(target, raw, 0o644)
}
