// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// IntermediateFile is a temp-raw artifact produced mid-pipeline: a path,
// the byte count to skip past its header, a per-source scale/bias (used
// only when it feeds a merge), and whether the facade should delete it on
// completion. Ownership is always the facade's: spec.md §9 says the delete
// flag "must be honored by the facade, never by the converter that
// produced it".
type IntermediateFile struct {
	Path         string
	HeaderSkip   int64
	Scale, Bias  float64
	DeleteOnDone bool
	Meta         VolumeMeta
}

// remove deletes the intermediate if DeleteOnDone is set. Errors are
// swallowed into the message bus — cleanup must never mask the operation's
// real error.
func (f IntermediateFile) remove(bus MessageBus) {
	if !f.DeleteOnDone {
		return
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		if bus != nil {
			bus.Message(SeverityWarning, "failed to remove temp file %s: %v", f.Path, err)
		}
	}
}

// tempRawPath returns the main pipeline's temp filename,
// "<temp_dir>/<basename(target)>~", per spec.md §6.
func tempRawPath(tempDir, target string) string {
	return filepath.Join(tempDir, filepath.Base(target)+"~")
}

// mergedRawPath returns the merger's fixed temp filename, per spec.md §6.
func mergedRawPath(tempDir string) string {
	return filepath.Join(tempDir, "merged.raw")
}

// uniqueTempPath disambiguates a temp path with a random suffix, used when
// multiple intermediates could otherwise collide (spec.md §5: "for
// mergers, a random suffix disambiguates").
func uniqueTempPath(tempDir, base string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("uniqueTempPath: %w", err)
	}
	return filepath.Join(tempDir, fmt.Sprintf("%s.%s", base, hex.EncodeToString(b[:]))), nil
}
