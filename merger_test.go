// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/wcoco/tuvok/uvf"
)

func TestMergeSumsTwoRawSources(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()

	a := []byte{1, 2, 3, 4}
	b := []byte{10, 20, 30, 40}
	pathA := filepath.Join(dir, "a.raw")
	pathB := filepath.Join(dir, "b.raw")
	c.Assert(os.WriteFile(pathA, a, 0o644), qt.IsNil)
	c.Assert(os.WriteFile(pathB, b, 0o644), qt.IsNil)

	m := NewDefaultIOManager(finalRawConverter{
		NX: 2, NY: 2, NZ: 1, ComponentBitWidth: 8, ComponentCount: 1,
	})

	target := filepath.Join(dir, "merged.uvf")
	err := m.Merge([]string{pathA, pathB}, []float64{1, 1}, []float64{0, 0}, target, MergeOptions{TempDir: dir})
	c.Assert(err, qt.IsNil)

	r, err := uvf.Open(target)
	c.Assert(err, qt.IsNil)
	c.Assert(r.DomainMeta().NX, qt.Equals, 2)
}

func TestMergeRejectsMismatchedLengths(t *testing.T) {
	c := qt.New(t)
	m := NewIOManager()
	err := m.Merge([]string{"a"}, []float64{1, 2}, []float64{0}, "out.uvf", MergeOptions{})
	c.Assert(err, qt.Not(qt.IsNil))
	terr, ok := err.(*Error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(terr.Kind, qt.Equals, KindIncompatibleInputs)
}

func TestMergeRejectsEmptySources(t *testing.T) {
	c := qt.New(t)
	m := NewIOManager()
	err := m.Merge(nil, nil, nil, "out.uvf", MergeOptions{})
	c.Assert(err, qt.Not(qt.IsNil))
	terr, ok := err.(*Error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(terr.Kind, qt.Equals, KindIncompatibleInputs)
}

func TestStreamMergeUsesMax(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	a := filepath.Join(dir, "a.raw")
	b := filepath.Join(dir, "b.raw")
	c.Assert(os.WriteFile(a, []byte{1, 9}, 0o644), qt.IsNil)
	c.Assert(os.WriteFile(b, []byte{5, 2}, 0o644), qt.IsNil)

	out := filepath.Join(dir, "out.raw")
	err := streamMerge([]string{a, b}, []int64{0, 0}, []float64{1, 1}, []float64{0, 0}, U8, 1, 2, out, true)
	c.Assert(err, qt.IsNil)

	got, err := os.ReadFile(out)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []byte{5, 9})
}
