// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/wcoco/tuvok/uvf"
)

func TestStatsBuilderBuild(t *testing.T) {
	c := qt.New(t)

	meta := uvf.DomainMeta{
		ComponentBitWidth: 8, ComponentCount: 1,
		NX: 4, NY: 4, NZ: 1, FX: 1, FY: 1, FZ: 1,
	}
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i * 10)
	}

	w, err := uvf.Create(filepath.Join(c.TempDir(), "stats.uvf"), meta, 4, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(w.WriteRaster(bytes.NewReader(raw)), qt.IsNil)

	sb := NewStatsBuilder(w)
	c.Assert(sb.Build(), qt.IsNil)
	c.Assert(w.Finalize(), qt.IsNil)
}

func TestStatsBuilderRejectsUnsupportedType(t *testing.T) {
	c := qt.New(t)

	meta := uvf.DomainMeta{
		ComponentBitWidth: 64, ComponentCount: 1, IsSigned: true,
		NX: 2, NY: 2, NZ: 1, FX: 1, FY: 1, FZ: 1,
	}
	raw := make([]byte, 2*2*8)
	w, err := uvf.Create(filepath.Join(c.TempDir(), "u64.uvf"), meta, 4, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(w.WriteRaster(bytes.NewReader(raw)), qt.IsNil)

	sb := NewStatsBuilder(w)
	err = sb.Build()
	c.Assert(err, qt.Not(qt.IsNil))
	terr, ok := err.(*Error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(terr.Kind, qt.Equals, KindUnsupportedType)
}

func TestScanMinMax(t *testing.T) {
	c := qt.New(t)
	buf := []byte{10, 200, 5, 100}
	mn, mx := scanMinMax(U8, buf, 1)
	c.Assert(mn, qt.Equals, float64(5))
	c.Assert(mx, qt.Equals, float64(200))
}

func TestMinMaxAccumulator(t *testing.T) {
	c := qt.New(t)
	acc := &minMaxAccumulator{}
	acc.StartNewValue()
	acc.MergeData(3, 7)
	c.Assert(acc.min, qt.Equals, float64(3))
	c.Assert(acc.max, qt.Equals, float64(7))
	acc.MergeData(1, 5)
	c.Assert(acc.min, qt.Equals, float64(1))
	c.Assert(acc.max, qt.Equals, float64(7))
	acc.StartNewValue()
	acc.MergeData(100, 100)
	c.Assert(acc.min, qt.Equals, float64(100))
	c.Assert(acc.max, qt.Equals, float64(100))
}
