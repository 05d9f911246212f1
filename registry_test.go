// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNewDefaultIOManagerRegistersEveryConverter(t *testing.T) {
	c := qt.New(t)
	m := NewDefaultIOManager(finalRawConverter{NX: 1, NY: 1, NZ: 1, ComponentBitWidth: 8, ComponentCount: 1})

	c.Assert(m.ConverterForExtension("nrrd", true), qt.Not(qt.IsNil))
	c.Assert(m.ConverterForExtension("tif", false), qt.Not(qt.IsNil))
	c.Assert(m.ConverterForExtension("dcm", false), qt.Not(qt.IsNil))
	c.Assert(m.ConverterForExtension("dcm", true), qt.IsNil) // DICOM export is not supported
	c.Assert(m.ConverterForExtension("raw", true), qt.Not(qt.IsNil))
	c.Assert(m.ConverterForExtension("png", true), qt.Not(qt.IsNil))

	c.Assert(len(m.meshConverters), qt.Equals, 2) // obj + iqm
}
