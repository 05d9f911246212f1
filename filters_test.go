// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestKnownFormatsFilter(t *testing.T) {
	c := qt.New(t)
	m := NewIOManager()
	m.RegisterConverter(fakeConverter{desc: "Foo", exts: []string{"foo", "foz"}})
	m.RegisterFinalConverter(fakeConverter{desc: "Raw", exts: []string{"raw"}})

	filter := m.KnownFormatsFilter()
	c.Assert(strings.HasPrefix(filter, "All known Files ("), qt.IsTrue)
	c.Assert(strings.Contains(filter, "*.foo"), qt.IsTrue)
	c.Assert(strings.Contains(filter, "Foo (*.foo *.foz)"), qt.IsTrue)
	c.Assert(strings.Contains(filter, "Raw (*.raw)"), qt.IsTrue)
	c.Assert(strings.HasSuffix(filter, "All Files (*)"), qt.IsTrue)
}

func TestFilterForConverter(t *testing.T) {
	c := qt.New(t)
	m := NewIOManager()
	m.RegisterConverter(fakeConverter{desc: "Foo", exts: []string{"foo"}})

	c.Assert(m.FilterForConverter("foo"), qt.Equals, "Foo (*.foo)")
	c.Assert(m.FilterForConverter("missing"), qt.Equals, "")
}
