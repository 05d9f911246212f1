// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"fmt"
	"strings"
)

// KnownFormatsFilter builds the "All known Files (*.ext1 *.ext2 );;Format
// Name (*.ext);;...;;All Files (*)" dialog string spec.md §6 describes,
// from the live converter registry rather than a hard-coded list.
func (m *IOManager) KnownFormatsFilter() string {
	var all []string
	var parts []string
	for _, c := range m.converters.converters {
		exts := c.SupportedExtensions()
		all = append(all, exts...)
		parts = append(parts, formatFilterEntry(c.Description(), exts))
	}
	if m.converters.final != nil {
		exts := m.converters.final.SupportedExtensions()
		all = append(all, exts...)
		parts = append(parts, formatFilterEntry(m.converters.final.Description(), exts))
	}

	header := fmt.Sprintf("All known Files (%s )", extGlobList(all))
	return strings.Join(append([]string{header}, append(parts, "All Files (*)")...), ";;")
}

// FilterForConverter returns the single-format dialog entry for the
// converter whose extension list contains ext, or "" if none is
// registered for that extension.
func (m *IOManager) FilterForConverter(ext string) string {
	c := m.ConverterForExtension(ext, false)
	if c == nil {
		return ""
	}
	return formatFilterEntry(c.Description(), c.SupportedExtensions())
}

func formatFilterEntry(description string, exts []string) string {
	return fmt.Sprintf("%s (%s)", description, extGlobList(exts))
}

func extGlobList(exts []string) string {
	globs := make([]string, len(exts))
	for i, e := range exts {
		globs[i] = "*." + strings.ToLower(strings.TrimPrefix(e, "."))
	}
	return strings.Join(globs, " ")
}
