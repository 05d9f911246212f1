// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

// Package uvf is a stand-in for the out-of-scope Universal Volume Format
// container library. spec.md §1 places the UVF container format internals
// outside this repository's core: "the spec treats each as a contract-bound
// dependency". No Go port of Tuvok's UVF library exists in the ecosystem,
// so this package implements only the minimal surface the pipeline needs to
// drive — brick geometry, a raster data block writer/reader, and the
// min-max/histogram data blocks — and leaves real bricking, compression and
// on-disk layout concerns to whichever production UVF library eventually
// replaces it.
package uvf
