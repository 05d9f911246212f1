// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

// Package tuvok normalizes heterogeneous volumetric and mesh formats into a
// canonical bricked multi-resolution container (UVF) and back.
//
// The package is organized around four collaborating subsystems: converter
// dispatch ([IOManager.Identify]), the conversion pipeline
// ([IOManager.ConvertStack], [IOManager.ConvertFile], [IOManager.Merge],
// [IOManager.Rebrick]), bricked statistics ([StatsBuilder]), and the
// multi-volume expression evaluator ([ExpressionEvaluator]). [IOManager] is
// the facade a caller drives; everything else is reachable through it.
package tuvok
