// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"fmt"
	"math"

	"github.com/wcoco/tuvok/uvf"
)

func unsupportedVoxelTypeErr(meta uvf.DomainMeta) error {
	return fmt.Errorf("unsupported voxel type: %d-bit signed=%v float=%v (64-bit integers are not supported in stats, per design note)",
		meta.ComponentBitWidth, meta.IsSigned, meta.IsFloat)
}

const (
	histogram1DBins = 256
	histogram2DRows = 32 // gradient-magnitude bins
)

// StatsBuilder computes per-brick min/max and the 1D/2D histogram data
// blocks for a UVF being assembled, per spec.md §4.3. Type dispatch covers
// the eight representable cases {I8,U8,I16,U16,I32,U32,F32,F64}; I64/U64
// are currently unsupported, per spec.md §9's open question.
type StatsBuilder struct {
	w *uvf.Writer
}

// NewStatsBuilder returns a builder over w, which must already have had
// WriteRaster called on it.
func NewStatsBuilder(w *uvf.Writer) *StatsBuilder {
	return &StatsBuilder{w: w}
}

// minMaxAccumulator mirrors the source's StartNewValue/MergeData
// accumulator: StartNewValue opens a fresh running range, MergeData folds
// a brick's (min,max) into it. StartNewValue is called once per brick and
// MergeData folds that brick's range taken over all of its components
// together; ranges are not kept per component, so a multi-component
// volume gets one combined (min,max) per brick.
type minMaxAccumulator struct {
	min, max float64
	started  bool
}

func (a *minMaxAccumulator) StartNewValue() {
	a.started = false
}

func (a *minMaxAccumulator) MergeData(min, max float64) {
	if !a.started {
		a.min, a.max = min, max
		a.started = true
		return
	}
	if min < a.min {
		a.min = min
	}
	if max > a.max {
		a.max = max
	}
}

// Build iterates every (LOD, brick) pair, computes BrickStats, and
// produces the 1D/2D histogram blocks, then installs all three onto the
// writer for Finalize to persist.
func (sb *StatsBuilder) Build() error {
	meta := sb.w.DomainMeta()
	vt, ok := VoxelTypeFor(meta.ComponentBitWidth, meta.IsSigned, meta.IsFloat)
	if !ok || vt == I64 || vt == U64 {
		return &Error{Op: "StatsBuilder.Build", Kind: KindUnsupportedType,
			Err: unsupportedVoxelTypeErr(meta)}
	}

	lods := sb.w.LODs()
	allStats := make([][]BrickStats, len(lods))
	var globalMin, globalMax float64
	haveGlobal := false

	for li, lod := range lods {
		n := lod.BrickCount[0] * lod.BrickCount[1] * lod.BrickCount[2]
		stats := make([]BrickStats, n)
		acc := &minMaxAccumulator{}
		for idx := 0; idx < n; idx++ {
			key := BrickKey{LOD: li, Index: idx}
			voxels, err := sb.w.BrickVoxels(key)
			if err != nil {
				return &Error{Op: "StatsBuilder.Build", Kind: KindReadFailure, Err: err}
			}
			mn, mx := scanMinMax(vt, voxels, meta.ComponentCount)
			acc.StartNewValue()
			acc.MergeData(mn, mx)
			stats[idx] = BrickStats{Min: acc.min, Max: acc.max, GradMin: math.Inf(-1), GradMax: math.Inf(1)}
			if li == 0 {
				if !haveGlobal {
					globalMin, globalMax, haveGlobal = mn, mx, true
				} else {
					if mn < globalMin {
						globalMin = mn
					}
					if mx > globalMax {
						globalMax = mx
					}
				}
			}
		}
		allStats[li] = stats
	}
	sb.w.SetMinMax(allStats)

	hist1D := make([]uint64, histogram1DBins)
	hist2D := make([][]uint64, histogram2DRows)
	for i := range hist2D {
		hist2D[i] = make([]uint64, histogram1DBins)
	}

	if haveGlobal && lods[0].BrickCount[0] > 0 {
		span := globalMax - globalMin
		bin := func(v float64) int {
			if span <= 0 {
				return 0
			}
			b := int((v - globalMin) / span * float64(histogram1DBins))
			if b < 0 {
				b = 0
			}
			if b >= histogram1DBins {
				b = histogram1DBins - 1
			}
			return b
		}
		lod0 := lods[0]
		n := lod0.BrickCount[0] * lod0.BrickCount[1] * lod0.BrickCount[2]
		for idx := 0; idx < n; idx++ {
			voxels, err := sb.w.BrickVoxels(BrickKey{LOD: 0, Index: idx})
			if err != nil {
				return &Error{Op: "StatsBuilder.Build", Kind: KindReadFailure, Err: err}
			}
			count := len(voxels) / (vt.ByteWidth() * meta.ComponentCount)
			for v := 0; v < count; v++ {
				val := combinedComponentValue(vt, voxels, v, meta.ComponentCount)
				b := bin(val)
				hist1D[b]++

				grad := approximateGradientMagnitude(vt, voxels, v, meta.ComponentCount, count)
				gBin := int(grad / (span + 1) * float64(histogram2DRows))
				if gBin < 0 {
					gBin = 0
				}
				if gBin >= histogram2DRows {
					gBin = histogram2DRows - 1
				}
				hist2D[gBin][b]++
			}
		}
	}
	sb.w.SetHistogram1D(hist1D)
	sb.w.SetHistogram2D(hist2D)

	return nil
}

// scanMinMax returns the combined min/max across every component of every
// voxel in buf.
func scanMinMax(vt VoxelType, buf []byte, components int) (float64, float64) {
	w := vt.ByteWidth()
	total := len(buf) / w
	if total == 0 {
		return 0, 0
	}
	mn := decodeVoxel(vt, buf, 0)
	mx := mn
	for i := 1; i < total; i++ {
		v := decodeVoxel(vt, buf, i)
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	_ = components
	return mn, mx
}

// combinedComponentValue returns a single representative scalar for voxel
// index v (averaging its components), used to bin multi-component voxels
// into the scalar histograms.
func combinedComponentValue(vt VoxelType, buf []byte, v, components int) float64 {
	var sum float64
	for c := 0; c < components; c++ {
		sum += decodeVoxel(vt, buf, v*components+c)
	}
	return sum / float64(components)
}

// approximateGradientMagnitude estimates |dI/dx| using the forward
// difference to the next voxel in scan order. This is a brick-local
// approximation: it does not reach across brick boundaries, since this
// repo's uvf stand-in does not physically duplicate the overlap region a
// production UVF brick would carry for exactly this purpose.
func approximateGradientMagnitude(vt VoxelType, buf []byte, v, components, count int) float64 {
	cur := combinedComponentValue(vt, buf, v, components)
	if v+1 >= count {
		return 0
	}
	next := combinedComponentValue(vt, buf, v+1, components)
	d := next - cur
	if d < 0 {
		d = -d
	}
	return d
}
