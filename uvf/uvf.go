// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package uvf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// DomainMeta is the subset of VolumeMeta the container needs to lay out a
// raster data block. The pipeline package owns the richer VolumeMeta type;
// this is the narrow contract crossing the package boundary.
type DomainMeta struct {
	ComponentBitWidth int
	ComponentCount    int
	IsSigned          bool
	IsFloat           bool
	NX, NY, NZ        int
	FX, FY, FZ        float64
	ValueSemantic     string
	Title             string
	Source            string
}

func (m DomainMeta) voxelByteWidth() int {
	return (m.ComponentBitWidth / 8) * m.ComponentCount
}

// BrickKey identifies one brick: an LOD index and a 1D brick index within
// that LOD, per spec.md §3.
type BrickKey struct {
	LOD   int
	Index int
}

// LODInfo describes one level of detail's domain and brick-count geometry.
type LODInfo struct {
	Domain     [3]int
	BrickCount [3]int
}

func (l LODInfo) totalBricks() int {
	return l.BrickCount[0] * l.BrickCount[1] * l.BrickCount[2]
}

// IndexToXYZ maps a 1D brick index within an LOD to (bx,by,bz), per
// spec.md §3's BrickKey utility.
func IndexToXYZ(counts [3]int, idx int) (bx, by, bz int) {
	bx = idx % counts[0]
	by = (idx / counts[0]) % counts[1]
	bz = idx / (counts[0] * counts[1])
	return
}

// XYZToIndex is the inverse of IndexToXYZ.
func XYZToIndex(counts [3]int, bx, by, bz int) int {
	return bz*counts[0]*counts[1] + by*counts[0] + bx
}

// BrickStats is the per-brick min/max (and reserved gradient extrema) the
// stats builder computes, per spec.md §3. Gradient extrema are reserved and
// set to (-Inf,+Inf) when unavailable.
type BrickStats struct {
	Min, Max         float64
	GradMin, GradMax float64
}

func computeLODChain(nx, ny, nz, maxBrick, overlap int) []LODInfo {
	var lods []LODInfo
	dx, dy, dz := nx, ny, nz
	for {
		counts := [3]int{brickCountFor(dx, maxBrick), brickCountFor(dy, maxBrick), brickCountFor(dz, maxBrick)}
		lods = append(lods, LODInfo{Domain: [3]int{dx, dy, dz}, BrickCount: counts})
		if dx <= 1 && dy <= 1 && dz <= 1 {
			break
		}
		dx, dy, dz = halve(dx), halve(dy), halve(dz)
	}
	return lods
}

func brickCountFor(dim, maxBrick int) int {
	if maxBrick <= 0 {
		maxBrick = dim
	}
	n := (dim + maxBrick - 1) / maxBrick
	if n < 1 {
		n = 1
	}
	return n
}

func halve(n int) int {
	if n <= 1 {
		return 1
	}
	return (n + 1) / 2
}

// Writer assembles a bricked, multi-LOD raster data block from a raw
// stream, in the simplified brick layout this stand-in implements: each LOD
// is stored as one contiguous slice-major buffer (the overlap/bricking
// split is tracked as geometry only, not as a physical on-disk padding
// scheme — real Tuvok UVF bricking/compression is out of this repo's
// scope, per spec.md §1).
type Writer struct {
	path      string
	meta      DomainMeta
	maxBrick  int
	overlap   int
	lods      []LODInfo
	levels    [][]byte // one flattened raw buffer per LOD, voxel-interleaved
	minMax    [][]BrickStats
	hist1D    []uint64
	hist2D    [][]uint64
}

// Create starts a new UVF writer for the given domain metadata and brick
// parameters. The caller must call WriteRaster, then the stats setters
// SetMinMax, SetHistogram1D and SetHistogram2D (see the tuvok package's
// StatsBuilder), then Finalize.
func Create(path string, meta DomainMeta, maxBrick, overlap int) (*Writer, error) {
	if maxBrick <= 0 {
		maxBrick = 128
	}
	return &Writer{
		path:     path,
		meta:     meta,
		maxBrick: maxBrick,
		overlap:  overlap,
		lods:     computeLODChain(meta.NX, meta.NY, meta.NZ, maxBrick, overlap),
	}, nil
}

// LODs returns the brick geometry of every level of detail, finest first.
func (w *Writer) LODs() []LODInfo { return w.lods }

// DomainMeta returns the metadata the writer was created with.
func (w *Writer) DomainMeta() DomainMeta { return w.meta }

// WriteRaster reads the full raw stream (slice-major, already
// endian-normalized and component-padded by the caller) and builds every
// LOD by repeated 2x box-filter downsampling of the previous level.
func (w *Writer) WriteRaster(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("uvf: read raster: %w", err)
	}
	vw := w.meta.voxelByteWidth()
	want := w.lods[0].Domain[0] * w.lods[0].Domain[1] * w.lods[0].Domain[2] * vw
	if len(raw) != want {
		return fmt.Errorf("uvf: raster length %d does not match domain %v (want %d)", len(raw), w.lods[0].Domain, want)
	}
	w.levels = make([][]byte, len(w.lods))
	w.levels[0] = raw
	for i := 1; i < len(w.lods); i++ {
		w.levels[i] = downsample2x(w.levels[i-1], w.lods[i-1].Domain, w.lods[i].Domain, w.meta)
	}
	return nil
}

// BrickVoxels returns the raw bytes of one brick at (lod, index), read out
// of the assembled raster for [StatsBuilder] to scan. The returned slice
// aliases the writer's internal buffer and must not be retained past the
// next Writer call.
func (w *Writer) BrickVoxels(key BrickKey) ([]byte, error) {
	if key.LOD < 0 || key.LOD >= len(w.lods) {
		return nil, fmt.Errorf("uvf: lod %d out of range", key.LOD)
	}
	lod := w.lods[key.LOD]
	if key.Index < 0 || key.Index >= lod.totalBricks() {
		return nil, fmt.Errorf("uvf: brick index %d out of range for lod %d", key.Index, key.LOD)
	}
	bx, by, bz := IndexToXYZ(lod.BrickCount, key.Index)
	return extractBrick(w.levels[key.LOD], lod.Domain, w.meta, bx, by, bz, w.maxBrick), nil
}

// SetMinMax installs the computed per-(lod,brick) min/max table, built by
// the tuvok package's StatsBuilder via StartNewValue/MergeData semantics.
func (w *Writer) SetMinMax(stats [][]BrickStats) { w.minMax = stats }

// SetHistogram1D installs the 1D histogram data block.
func (w *Writer) SetHistogram1D(bins []uint64) { w.hist1D = bins }

// SetHistogram2D installs the 2D histogram data block (value vs. gradient
// magnitude, abscissa sized from the 1D histogram's bin count per
// spec.md §4.3).
func (w *Writer) SetHistogram2D(bins [][]uint64) { w.hist2D = bins }

// Finalize writes the assembled raster, min/max, and histogram blocks to
// disk in a simple self-describing binary layout and closes the file.
func (w *Writer) Finalize() error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("uvf: create %s: %w", w.path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	if err := writeHeader(bw, w.meta, w.maxBrick, w.overlap); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(len(w.levels))); err != nil {
		return err
	}
	for i, level := range w.levels {
		if err := binary.Write(bw, binary.LittleEndian, int64(len(level))); err != nil {
			return err
		}
		if _, err := bw.Write(level); err != nil {
			return fmt.Errorf("uvf: write lod %d: %w", i, err)
		}
	}
	if err := writeMinMax(bw, w.minMax); err != nil {
		return err
	}
	if err := writeHistograms(bw, w.hist1D, w.hist2D); err != nil {
		return err
	}
	return bw.Flush()
}

// Reader opens a previously-finalized UVF file for export or re-bricking.
type Reader struct {
	meta   DomainMeta
	maxBrick, overlap int
	levels [][]byte
	lods   []LODInfo
	minMax [][]BrickStats
	hist1D []uint64
	hist2D [][]uint64
}

// Open reads a UVF file produced by [Writer.Finalize].
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("uvf: open %s: %w", path, err)
	}
	defer f.Close()
	br := bufio.NewReader(f)

	meta, maxBrick, overlap, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	var nLevels int32
	if err := binary.Read(br, binary.LittleEndian, &nLevels); err != nil {
		return nil, fmt.Errorf("uvf: read lod count: %w", err)
	}
	levels := make([][]byte, nLevels)
	for i := range levels {
		var n int64
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("uvf: read lod %d size: %w", i, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("uvf: read lod %d: %w", i, err)
		}
		levels[i] = buf
	}
	minMax, err := readMinMax(br)
	if err != nil {
		return nil, err
	}
	hist1D, hist2D, err := readHistograms(br)
	if err != nil {
		return nil, err
	}

	return &Reader{
		meta:     meta,
		maxBrick: maxBrick,
		overlap:  overlap,
		levels:   levels,
		lods:     computeLODChain(meta.NX, meta.NY, meta.NZ, maxBrick, overlap),
		minMax:   minMax,
		hist1D:   hist1D,
		hist2D:   hist2D,
	}, nil
}

// DomainMeta returns the volume's metadata.
func (r *Reader) DomainMeta() DomainMeta { return r.meta }

// LODs returns every level's brick geometry, finest first.
func (r *Reader) LODs() []LODInfo { return r.lods }

// HighestResolutionLOD returns the index of the finest (largest) LOD.
func (r *Reader) HighestResolutionLOD() int { return 0 }

// MinMax returns the per-(lod,brick) statistics table, if present.
func (r *Reader) MinMax() [][]BrickStats { return r.minMax }

// ExportRaw writes the given LOD's full domain, in slice-major order, to w.
// This is the "UVF's own exporter" spec.md §4.2.3 calls for when a source
// is already a UVF.
func (r *Reader) ExportRaw(lod int, w io.Writer) error {
	if lod < 0 || lod >= len(r.levels) {
		return fmt.Errorf("uvf: lod %d out of range", lod)
	}
	_, err := w.Write(r.levels[lod])
	return err
}

// BrickVoxels returns the raw bytes of one brick, for the iso extractor's
// streaming.
func (r *Reader) BrickVoxels(key BrickKey) ([]byte, error) {
	if key.LOD < 0 || key.LOD >= len(r.lods) {
		return nil, fmt.Errorf("uvf: lod %d out of range", key.LOD)
	}
	lod := r.lods[key.LOD]
	if key.Index < 0 || key.Index >= lod.totalBricks() {
		return nil, fmt.Errorf("uvf: brick index %d out of range for lod %d", key.Index, key.LOD)
	}
	bx, by, bz := IndexToXYZ(lod.BrickCount, key.Index)
	return extractBrick(r.levels[key.LOD], lod.Domain, r.meta, bx, by, bz, r.maxBrick), nil
}

func extractBrick(level []byte, domain [3]int, meta DomainMeta, bx, by, bz, maxBrick int) []byte {
	vw := meta.voxelByteWidth()
	x0, x1 := clampRange(bx*maxBrick, maxBrick, domain[0])
	y0, y1 := clampRange(by*maxBrick, maxBrick, domain[1])
	z0, z1 := clampRange(bz*maxBrick, maxBrick, domain[2])

	out := make([]byte, 0, (x1-x0)*(y1-y0)*(z1-z0)*vw)
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			rowStart := ((z*domain[1]+y)*domain[0] + x0) * vw
			rowEnd := rowStart + (x1-x0)*vw
			out = append(out, level[rowStart:rowEnd]...)
		}
	}
	return out
}

func clampRange(start, size, domain int) (int, int) {
	end := start + size
	if end > domain {
		end = domain
	}
	if start > domain {
		start = domain
	}
	return start, end
}

func downsample2x(src []byte, srcDomain, dstDomain [3]int, meta DomainMeta) []byte {
	vw := meta.voxelByteWidth()
	cw := meta.ComponentBitWidth / 8
	nc := meta.ComponentCount
	out := make([]byte, dstDomain[0]*dstDomain[1]*dstDomain[2]*vw)

	srcIdx := func(x, y, z int) int {
		if x >= srcDomain[0] {
			x = srcDomain[0] - 1
		}
		if y >= srcDomain[1] {
			y = srcDomain[1] - 1
		}
		if z >= srcDomain[2] {
			z = srcDomain[2] - 1
		}
		return ((z*srcDomain[1]+y)*srcDomain[0] + x) * vw
	}

	for z := 0; z < dstDomain[2]; z++ {
		for y := 0; y < dstDomain[1]; y++ {
			for x := 0; x < dstDomain[0]; x++ {
				dstOff := ((z*dstDomain[1]+y)*dstDomain[0] + x) * vw
				for c := 0; c < nc; c++ {
					var sum float64
					var n int
					for _, off := range [8][3]int{
						{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
						{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
					} {
						sx, sy, sz := x*2+off[0], y*2+off[1], z*2+off[2]
						if sx >= srcDomain[0] || sy >= srcDomain[1] || sz >= srcDomain[2] {
							continue
						}
						so := srcIdx(sx, sy, sz) + c*cw
						sum += readComponent(src[so:so+cw], meta)
						n++
					}
					if n == 0 {
						n = 1
					}
					writeComponent(out[dstOff+c*cw:dstOff+(c+1)*cw], sum/float64(n), meta)
				}
			}
		}
	}
	return out
}

func readComponent(b []byte, meta DomainMeta) float64 {
	w, s, f := meta.ComponentBitWidth, meta.IsSigned, meta.IsFloat
	switch {
	case f && w == 32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case f && w == 64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case w == 8 && s:
		return float64(int8(b[0]))
	case w == 8:
		return float64(b[0])
	case w == 16 && s:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case w == 16:
		return float64(binary.LittleEndian.Uint16(b))
	case w == 32 && s:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case w == 32:
		return float64(binary.LittleEndian.Uint32(b))
	case w == 64 && s:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	default:
		return float64(binary.LittleEndian.Uint64(b))
	}
}

func writeComponent(b []byte, v float64, meta DomainMeta) {
	switch {
	case meta.IsFloat && meta.ComponentBitWidth == 32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case meta.IsFloat:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case meta.ComponentBitWidth == 8:
		b[0] = byte(int64(v))
	case meta.ComponentBitWidth == 16:
		binary.LittleEndian.PutUint16(b, uint16(int64(v)))
	case meta.ComponentBitWidth == 32:
		binary.LittleEndian.PutUint32(b, uint32(int64(v)))
	default:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	}
}
