// Copyright 2024 The Tuvok Authors
// SPDX-License-Identifier: MIT

package tuvok

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/wcoco/tuvok/uvf"
)

// parserSession wraps govaluate's expression object with the "set-string ->
// parse -> read-tree -> free" lifecycle spec.md §9's design note describes.
// govaluate itself holds no global state, but a single package mutex still
// serializes acquire/release so the wrapper is ready to serialize calls if
// this pipeline is ever run concurrently.
type parserSession struct {
	mu   sync.Mutex
	expr *govaluate.EvaluableExpression
}

var sharedParser parserSession

func (p *parserSession) acquire(src string) (*govaluate.EvaluableExpression, error) {
	p.mu.Lock()
	expr, err := govaluate.NewEvaluableExpression(src)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.expr = expr
	return expr, nil
}

func (p *parserSession) release() {
	p.expr = nil
	p.mu.Unlock()
}

// ExpressionContext binds a name to a source UVF within a multi-volume
// expression, per spec.md §4.6. Scale and Bias rescale decoded voxel values
// before they're exposed to the expression, mirroring Merge's per-source
// scale/bias.
type ExpressionContext struct {
	Name        string
	Path        string
	Scale, Bias float64
}

// ExpressionEvaluator implements spec.md §4.6's 5 operations: mergeability
// check, widest-common-type resolution, brick co-iteration, per-voxel
// expression evaluation, and output finalization through StatsBuilder.
type ExpressionEvaluator struct {
	io *IOManager
}

// NewExpressionEvaluator returns an evaluator bound to io. The output UVF's
// brick size and overlap are the maxBrick and overlap passed to Evaluate.
func NewExpressionEvaluator(io *IOManager) *ExpressionEvaluator {
	return &ExpressionEvaluator{io: io}
}

// Evaluate implements spec.md §4.6 operations 1-5 in order:
//  1. open every context's source and check mergeability (sameDynamicRange);
//  2. resolve the widest common VoxelType across them;
//  3. co-iterate every source's exported raster in lockstep;
//  4. evaluate expr once per voxel, with each context's name bound to its
//     rescaled decoded value;
//  5. finalize the output UVF's stats through StatsBuilder.
func (e *ExpressionEvaluator) Evaluate(expr string, contexts []ExpressionContext, target string, maxBrick, overlap int) (err error) {
	if len(contexts) == 0 {
		return newError("Evaluate", KindIncompatibleInputs, fmt.Errorf("no contexts"))
	}

	readers := make([]*uvfReaderCtx, len(contexts))
	for i, c := range contexts {
		r, oerr := openUVF(c.Path)
		if oerr != nil {
			return newError("Evaluate", KindReadFailure, oerr)
		}
		meta := fromDomainMeta(r.DomainMeta())
		vt, ok := meta.VoxelType()
		if !ok {
			return newError("Evaluate", KindUnsupportedType, fmt.Errorf("context %q has an unsupported voxel type", c.Name))
		}
		readers[i] = &uvfReaderCtx{ctx: c, r: r, meta: meta, vt: vt}
	}

	first := readers[0].meta
	for _, rc := range readers[1:] {
		if !sameDynamicRange(first, rc.meta) {
			return newError("Evaluate", KindIncompatibleInputs,
				fmt.Errorf("context %q is not mergeable with %q (domain/type mismatch)", rc.ctx.Name, readers[0].ctx.Name))
		}
	}

	types := make([]VoxelType, len(readers))
	for i, rc := range readers {
		types[i] = rc.vt
	}
	outVT, ok := widestCommon(types)
	if !ok {
		return newError("Evaluate", KindUnsupportedType, fmt.Errorf("could not resolve a common voxel type"))
	}

	parsed, perr := sharedParser.acquire(expr)
	if perr != nil {
		return newError("Evaluate", KindSyntaxError, &SyntaxError{Expr: expr, Err: perr})
	}
	defer sharedParser.release()

	outMeta := first
	outMeta.ComponentBitWidth = outVT.ByteWidth() * 8
	outMeta.IsSigned = outVT.IsSigned()
	outMeta.IsFloat = outVT.IsFloat()
	outMeta.ComponentCount = 1
	outMeta.ValueSemantic = "expression result"

	w, werr := newUVFWriter(target, outMeta, maxBrick, overlap)
	if werr != nil {
		return newError("Evaluate", KindWriteFailure, werr)
	}

	raw, rerr := evaluateVoxels(parsed, readers, outVT)
	if rerr != nil {
		return newError("Evaluate", KindIncompatibleInputs, rerr)
	}
	if err := w.WriteRaster(raw); err != nil {
		return newError("Evaluate", KindWriteFailure, err)
	}

	sb := NewStatsBuilder(w)
	if serr := sb.Build(); serr != nil {
		return serr.(*Error)
	}
	if ferr := w.Finalize(); ferr != nil {
		return newError("Evaluate", KindWriteFailure, ferr)
	}
	return nil
}

type uvfReaderCtx struct {
	ctx  ExpressionContext
	r    *uvf.Reader
	meta VolumeMeta
	vt   VoxelType
}

// evaluateVoxels co-iterates every reader's highest-resolution LOD,
// exported to its full slice-major raster (operation 3 — bricks are the
// unit of I/O the writer/reader stream internally, but exporting the whole
// LOD up front lets us walk sources in lockstep without reconstructing each
// brick's geometric placement), decodes and rescales each source's voxel,
// evaluates expr with those bindings (operation 4), and encodes the result
// as outVT, returning a reader over the assembled raster.
func evaluateVoxels(expr *govaluate.EvaluableExpression, readers []*uvfReaderCtx, outVT VoxelType) (*bytes.Reader, error) {
	rasters := make([][]byte, len(readers))
	for i, rc := range readers {
		var buf bytes.Buffer
		if err := rc.r.ExportRaw(rc.r.HighestResolutionLOD(), &buf); err != nil {
			return nil, err
		}
		rasters[i] = buf.Bytes()
	}

	voxelCount := readers[0].meta.VoxelCount()
	out := make([]byte, voxelCount*outVT.ByteWidth())

	params := make(govaluate.MapParameters, len(readers))
	for v := 0; v < voxelCount; v++ {
		for i, rc := range readers {
			x := decodeVoxel(rc.vt, rasters[i], v)
			params[rc.ctx.Name] = rc.ctx.Scale*x + rc.ctx.Bias
		}
		result, eerr := expr.Eval(params)
		if eerr != nil {
			return nil, fmt.Errorf("evaluate: %w", eerr)
		}
		fval, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("evaluate: expression did not produce a numeric result (got %T)", result)
		}
		encodeVoxel(outVT, out, v, fval)
	}
	return bytes.NewReader(out), nil
}
