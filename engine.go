package mend

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// Engine finds and resolves intersections between the faces of a mesh. The number type is
// chosen by the kernel: kernel.Exact builds exact rational geometry, kernel.Inexact has exact
// predicates and floating point constructions.
//
// An Engine runs one pipeline at a time: Resolve and ResolveMeshes must not be called
// concurrently on the same Engine, nor may Events be subscribed to during a run.
type Engine[T kernel.Scalar[T]] struct {
	k    kernel.Kernel[T]
	opts Options

	Events Events
}

// NewEngine validates opts and fills in the defaults.
func NewEngine[T kernel.Scalar[T]](k kernel.Kernel[T], opts Options) (*Engine[T], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine[T]{
		k:      k,
		opts:   opts.withDefaults(),
		Events: NewEvents(),
	}, nil
}

// Options returns the resolved options.
func (e *Engine[T]) Options() Options {
	return e.opts
}

// Resolve runs the whole pipeline on m.
func (e *Engine[T]) Resolve(ctx context.Context, m Mesh[T]) (Result[T], error) {
	return e.run(ctx, m, nil)
}

// ResolveMeshes runs the pipeline on a and b together. Faces of b are numbered after the
// faces of a and Result.Source tells them apart. With CrossOnly, only pairs made of one face
// of each mesh are considered.
func (e *Engine[T]) ResolveMeshes(ctx context.Context, a, b Mesh[T]) (Result[T], error) {
	m, source := Concat(a, b)
	return e.run(ctx, m, source)
}

// Detect reports the intersecting face pairs of a float mesh using exact predicates on the
// float coordinates. No mesh is produced.
func Detect(ctx context.Context, vertices []mgl64.Vec3, faces [][3]int, opts Options) (Result[kernel.Float], error) {
	k := kernel.Inexact{}
	m, err := FromFloat64[kernel.Float](k, vertices, faces)
	if err != nil {
		return Result[kernel.Float]{}, err
	}
	opts.DetectOnly = true
	e, err := NewEngine[kernel.Float](k, opts)
	if err != nil {
		return Result[kernel.Float]{}, err
	}
	return e.Resolve(ctx, m)
}

// Resolve repairs a float mesh with exact rational arithmetic.
func Resolve(ctx context.Context, vertices []mgl64.Vec3, faces [][3]int, opts Options) (Result[kernel.Rat], error) {
	k := kernel.Exact{}
	m, err := FromFloat64[kernel.Rat](k, vertices, faces)
	if err != nil {
		return Result[kernel.Rat]{}, err
	}
	e, err := NewEngine[kernel.Rat](k, opts)
	if err != nil {
		return Result[kernel.Rat]{}, err
	}
	return e.Resolve(ctx, m)
}

func (e *Engine[T]) run(ctx context.Context, m Mesh[T], source []int) (Result[T], error) {
	logger := e.opts.Logger
	var res Result[T]
	// events of a failed run are never delivered
	e.Events.discard()
	defer e.Events.discard()

	// Phase 1: triangle soup
	start := time.Now()
	if err := m.Validate(); err != nil {
		return res, err
	}
	triangles, err := buildTriangles(e.k, m, e.opts.Workers)
	if err != nil {
		return res, err
	}
	live := soup.Live(triangles)
	res.Timings.Build = time.Since(start)
	logger.Debugw("phase done", "phase", "build", "duration", res.Timings.Build,
		"faces", len(triangles), "degenerate", len(triangles)-len(live))

	// Phase 2: broad phase streaming into the narrow phase
	start = time.Now()
	phaseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	boxes := lo.Map(live, func(f int, _ int) soup.AABB { return triangles[f].Box })
	pairs := NewBroadPhase(e.opts.BroadPhase, e.opts.GridCellSize).FindPairs(phaseCtx, live, boxes, e.opts.Workers)
	pairs = timed(pairs, start, &res.Timings.BroadPhase)
	if source != nil && e.opts.CrossOnly {
		pairs = filterPairs(phaseCtx, pairs, func(p CandidatePair) bool {
			return source[p.FaceA] != source[p.FaceB]
		})
	}

	narrow := NewNarrowPhase(e.k, triangles, e.opts.FirstOnly)
	if err := narrow.Run(phaseCtx, pairs, e.opts.Workers, cancel); err != nil {
		return res, errors.Wrap(err, "narrow phase")
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Timings.NarrowPhase = time.Since(start)
	logger.Debugw("phase done", "phase", "narrow_phase", "duration", res.Timings.NarrowPhase,
		"broad_phase", res.Timings.BroadPhase)

	offending := narrow.Offending
	res.Pairs = offending.Pairs()
	res.Count = len(res.Pairs)
	res.Status.NumericFallbacks = narrow.Fallbacks()
	res.Status.Degraded = res.Status.NumericFallbacks > 0
	e.Events.recordPairs(res.Pairs)
	if narrow.Aborted() {
		res.Status.FirstHit = true
		e.Events.emit(FirstHitAbortEvent{FaceA: res.Pairs[0][0], FaceB: res.Pairs[0][1]})
	}
	if e.opts.DetectOnly || e.opts.FirstOnly {
		e.finish(&res)
		return res, nil
	}

	// Phase 3: coplanar clusters
	start = time.Now()
	patches := Clusterize(e.k, triangles, offending)
	res.Timings.Cluster = time.Since(start)
	logger.Debugw("phase done", "phase", "cluster", "duration", res.Timings.Cluster, "patches", len(patches))

	// Phase 4: constrained triangulations
	start = time.Now()
	meshes, err := Retriangulate(ctx, e.k, triangles, offending, patches, e.opts.Workers)
	if err != nil {
		return res, errors.Wrap(err, "retriangulation")
	}
	res.Timings.Retriangulate = time.Since(start)
	logger.Debugw("phase done", "phase", "retriangulate", "duration", res.Timings.Retriangulate)

	// Phase 5: stitching
	start = time.Now()
	touched := make([]bool, len(triangles))
	for _, f := range offending.Faces() {
		touched[f] = true
	}
	untouched := lo.Filter(lo.Range(len(triangles)), func(f int, _ int) bool { return !touched[f] })

	stitcher := NewStitcher(e.k, m.Vertices, triangles, e.opts.Debug)
	stitcher.CopyFaces(untouched)
	var errs []error
	for i, patch := range patches {
		n, err := stitcher.Patch(patch, meshes[i])
		if err != nil {
			logger.Warnw("patch kept unchanged", "seed", patch.Seed(), "members", len(patch.Members), "error", err)
			errs = append(errs, err)
			e.Events.emit(PatchFailedEvent{Members: patch.Members, Err: err})
			continue
		}
		e.Events.emit(PatchResolvedEvent{Members: patch.Members, Triangles: n})
	}

	res.Vertices, res.Faces, res.BirthFaces = stitcher.Vertices, stitcher.Faces, stitcher.BirthFaces
	if e.opts.StitchAll {
		res.Vertices, res.Faces = StitchAll(res.Vertices, res.Faces)
		res.IdentityMap = lo.Range(len(res.Vertices))
	} else {
		res.IdentityMap = IdentityMap(res.Vertices)
	}
	if source != nil {
		res.Source = lo.Map(res.BirthFaces, func(f int, _ int) int { return source[f] })
	}
	res.Status.Err = combine(errs)
	res.Status.Degraded = res.Status.Degraded || len(errs) > 0
	res.Timings.Stitch = time.Since(start)
	logger.Debugw("phase done", "phase", "stitch", "duration", res.Timings.Stitch)

	e.finish(&res)
	return res, nil
}

func (e *Engine[T]) finish(res *Result[T]) {
	e.opts.Logger.Infow("intersections",
		"pairs", res.Count,
		"first_hit", res.Status.FirstHit,
		"degraded", res.Status.Degraded,
		"faces", len(res.Faces),
		"vertices", len(res.Vertices),
	)
	e.Events.flush()
}

// timed forwards a pair stream and stores its duration once it closes.
func timed(in <-chan CandidatePair, start time.Time, d *time.Duration) <-chan CandidatePair {
	out := make(chan CandidatePair, cap(in))
	go func() {
		defer close(out)
		for p := range in {
			out <- p
		}
		*d = time.Since(start)
	}()
	return out
}
