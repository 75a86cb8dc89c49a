package mend

import (
	"context"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// NarrowPhase classifies candidate pairs and records the intersecting ones.
type NarrowPhase[T kernel.Scalar[T]] struct {
	k         kernel.Kernel[T]
	triangles []soup.Triangle[T]
	firstOnly bool

	Offending *OffendingMap[T]
	// hits counts positive classifications, including the ones discarded after a first-only
	// abort.
	hits      atomic.Int64
	fallbacks atomic.Int64
	aborted   atomic.Bool
}

func NewNarrowPhase[T kernel.Scalar[T]](k kernel.Kernel[T], triangles []soup.Triangle[T], firstOnly bool) *NarrowPhase[T] {
	return &NarrowPhase[T]{
		k:         k,
		triangles: triangles,
		firstOnly: firstOnly,
		Offending: NewOffendingMap[T](),
	}
}

// Run drains pairs on workersCount goroutines. With first-only set, the first recorded pair
// calls abort and the remaining pairs are skipped.
func (n *NarrowPhase[T]) Run(ctx context.Context, pairs <-chan CandidatePair, workersCount int, abort context.CancelFunc) error {
	g, gctx := errgroup.WithContext(ctx)

	for range max(1, workersCount) {
		g.Go(func() error {
			for p := range pairs {
				if gctx.Err() != nil {
					continue
				}
				obj, ok := n.Classify(p.FaceA, p.FaceB)
				if !ok {
					continue
				}
				if n.firstOnly {
					if n.hits.Inc() != 1 {
						continue
					}
					n.commit(p, obj)
					n.aborted.Store(true)
					abort()
					continue
				}
				n.hits.Inc()
				n.commit(p, obj)
			}
			return nil
		})
	}

	return g.Wait()
}

func (n *NarrowPhase[T]) commit(p CandidatePair, obj intersect.Object[T]) {
	n.Offending.Record(p.FaceA, p.FaceB, obj)
	n.Offending.AddPair(p.FaceA, p.FaceB)
}

// Aborted reports whether a first-only run stopped early.
func (n *NarrowPhase[T]) Aborted() bool {
	return n.aborted.Load()
}

// Fallbacks returns the number of constructions treated as misses.
func (n *NarrowPhase[T]) Fallbacks() int {
	return int(n.fallbacks.Load())
}

// Classify decides whether faces fa and fb intersect beyond the vertices they share, and
// returns the intersection to record. The result does not depend on the argument order.
func (n *NarrowPhase[T]) Classify(fa, fb int) (intersect.Object[T], bool) {
	a, b := n.triangles[fa], n.triangles[fb]
	if a.Degenerate || b.Degenerate {
		return intersect.Object[T]{}, false
	}
	if fb < fa {
		a, b = b, a
	}

	shared := sharedCorners(a, b)
	switch len(shared) {
	case 3:
		// duplicate faces
		return intersect.Object[T]{}, false
	case 2:
		return n.doubleShared(a, b, shared)
	case 1:
		if soup.Coplanar(n.k, a, b) {
			// the overlap may be a polygon
			return n.full(a, b, func(o intersect.Object[T]) bool {
				return o.Kind == intersect.Segment || o.Kind == intersect.Polygon
			})
		}
		if obj, ok := n.singleShared(a, b, shared[0][0]); ok {
			return obj, true
		}
		return n.singleShared(b, a, shared[0][1])
	}

	return n.full(a, b, func(o intersect.Object[T]) bool { return !o.IsEmpty() })
}

// full runs the exact triangle-triangle intersection and keeps results accepted by keep.
func (n *NarrowPhase[T]) full(a, b soup.Triangle[T], keep func(intersect.Object[T]) bool) (intersect.Object[T], bool) {
	obj, err := intersect.Triangles(n.k, a.V, b.V)
	if err != nil {
		n.fallbacks.Inc()
		return intersect.Object[T]{}, false
	}
	if !keep(obj) {
		return intersect.Object[T]{}, false
	}
	return obj, true
}

// sharedCorners pairs up corners of a and b holding the same vertex index or the same point.
func sharedCorners[T kernel.Scalar[T]](a, b soup.Triangle[T]) [][2]int {
	var shared [][2]int
	for ca := 0; ca < 3; ca++ {
		for cb := 0; cb < 3; cb++ {
			if a.Indices[ca] == b.Indices[cb] || a.V[ca].Equal(b.V[cb]) {
				shared = append(shared, [2]int{ca, cb})
				break
			}
		}
	}
	return shared
}

// doubleShared handles faces sharing an edge. They only intersect when they are coplanar and
// fold over each other: a free corner inside the other face, or free edges crossing.
func (n *NarrowPhase[T]) doubleShared(a, b soup.Triangle[T], shared [][2]int) (intersect.Object[T], bool) {
	k := n.k
	oppA := 3 - shared[0][0] - shared[1][0]
	oppB := 3 - shared[0][1] - shared[1][1]
	if !soup.OnPlane(k, a, b.V[oppB]) {
		return intersect.Object[T]{}, false
	}

	axis := intersect.ProjectionAxis(a.V)
	a0, a1 := a.Edge(shared[0][0])
	b0, b1 := b.Edge(shared[1][1])
	a2, a3 := a.Edge(shared[1][0])
	b2, b3 := b.Edge(shared[0][1])
	folded := intersect.PointInTriangle2D(k, axis, a.V[oppA], b.V) ||
		intersect.PointInTriangle2D(k, axis, b.V[oppB], a.V) ||
		intersect.SegmentsIntersect2D(k, axis, a0, a1, b0, b1) ||
		intersect.SegmentsIntersect2D(k, axis, a2, a3, b2, b3)
	if !folded {
		return intersect.Object[T]{}, false
	}

	return n.full(a, b, func(o intersect.Object[T]) bool { return o.Kind == intersect.Polygon })
}

// singleShared tests the edge of a opposite its shared corner va against b. A point hit p
// means the faces meet along the segment from the shared vertex to p.
func (n *NarrowPhase[T]) singleShared(a, b soup.Triangle[T], va int) (intersect.Object[T], bool) {
	p, q := a.Edge(va)
	hit, err := intersect.SegmentTriangle(n.k, p, q, b.V)
	if err != nil {
		n.fallbacks.Inc()
		return intersect.Object[T]{}, false
	}
	switch hit.Kind {
	case intersect.Point:
		return intersect.NewSegment(a.V[va], hit.Points[0]), true
	case intersect.Segment:
		return n.full(a, b, func(o intersect.Object[T]) bool { return !o.IsEmpty() })
	}
	return intersect.Object[T]{}, false
}
