// Package intersect computes exact intersections between triangles, segments and points.
//
// Decisions are always taken with the kernel's exact predicates. Intersection points are
// constructed with the scalar arithmetic: exactly for rationals, rounded for floats. A
// construction that cannot be carried out in floating point returns ErrNumericFallback, and
// the caller treats the sub-test as reporting no intersection.
package intersect

import (
	"errors"

	"github.com/akmonengine/mend/kernel"
)

// ErrNumericFallback reports a construction whose floating point evaluation failed.
var ErrNumericFallback = errors.New("intersect: construction is not representable")

// Kind tags the shape of an intersection.
type Kind uint8

const (
	Empty Kind = iota
	Point
	Segment
	Polygon
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Segment:
		return "segment"
	case Polygon:
		return "polygon"
	}
	return "empty"
}

// Object is an intersection: a point, a segment, or a convex coplanar polygon whose points
// are listed in boundary order. Objects are immutable once returned.
type Object[T kernel.Scalar[T]] struct {
	Kind   Kind
	Points []kernel.Vec3[T]
}

func NewPoint[T kernel.Scalar[T]](p kernel.Vec3[T]) Object[T] {
	return Object[T]{Kind: Point, Points: []kernel.Vec3[T]{p}}
}

func NewSegment[T kernel.Scalar[T]](p, q kernel.Vec3[T]) Object[T] {
	return Object[T]{Kind: Segment, Points: []kernel.Vec3[T]{p, q}}
}

func (o Object[T]) IsEmpty() bool { return o.Kind == Empty }

// Edges lists the boundary edges: none for a point, one for a segment, a closed chain for a
// polygon.
func (o Object[T]) Edges() [][2]kernel.Vec3[T] {
	switch o.Kind {
	case Segment:
		return [][2]kernel.Vec3[T]{{o.Points[0], o.Points[1]}}
	case Polygon:
		edges := make([][2]kernel.Vec3[T], len(o.Points))
		for i := range o.Points {
			edges[i] = [2]kernel.Vec3[T]{o.Points[i], o.Points[(i+1)%len(o.Points)]}
		}
		return edges
	}
	return nil
}

// Equal reports whether both objects have the same kind and the same point set. Polygon
// boundaries may start at a different point or run in the opposite direction.
func (o Object[T]) Equal(other Object[T]) bool {
	if o.Kind != other.Kind || len(o.Points) != len(other.Points) {
		return false
	}
	for _, p := range o.Points {
		found := false
		for _, q := range other.Points {
			if p.Equal(q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// reduce turns the points collected by a clipping or section step into an Object. Points are
// coplanar and, when more than two, the vertices of a convex polygon in boundary order.
// axis is a projection under which the points' plane is not degenerate.
func reduce[T kernel.Scalar[T]](k kernel.Kernel[T], axis int, pts []kernel.Vec3[T]) Object[T] {
	pts = dedupe(pts)
	switch len(pts) {
	case 0:
		return Object[T]{}
	case 1:
		return NewPoint(pts[0])
	case 2:
		return segmentOf(pts[0], pts[1])
	}

	p0, p1 := pts[0].Drop(axis), pts[1].Drop(axis)
	collinear := true
	for _, p := range pts[2:] {
		if k.Orient2D(p0, p1, p.Drop(axis)) != 0 {
			collinear = false
			break
		}
	}
	if collinear {
		lo, hi := pts[0], pts[0]
		for _, p := range pts[1:] {
			if p.Less(lo) {
				lo = p
			}
			if hi.Less(p) {
				hi = p
			}
		}
		return segmentOf(lo, hi)
	}

	// drop vertices lying on the segment between their neighbours
	out := make([]kernel.Vec3[T], 0, len(pts))
	for i, p := range pts {
		prev := pts[(i+len(pts)-1)%len(pts)]
		next := pts[(i+1)%len(pts)]
		if k.Orient2D(prev.Drop(axis), p.Drop(axis), next.Drop(axis)) != 0 {
			out = append(out, p)
		}
	}
	return Object[T]{Kind: Polygon, Points: out}
}

func segmentOf[T kernel.Scalar[T]](p, q kernel.Vec3[T]) Object[T] {
	if p.Equal(q) {
		return NewPoint(p)
	}
	return NewSegment(p, q)
}

// dedupe removes consecutive duplicates, including the wrap from last to first.
func dedupe[T kernel.Scalar[T]](pts []kernel.Vec3[T]) []kernel.Vec3[T] {
	out := make([]kernel.Vec3[T], 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].Equal(out[0]) {
		out = out[:len(out)-1]
	}
	return out
}
