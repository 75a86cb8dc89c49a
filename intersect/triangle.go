package intersect

import (
	"github.com/akmonengine/mend/kernel"
)

// Triangles computes the intersection of two closed non-degenerate triangles.
func Triangles[T kernel.Scalar[T]](k kernel.Kernel[T], a, b [3]kernel.Vec3[T]) (Object[T], error) {
	var oB, oA [3]int
	for i := 0; i < 3; i++ {
		oB[i] = k.Orient3D(a[0], a[1], a[2], b[i])
	}
	if sameSide(oB) {
		return Object[T]{}, nil
	}
	if oB == [3]int{} {
		return coplanarTriangles(k, a, b)
	}
	for i := 0; i < 3; i++ {
		oA[i] = k.Orient3D(b[0], b[1], b[2], a[i])
	}
	if sameSide(oA) {
		return Object[T]{}, nil
	}

	// Both triangles straddle or touch the other's plane: each meets the line L shared by the
	// planes in a point or a segment.
	sa, err := planeSection(k, a, oA, b)
	if err != nil {
		return Object[T]{}, err
	}
	sb, err := planeSection(k, b, oB, a)
	if err != nil {
		return Object[T]{}, err
	}

	nA := a[1].Sub(a[0]).Cross(a[2].Sub(a[0]))
	nB := b[1].Sub(b[0]).Cross(b[2].Sub(b[0]))
	dir := nA.Cross(nB)
	if dir.IsZero() || !dir.IsFinite() {
		return Object[T]{}, ErrNumericFallback
	}
	return overlapOnLine(dir.DominantAxis(), sa, sb), nil
}

// sameSide reports whether all three signs are equal and non-zero.
func sameSide(o [3]int) bool {
	return o[0] != 0 && o[0] == o[1] && o[1] == o[2]
}

// planeSection returns the part of tri lying on the plane of other: one point or the two ends
// of a segment. o holds the orientation of tri's corners with
// respect to that plane, and not all of them are zero.
func planeSection[T kernel.Scalar[T]](k kernel.Kernel[T], tri [3]kernel.Vec3[T], o [3]int, other [3]kernel.Vec3[T]) ([]kernel.Vec3[T], error) {
	n := other[1].Sub(other[0]).Cross(other[2].Sub(other[0]))
	var d [3]T
	for i := 0; i < 3; i++ {
		d[i] = n.Dot(tri[i].Sub(other[0]))
	}

	pts := make([]kernel.Vec3[T], 0, 2)
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if o[i] == 0 {
			pts = append(pts, tri[i])
		}
		if o[i]*o[j] < 0 {
			x, err := lerpAt(k, tri[i], tri[j], d[i], d[j])
			if err != nil {
				return nil, err
			}
			pts = append(pts, x)
		}
	}
	return dedupe(pts), nil
}

// overlapOnLine intersects two collinear point sets (a point or a segment each) along the
// given axis, which parametrises their common line.
func overlapOnLine[T kernel.Scalar[T]](axis int, sa, sb []kernel.Vec3[T]) Object[T] {
	if len(sa) == 0 || len(sb) == 0 {
		return Object[T]{}
	}
	aLo, aHi := extent(axis, sa)
	bLo, bHi := extent(axis, sb)

	lo := aLo
	if bLo[axis].Cmp(aLo[axis]) > 0 {
		lo = bLo
	}
	hi := aHi
	if bHi[axis].Cmp(aHi[axis]) < 0 {
		hi = bHi
	}
	switch c := lo[axis].Cmp(hi[axis]); {
	case c > 0:
		return Object[T]{}
	case c == 0:
		return NewPoint(lo)
	}
	return NewSegment(lo, hi)
}

func extent[T kernel.Scalar[T]](axis int, pts []kernel.Vec3[T]) (kernel.Vec3[T], kernel.Vec3[T]) {
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p[axis].Cmp(lo[axis]) < 0 {
			lo = p
		}
		if p[axis].Cmp(hi[axis]) > 0 {
			hi = p
		}
	}
	return lo, hi
}

// SegmentTriangle computes the intersection of the closed segment pq with a closed
// non-degenerate triangle. The result is empty, a point or a segment.
func SegmentTriangle[T kernel.Scalar[T]](k kernel.Kernel[T], p, q kernel.Vec3[T], tri [3]kernel.Vec3[T]) (Object[T], error) {
	op := k.Orient3D(tri[0], tri[1], tri[2], p)
	oq := k.Orient3D(tri[0], tri[1], tri[2], q)
	switch {
	case op == 0 && oq == 0:
		return coplanarSegment(k, p, q, tri)
	case op*oq > 0:
		return Object[T]{}, nil
	case op == 0:
		if PointInTriangle2D(k, ProjectionAxis(tri), p, tri) {
			return NewPoint(p), nil
		}
		return Object[T]{}, nil
	case oq == 0:
		if PointInTriangle2D(k, ProjectionAxis(tri), q, tri) {
			return NewPoint(q), nil
		}
		return Object[T]{}, nil
	}

	// pq crosses the plane: it pierces the triangle when it passes on the same side of all
	// three edges.
	s0 := k.Orient3D(p, q, tri[0], tri[1])
	s1 := k.Orient3D(p, q, tri[1], tri[2])
	s2 := k.Orient3D(p, q, tri[2], tri[0])
	if (s0 < 0 || s1 < 0 || s2 < 0) && (s0 > 0 || s1 > 0 || s2 > 0) {
		return Object[T]{}, nil
	}

	n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
	x, err := lerpAt(k, p, q, n.Dot(p.Sub(tri[0])), n.Dot(q.Sub(tri[0])))
	if err != nil {
		return Object[T]{}, err
	}
	return NewPoint(x), nil
}
