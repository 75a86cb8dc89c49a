package intersect

import (
	"github.com/akmonengine/mend/kernel"
)

// ProjectionAxis returns the coordinate to drop when projecting the plane of tri to 2D: the
// dominant component of its normal. The projection is affine, so parameters along segments
// are the same in 2D and 3D.
func ProjectionAxis[T kernel.Scalar[T]](tri [3]kernel.Vec3[T]) int {
	return tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).DominantAxis()
}

// PointInTriangle2D reports whether p lies in the closed projected triangle.
func PointInTriangle2D[T kernel.Scalar[T]](k kernel.Kernel[T], axis int, p kernel.Vec3[T], tri [3]kernel.Vec3[T]) bool {
	a, b, c, q := tri[0].Drop(axis), tri[1].Drop(axis), tri[2].Drop(axis), p.Drop(axis)
	s := k.Orient2D(a, b, c)
	return k.Orient2D(a, b, q)*s >= 0 && k.Orient2D(b, c, q)*s >= 0 && k.Orient2D(c, a, q)*s >= 0
}

// SegmentsIntersect2D reports whether closed segments pq and rs meet in the projection.
func SegmentsIntersect2D[T kernel.Scalar[T]](k kernel.Kernel[T], axis int, p, q, r, s kernel.Vec3[T]) bool {
	p2, q2, r2, s2 := p.Drop(axis), q.Drop(axis), r.Drop(axis), s.Drop(axis)
	o1 := k.Orient2D(p2, q2, r2)
	o2 := k.Orient2D(p2, q2, s2)
	o3 := k.Orient2D(r2, s2, p2)
	o4 := k.Orient2D(r2, s2, q2)
	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}
	return o1 == 0 && between(p2, q2, r2) ||
		o2 == 0 && between(p2, q2, s2) ||
		o3 == 0 && between(r2, s2, p2) ||
		o4 == 0 && between(r2, s2, q2)
}

// between reports whether c, known to be collinear with ab, lies in the closed box of ab.
func between[T kernel.Scalar[T]](a, b, c kernel.Vec2[T]) bool {
	for i := 0; i < 2; i++ {
		lo, hi := a[i], b[i]
		if lo.Cmp(hi) > 0 {
			lo, hi = hi, lo
		}
		if c[i].Cmp(lo) < 0 || c[i].Cmp(hi) > 0 {
			return false
		}
	}
	return true
}

// clipper clips convex point chains against the half-planes of a projected triangle,
// Sutherland-Hodgman style. Points keep their 3D coordinates; only the decisions are 2D.
type clipper[T kernel.Scalar[T]] struct {
	k    kernel.Kernel[T]
	axis int
	in   []kernel.Vec3[T]
	out  []kernel.Vec3[T]
}

func newClipper[T kernel.Scalar[T]](k kernel.Kernel[T], axis int) *clipper[T] {
	return &clipper[T]{k: k, axis: axis}
}

// clip keeps the part of the closed convex chain subject lying inside tri.
func (c *clipper[T]) clip(subject []kernel.Vec3[T], tri [3]kernel.Vec3[T]) ([]kernel.Vec3[T], error) {
	c.in = append(c.in[:0], subject...)
	s := c.k.Orient2D(tri[0].Drop(c.axis), tri[1].Drop(c.axis), tri[2].Drop(c.axis))

	for e := 0; e < 3 && len(c.in) > 0; e++ {
		a, b := tri[e].Drop(c.axis), tri[(e+1)%3].Drop(c.axis)
		c.out = c.out[:0]
		n := len(c.in)
		for i := 0; i < n; i++ {
			p, q := c.in[(i+n-1)%n], c.in[i]
			p2, q2 := p.Drop(c.axis), q.Drop(c.axis)
			pIn := c.k.Orient2D(a, b, p2)*s >= 0
			qIn := c.k.Orient2D(a, b, q2)*s >= 0
			switch {
			case qIn && !pIn:
				x, err := crossing(c.k, a, b, p, q, p2, q2)
				if err != nil {
					return nil, err
				}
				c.out = append(c.out, x, q)
			case qIn:
				c.out = append(c.out, q)
			case pIn:
				x, err := crossing(c.k, a, b, p, q, p2, q2)
				if err != nil {
					return nil, err
				}
				c.out = append(c.out, x)
			}
		}
		c.in, c.out = c.out, c.in
	}
	return append([]kernel.Vec3[T](nil), c.in...), nil
}

// crossing returns the point where segment pq meets the line ab. The orientation values
// give the parameter directly: t = o(p) / (o(p) - o(q)).
func crossing[T kernel.Scalar[T]](k kernel.Kernel[T], a, b kernel.Vec2[T], p, q kernel.Vec3[T], p2, q2 kernel.Vec2[T]) (kernel.Vec3[T], error) {
	op := kernel.Orient2DValue(a, b, p2)
	oq := kernel.Orient2DValue(a, b, q2)
	return lerpAt(k, p, q, op, oq)
}

// lerpAt returns p + t(q-p) with t = dp / (dp - dq).
func lerpAt[T kernel.Scalar[T]](k kernel.Kernel[T], p, q kernel.Vec3[T], dp, dq T) (kernel.Vec3[T], error) {
	den := dp.Sub(dq)
	if den.Sign() == 0 || !den.IsFinite() {
		return kernel.Vec3[T]{}, ErrNumericFallback
	}
	t := dp.Quo(den)
	if !t.IsFinite() {
		return kernel.Vec3[T]{}, ErrNumericFallback
	}
	// rounded values may land outside the segment
	if t.Sign() <= 0 {
		return p, nil
	}
	if t.Cmp(k.FromFloat64(1)) >= 0 {
		return q, nil
	}
	x := p.Lerp(q, t)
	if !x.IsFinite() {
		return kernel.Vec3[T]{}, ErrNumericFallback
	}
	return x, nil
}

// coplanarTriangles intersects two triangles lying on the same plane.
func coplanarTriangles[T kernel.Scalar[T]](k kernel.Kernel[T], a, b [3]kernel.Vec3[T]) (Object[T], error) {
	axis := ProjectionAxis(a)
	pts, err := newClipper(k, axis).clip(b[:], a)
	if err != nil {
		return Object[T]{}, err
	}
	return reduce(k, axis, pts), nil
}

// coplanarSegment intersects a segment with a triangle on the same plane.
func coplanarSegment[T kernel.Scalar[T]](k kernel.Kernel[T], p, q kernel.Vec3[T], tri [3]kernel.Vec3[T]) (Object[T], error) {
	axis := ProjectionAxis(tri)
	pts, err := newClipper(k, axis).clip([]kernel.Vec3[T]{p, q}, tri)
	if err != nil {
		return Object[T]{}, err
	}
	return reduce(k, axis, pts), nil
}
