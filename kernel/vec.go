package kernel

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is a 3D point or vector over a scalar type.
type Vec3[T Scalar[T]] [3]T

// Vec2 is a 2D point or vector over a scalar type.
type Vec2[T Scalar[T]] [2]T

func (v Vec3[T]) Add(o Vec3[T]) Vec3[T] {
	return Vec3[T]{v[0].Add(o[0]), v[1].Add(o[1]), v[2].Add(o[2])}
}

func (v Vec3[T]) Sub(o Vec3[T]) Vec3[T] {
	return Vec3[T]{v[0].Sub(o[0]), v[1].Sub(o[1]), v[2].Sub(o[2])}
}

func (v Vec3[T]) Scale(s T) Vec3[T] {
	return Vec3[T]{v[0].Mul(s), v[1].Mul(s), v[2].Mul(s)}
}

func (v Vec3[T]) Quo(s T) Vec3[T] {
	return Vec3[T]{v[0].Quo(s), v[1].Quo(s), v[2].Quo(s)}
}

func (v Vec3[T]) Dot(o Vec3[T]) T {
	return v[0].Mul(o[0]).Add(v[1].Mul(o[1])).Add(v[2].Mul(o[2]))
}

func (v Vec3[T]) Cross(o Vec3[T]) Vec3[T] {
	return Vec3[T]{
		v[1].Mul(o[2]).Sub(v[2].Mul(o[1])),
		v[2].Mul(o[0]).Sub(v[0].Mul(o[2])),
		v[0].Mul(o[1]).Sub(v[1].Mul(o[0])),
	}
}

// Equal reports exact coordinate equality.
func (v Vec3[T]) Equal(o Vec3[T]) bool {
	return v[0].Cmp(o[0]) == 0 && v[1].Cmp(o[1]) == 0 && v[2].Cmp(o[2]) == 0
}

// Less orders points lexicographically by x, then y, then z.
func (v Vec3[T]) Less(o Vec3[T]) bool {
	for i := 0; i < 3; i++ {
		if c := v[i].Cmp(o[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

func (v Vec3[T]) IsZero() bool {
	return v[0].Sign() == 0 && v[1].Sign() == 0 && v[2].Sign() == 0
}

func (v Vec3[T]) IsFinite() bool {
	return v[0].IsFinite() && v[1].IsFinite() && v[2].IsFinite()
}

// Lerp returns v + t*(o-v).
func (v Vec3[T]) Lerp(o Vec3[T], t T) Vec3[T] {
	return v.Add(o.Sub(v).Scale(t))
}

// DominantAxis returns the index of the component with the largest magnitude.
func (v Vec3[T]) DominantAxis() int {
	axis := 0
	best := abs(v[0])
	for i := 1; i < 3; i++ {
		if a := abs(v[i]); a.Cmp(best) > 0 {
			best = a
			axis = i
		}
	}
	return axis
}

// Drop projects the point onto the coordinate plane orthogonal to axis, keeping the
// remaining two coordinates in cyclic order.
func (v Vec3[T]) Drop(axis int) Vec2[T] {
	return Vec2[T]{v[(axis+1)%3], v[(axis+2)%3]}
}

// Float64 converts to the float vector type used for bounding boxes and output.
func (v Vec3[T]) Float64() mgl64.Vec3 {
	return mgl64.Vec3{v[0].Float64(), v[1].Float64(), v[2].Float64()}
}

func (v Vec2[T]) Add(o Vec2[T]) Vec2[T] { return Vec2[T]{v[0].Add(o[0]), v[1].Add(o[1])} }
func (v Vec2[T]) Sub(o Vec2[T]) Vec2[T] { return Vec2[T]{v[0].Sub(o[0]), v[1].Sub(o[1])} }
func (v Vec2[T]) Scale(s T) Vec2[T]     { return Vec2[T]{v[0].Mul(s), v[1].Mul(s)} }

// Cross returns the z component of the 3D cross product.
func (v Vec2[T]) Cross(o Vec2[T]) T {
	return v[0].Mul(o[1]).Sub(v[1].Mul(o[0]))
}

func (v Vec2[T]) Equal(o Vec2[T]) bool {
	return v[0].Cmp(o[0]) == 0 && v[1].Cmp(o[1]) == 0
}

func (v Vec2[T]) Float64() mgl64.Vec2 {
	return mgl64.Vec2{v[0].Float64(), v[1].Float64()}
}

// Orient2DValue returns the signed doubled area of abc computed with the scalar arithmetic.
// Use Kernel.Orient2D for its sign; this value only feeds constructions.
func Orient2DValue[T Scalar[T]](a, b, c Vec2[T]) T {
	return b.Sub(a).Cross(c.Sub(a))
}
