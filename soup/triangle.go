package soup

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/mend/kernel"
)

// Triangle is one face of the input mesh, resolved to coordinates in the kernel's number type.
// Triangles are built once and only read afterwards.
type Triangle[T kernel.Scalar[T]] struct {
	// Face is the index of the originating face.
	Face int
	// Indices are the input vertex indices of the corners.
	Indices [3]int
	V       [3]kernel.Vec3[T]
	Box     AABB
	// Degenerate marks collinear or coincident corners.
	Degenerate bool
}

// Edge returns the corners of the edge opposite to corner i, in winding order.
func (t Triangle[T]) Edge(i int) (kernel.Vec3[T], kernel.Vec3[T]) {
	return t.V[(i+1)%3], t.V[(i+2)%3]
}

// OnPlane reports whether p lies exactly on the supporting plane of t.
func OnPlane[T kernel.Scalar[T]](k kernel.Kernel[T], t Triangle[T], p kernel.Vec3[T]) bool {
	return k.Orient3D(t.V[0], t.V[1], t.V[2], p) == 0
}

// Coplanar reports whether every corner of b lies on the supporting plane of a.
func Coplanar[T kernel.Scalar[T]](k kernel.Kernel[T], a, b Triangle[T]) bool {
	for _, p := range b.V {
		if !OnPlane(k, a, p) {
			return false
		}
	}
	return true
}

// IsDegenerate reports whether the three points are collinear: the triangle projects to a
// zero-area triangle on all three coordinate planes.
func IsDegenerate[T kernel.Scalar[T]](k kernel.Kernel[T], a, b, c kernel.Vec3[T]) bool {
	for axis := 0; axis < 3; axis++ {
		if k.Orient2D(a.Drop(axis), b.Drop(axis), c.Drop(axis)) != 0 {
			return false
		}
	}
	return true
}

// bounds computes a box guaranteed to contain the exact corners. Coordinates that do not
// round-trip through float64 are widened by one ulp outward.
func bounds[T kernel.Scalar[T]](k kernel.Kernel[T], v [3]kernel.Vec3[T]) AABB {
	box := EmptyAABB()
	for _, p := range v {
		var lo, hi mgl64.Vec3
		for i := 0; i < 3; i++ {
			f := p[i].Float64()
			lo[i], hi[i] = f, f
			if c := k.FromFloat64(f).Cmp(p[i]); c > 0 {
				lo[i] = math.Nextafter(f, math.Inf(-1))
			} else if c < 0 {
				hi[i] = math.Nextafter(f, math.Inf(1))
			}
		}
		box = box.Extend(lo).Extend(hi)
	}
	return box
}
