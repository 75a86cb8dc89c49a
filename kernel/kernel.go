package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Kernel bundles the geometric predicates over one scalar type.
// Every predicate returns -1, 0 or 1 and is exact: the sign never depends on rounding.
type Kernel[T Scalar[T]] interface {
	Name() string
	FromFloat64(float64) T
	// Orient2D is positive when a, b, c turn counter-clockwise.
	Orient2D(a, b, c Vec2[T]) int
	// Orient3D is the sign of ((b-a) x (c-a)) . (d-a): positive when d lies on the side of
	// plane abc its normal points to.
	Orient3D(a, b, c, d Vec3[T]) int
	// InCircle is positive when d lies strictly inside the circle through the
	// counter-clockwise triangle abc.
	InCircle(a, b, c, d Vec2[T]) int
}

// FilterEpsilon scales the float permanent of a determinant into the error bound of the
// filter tier. Determinants whose magnitude is at most FilterEpsilon*permanent are handed to
// the exact tier.
const FilterEpsilon = 64 * 0x1p-52

// below this permanent, products may have gone subnormal and relative bounds no longer hold.
const filterFloor = 0x1p-900

// Exact is the exact-rational kernel: exact predicates and exact constructions.
type Exact struct{}

var _ Kernel[Rat] = Exact{}

func (Exact) Name() string { return "exact" }

func (Exact) FromFloat64(f float64) Rat { return NewRat(f) }

func (Exact) Orient2D(a, b, c Vec2[Rat]) int {
	if s, ok := FilterOrient2D(a.Float64(), b.Float64(), c.Float64()); ok {
		return s
	}
	return Orient2DValue(a, b, c).Sign()
}

func (Exact) Orient3D(a, b, c, d Vec3[Rat]) int {
	if s, ok := FilterOrient3D(a.Float64(), b.Float64(), c.Float64(), d.Float64()); ok {
		return s
	}
	return orient3DValue(a, b, c, d).Sign()
}

func (Exact) InCircle(a, b, c, d Vec2[Rat]) int {
	if s, ok := FilterInCircle(a.Float64(), b.Float64(), c.Float64(), d.Float64()); ok {
		return s
	}
	return inCircleValue(a, b, c, d).Sign()
}

// Inexact is the floating kernel: exact predicates, rounded constructions.
type Inexact struct{}

var _ Kernel[Float] = Inexact{}

func (Inexact) Name() string { return "inexact" }

func (Inexact) FromFloat64(f float64) Float { return Float(f) }

func (Inexact) Orient2D(a, b, c Vec2[Float]) int {
	af, bf, cf := a.Float64(), b.Float64(), c.Float64()
	if s, ok := FilterOrient2D(af, bf, cf); ok {
		return s
	}
	pa := precise2(af)
	u := precise2(bf).Sub(pa)
	v := precise2(cf).Sub(pa)
	return u.Cross(v).Z.Sign()
}

func (Inexact) Orient3D(a, b, c, d Vec3[Float]) int {
	af, bf, cf, df := a.Float64(), b.Float64(), c.Float64(), d.Float64()
	if s, ok := FilterOrient3D(af, bf, cf, df); ok {
		return s
	}
	pa := precise3(af)
	n := precise3(bf).Sub(pa).Cross(precise3(cf).Sub(pa))
	return n.Dot(precise3(df).Sub(pa)).Sign()
}

func (Inexact) InCircle(a, b, c, d Vec2[Float]) int {
	af, bf, cf, df := a.Float64(), b.Float64(), c.Float64(), d.Float64()
	if s, ok := FilterInCircle(af, bf, cf, df); ok {
		return s
	}
	pd := precise2(df)
	lift := func(p mgl64.Vec2) r3.PreciseVector {
		q := precise2(p).Sub(pd)
		return r3.PreciseVector{X: q.X, Y: q.Y, Z: q.Dot(q)}
	}
	la, lb, lc := lift(af), lift(bf), lift(cf)
	return la.Dot(lb.Cross(lc)).Sign()
}

func precise2(p mgl64.Vec2) r3.PreciseVector {
	return r3.PreciseVectorFromVector(r3.Vector{X: p[0], Y: p[1]})
}

func precise3(p mgl64.Vec3) r3.PreciseVector {
	return r3.PreciseVectorFromVector(r3.Vector{X: p[0], Y: p[1], Z: p[2]})
}

func orient3DValue[T Scalar[T]](a, b, c, d Vec3[T]) T {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

func inCircleValue[T Scalar[T]](a, b, c, d Vec2[T]) T {
	ad, bd, cd := a.Sub(d), b.Sub(d), c.Sub(d)
	al := ad[0].Mul(ad[0]).Add(ad[1].Mul(ad[1]))
	bl := bd[0].Mul(bd[0]).Add(bd[1].Mul(bd[1]))
	cl := cd[0].Mul(cd[0]).Add(cd[1].Mul(cd[1]))
	return al.Mul(bd.Cross(cd)).Add(bl.Mul(cd.Cross(ad))).Add(cl.Mul(ad.Cross(bd)))
}

// certify turns a float determinant and its permanent into a filter answer.
func certify(det, perm, eps float64) (int, bool) {
	if math.IsNaN(det) || math.IsInf(det, 0) || math.IsInf(perm, 0) || math.IsNaN(perm) {
		return 0, false
	}
	if perm < filterFloor {
		return 0, false
	}
	bound := eps * perm
	switch {
	case det > bound:
		return 1, true
	case det < -bound:
		return -1, true
	}
	return 0, false
}

// FilterOrient2D evaluates Orient2D in float64. The second result is false when the sign
// cannot be certified and the exact tier must decide. The bound also absorbs the rounding
// of rational coordinates to float64.
func FilterOrient2D(a, b, c mgl64.Vec2) (int, bool) {
	det := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	perm := (math.Abs(b[0])+math.Abs(a[0]))*(math.Abs(c[1])+math.Abs(a[1])) +
		(math.Abs(b[1])+math.Abs(a[1]))*(math.Abs(c[0])+math.Abs(a[0]))
	return certify(det, perm, FilterEpsilon)
}

// FilterOrient3D is the filter tier of Orient3D.
func FilterOrient3D(a, b, c, d mgl64.Vec3) (int, bool) {
	u, v, w := b.Sub(a), c.Sub(a), d.Sub(a)
	det := u.Cross(v).Dot(w)

	var mu, mv, mw mgl64.Vec3
	for i := 0; i < 3; i++ {
		mu[i] = math.Abs(b[i]) + math.Abs(a[i])
		mv[i] = math.Abs(c[i]) + math.Abs(a[i])
		mw[i] = math.Abs(d[i]) + math.Abs(a[i])
	}
	perm := mw[0]*(mu[1]*mv[2]+mu[2]*mv[1]) +
		mw[1]*(mu[2]*mv[0]+mu[0]*mv[2]) +
		mw[2]*(mu[0]*mv[1]+mu[1]*mv[0])
	return certify(det, perm, FilterEpsilon)
}

// FilterInCircle is the filter tier of InCircle.
func FilterInCircle(a, b, c, d mgl64.Vec2) (int, bool) {
	ad, bd, cd := a.Sub(d), b.Sub(d), c.Sub(d)
	al := ad[0]*ad[0] + ad[1]*ad[1]
	bl := bd[0]*bd[0] + bd[1]*bd[1]
	cl := cd[0]*cd[0] + cd[1]*cd[1]
	det := al*(bd[0]*cd[1]-cd[0]*bd[1]) +
		bl*(cd[0]*ad[1]-ad[0]*cd[1]) +
		cl*(ad[0]*bd[1]-bd[0]*ad[1])

	m := func(p mgl64.Vec2) (float64, float64) {
		return math.Abs(p[0]) + math.Abs(d[0]), math.Abs(p[1]) + math.Abs(d[1])
	}
	ax, ay := m(a)
	bx, by := m(b)
	cx, cy := m(c)
	perm := (ax*ax+ay*ay)*(bx*cy+cx*by) +
		(bx*bx+by*by)*(cx*ay+ax*cy) +
		(cx*cx+cy*cy)*(ax*by+bx*ay)
	return certify(det, perm, 2*FilterEpsilon)
}
