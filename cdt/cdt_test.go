package cdt

import (
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/akmonengine/mend/kernel"
)

func pt(x, y float64) kernel.Vec3[kernel.Rat] {
	return kernel.Vec3[kernel.Rat]{kernel.NewRat(x), kernel.NewRat(y), kernel.NewRat(0)}
}

// loop returns the closed chain of constraint edges through pts.
func loop(pts ...kernel.Vec3[kernel.Rat]) []ConstraintEdge[kernel.Rat] {
	edges := make([]ConstraintEdge[kernel.Rat], len(pts))
	for i := range pts {
		edges[i] = ConstraintEdge[kernel.Rat]{A: pts[i], B: pts[(i+1)%len(pts)]}
	}
	return edges
}

func indexOf(tr *Triangulation[kernel.Rat], p kernel.Vec3[kernel.Rat]) int {
	for i, v := range tr.Vertices() {
		if v.P3.Equal(p) {
			return i
		}
	}
	return -1
}

// Triangles returns every triangle not touching the super triangle, counter-clockwise in
// the projection plane.
func (tr *Triangulation[T]) Triangles() [][3]int {
	out := make([][3]int, 0, len(tr.tris))
	for _, t := range tr.tris {
		if t.v[0] < superVertices || t.v[1] < superVertices || t.v[2] < superVertices {
			continue
		}
		out = append(out, [3]int{t.v[0] - superVertices, t.v[1] - superVertices, t.v[2] - superVertices})
	}
	return out
}

// Constrained reports whether the edge between inserted vertices a and b exists and is
// constrained.
func (tr *Triangulation[T]) Constrained(a, b int) bool {
	t, i, ok := tr.findEdge(a+superVertices, b+superVertices)
	return ok && tr.tris[t].c[i]
}

// checkValid verifies orientation and that the triangles exactly cover area.
func checkValid(t *testing.T, tr *Triangulation[kernel.Rat], area kernel.Rat) {
	t.Helper()
	k := kernel.Exact{}
	verts := tr.Vertices()
	sum := kernel.NewRat(0)
	for _, tri := range tr.Triangles() {
		a, b, c := verts[tri[0]].P2, verts[tri[1]].P2, verts[tri[2]].P2
		test.That(t, k.Orient2D(a, b, c), test.ShouldEqual, 1)
		sum = sum.Add(kernel.Orient2DValue(a, b, c))
	}
	test.That(t, sum.Cmp(area.Add(area)), test.ShouldEqual, 0)
}

func TestBuildSquareWithCenter(t *testing.T) {
	corners := []kernel.Vec3[kernel.Rat]{pt(0, 0), pt(2, 0), pt(2, 2), pt(0, 2)}
	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, []kernel.Vec3[kernel.Rat]{pt(1, 1)}, loop(corners...))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Vertices(), test.ShouldHaveLength, 5)
	test.That(t, tr.Triangles(), test.ShouldHaveLength, 4)
	checkValid(t, tr, kernel.NewRat(4))
}

func TestConstraintForcesDiagonal(t *testing.T) {
	a, b, c, d := pt(0, 0), pt(2, -0.5), pt(4, 0), pt(2, 0.5)
	edges := append(loop(a, b, c, d), ConstraintEdge[kernel.Rat]{A: a, B: c})

	// without the constraint the short diagonal wins
	free, err := Build[kernel.Rat](kernel.Exact{}, 2, nil, loop(a, b, c, d))
	test.That(t, err, test.ShouldBeNil)
	_, _, hasAC := free.findEdge(indexOf(free, a)+superVertices, indexOf(free, c)+superVertices)
	test.That(t, hasAC, test.ShouldBeFalse)

	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, nil, edges)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Triangles(), test.ShouldHaveLength, 2)
	test.That(t, tr.Constrained(indexOf(tr, a), indexOf(tr, c)), test.ShouldBeTrue)
	checkValid(t, tr, kernel.NewRat(2))
}

func TestCrossingConstraints(t *testing.T) {
	corners := []kernel.Vec3[kernel.Rat]{pt(0, 0), pt(2, 0), pt(2, 2), pt(0, 2)}
	edges := append(loop(corners...),
		ConstraintEdge[kernel.Rat]{A: corners[0], B: corners[2]},
		ConstraintEdge[kernel.Rat]{A: corners[1], B: corners[3]},
	)
	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, nil, edges)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Vertices(), test.ShouldHaveLength, 5)
	test.That(t, tr.Triangles(), test.ShouldHaveLength, 4)

	center := indexOf(tr, pt(1, 1))
	test.That(t, center, test.ShouldBeGreaterThanOrEqualTo, 0)
	for _, c := range corners {
		test.That(t, tr.Constrained(indexOf(tr, c), center), test.ShouldBeTrue)
	}
	checkValid(t, tr, kernel.NewRat(4))
}

func TestConstraintThroughVertex(t *testing.T) {
	left, bottom, right, top := pt(0, 0), pt(1, -1), pt(2, 0), pt(1, 1)
	mid := pt(1, 0)
	edges := append(loop(left, bottom, right, top), ConstraintEdge[kernel.Rat]{A: left, B: right})
	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, []kernel.Vec3[kernel.Rat]{mid}, edges)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Vertices(), test.ShouldHaveLength, 5)
	test.That(t, tr.Constrained(indexOf(tr, left), indexOf(tr, mid)), test.ShouldBeTrue)
	test.That(t, tr.Constrained(indexOf(tr, mid), indexOf(tr, right)), test.ShouldBeTrue)
	checkValid(t, tr, kernel.NewRat(2))
}

func TestConstraintLiftsCrossingPoint(t *testing.T) {
	k := kernel.Exact{}
	// a tilted plane z = x + y, projected along z
	p := func(x, y float64) kernel.Vec3[kernel.Rat] {
		return kernel.Vec3[kernel.Rat]{kernel.NewRat(x), kernel.NewRat(y), kernel.NewRat(x + y)}
	}
	corners := []kernel.Vec3[kernel.Rat]{p(0, 0), p(3, 0), p(0, 3)}
	edges := append(loop(corners...),
		ConstraintEdge[kernel.Rat]{A: p(0, 1), B: p(2, 1)},
		ConstraintEdge[kernel.Rat]{A: p(1, 0), B: p(1, 2)},
	)
	tr, err := Build[kernel.Rat](k, 2, nil, edges)
	test.That(t, err, test.ShouldBeNil)
	x := indexOf(tr, p(1, 1))
	test.That(t, x, test.ShouldBeGreaterThanOrEqualTo, 0)
	for _, v := range tr.Vertices() {
		test.That(t, k.Orient3D(corners[0], corners[1], corners[2], v.P3), test.ShouldEqual, 0)
	}
}

func TestDelaunay(t *testing.T) {
	k := kernel.Exact{}
	rng := rand.New(rand.NewSource(3))
	var pts []kernel.Vec3[kernel.Rat]
	for i := 0; i < 40; i++ {
		pts = append(pts, pt(float64(rng.Intn(50)), float64(rng.Intn(50))))
	}
	tr, err := Build[kernel.Rat](k, 2, pts, nil)
	test.That(t, err, test.ShouldBeNil)

	verts := tr.Vertices()
	for _, tri := range tr.Triangles() {
		for i, v := range verts {
			if i == tri[0] || i == tri[1] || i == tri[2] {
				continue
			}
			in := k.InCircle(verts[tri[0]].P2, verts[tri[1]].P2, verts[tri[2]].P2, v.P2)
			test.That(t, in, test.ShouldBeLessThanOrEqualTo, 0)
		}
	}
}

func TestDuplicatePoint(t *testing.T) {
	tr := New[kernel.Rat](kernel.Exact{}, 2, []kernel.Vec3[kernel.Rat]{pt(0, 0), pt(1, 1)})
	a := tr.Insert(pt(0, 0))
	b := tr.Insert(pt(1, 1))
	test.That(t, tr.Insert(pt(0, 0)), test.ShouldEqual, a)
	test.That(t, a, test.ShouldNotEqual, b)
	test.That(t, tr.Vertices(), test.ShouldHaveLength, 2)
}

func TestInteriorDropsHullFill(t *testing.T) {
	lower := loop(pt(0, 0), pt(2, 0), pt(1, 1))
	upper := loop(pt(1, 1), pt(2, 2), pt(0, 2))
	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, nil, append(lower, upper...))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.Triangles(), test.ShouldHaveLength, 4)

	interior := tr.Interior()
	test.That(t, interior, test.ShouldHaveLength, 2)
	verts := tr.Vertices()
	for _, tri := range interior {
		apex := false
		for _, v := range tri {
			apex = apex || verts[v].P3.Equal(pt(1, 1))
		}
		test.That(t, apex, test.ShouldBeTrue)
	}
}

func TestRandomConstraints(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var pts []kernel.Vec3[kernel.Rat]
	for i := 0; i < 60; i++ {
		pts = append(pts, pt(float64(1+rng.Intn(58)), float64(1+rng.Intn(58))))
	}
	edges := loop(pt(0, 0), pt(60, 0), pt(60, 60), pt(0, 60))
	for i := 0; i < 12; i++ {
		a := pt(float64(1+rng.Intn(58)), float64(1+rng.Intn(58)))
		b := pt(float64(1+rng.Intn(58)), float64(1+rng.Intn(58)))
		edges = append(edges, ConstraintEdge[kernel.Rat]{A: a, B: b})
	}
	tr, err := Build[kernel.Rat](kernel.Exact{}, 2, pts, edges)
	test.That(t, err, test.ShouldBeNil)
	checkValid(t, tr, kernel.NewRat(3600))
	test.That(t, tr.Interior(), test.ShouldHaveLength, len(tr.Triangles()))

	for v := range tr.verts {
		test.That(t, vertexIn(tr.tris[tr.vtri[v]], v), test.ShouldBeGreaterThanOrEqualTo, 0)
	}
	for ti, tt := range tr.tris {
		for e := 0; e < 3; e++ {
			if u := tt.n[e]; u >= 0 {
				test.That(t, edgeIn(tr.tris[u], tt.v[(e+1)%3], tt.v[e]), test.ShouldBeGreaterThanOrEqualTo, 0)
				test.That(t, tr.tris[u].c[edgeIn(tr.tris[u], tt.v[(e+1)%3], tt.v[e])], test.ShouldEqual, tt.c[e])
			}
			test.That(t, tr.needsFlip(ti, e), test.ShouldBeFalse)
		}
	}
	for _, e := range edges[:4] {
		test.That(t, tr.Constrained(indexOf(tr, e.A), indexOf(tr, e.B)), test.ShouldBeTrue)
	}
}

func TestLocateWalks(t *testing.T) {
	k := kernel.Exact{}
	rng := rand.New(rand.NewSource(5))
	var pts []kernel.Vec3[kernel.Rat]
	for i := 0; i < 80; i++ {
		pts = append(pts, pt(float64(rng.Intn(100)), float64(rng.Intn(100))))
	}
	tr, err := Build[kernel.Rat](k, 2, pts, nil)
	test.That(t, err, test.ShouldBeNil)

	for i := 0; i < 50; i++ {
		p := pt(rng.Float64()*100, rng.Float64()*100).Drop(2)
		ti, _ := tr.locate(p)
		tt := tr.tris[ti]
		for e := 0; e < 3; e++ {
			test.That(t, k.Orient2D(tr.verts[tt.v[e]].P2, tr.verts[tt.v[(e+1)%3]].P2, p), test.ShouldBeGreaterThanOrEqualTo, 0)
		}
		want, _ := tr.scan(p)
		if want != ti {
			// p on a shared edge may belong to either side
			test.That(t, tt.n, test.ShouldContain, want)
		}
	}
}
