package intersect

import (
	"testing"

	"go.viam.com/test"

	"github.com/akmonengine/mend/kernel"
)

type vec = [3]float64

func ratTri(a, b, c vec) [3]kernel.Vec3[kernel.Rat] {
	return [3]kernel.Vec3[kernel.Rat]{ratPt(a), ratPt(b), ratPt(c)}
}

func ratPt(p vec) kernel.Vec3[kernel.Rat] {
	return kernel.Vec3[kernel.Rat]{kernel.NewRat(p[0]), kernel.NewRat(p[1]), kernel.NewRat(p[2])}
}

func floatTri(a, b, c vec) [3]kernel.Vec3[kernel.Float] {
	f := func(p vec) kernel.Vec3[kernel.Float] {
		return kernel.Vec3[kernel.Float]{kernel.Float(p[0]), kernel.Float(p[1]), kernel.Float(p[2])}
	}
	return [3]kernel.Vec3[kernel.Float]{f(a), f(b), f(c)}
}

func ratObject(kind Kind, pts ...vec) Object[kernel.Rat] {
	o := Object[kernel.Rat]{Kind: kind}
	for _, p := range pts {
		o.Points = append(o.Points, ratPt(p))
	}
	return o
}

func TestTriangles(t *testing.T) {
	base := [3]vec{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}}
	tests := []struct {
		name  string
		other [3]vec
		want  Object[kernel.Rat]
	}{
		{
			name:  "separated",
			other: [3]vec{{0, 0, 1}, {1, 0, 1}, {0, 1, 2}},
			want:  Object[kernel.Rat]{},
		},
		{
			name:  "piercing",
			other: [3]vec{{0.25, 0.5, -1}, {0.25, 0.5, 1}, {1, 0.5, 0}},
			want:  ratObject(Segment, vec{0.25, 0.5, 0}, vec{1, 0.5, 0}),
		},
		{
			name:  "vertex touching interior",
			other: [3]vec{{0.5, 0.5, 0}, {0, 0, 1}, {1, 0, 1}},
			want:  ratObject(Point, vec{0.5, 0.5, 0}),
		},
		{
			name:  "crossing plane outside",
			other: [3]vec{{3, 3, -1}, {3, 3, 1}, {4, 3, 0}},
			want:  Object[kernel.Rat]{},
		},
		{
			name:  "coplanar overlap",
			other: [3]vec{{-0.5, 0.5, 0}, {1.5, 0.5, 0}, {0.5, -0.5, 0}},
			want:  ratObject(Polygon, vec{0, 0, 0}, vec{1, 0, 0}, vec{1.5, 0.5, 0}, vec{0, 0.5, 0}),
		},
		{
			name:  "coplanar shared edge",
			other: [3]vec{{2, 0, 0}, {0, 2, 0}, {2, 2, 0}},
			want:  ratObject(Segment, vec{2, 0, 0}, vec{0, 2, 0}),
		},
		{
			name:  "coplanar contained",
			other: [3]vec{{0.25, 0.25, 0}, {1, 0.25, 0}, {0.25, 1, 0}},
			want:  ratObject(Polygon, vec{0.25, 0.25, 0}, vec{1, 0.25, 0}, vec{0.25, 1, 0}),
		},
		{
			name:  "coplanar disjoint",
			other: [3]vec{{3, 3, 0}, {4, 3, 0}, {3, 4, 0}},
			want:  Object[kernel.Rat]{},
		},
	}

	k := kernel.Exact{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ratTri(base[0], base[1], base[2])
			b := ratTri(tt.other[0], tt.other[1], tt.other[2])

			ab, err := Triangles[kernel.Rat](k, a, b)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ab.Kind, test.ShouldEqual, tt.want.Kind)
			test.That(t, ab.Equal(tt.want), test.ShouldBeTrue)

			ba, err := Triangles[kernel.Rat](k, b, a)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, ba.Equal(ab), test.ShouldBeTrue)

			fa := floatTri(base[0], base[1], base[2])
			fb := floatTri(tt.other[0], tt.other[1], tt.other[2])
			fo, err := Triangles[kernel.Float](kernel.Inexact{}, fa, fb)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, fo.IsEmpty(), test.ShouldEqual, tt.want.IsEmpty())
		})
	}
}

func TestTrianglesExactConstruction(t *testing.T) {
	k := kernel.Exact{}
	a := ratTri(vec{0, 0, 0}, vec{3, 0, 0}, vec{0, 3, 0})
	b := ratTri(vec{0.1, 0.1, -0.3}, vec{0.7, 0.2, 0.9}, vec{0.2, 0.8, 0.5})

	o, err := Triangles[kernel.Rat](k, a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.Kind, test.ShouldEqual, Segment)
	for _, p := range o.Points {
		// constructed points lie exactly on both planes
		test.That(t, k.Orient3D(a[0], a[1], a[2], p), test.ShouldEqual, 0)
		test.That(t, k.Orient3D(b[0], b[1], b[2], p), test.ShouldEqual, 0)
		test.That(t, PointInTriangle2D[kernel.Rat](k, ProjectionAxis(b), p, b), test.ShouldBeTrue)
	}
}

func TestSegmentTriangle(t *testing.T) {
	tri := ratTri(vec{0, 0, 0}, vec{2, 0, 0}, vec{0, 2, 0})
	tests := []struct {
		name string
		p, q vec
		want Object[kernel.Rat]
	}{
		{"piercing", vec{0.5, 0.5, -1}, vec{0.5, 0.5, 1}, ratObject(Point, vec{0.5, 0.5, 0})},
		{"through edge", vec{1, 0, -1}, vec{1, 0, 1}, ratObject(Point, vec{1, 0, 0})},
		{"missing", vec{3, 3, -1}, vec{3, 3, 1}, Object[kernel.Rat]{}},
		{"above", vec{0.5, 0.5, 1}, vec{0.5, 0.5, 2}, Object[kernel.Rat]{}},
		{"endpoint on face", vec{0.5, 0.5, 0}, vec{0.5, 0.5, 2}, ratObject(Point, vec{0.5, 0.5, 0})},
		{"endpoint on plane outside", vec{5, 5, 0}, vec{0.5, 0.5, 2}, Object[kernel.Rat]{}},
		{"coplanar crossing", vec{-1, 0.5, 0}, vec{3, 0.5, 0}, ratObject(Segment, vec{0, 0.5, 0}, vec{1.5, 0.5, 0})},
		{"coplanar inside", vec{0.25, 0.25, 0}, vec{0.5, 0.25, 0}, ratObject(Segment, vec{0.25, 0.25, 0}, vec{0.5, 0.25, 0})},
		{"coplanar touching corner", vec{2, 0, 0}, vec{3, -1, 0}, ratObject(Point, vec{2, 0, 0})},
		{"coplanar outside", vec{3, 0, 0}, vec{3, 1, 0}, Object[kernel.Rat]{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := SegmentTriangle[kernel.Rat](kernel.Exact{}, ratPt(tt.p), ratPt(tt.q), tri)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, o.Kind, test.ShouldEqual, tt.want.Kind)
			test.That(t, o.Equal(tt.want), test.ShouldBeTrue)
		})
	}
}

func TestSegmentsIntersect2D(t *testing.T) {
	tests := []struct {
		name       string
		p, q, r, s vec
		want       bool
	}{
		{"crossing", vec{0, 0, 0}, vec{2, 2, 0}, vec{0, 2, 0}, vec{2, 0, 0}, true},
		{"parallel", vec{0, 0, 0}, vec{2, 0, 0}, vec{0, 1, 0}, vec{2, 1, 0}, false},
		{"touching end", vec{0, 0, 0}, vec{1, 0, 0}, vec{1, 0, 0}, vec{1, 1, 0}, true},
		{"collinear overlap", vec{0, 0, 0}, vec{2, 0, 0}, vec{1, 0, 0}, vec{3, 0, 0}, true},
		{"collinear apart", vec{0, 0, 0}, vec{1, 0, 0}, vec{2, 0, 0}, vec{3, 0, 0}, false},
		{"t shape short", vec{0, 0, 0}, vec{2, 0, 0}, vec{1, 0.5, 0}, vec{1, 2, 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentsIntersect2D[kernel.Rat](kernel.Exact{}, 2, ratPt(tt.p), ratPt(tt.q), ratPt(tt.r), ratPt(tt.s))
			test.That(t, got, test.ShouldEqual, tt.want)
		})
	}
}

func TestReduce(t *testing.T) {
	k := kernel.Exact{}
	pts := []kernel.Vec3[kernel.Rat]{
		ratPt(vec{0, 0, 0}), ratPt(vec{1, 0, 0}), ratPt(vec{2, 0, 0}), ratPt(vec{2, 0, 0}), ratPt(vec{0, 1, 0}), ratPt(vec{0, 0, 0}),
	}
	o := reduce[kernel.Rat](k, 2, pts)
	test.That(t, o.Kind, test.ShouldEqual, Polygon)
	test.That(t, o.Points, test.ShouldHaveLength, 3)

	collinear := []kernel.Vec3[kernel.Rat]{ratPt(vec{0, 0, 0}), ratPt(vec{2, 0, 0}), ratPt(vec{1, 0, 0})}
	o = reduce[kernel.Rat](k, 2, collinear)
	test.That(t, o.Equal(ratObject(Segment, vec{0, 0, 0}, vec{2, 0, 0})), test.ShouldBeTrue)
	test.That(t, o.Edges(), test.ShouldHaveLength, 1)
}
