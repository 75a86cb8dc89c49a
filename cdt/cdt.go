// Package cdt implements an incremental constrained Delaunay triangulation over exact
// predicates.
//
// Points are inserted one at a time into a super triangle and legalized with Lawson flips.
// Constraint edges are recovered by flipping the edges they cross; a constraint passing
// through an existing vertex is split there, and two crossing constraints are split at
// their intersection point. Every vertex carries the 3D point it was lifted from, so the
// triangulation of a planar patch can be mapped back to space without any inverse
// projection.
package cdt

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/mend/kernel"
)

// ErrDegenerate is returned when a constraint cannot be recovered, which only happens when
// floating point constructions disagree with the exact predicates.
var ErrDegenerate = errors.New("cdt: constraint could not be recovered")

// Vertex is a triangulation vertex: its position in the projection plane and the point in
// space it came from.
type Vertex[T kernel.Scalar[T]] struct {
	P2 kernel.Vec2[T]
	P3 kernel.Vec3[T]
}

// ConstraintEdge is a segment that must appear as a union of triangulation edges.
type ConstraintEdge[T kernel.Scalar[T]] struct {
	A, B kernel.Vec3[T]
}

const superVertices = 3

type triangle struct {
	v [3]int
	// n[i] is the triangle across edge (v[i], v[i+1]), or -1.
	n [3]int
	// c[i] marks edge (v[i], v[i+1]) as constrained.
	c [3]bool
}

// Triangulation is a constrained Delaunay triangulation in the plane obtained by dropping
// coordinate Axis from 3D points. It is not safe for concurrent use.
type Triangulation[T kernel.Scalar[T]] struct {
	k     kernel.Kernel[T]
	Axis  int
	verts []Vertex[T]
	tris  []triangle
	// vtri[v] is a triangle incident to vertex v.
	vtri []int
	// index buckets vertices by their rounded position.
	index map[mgl64.Vec2][]int
	// last is where the next point location starts walking.
	last int
}

// New prepares a triangulation able to hold every point in pts, and any point of their
// convex hull, projected along axis.
func New[T kernel.Scalar[T]](k kernel.Kernel[T], axis int, pts []kernel.Vec3[T]) *Triangulation[T] {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		q := p.Drop(axis).Float64()
		minX, maxX = math.Min(minX, q[0]), math.Max(maxX, q[0])
		minY, maxY = math.Min(minY, q[1]), math.Max(maxY, q[1])
	}
	if len(pts) == 0 {
		minX, minY, maxX, maxY = 0, 0, 0, 0
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	d := math.Max(maxX-minX, maxY-minY) + 1

	tr := &Triangulation[T]{k: k, Axis: axis, index: make(map[mgl64.Vec2][]int, len(pts))}
	for _, c := range [][2]float64{{cx - 20*d, cy - 10*d}, {cx + 20*d, cy - 10*d}, {cx, cy + 20*d}} {
		p2 := kernel.Vec2[T]{k.FromFloat64(c[0]), k.FromFloat64(c[1])}
		tr.verts = append(tr.verts, Vertex[T]{P2: p2})
		tr.vtri = append(tr.vtri, 0)
	}
	tr.add(triangle{v: [3]int{0, 1, 2}, n: [3]int{-1, -1, -1}})
	return tr
}

// Vertices returns the inserted vertices. Indices match those returned by Insert and used
// by Interior.
func (tr *Triangulation[T]) Vertices() []Vertex[T] {
	return tr.verts[superVertices:]
}

// Interior returns the triangles enclosed by constraint edges: those the super triangle
// cannot reach without crossing a constrained edge. Indices are as in Vertices.
func (tr *Triangulation[T]) Interior() [][3]int {
	outside := make([]bool, len(tr.tris))
	var queue []int
	for ti, t := range tr.tris {
		if t.v[0] < superVertices || t.v[1] < superVertices || t.v[2] < superVertices {
			outside[ti] = true
			queue = append(queue, ti)
		}
	}
	for len(queue) > 0 {
		ti := queue[0]
		queue = queue[1:]
		t := tr.tris[ti]
		for i := 0; i < 3; i++ {
			if n := t.n[i]; n >= 0 && !t.c[i] && !outside[n] {
				outside[n] = true
				queue = append(queue, n)
			}
		}
	}

	out := make([][3]int, 0, len(tr.tris))
	for ti, t := range tr.tris {
		if !outside[ti] {
			out = append(out, [3]int{t.v[0] - superVertices, t.v[1] - superVertices, t.v[2] - superVertices})
		}
	}
	return out
}

// Insert adds p and returns its vertex index. A point equal in projection to an existing
// vertex returns that vertex.
func (tr *Triangulation[T]) Insert(p kernel.Vec3[T]) int {
	return tr.insert(p.Drop(tr.Axis), p) - superVertices
}

// InsertConstraint inserts both endpoints and forces the segment between them into the
// triangulation.
func (tr *Triangulation[T]) InsertConstraint(e ConstraintEdge[T]) error {
	a := tr.insert(e.A.Drop(tr.Axis), e.A)
	b := tr.insert(e.B.Drop(tr.Axis), e.B)
	return tr.insertSegment(a, b, 0)
}

func (tr *Triangulation[T]) insert(p2 kernel.Vec2[T], p3 kernel.Vec3[T]) int {
	if i, ok := tr.lookup(p2); ok {
		return i
	}

	t, edge := tr.locate(p2)
	idx := tr.addVertex(p2, p3)

	var stack [][2]int
	if edge < 0 {
		stack = tr.split3(t, idx)
	} else {
		stack = tr.splitEdge(t, edge, idx)
	}
	tr.legalize(stack)
	return idx
}

// addVertex appends a vertex and indexes it. Its incident triangle is set once the vertex
// is linked in.
func (tr *Triangulation[T]) addVertex(p2 kernel.Vec2[T], p3 kernel.Vec3[T]) int {
	idx := len(tr.verts)
	tr.verts = append(tr.verts, Vertex[T]{P2: p2, P3: p3})
	tr.vtri = append(tr.vtri, -1)
	key := p2.Float64()
	tr.index[key] = append(tr.index[key], idx)
	return idx
}

// lookup returns the inserted vertex at p, if any.
func (tr *Triangulation[T]) lookup(p kernel.Vec2[T]) (int, bool) {
	for _, i := range tr.index[p.Float64()] {
		if tr.verts[i].P2.Equal(p) {
			return i, true
		}
	}
	return 0, false
}

// add appends t and returns its slot.
func (tr *Triangulation[T]) add(t triangle) int {
	tr.tris = append(tr.tris, triangle{})
	ti := len(tr.tris) - 1
	tr.set(ti, t)
	return ti
}

// set stores t in slot ti and makes it the incident triangle of its corners. Every
// operation rewriting a triangle also rewrites one holding each of its old corners, so
// vtri stays valid.
func (tr *Triangulation[T]) set(ti int, t triangle) {
	tr.tris[ti] = t
	for _, v := range t.v {
		tr.vtri[v] = ti
	}
}

// around returns the triangles incident to vertex v.
func (tr *Triangulation[T]) around(v int) []int {
	start := tr.vtri[v]
	if start < 0 || start >= len(tr.tris) || vertexIn(tr.tris[start], v) < 0 {
		start = -1
		for ti, t := range tr.tris {
			if vertexIn(t, v) >= 0 {
				start = ti
				break
			}
		}
		if start < 0 {
			return nil
		}
		tr.vtri[v] = start
	}

	out := []int{start}
	// turn one way across the edge ending at v, then the other way if a border stops us
	for cur := start; len(out) <= len(tr.tris); {
		t := tr.tris[cur]
		next := t.n[(vertexIn(t, v)+2)%3]
		if next == start {
			return out
		}
		if next < 0 {
			break
		}
		out = append(out, next)
		cur = next
	}
	for cur := start; len(out) <= len(tr.tris); {
		t := tr.tris[cur]
		next := t.n[vertexIn(t, v)]
		if next < 0 || next == start {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}

// vertexIn returns the corner of t holding v, or -1.
func vertexIn(t triangle, v int) int {
	for i := 0; i < 3; i++ {
		if t.v[i] == v {
			return i
		}
	}
	return -1
}

// locate returns the triangle containing p and, when p lies on one of its edges, that
// edge's index (otherwise -1). It walks from the last located triangle towards p, starting
// each step from a different edge so the walk cannot cycle, and falls back to a scan.
func (tr *Triangulation[T]) locate(p kernel.Vec2[T]) (int, int) {
	cur := tr.last
	if cur < 0 || cur >= len(tr.tris) {
		cur = 0
	}
	limit := 4*len(tr.tris) + 16
walk:
	for step := 0; step < limit; step++ {
		t := &tr.tris[cur]
		edge := -1
		for k := 0; k < 3; k++ {
			i := (k + step) % 3
			o := tr.k.Orient2D(tr.verts[t.v[i]].P2, tr.verts[t.v[(i+1)%3]].P2, p)
			if o < 0 {
				if t.n[i] < 0 {
					break walk
				}
				cur = t.n[i]
				continue walk
			}
			if o == 0 {
				edge = i
			}
		}
		tr.last = cur
		return cur, edge
	}
	return tr.scan(p)
}

// scan is the exhaustive version of locate.
func (tr *Triangulation[T]) scan(p kernel.Vec2[T]) (int, int) {
	for ti := range tr.tris {
		t := &tr.tris[ti]
		edge := -1
		inside := true
		for i := 0; i < 3; i++ {
			o := tr.k.Orient2D(tr.verts[t.v[i]].P2, tr.verts[t.v[(i+1)%3]].P2, p)
			if o < 0 {
				inside = false
				break
			}
			if o == 0 {
				edge = i
			}
		}
		if inside {
			tr.last = ti
			return ti, edge
		}
	}
	// p lies outside the super triangle; New sizes it to make this unreachable.
	panic("cdt: point outside the triangulation domain")
}

// split3 replaces triangle t by three triangles fanning around vertex p.
func (tr *Triangulation[T]) split3(t, p int) [][2]int {
	old := tr.tris[t]
	a, b, c := old.v[0], old.v[1], old.v[2]
	t0, t1, t2 := t, len(tr.tris), len(tr.tris)+1

	tr.set(t0, triangle{v: [3]int{a, b, p}, n: [3]int{old.n[0], t1, t2}, c: [3]bool{old.c[0], false, false}})
	tr.add(triangle{v: [3]int{b, c, p}, n: [3]int{old.n[1], t2, t0}, c: [3]bool{old.c[1], false, false}})
	tr.add(triangle{v: [3]int{c, a, p}, n: [3]int{old.n[2], t0, t1}, c: [3]bool{old.c[2], false, false}})
	tr.relink(old.n[1], t, t1)
	tr.relink(old.n[2], t, t2)
	return [][2]int{{t0, 0}, {t1, 0}, {t2, 0}}
}

// splitEdge inserts vertex p on edge e of triangle t, splitting t and its neighbour in two.
// Constrained edges stay constrained on both halves.
func (tr *Triangulation[T]) splitEdge(t, e, p int) [][2]int {
	old := tr.tris[t]
	a, b, c := old.v[e], old.v[(e+1)%3], old.v[(e+2)%3]
	nbc, nca := old.n[(e+1)%3], old.n[(e+2)%3]
	cbc, cca := old.c[(e+1)%3], old.c[(e+2)%3]
	cab := old.c[e]
	u := old.n[e]

	t1, t2 := t, len(tr.tris)
	tr.tris = append(tr.tris, triangle{})
	u1, u2 := -1, -1
	if u >= 0 {
		u1 = u
		u2 = len(tr.tris)
		tr.tris = append(tr.tris, triangle{})
	}

	tr.set(t1, triangle{v: [3]int{a, p, c}, n: [3]int{u2, t2, nca}, c: [3]bool{cab, false, cca}})
	tr.set(t2, triangle{v: [3]int{p, b, c}, n: [3]int{u1, nbc, t1}, c: [3]bool{cab, cbc, false}})
	tr.relink(nbc, t, t2)
	stack := [][2]int{{t1, 2}, {t2, 1}}

	if u >= 0 {
		uo := tr.tris[u]
		j := edgeIn(uo, b, a)
		d := uo.v[(j+2)%3]
		nad, ndb := uo.n[(j+1)%3], uo.n[(j+2)%3]
		cad, cdb := uo.c[(j+1)%3], uo.c[(j+2)%3]

		tr.set(u1, triangle{v: [3]int{b, p, d}, n: [3]int{t2, u2, ndb}, c: [3]bool{cab, false, cdb}})
		tr.set(u2, triangle{v: [3]int{p, a, d}, n: [3]int{t1, nad, u1}, c: [3]bool{cab, cad, false}})
		tr.relink(nad, u, u2)
		stack = append(stack, [2]int{u1, 2}, [2]int{u2, 1})
	}
	return stack
}

// edgeIn returns the index of directed edge (a, b) in t, or -1.
func edgeIn(t triangle, a, b int) int {
	for i := 0; i < 3; i++ {
		if t.v[i] == a && t.v[(i+1)%3] == b {
			return i
		}
	}
	return -1
}

// relink makes neighbour n point to to instead of from.
func (tr *Triangulation[T]) relink(n, from, to int) {
	if n < 0 {
		return
	}
	for i := 0; i < 3; i++ {
		if tr.tris[n].n[i] == from {
			tr.tris[n].n[i] = to
			return
		}
	}
}

// findEdge returns a triangle holding the directed or reversed edge between a and b.
func (tr *Triangulation[T]) findEdge(a, b int) (int, int, bool) {
	for _, ti := range tr.around(a) {
		t := tr.tris[ti]
		if i := edgeIn(t, a, b); i >= 0 {
			return ti, i, true
		}
		if i := edgeIn(t, b, a); i >= 0 {
			return ti, i, true
		}
	}
	return 0, 0, false
}

// flip replaces the diagonal e of the quad formed by t and its neighbour by the other
// diagonal. It returns the slots of the two new triangles: (a, d, c) and (d, b, c) where
// (a, b) was the flipped edge, c the apex of t and d the apex of the neighbour.
func (tr *Triangulation[T]) flip(t, e int) (int, int) {
	tt := tr.tris[t]
	u := tt.n[e]
	uu := tr.tris[u]
	a, b, c := tt.v[e], tt.v[(e+1)%3], tt.v[(e+2)%3]
	j := edgeIn(uu, b, a)
	d := uu.v[(j+2)%3]

	nad, ndb := uu.n[(j+1)%3], uu.n[(j+2)%3]
	cad, cdb := uu.c[(j+1)%3], uu.c[(j+2)%3]
	nbc, nca := tt.n[(e+1)%3], tt.n[(e+2)%3]
	cbc, cca := tt.c[(e+1)%3], tt.c[(e+2)%3]

	tr.set(t, triangle{v: [3]int{a, d, c}, n: [3]int{nad, u, nca}, c: [3]bool{cad, false, cca}})
	tr.set(u, triangle{v: [3]int{d, b, c}, n: [3]int{ndb, nbc, t}, c: [3]bool{cdb, cbc, false}})
	tr.relink(nad, u, t)
	tr.relink(nbc, t, u)
	return t, u
}

// legalize runs Lawson flips from the given edges, each opposite the apex v[e+2] of its
// triangle, until every reached edge is locally Delaunay or constrained.
func (tr *Triangulation[T]) legalize(stack [][2]int) {
	for len(stack) > 0 {
		te := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t, e := te[0], te[1]
		if !tr.needsFlip(t, e) {
			continue
		}
		t2, u2 := tr.flip(t, e)
		stack = append(stack, [2]int{t2, 0}, [2]int{u2, 0})
	}
}

// needsFlip reports whether edge e of t is unconstrained and fails the empty circle test.
func (tr *Triangulation[T]) needsFlip(t, e int) bool {
	tt := tr.tris[t]
	u := tt.n[e]
	if u < 0 || tt.c[e] {
		return false
	}
	a, b, c := tt.v[e], tt.v[(e+1)%3], tt.v[(e+2)%3]
	uu := tr.tris[u]
	j := edgeIn(uu, b, a)
	d := uu.v[(j+2)%3]
	return tr.k.InCircle(tr.verts[a].P2, tr.verts[b].P2, tr.verts[c].P2, tr.verts[d].P2) > 0
}

// restoreDelaunay flips until every unconstrained edge of the touched triangles, and of
// those the flips create, is locally Delaunay. Untouched edges keep the property they had.
func (tr *Triangulation[T]) restoreDelaunay(touched []int) {
	stack := make([][2]int, 0, 3*len(touched))
	for _, ti := range touched {
		for e := 0; e < 3; e++ {
			stack = append(stack, [2]int{ti, e})
		}
	}
	for len(stack) > 0 {
		te := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !tr.needsFlip(te[0], te[1]) {
			continue
		}
		t, u := tr.flip(te[0], te[1])
		for e := 0; e < 3; e++ {
			stack = append(stack, [2]int{t, e}, [2]int{u, e})
		}
	}
}

// Build triangulates points together with the constraint edges.
func Build[T kernel.Scalar[T]](k kernel.Kernel[T], axis int, points []kernel.Vec3[T], edges []ConstraintEdge[T]) (*Triangulation[T], error) {
	all := make([]kernel.Vec3[T], 0, len(points)+2*len(edges))
	all = append(all, points...)
	for _, e := range edges {
		all = append(all, e.A, e.B)
	}
	tr := New(k, axis, all)
	for _, p := range all {
		tr.Insert(p)
	}
	for _, e := range edges {
		if err := tr.InsertConstraint(e); err != nil {
			return tr, err
		}
	}
	return tr, nil
}
