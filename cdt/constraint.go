package cdt

import (
	"github.com/akmonengine/mend/kernel"
)

// maxSplitDepth bounds recursive constraint splitting. Exact kernels never get close; it
// stops floating point constructions from splitting forever.
const maxSplitDepth = 64

type walkResult int

const (
	walkCrossings walkResult = iota
	walkVertex
	walkConstraint
)

// insertSegment forces the segment between vertices a and b into the triangulation and
// marks it constrained.
func (tr *Triangulation[T]) insertSegment(a, b, depth int) error {
	if a == b {
		return nil
	}
	if depth > maxSplitDepth {
		return ErrDegenerate
	}
	if t, i, ok := tr.findEdge(a, b); ok {
		tr.constrain(t, i)
		return nil
	}

	res, crossed, v, hit := tr.walk(a, b)
	switch res {
	case walkVertex:
		// the segment runs through v: constrain both pieces
		if err := tr.insertSegment(a, v, depth+1); err != nil {
			return err
		}
		return tr.insertSegment(v, b, depth+1)
	case walkConstraint:
		x, err := tr.splitConstraint(a, b, hit)
		if err != nil {
			return err
		}
		if err := tr.insertSegment(a, x, depth+1); err != nil {
			return err
		}
		return tr.insertSegment(x, b, depth+1)
	}

	touched, err := tr.recover(a, b, crossed)
	if err != nil {
		return err
	}
	t, i, ok := tr.findEdge(a, b)
	if !ok {
		return ErrDegenerate
	}
	tr.constrain(t, i)
	tr.restoreDelaunay(touched)
	return nil
}

// constrain marks edge i of t, and its twin, constrained.
func (tr *Triangulation[T]) constrain(t, i int) {
	tr.tris[t].c[i] = true
	if u := tr.tris[t].n[i]; u >= 0 {
		a, b := tr.tris[t].v[i], tr.tris[t].v[(i+1)%3]
		if j := edgeIn(tr.tris[u], b, a); j >= 0 {
			tr.tris[u].c[j] = true
		}
	}
}

// walk follows segment ab from a through the triangles it crosses. It stops at the first
// vertex lying on the open segment, at the first constrained edge crossed, or at b. On a
// clean walk it returns the crossed edges as vertex pairs.
func (tr *Triangulation[T]) walk(a, b int) (walkResult, [][2]int, int, [2]int) {
	pa, pb := tr.verts[a].P2, tr.verts[b].P2

	// find the triangle around a whose wedge holds b
	cur, right, left := -1, -1, -1
	for _, ti := range tr.around(a) {
		t := tr.tris[ti]
		i := vertexIn(t, a)
		v1, v2 := t.v[(i+1)%3], t.v[(i+2)%3]
		s1 := tr.k.Orient2D(pa, pb, tr.verts[v1].P2)
		s2 := tr.k.Orient2D(pa, pb, tr.verts[v2].P2)
		if s1 == 0 && tr.ahead(pa, pb, tr.verts[v1].P2) {
			return walkVertex, nil, v1, [2]int{}
		}
		if s2 == 0 && tr.ahead(pa, pb, tr.verts[v2].P2) {
			return walkVertex, nil, v2, [2]int{}
		}
		if s1 < 0 && s2 > 0 {
			cur, right, left = ti, v1, v2
			break
		}
	}
	if cur < 0 {
		return walkCrossings, nil, -1, [2]int{}
	}

	var crossed [][2]int
	for {
		e := edgeIn(tr.tris[cur], right, left)
		if tr.tris[cur].c[e] {
			return walkConstraint, nil, -1, [2]int{right, left}
		}
		crossed = append(crossed, [2]int{right, left})
		next := tr.tris[cur].n[e]
		if next < 0 {
			return walkCrossings, nil, -1, [2]int{}
		}
		nt := tr.tris[next]
		j := edgeIn(nt, left, right)
		w := nt.v[(j+2)%3]
		if w == b {
			return walkCrossings, crossed, -1, [2]int{}
		}
		switch s := tr.k.Orient2D(pa, pb, tr.verts[w].P2); {
		case s == 0:
			return walkVertex, nil, w, [2]int{}
		case s < 0:
			right = w
		default:
			left = w
		}
		cur = next
	}
}

// ahead reports whether p, collinear with ab, lies on the side of a towards b.
func (tr *Triangulation[T]) ahead(a, b, p kernel.Vec2[T]) bool {
	d := b.Sub(a)
	q := p.Sub(a)
	return d[0].Mul(q[0]).Add(d[1].Mul(q[1])).Sign() > 0
}

// splitConstraint inserts the crossing point of segment ab with the constrained edge e and
// returns the new vertex. The 3D point is interpolated along ab.
func (tr *Triangulation[T]) splitConstraint(a, b int, e [2]int) (int, error) {
	p, q := tr.verts[e[0]].P2, tr.verts[e[1]].P2
	va, vb := tr.verts[a], tr.verts[b]
	oa := kernel.Orient2DValue(p, q, va.P2)
	ob := kernel.Orient2DValue(p, q, vb.P2)
	den := oa.Sub(ob)
	if den.Sign() == 0 || !den.IsFinite() {
		return 0, ErrDegenerate
	}
	s := oa.Quo(den)
	if !s.IsFinite() {
		return 0, ErrDegenerate
	}
	p2 := va.P2.Add(vb.P2.Sub(va.P2).Scale(s))
	p3 := va.P3.Lerp(vb.P3, s)

	if i, ok := tr.lookup(p2); ok {
		return i, nil
	}
	t, i, ok := tr.findEdge(e[0], e[1])
	if !ok {
		return 0, ErrDegenerate
	}
	idx := tr.addVertex(p2, p3)
	tr.legalize(tr.splitEdge(t, i, idx))
	return idx, nil
}

// recover flips the crossed edges away until segment ab is an edge. It returns the slots
// of every triangle it rewrote.
func (tr *Triangulation[T]) recover(a, b int, crossed [][2]int) ([]int, error) {
	pa, pb := tr.verts[a].P2, tr.verts[b].P2
	queue := append([][2]int(nil), crossed...)
	var touched []int
	stalled := 0
	for len(queue) > 0 {
		if stalled > len(queue) {
			return touched, ErrDegenerate
		}
		x, y := queue[0][0], queue[0][1]
		queue = queue[1:]

		t, i, ok := tr.findEdge(x, y)
		if !ok {
			return touched, ErrDegenerate
		}
		tt := tr.tris[t]
		u := tt.n[i]
		if u < 0 {
			return touched, ErrDegenerate
		}
		c := tt.v[(i+2)%3]
		d := tr.tris[u].v[(edgeIn(tr.tris[u], tt.v[(i+1)%3], tt.v[i])+2)%3]
		pc, pd := tr.verts[c].P2, tr.verts[d].P2

		// only a strictly convex quad can be flipped
		if tr.k.Orient2D(pc, pd, tr.verts[x].P2)*tr.k.Orient2D(pc, pd, tr.verts[y].P2) >= 0 {
			queue = append(queue, [2]int{x, y})
			stalled++
			continue
		}
		stalled = 0
		t, u = tr.flip(t, i)
		touched = append(touched, t, u)
		if c != a && c != b && d != a && d != b &&
			tr.k.Orient2D(pa, pb, pc)*tr.k.Orient2D(pa, pb, pd) < 0 {
			queue = append(queue, [2]int{c, d})
		}
	}
	return touched, nil
}
