package mend

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// Patch is a group of offending faces retriangulated together: a face alone, or faces lying
// on a common plane and overlapping each other.
type Patch[T kernel.Scalar[T]] struct {
	// Plane holds the corners of the seed face and supports every member.
	Plane [3]kernel.Vec3[T]
	// Members are sorted ascending; Members[0] is the seed.
	Members []int
}

// Seed returns the smallest member face.
func (p Patch[T]) Seed() int { return p.Members[0] }

// Clusterize links every offending face to its coplanar partners and returns the connected
// components, ordered by seed.
func Clusterize[T kernel.Scalar[T]](k kernel.Kernel[T], triangles []soup.Triangle[T], offending *OffendingMap[T]) []Patch[T] {
	faces := offending.Faces()
	g := simple.NewUndirectedGraph()
	for _, f := range faces {
		g.AddNode(simple.Node(f))
	}
	for _, f := range faces {
		for _, e := range offending.Entries(f) {
			if e.Other <= f || g.HasEdgeBetween(int64(f), int64(e.Other)) {
				continue
			}
			if soup.Coplanar(k, triangles[f], triangles[e.Other]) {
				g.SetEdge(g.NewEdge(simple.Node(f), simple.Node(e.Other)))
			}
		}
	}

	var patches []Patch[T]
	var members []int
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			members = append(members, int(n.ID()))
		},
	}
	for _, f := range faces {
		if bf.Visited(simple.Node(f)) {
			continue
		}
		members = nil
		bf.Walk(g, simple.Node(f), nil)
		sort.Ints(members)
		patches = append(patches, Patch[T]{
			Plane:   triangles[members[0]].V,
			Members: members,
		})
	}
	return patches
}
