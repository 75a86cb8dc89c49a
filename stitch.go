package mend

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

type edgeKey struct {
	lo, hi int
}

func makeEdgeKey(a, b int) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Stitcher maps patch triangulations back onto the input mesh. Vertices created on an input
// edge are shared by every face using that edge; vertices inside a face are shared within it.
type Stitcher[T kernel.Scalar[T]] struct {
	k         kernel.Kernel[T]
	triangles []soup.Triangle[T]
	debug     bool

	Vertices   []kernel.Vec3[T]
	Faces      [][3]int
	BirthFaces []int

	edgeVertices map[edgeKey][]int
	faceVertices map[int][]int
}

// NewStitcher starts from the input vertices in order.
func NewStitcher[T kernel.Scalar[T]](k kernel.Kernel[T], vertices []kernel.Vec3[T], triangles []soup.Triangle[T], debug bool) *Stitcher[T] {
	out := make([]kernel.Vec3[T], len(vertices))
	copy(out, vertices)
	return &Stitcher[T]{
		k:            k,
		triangles:    triangles,
		debug:        debug,
		Vertices:     out,
		Faces:        make([][3]int, 0, len(triangles)),
		BirthFaces:   make([]int, 0, len(triangles)),
		edgeVertices: make(map[edgeKey][]int),
		faceVertices: make(map[int][]int),
	}
}

// CopyFaces emits the given input faces unchanged.
func (s *Stitcher[T]) CopyFaces(faces []int) {
	for _, f := range faces {
		s.emit(s.triangles[f].Indices, f)
	}
}

func (s *Stitcher[T]) emit(face [3]int, birth int) {
	s.Faces = append(s.Faces, face)
	s.BirthFaces = append(s.BirthFaces, birth)
}

// Patch emits the triangles of one patch. When a triangle cannot be given a birth face the
// patch emits its original faces instead, and the error is returned.
func (s *Stitcher[T]) Patch(patch Patch[T], mesh PatchMesh[T]) (int, error) {
	if mesh.Err != nil {
		s.CopyFaces(patch.Members)
		return 0, &PatchError{Seed: patch.Seed(), Err: mesh.Err}
	}

	births, err := s.assign(patch, mesh)
	if err != nil {
		if s.debug {
			panic(err)
		}
		s.CopyFaces(patch.Members)
		return 0, &PatchError{Seed: patch.Seed(), Err: err}
	}

	emitted := 0
	for i, tri := range mesh.Triangles {
		for _, f := range births[i] {
			var corners [3]int
			for c := 0; c < 3; c++ {
				corners[c] = s.resolve(mesh.Vertices[tri[c]].P3, f, mesh.Axis)
			}
			if s.reversed(f, mesh.Axis) {
				corners[0], corners[1] = corners[1], corners[0]
			}
			s.emit(corners, f)
			emitted++
		}
	}
	return emitted, nil
}

// assign returns, for every triangle of mesh, the members it is born from: the only member,
// or every member containing its centroid. Member edges are constraints, so a triangle lies
// either inside a member or outside it. Triangles inside no member fill a hole enclosed by
// the patch and are left with no birth face. A member receiving no triangle means the
// triangulation lost part of it.
func (s *Stitcher[T]) assign(patch Patch[T], mesh PatchMesh[T]) ([][]int, error) {
	births := make([][]int, len(mesh.Triangles))
	if len(patch.Members) == 1 {
		for i := range births {
			births[i] = patch.Members
		}
		return births, nil
	}

	three := s.k.FromFloat64(3)
	for i, tri := range mesh.Triangles {
		a, b, c := mesh.Vertices[tri[0]].P3, mesh.Vertices[tri[1]].P3, mesh.Vertices[tri[2]].P3
		centroid := a.Add(b).Add(c).Quo(three)
		births[i] = lo.Filter(patch.Members, func(f int, _ int) bool {
			return intersect.PointInTriangle2D(s.k, mesh.Axis, centroid, s.triangles[f].V)
		})
	}

	covered := lo.SliceToMap(lo.Flatten(births), func(f int) (int, bool) { return f, true })
	for _, f := range patch.Members {
		if !covered[f] {
			return nil, errors.Wrapf(ErrUnresolvedPatchAssignment, "face %d", f)
		}
	}
	return births, nil
}

// reversed reports whether face f runs clockwise in the projection along axis.
func (s *Stitcher[T]) reversed(f, axis int) bool {
	v := s.triangles[f].V
	return s.k.Orient2D(v[0].Drop(axis), v[1].Drop(axis), v[2].Drop(axis)) < 0
}

// resolve returns the output vertex for p on face f: the input corner it coincides with, a
// vertex shared along the input edge it lies on, or a vertex private to f.
func (s *Stitcher[T]) resolve(p kernel.Vec3[T], f, axis int) int {
	tri := s.triangles[f]
	for i, v := range tri.V {
		if v.Equal(p) {
			return tri.Indices[i]
		}
	}

	p2 := p.Drop(axis)
	for i := 0; i < 3; i++ {
		a, b := tri.V[i].Drop(axis), tri.V[(i+1)%3].Drop(axis)
		if s.k.Orient2D(a, b, p2) != 0 || !onSegment(a, b, p2) {
			continue
		}
		key := makeEdgeKey(tri.Indices[i], tri.Indices[(i+1)%3])
		idx, list := s.findOrAppend(p, s.edgeVertices[key])
		s.edgeVertices[key] = list
		return idx
	}

	idx, list := s.findOrAppend(p, s.faceVertices[f])
	s.faceVertices[f] = list
	return idx
}

func (s *Stitcher[T]) findOrAppend(p kernel.Vec3[T], list []int) (int, []int) {
	for _, idx := range list {
		if s.Vertices[idx].Equal(p) {
			return idx, list
		}
	}
	idx := len(s.Vertices)
	s.Vertices = append(s.Vertices, p)
	return idx, append(list, idx)
}

// onSegment reports whether c, collinear with ab, lies within the closed segment.
func onSegment[T kernel.Scalar[T]](a, b, c kernel.Vec2[T]) bool {
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

// canonical groups vertices by coordinates: order lists them sorted, and canonical sends every
// vertex to the smallest index holding the same point.
func canonical[T kernel.Scalar[T]](vertices []kernel.Vec3[T]) []int {
	order := make([]int, len(vertices))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return vertices[order[i]].Less(vertices[order[j]])
	})

	im := make([]int, len(vertices))
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && vertices[order[end]].Equal(vertices[order[start]]) {
			end++
		}
		// stable sort keeps the smallest index first
		rep := order[start]
		for _, v := range order[start:end] {
			im[v] = rep
		}
		start = end
	}
	return im
}

// IdentityMap sends each vertex to the smallest index with equal coordinates. It is the
// identity when no two vertices coincide.
func IdentityMap[T kernel.Scalar[T]](vertices []kernel.Vec3[T]) []int {
	return canonical(vertices)
}

// StitchAll merges coincident vertices, keeping the first occurrence of each point in order,
// and remaps faces.
func StitchAll[T kernel.Scalar[T]](vertices []kernel.Vec3[T], faces [][3]int) ([]kernel.Vec3[T], [][3]int) {
	im := canonical(vertices)
	remap := make([]int, len(vertices))
	out := make([]kernel.Vec3[T], 0, len(vertices))
	for v, rep := range im {
		if rep == v {
			remap[v] = len(out)
			out = append(out, vertices[v])
		}
	}
	outFaces := make([][3]int, len(faces))
	for i, f := range faces {
		for c := 0; c < 3; c++ {
			outFaces[i][c] = remap[im[f[c]]]
		}
	}
	return out, outFaces
}

// combine aggregates per-patch failures.
func combine(errs []error) error {
	return multierr.Combine(errs...)
}
