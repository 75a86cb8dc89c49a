package mend

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// Mesh is an indexed triangle mesh with coordinates in the kernel's number type.
type Mesh[T kernel.Scalar[T]] struct {
	Vertices []kernel.Vec3[T]
	Faces    [][3]int
}

// FromFloat64 converts a float mesh. The conversion is lossless for the exact kernel.
// Non-finite coordinates are rejected.
func FromFloat64[T kernel.Scalar[T]](k kernel.Kernel[T], vertices []mgl64.Vec3, faces [][3]int) (Mesh[T], error) {
	m := Mesh[T]{
		Vertices: make([]kernel.Vec3[T], len(vertices)),
		Faces:    faces,
	}
	for i, v := range vertices {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return Mesh[T]{}, &InvalidInputError{Face: -1, Vertex: i, Reason: "coordinate is not finite"}
			}
		}
		m.Vertices[i] = kernel.Vec3[T]{k.FromFloat64(v[0]), k.FromFloat64(v[1]), k.FromFloat64(v[2])}
	}
	return m, m.Validate()
}

// FromFlat converts flat buffers: xyz triples and index triples.
func FromFlat[T kernel.Scalar[T]](k kernel.Kernel[T], coords []float64, indices []int) (Mesh[T], error) {
	if len(coords)%3 != 0 {
		return Mesh[T]{}, &InvalidInputError{Face: -1, Vertex: -1, Reason: "coordinate buffer length is not a multiple of 3"}
	}
	if len(indices)%3 != 0 {
		return Mesh[T]{}, &InvalidInputError{Face: -1, Vertex: -1, Reason: "index buffer length is not a multiple of 3"}
	}
	vertices := make([]mgl64.Vec3, len(coords)/3)
	for i := range vertices {
		vertices[i] = mgl64.Vec3{coords[3*i], coords[3*i+1], coords[3*i+2]}
	}
	faces := make([][3]int, len(indices)/3)
	for i := range faces {
		faces[i] = [3]int{indices[3*i], indices[3*i+1], indices[3*i+2]}
	}
	return FromFloat64(k, vertices, faces)
}

// Validate checks that every face references existing vertices and that coordinates are
// finite.
func (m Mesh[T]) Validate() error {
	for i, v := range m.Vertices {
		if !v.IsFinite() {
			return &InvalidInputError{Face: -1, Vertex: i, Reason: "coordinate is not finite"}
		}
	}
	return invalidIndex(soup.CheckIndices(len(m.Vertices), m.Faces))
}

// invalidIndex maps a soup index failure to an InvalidInputError.
func invalidIndex(err error) error {
	var ie *soup.IndexError
	if errors.As(err, &ie) {
		return &InvalidInputError{Face: ie.Face, Vertex: -1, Reason: "vertex index out of range"}
	}
	return err
}

// Float64 converts the mesh coordinates to float vectors.
func (m Mesh[T]) Float64() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Float64()
	}
	return out
}

// Concat appends b to a, offsetting b's indices. The second result tells which input each
// face came from.
func Concat[T kernel.Scalar[T]](a, b Mesh[T]) (Mesh[T], []int) {
	out := Mesh[T]{
		Vertices: make([]kernel.Vec3[T], 0, len(a.Vertices)+len(b.Vertices)),
		Faces:    make([][3]int, 0, len(a.Faces)+len(b.Faces)),
	}
	source := make([]int, 0, len(a.Faces)+len(b.Faces))
	out.Vertices = append(out.Vertices, a.Vertices...)
	out.Vertices = append(out.Vertices, b.Vertices...)
	out.Faces = append(out.Faces, a.Faces...)
	for range a.Faces {
		source = append(source, 0)
	}
	off := len(a.Vertices)
	for _, f := range b.Faces {
		out.Faces = append(out.Faces, [3]int{f[0] + off, f[1] + off, f[2] + off})
		source = append(source, 1)
	}
	return out, source
}
