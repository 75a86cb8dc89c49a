// Package soup turns an indexed mesh into a flat array of triangle primitives.
//
// Index failures are reported as *IndexError. The mend package maps them to its own
// InvalidInputError before they reach callers.
package soup

import (
	"fmt"

	"github.com/akmonengine/mend/kernel"
)

// IndexError reports a face corner referencing a missing vertex.
type IndexError struct {
	Face   int
	Corner int
	Index  int
	Count  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("face %d corner %d references vertex %d, mesh has %d vertices", e.Face, e.Corner, e.Index, e.Count)
}

// CheckIndices returns an *IndexError for the first face corner outside [0, count).
func CheckIndices(count int, faces [][3]int) error {
	for f, face := range faces {
		for c, idx := range face {
			if idx < 0 || idx >= count {
				return &IndexError{Face: f, Corner: c, Index: idx, Count: count}
			}
		}
	}
	return nil
}

// Build resolves every face to a Triangle, in face order. It is pure; the only failure is
// an out-of-range vertex index.
func Build[T kernel.Scalar[T]](k kernel.Kernel[T], vertices []kernel.Vec3[T], faces [][3]int) ([]Triangle[T], error) {
	if err := CheckIndices(len(vertices), faces); err != nil {
		return nil, err
	}
	triangles := make([]Triangle[T], len(faces))
	for f, face := range faces {
		triangles[f] = NewTriangle(k, f, face, vertices)
	}
	return triangles, nil
}

// NewTriangle resolves face f. Its indices must be valid.
func NewTriangle[T kernel.Scalar[T]](k kernel.Kernel[T], f int, face [3]int, vertices []kernel.Vec3[T]) Triangle[T] {
	t := Triangle[T]{
		Face:    f,
		Indices: face,
		V:       [3]kernel.Vec3[T]{vertices[face[0]], vertices[face[1]], vertices[face[2]]},
	}
	t.Degenerate = IsDegenerate(k, t.V[0], t.V[1], t.V[2])
	t.Box = bounds(k, t.V)
	return t
}

// Live returns the indices of non-degenerate triangles.
func Live[T kernel.Scalar[T]](triangles []Triangle[T]) []int {
	live := make([]int, 0, len(triangles))
	for i := range triangles {
		if !triangles[i].Degenerate {
			live = append(live, i)
		}
	}
	return live
}
