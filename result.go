package mend

import (
	"time"

	"github.com/akmonengine/mend/kernel"
)

// Status says how a run ended.
type Status struct {
	// FirstHit is set when a first-only run stopped at its first intersecting pair. It is a
	// normal outcome, distinct from finding nothing.
	FirstHit bool
	// Degraded is set when any patch failed or any construction fell back to "no
	// intersection".
	Degraded bool
	// NumericFallbacks counts per-pair constructions that could not be evaluated.
	NumericFallbacks int
	// Err aggregates the per-patch failures. The result is well formed regardless.
	Err error
}

// Timings holds the duration of each phase.
type Timings struct {
	Build         time.Duration
	BroadPhase    time.Duration
	NarrowPhase   time.Duration
	Cluster       time.Duration
	Retriangulate time.Duration
	Stitch        time.Duration
}

// Result is the output of a run.
type Result[T kernel.Scalar[T]] struct {
	// Vertices starts with the input vertices in order, followed by the new ones. With
	// StitchAll, coincident vertices are merged and the input prefix is no longer kept.
	Vertices []kernel.Vec3[T]
	// Faces is empty in detect-only runs.
	Faces [][3]int
	// BirthFaces maps each output face to the input face it came from.
	BirthFaces []int
	// Pairs lists the intersecting faces, each pair ordered and the list sorted.
	Pairs [][2]int
	// IdentityMap sends each output vertex to the smallest index holding the same point.
	IdentityMap []int
	// Source, in two-mesh runs, tells which input each output face came from.
	Source []int
	// Count is the number of intersecting pairs found.
	Count   int
	Timings Timings
	Status  Status
}

// Intersecting reports whether any intersecting pair was found.
func (r Result[T]) Intersecting() bool {
	return r.Count > 0
}

// Mesh returns the output as a mesh.
func (r Result[T]) Mesh() Mesh[T] {
	return Mesh[T]{Vertices: r.Vertices, Faces: r.Faces}
}
