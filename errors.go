package mend

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/akmonengine/mend/intersect"
)

// InvalidInputError rejects a mesh before any work is done.
type InvalidInputError struct {
	// Face is the offending face, or -1.
	Face int
	// Vertex is the offending vertex, or -1.
	Vertex int
	Reason string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Face >= 0:
		return fmt.Sprintf("invalid input: face %d: %s", e.Face, e.Reason)
	case e.Vertex >= 0:
		return fmt.Sprintf("invalid input: vertex %d: %s", e.Vertex, e.Reason)
	}
	return "invalid input: " + e.Reason
}

// ErrUnresolvedPatchAssignment marks a member face of a patch that no retriangulated
// triangle is born from.
var ErrUnresolvedPatchAssignment = errors.New("patch member has no retriangulated triangle")

// ErrNumericFallback is re-exported so callers can match per-pair construction failures.
var ErrNumericFallback = intersect.ErrNumericFallback

// PatchError reports a patch whose retriangulation failed.
type PatchError struct {
	// Seed is the first member face of the patch.
	Seed int
	Err  error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %d: %v", e.Seed, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }
