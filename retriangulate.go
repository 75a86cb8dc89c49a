package mend

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/akmonengine/mend/cdt"
	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// PatchMesh is the constrained triangulation of one patch, restricted to the region enclosed
// by its member faces. Triangles are counter-clockwise in the projection along Axis.
type PatchMesh[T kernel.Scalar[T]] struct {
	Axis      int
	Vertices  []cdt.Vertex[T]
	Triangles [][3]int
	Err       error
}

// Retriangulate triangulates every patch. Patches are independent and each one writes only
// its own slot, so the result does not depend on workersCount.
func Retriangulate[T kernel.Scalar[T]](ctx context.Context, k kernel.Kernel[T], triangles []soup.Triangle[T], offending *OffendingMap[T], patches []Patch[T], workersCount int) ([]PatchMesh[T], error) {
	meshes := make([]PatchMesh[T], len(patches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workersCount))
	for i := range patches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			meshes[i] = triangulatePatch(k, triangles, offending, patches[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// patchConstraints gathers the seed points and constraint edges of a patch: every member
// triangle, then every intersection recorded for a member, in partner order.
func patchConstraints[T kernel.Scalar[T]](triangles []soup.Triangle[T], offending *OffendingMap[T], patch Patch[T]) ([]kernel.Vec3[T], []cdt.ConstraintEdge[T]) {
	var points []kernel.Vec3[T]
	var edges []cdt.ConstraintEdge[T]
	for _, f := range patch.Members {
		tri := triangles[f]
		points = append(points, tri.V[:]...)
		for i := 0; i < 3; i++ {
			edges = append(edges, cdt.ConstraintEdge[T]{A: tri.V[i], B: tri.V[(i+1)%3]})
		}
	}
	for _, f := range patch.Members {
		for _, e := range offending.Entries(f) {
			switch e.Object.Kind {
			case intersect.Point:
				points = append(points, e.Object.Points[0])
			case intersect.Segment, intersect.Polygon:
				for _, edge := range e.Object.Edges() {
					edges = append(edges, cdt.ConstraintEdge[T]{A: edge[0], B: edge[1]})
				}
			}
		}
	}
	return points, edges
}

func triangulatePatch[T kernel.Scalar[T]](k kernel.Kernel[T], triangles []soup.Triangle[T], offending *OffendingMap[T], patch Patch[T]) PatchMesh[T] {
	axis := intersect.ProjectionAxis(patch.Plane)
	points, edges := patchConstraints(triangles, offending, patch)

	tr, err := cdt.Build(k, axis, points, edges)
	if err != nil {
		return PatchMesh[T]{Axis: axis, Err: errors.Wrap(err, "triangulating")}
	}
	return PatchMesh[T]{
		Axis:      axis,
		Vertices:  tr.Vertices(),
		Triangles: tr.Interior(),
	}
}
