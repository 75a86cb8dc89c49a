package mend

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

func TestClusterize(t *testing.T) {
	m := ratMesh(t, []mgl64.Vec3{
		{0, 0, 0}, {2, 0, 0}, {0, 2, 0},
		{0.5, 0.5, 0}, {3, 0.5, 0}, {0.5, 3, 0},
		{0.25, 0.25, -1}, {0.25, 0.25, 1}, {0.25, -3, 0},
		{10, 0, 0}, {11, 0, 0}, {10, 1, 0},
	}, [][3]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11}})
	k := kernel.Exact{}
	triangles, err := soup.Build[kernel.Rat](k, m.Vertices, m.Faces)
	test.That(t, err, test.ShouldBeNil)

	offending := NewOffendingMap[kernel.Rat]()
	obj := intersect.NewPoint(ratVec(0.25, 0.25, 0))
	offending.Record(2, 0, obj)
	offending.Record(1, 0, obj)
	offending.Record(1, 2, obj)

	patches := Clusterize[kernel.Rat](k, triangles, offending)
	test.That(t, patches, test.ShouldHaveLength, 2)
	test.That(t, patches[0].Members, test.ShouldResemble, []int{0, 1})
	test.That(t, patches[0].Seed(), test.ShouldEqual, 0)
	test.That(t, patches[0].Plane, test.ShouldResemble, triangles[0].V)
	test.That(t, patches[1].Members, test.ShouldResemble, []int{2})
}

func TestClusterizeChain(t *testing.T) {
	// 0 overlaps 1, 1 overlaps 2, 0 and 2 are apart: one patch
	m := ratMesh(t, []mgl64.Vec3{
		{0, 0, 0}, {2, 0, 0}, {0, 2, 0},
		{1, 0, 0}, {3, 0, 0}, {1, 2, 0},
		{2.5, 0, 0}, {4.5, 0, 0}, {2.5, 2, 0},
	}, [][3]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}})
	k := kernel.Exact{}
	triangles, err := soup.Build[kernel.Rat](k, m.Vertices, m.Faces)
	test.That(t, err, test.ShouldBeNil)

	offending := NewOffendingMap[kernel.Rat]()
	obj := intersect.NewPoint(ratVec(1, 0, 0))
	offending.Record(1, 2, obj)
	offending.Record(0, 1, obj)

	patches := Clusterize[kernel.Rat](k, triangles, offending)
	test.That(t, patches, test.ShouldHaveLength, 1)
	test.That(t, patches[0].Members, test.ShouldResemble, []int{0, 1, 2})
}
