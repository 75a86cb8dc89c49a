package mend

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

func randomSoup(t *testing.T, seed int64, n int) []soup.Triangle[kernel.Float] {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var vertices []kernel.Vec3[kernel.Float]
	var faces [][3]int
	for i := 0; i < n; i++ {
		center := mgl64.Vec3{rng.Float64() * 8, rng.Float64() * 8, rng.Float64() * 8}
		size := 0.2 + rng.Float64()*1.5
		for c := 0; c < 3; c++ {
			p := center.Add(mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}.Mul(size))
			vertices = append(vertices, kernel.Vec3[kernel.Float]{kernel.Float(p[0]), kernel.Float(p[1]), kernel.Float(p[2])})
		}
		faces = append(faces, [3]int{3 * i, 3*i + 1, 3*i + 2})
	}
	// boxes touching exactly on a face
	vertices = append(vertices,
		kernel.Vec3[kernel.Float]{20, 0, 0}, kernel.Vec3[kernel.Float]{21, 0, 0}, kernel.Vec3[kernel.Float]{20, 1, 0},
		kernel.Vec3[kernel.Float]{21, 0, 0}, kernel.Vec3[kernel.Float]{22, 0, 1}, kernel.Vec3[kernel.Float]{22, 1, 0},
	)
	faces = append(faces, [3]int{3 * n, 3*n + 1, 3*n + 2}, [3]int{3*n + 3, 3*n + 4, 3*n + 5})

	triangles, err := soup.Build[kernel.Float](kernel.Inexact{}, vertices, faces)
	test.That(t, err, test.ShouldBeNil)
	return triangles
}

func TestBroadPhaseMatchesBruteForce(t *testing.T) {
	triangles := randomSoup(t, 3, 250)
	live := soup.Live(triangles)
	boxes := make([]soup.AABB, len(live))
	for i, f := range live {
		boxes[i] = triangles[f].Box
	}

	expected := map[CandidatePair]bool{}
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			if boxes[i].Overlaps(boxes[j]) {
				expected[CandidatePair{FaceA: live[i], FaceB: live[j]}] = true
			}
		}
	}
	test.That(t, expected[CandidatePair{FaceA: len(triangles) - 2, FaceB: len(triangles) - 1}], test.ShouldBeTrue)

	for _, tc := range []struct {
		name     string
		kind     BroadPhaseKind
		cellSize float64
		workers  int
	}{
		{"grid auto", BroadPhaseGrid, 0, 1},
		{"grid parallel", BroadPhaseGrid, 0, 4},
		{"grid coarse", BroadPhaseGrid, 5, 2},
		{"grid fine", BroadPhaseGrid, 0.05, 3},
		{"rtree", BroadPhaseRTree, 0, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pairs := collectPairs(NewBroadPhase(tc.kind, tc.cellSize).FindPairs(context.Background(), live, boxes, tc.workers))
			test.That(t, pairs, test.ShouldHaveLength, len(expected))
			for i, p := range pairs {
				test.That(t, p.FaceA, test.ShouldBeLessThan, p.FaceB)
				test.That(t, expected[p], test.ShouldBeTrue)
				if i > 0 {
					test.That(t, pairs[i-1], test.ShouldNotResemble, p)
				}
			}
		})
	}
}

func TestBroadPhaseKeepsIntersectingPairs(t *testing.T) {
	k := kernel.Inexact{}
	for seed := int64(1); seed <= 4; seed++ {
		triangles := randomSoup(t, seed, 120)
		live := soup.Live(triangles)
		boxes := make([]soup.AABB, len(live))
		for i, f := range live {
			boxes[i] = triangles[f].Box
		}
		found := map[CandidatePair]bool{}
		for _, p := range collectPairs(NewBroadPhase(BroadPhaseGrid, 0).FindPairs(context.Background(), live, boxes, 2)) {
			found[p] = true
		}
		for i := range live {
			for j := i + 1; j < len(live); j++ {
				a, b := triangles[live[i]], triangles[live[j]]
				if o, err := intersect.Triangles[kernel.Float](k, a.V, b.V); err == nil && !o.IsEmpty() {
					test.That(t, found[CandidatePair{FaceA: a.Face, FaceB: b.Face}], test.ShouldBeTrue)
				}
			}
		}
	}
}

func TestBroadPhaseEmpty(t *testing.T) {
	for _, kind := range []BroadPhaseKind{BroadPhaseGrid, BroadPhaseRTree} {
		pairs := collectPairs(NewBroadPhase(kind, 0).FindPairs(context.Background(), []int{3}, []soup.AABB{{}}, 1))
		test.That(t, pairs, test.ShouldBeEmpty)
	}
}

func TestFilterPairs(t *testing.T) {
	in := make(chan CandidatePair, 3)
	in <- CandidatePair{0, 1}
	in <- CandidatePair{0, 2}
	in <- CandidatePair{1, 2}
	close(in)
	source := []int{0, 0, 1}
	out := collectPairs(filterPairs(context.Background(), in, func(p CandidatePair) bool {
		return source[p.FaceA] != source[p.FaceB]
	}))
	test.That(t, out, test.ShouldResemble, []CandidatePair{{0, 2}, {1, 2}})
}

// collectPairs drains a pair stream into a sorted list.
func collectPairs(in <-chan CandidatePair) []CandidatePair {
	var pairs []CandidatePair
	for p := range in {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].FaceA != pairs[j].FaceA {
			return pairs[i].FaceA < pairs[j].FaceA
		}
		return pairs[i].FaceB < pairs[j].FaceB
	})
	return pairs
}
