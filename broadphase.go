package mend

import (
	"context"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/akmonengine/mend/soup"
)

// CandidatePair holds two faces whose boxes overlap, FaceA < FaceB.
type CandidatePair struct {
	FaceA int
	FaceB int
}

// BroadPhase enumerates every pair of overlapping boxes. boxes[i] is the box of faces[i];
// faces is ascending. Pairs are streamed in no particular order and the channel is closed
// once enumeration is done or ctx is cancelled.
//
// Both strategies are sub-quadratic for meshes of evenly sized triangles and quadratic in
// the worst case, when every box overlaps every other.
type BroadPhase interface {
	FindPairs(ctx context.Context, faces []int, boxes []soup.AABB, workers int) <-chan CandidatePair
}

// NewBroadPhase returns the strategy for kind. A cellSize of zero lets the grid pick one.
func NewBroadPhase(kind BroadPhaseKind, cellSize float64) BroadPhase {
	if kind == BroadPhaseRTree {
		return rtreeBroadPhase{}
	}
	return gridBroadPhase{cellSize: cellSize}
}

type gridBroadPhase struct {
	cellSize float64
}

func (g gridBroadPhase) FindPairs(ctx context.Context, faces []int, boxes []soup.AABB, workers int) <-chan CandidatePair {
	out := make(chan CandidatePair, workers*10)
	cellSize := g.cellSize
	if cellSize <= 0 {
		cellSize = CellSizeFor(boxes)
	}

	go func() {
		defer close(out)
		if len(boxes) < 2 {
			return
		}
		grid := NewSpatialGrid(cellSize, len(boxes))
		for slot, box := range boxes {
			grid.Insert(slot, box)
		}
		grid.SortCells()

		if workers <= 1 {
			for _, p := range grid.FindPairs() {
				select {
				case out <- CandidatePair{FaceA: faces[p[0]], FaceB: faces[p[1]]}:
				case <-ctx.Done():
					return
				}
			}
			return
		}
		for p := range grid.FindPairsParallel(ctx, workers) {
			select {
			case out <- CandidatePair{FaceA: faces[p[0]], FaceB: faces[p[1]]}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// rtreeItem is a box stored in the R-tree.
type rtreeItem struct {
	slot int
	rect rtreego.Rect
}

func (it *rtreeItem) Bounds() rtreego.Rect { return it.rect }

type rtreeBroadPhase struct{}

// rtree search treats touching boxes as disjoint, so queries are inflated and every hit is
// checked again with the closed overlap test.
func (rtreeBroadPhase) FindPairs(ctx context.Context, faces []int, boxes []soup.AABB, _ int) <-chan CandidatePair {
	out := make(chan CandidatePair, 64)

	go func() {
		defer close(out)
		if len(boxes) < 2 {
			return
		}
		items := make([]rtreego.Spatial, len(boxes))
		for slot, box := range boxes {
			items[slot] = &rtreeItem{slot: slot, rect: rectOf(box)}
		}
		tree := rtreego.NewTree(3, 25, 50, items...)

		for slot, box := range boxes {
			if ctx.Err() != nil {
				return
			}
			hits := tree.SearchIntersect(rectOf(box.Inflate(inflation(box))))
			others := make([]int, 0, len(hits))
			for _, h := range hits {
				other := h.(*rtreeItem).slot
				if other > slot && box.Overlaps(boxes[other]) {
					others = append(others, other)
				}
			}
			sort.Ints(others)
			for _, other := range others {
				select {
				case out <- CandidatePair{FaceA: faces[slot], FaceB: faces[other]}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// rectOf converts a box. Zero-length sides are valid for NewRectFromPoints.
func rectOf(box soup.AABB) rtreego.Rect {
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{box.Min[0], box.Min[1], box.Min[2]},
		rtreego.Point{box.Max[0], box.Max[1], box.Max[2]},
	)
	if err != nil {
		// only dimension mismatches fail
		panic(err)
	}
	return r
}

func inflation(box soup.AABB) float64 {
	m := 1.0
	for i := 0; i < 3; i++ {
		m = math.Max(m, math.Max(math.Abs(box.Min[i]), math.Abs(box.Max[i])))
	}
	return m * 1e-9
}

// filterPairs drops pairs rejected by keep.
func filterPairs(ctx context.Context, in <-chan CandidatePair, keep func(CandidatePair) bool) <-chan CandidatePair {
	if keep == nil {
		return in
	}
	out := make(chan CandidatePair, cap(in))
	go func() {
		defer close(out)
		for p := range in {
			if !keep(p) {
				continue
			}
			select {
			case out <- p:
			case <-ctx.Done():
			}
		}
	}()
	return out
}
