package mend

import (
	"sort"
	"sync"

	"github.com/akmonengine/mend/intersect"
	"github.com/akmonengine/mend/kernel"
)

const offendingShards = 64

// Entry is one recorded intersection of a face with another face.
type Entry[T kernel.Scalar[T]] struct {
	Other  int
	Object intersect.Object[T]
}

type offendingShard[T kernel.Scalar[T]] struct {
	mu      sync.Mutex
	entries map[int][]Entry[T]
}

// OffendingMap maps each intersecting face to its recorded intersections. It is written
// concurrently by the narrow phase workers; a face's entry list only grows.
type OffendingMap[T kernel.Scalar[T]] struct {
	shards [offendingShards]offendingShard[T]

	pairsMu sync.Mutex
	pairs   [][2]int
}

func NewOffendingMap[T kernel.Scalar[T]]() *OffendingMap[T] {
	m := &OffendingMap[T]{}
	for i := range m.shards {
		m.shards[i].entries = make(map[int][]Entry[T])
	}
	return m
}

func (m *OffendingMap[T]) shard(face int) *offendingShard[T] {
	return &m.shards[face&(offendingShards-1)]
}

func (m *OffendingMap[T]) append(face, other int, obj intersect.Object[T]) {
	s := m.shard(face)
	s.mu.Lock()
	s.entries[face] = append(s.entries[face], Entry[T]{Other: other, Object: obj})
	s.mu.Unlock()
}

// Record stores obj for both faces of the pair.
func (m *OffendingMap[T]) Record(faceA, faceB int, obj intersect.Object[T]) {
	m.append(faceA, faceB, obj)
	m.append(faceB, faceA, obj)
}

// AddPair lists an intersecting pair once.
func (m *OffendingMap[T]) AddPair(faceA, faceB int) {
	key := makePairKey(faceA, faceB)
	m.pairsMu.Lock()
	m.pairs = append(m.pairs, [2]int{key.faceA, key.faceB})
	m.pairsMu.Unlock()
}

// Entries returns a copy of face's entries sorted by partner, or nil.
func (m *OffendingMap[T]) Entries(face int) []Entry[T] {
	s := m.shard(face)
	s.mu.Lock()
	src := s.entries[face]
	out := make([]Entry[T], len(src))
	copy(out, src)
	s.mu.Unlock()
	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Other < out[j].Other })
	return out
}

// Faces returns every face with at least one entry, ascending.
func (m *OffendingMap[T]) Faces() []int {
	var faces []int
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for f := range s.entries {
			faces = append(faces, f)
		}
		s.mu.Unlock()
	}
	sort.Ints(faces)
	return faces
}

// Pairs returns the intersecting pairs sorted ascending.
func (m *OffendingMap[T]) Pairs() [][2]int {
	m.pairsMu.Lock()
	pairs := make([][2]int, len(m.pairs))
	copy(pairs, m.pairs)
	m.pairsMu.Unlock()
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
