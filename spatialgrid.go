package mend

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/mend/soup"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - Coordonnées d'une cellule dans l'espace 3D
type CellKey struct {
	X, Y, Z int
}

// Cell - Conteneur d'indices de boîtes dans une cellule
type Cell struct {
	slots []int
}

// SpatialGrid - Grille spatiale uniforme avec hashing pour broad phase
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	boxes    []soup.AABB
}

// maxCellsPerAxis bounds how many cells the largest box spans along one axis.
const maxCellsPerAxis = 32

// ============================================================================
// Constructeur
// ============================================================================

// NewSpatialGrid - Crée une nouvelle grille spatiale
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].slots = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// CellSizeFor - Taille de cellule adaptée aux boîtes : la taille moyenne, élargie si la plus
// grande boîte couvrirait trop de cellules.
func CellSizeFor(boxes []soup.AABB) float64 {
	if len(boxes) == 0 {
		return 1
	}
	sum, largest := 0.0, 0.0
	for _, box := range boxes {
		s := box.Size()
		extent := math.Max(s.X(), math.Max(s.Y(), s.Z()))
		sum += extent
		largest = math.Max(largest, extent)
	}
	size := math.Max(sum/float64(len(boxes)), largest/maxCellsPerAxis)
	if size <= 0 || math.IsInf(size, 0) || math.IsNaN(size) {
		return 1
	}
	return size
}

// nextPowerOfTwo - Arrondit à la puissance de 2 supérieure
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert - Insère une boîte dans toutes les cellules qu'elle occupe
func (sg *SpatialGrid) Insert(slot int, box soup.AABB) {
	for slot >= len(sg.boxes) {
		sg.boxes = append(sg.boxes, soup.EmptyAABB())
	}
	sg.boxes[slot] = box

	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				sg.cells[cellIdx].slots = append(sg.cells[cellIdx].slots, slot)
			}
		}
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].slots) > 1 {
			sort.Ints(sg.cells[i].slots)
		}
	}
}

// FindPairs - Version séquentielle. Chaque paire (a, b) avec a < b n'apparaît qu'une fois.
func (sg *SpatialGrid) FindPairs() [][2]int {
	pairs := make([][2]int, 0, len(sg.boxes)/2)
	seen := newSeenSet(len(sg.boxes))

	for slot := range sg.boxes {
		sg.visit(slot, seen, func(other int) {
			pairs = append(pairs, [2]int{slot, other})
		})
	}

	return pairs
}

// FindPairsParallel - Version parallèle retournant un channel. Le channel est fermé quand tous
// les workers ont terminé ou que ctx est annulé.
func (sg *SpatialGrid) FindPairsParallel(ctx context.Context, numWorkers int) <-chan [2]int {
	var wg sync.WaitGroup
	numWorkers = max(1, numWorkers)
	pairsChan := make(chan [2]int, numWorkers*10)

	numBoxes := len(sg.boxes)
	boxesPerWorker := (numBoxes + numWorkers - 1) / numWorkers
	if boxesPerWorker == 0 {
		boxesPerWorker = 1
	}

	for start := 0; start < numBoxes; start += boxesPerWorker {
		wg.Add(1)

		go func(start, end int) {
			defer wg.Done()

			seen := newSeenSet(numBoxes)
			for slot := start; slot < end; slot++ {
				if ctx.Err() != nil {
					return
				}
				sg.visit(slot, seen, func(other int) {
					select {
					case pairsChan <- [2]int{slot, other}:
					case <-ctx.Done():
					}
				})
			}
		}(start, min(start+boxesPerWorker, numBoxes))
	}

	go func() {
		wg.Wait()
		close(pairsChan)
	}()

	return pairsChan
}

// visit - Appelle fn pour chaque boîte d'indice supérieur qui chevauche la boîte slot
func (sg *SpatialGrid) visit(slot int, seen *seenSet, fn func(other int)) {
	box := sg.boxes[slot]
	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)
	defer seen.reset()

	// Parcourir ces cellules
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				for _, other := range sg.cells[cellIdx].slots {
					// Avoid duplicates
					if other <= slot || seen.has(other) {
						continue
					}
					seen.add(other)

					if box.Overlaps(sg.boxes[other]) {
						fn(other)
					}
				}
			}
		}
	}
}

// worldToCell - Convertit une position monde en coordonnées de cellule
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - Hash une cellule vers un index dans l'array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}

// seenSet - Marquage des boîtes déjà testées, remis à zéro en O(touchées)
type seenSet struct {
	marks   []bool
	touched []int
}

func newSeenSet(n int) *seenSet {
	return &seenSet{marks: make([]bool, n), touched: make([]int, 0, 32)}
}

func (s *seenSet) has(i int) bool { return s.marks[i] }

func (s *seenSet) add(i int) {
	s.marks[i] = true
	s.touched = append(s.touched, i)
}

func (s *seenSet) reset() {
	for _, i := range s.touched {
		s.marks[i] = false
	}
	s.touched = s.touched[:0]
}
