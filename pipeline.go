package mend

import (
	"sync"

	"github.com/samber/lo"

	"github.com/akmonengine/mend/kernel"
	"github.com/akmonengine/mend/soup"
)

// task applies fn to every element of data, split in contiguous chunks over workersCount
// goroutines.
func task[T any](workersCount int, data []T, fn func(data T)) {
	var wg sync.WaitGroup
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	workersCount = max(1, min(workersCount, dataSize))
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}

// buildTriangles is soup.Build spread over workersCount goroutines. Index failures come
// back as *InvalidInputError.
func buildTriangles[T kernel.Scalar[T]](k kernel.Kernel[T], m Mesh[T], workersCount int) ([]soup.Triangle[T], error) {
	if workersCount <= 1 {
		triangles, err := soup.Build(k, m.Vertices, m.Faces)
		return triangles, invalidIndex(err)
	}
	if err := soup.CheckIndices(len(m.Vertices), m.Faces); err != nil {
		return nil, invalidIndex(err)
	}
	triangles := make([]soup.Triangle[T], len(m.Faces))
	task(workersCount, lo.Range(len(m.Faces)), func(f int) {
		triangles[f] = soup.NewTriangle(k, f, m.Faces[f], m.Vertices)
	})
	return triangles, nil
}
