// Package objfile reads and writes triangle meshes in the Wavefront OBJ format.
// Only vertex positions and faces are kept; polygons are split into triangle fans.
package objfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Mesh is an indexed triangle mesh with zero-based indices.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    [][3]int
}

// Read parses an OBJ stream.
func Read(r io.Reader) (Mesh, error) {
	var m Mesh
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				return Mesh{}, errors.Wrapf(err, "line %d", line)
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			if len(fields) < 4 {
				return Mesh{}, errors.Errorf("line %d: face needs at least 3 vertices", line)
			}
			corners := make([]int, len(fields)-1)
			for i, field := range fields[1:] {
				idx, err := parseIndex(field, len(m.Vertices))
				if err != nil {
					return Mesh{}, errors.Wrapf(err, "line %d", line)
				}
				corners[i] = idx
			}
			for i := 1; i+1 < len(corners); i++ {
				m.Faces = append(m.Faces, [3]int{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Mesh{}, errors.Wrap(err, "reading obj")
	}
	return m, nil
}

func parseVertex(fields []string) (mgl64.Vec3, error) {
	if len(fields) < 3 {
		return mgl64.Vec3{}, errors.New("vertex needs 3 coordinates")
	}
	var v mgl64.Vec3
	for i := 0; i < 3; i++ {
		c, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return mgl64.Vec3{}, errors.Wrapf(err, "coordinate %d", i)
		}
		v[i] = c
	}
	return v, nil
}

// parseIndex reads the position part of "v", "v/vt", "v//vn" or "v/vt/vn". Negative
// indices count back from the last vertex read so far.
func parseIndex(field string, count int) (int, error) {
	pos, _, _ := strings.Cut(field, "/")
	n, err := strconv.Atoi(pos)
	if err != nil {
		return 0, errors.Wrapf(err, "face index %q", field)
	}
	switch {
	case n > 0:
		return n - 1, nil
	case n < 0:
		return count + n, nil
	}
	return 0, errors.Errorf("face index %q: zero is not a valid index", field)
}

// Write emits vertices then faces, with one-based indices.
func Write(w io.Writer, m Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return errors.Wrap(bw.Flush(), "writing obj")
}

// formatFloat prints the shortest representation that parses back to the same value.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ReadFile reads the OBJ file at path.
func ReadFile(path string) (Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return Mesh{}, err
	}
	defer f.Close()
	m, err := Read(f)
	return m, errors.Wrap(err, path)
}

// WriteFile writes m to path, replacing any existing file.
func WriteFile(path string, m Mesh) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, m)
}
