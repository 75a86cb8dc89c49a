package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.viam.com/test"

	"github.com/akmonengine/mend/internal/objfile"
)

// two triangles crossing each other without shared vertices
var crossing = objfile.Mesh{
	Vertices: []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}, {0.5, 0.5, -1}, {0.5, 0.5, 1}, {0.5, -1, 0}},
	Faces:    [][3]int{{0, 1, 2}, {3, 4, 5}},
}

func writeMesh(t *testing.T, m objfile.Mesh) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.obj")
	test.That(t, objfile.WriteFile(path, m), test.ShouldBeNil)
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"mend"}, args...))
	return out.String(), err
}

func TestCheck(t *testing.T) {
	path := writeMesh(t, crossing)
	out, err := run(t, "--workers", "2", "check", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "1 intersecting pairs")

	out, err = run(t, "check", "--first-only", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "stopped at the first intersecting pair")

	clean := writeMesh(t, objfile.Mesh{Vertices: crossing.Vertices, Faces: crossing.Faces[:1]})
	out, err = run(t, "check", clean)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "no intersecting faces")

	_, err = run(t, "check")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRepair(t *testing.T) {
	for _, k := range []string{"exact", "inexact"} {
		t.Run(k, func(t *testing.T) {
			in := writeMesh(t, crossing)
			outPath := filepath.Join(t.TempDir(), "out.obj")
			out, err := run(t, "repair", "--kernel", k, "--stitch-all", in, outPath)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, out, test.ShouldContainSubstring, "Patches resolved")

			m, err := objfile.ReadFile(outPath)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(m.Faces), test.ShouldBeGreaterThan, 2)

			res, err := run(t, "check", outPath)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res, test.ShouldContainSubstring, "no intersecting faces")
		})
	}
}

func TestRepairErrors(t *testing.T) {
	in := writeMesh(t, crossing)
	outPath := filepath.Join(t.TempDir(), "out.obj")

	_, err := run(t, "repair", "--kernel", "fixed", in, outPath)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "repair", in)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "--broad-phase", "octree", "repair", in, outPath)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "mend.json")
	test.That(t, os.WriteFile(config, []byte(`{"broad_phase": "rtree", "workers": "2"}`), 0o600), test.ShouldBeNil)

	out, err := run(t, "--config", config, "check", writeMesh(t, crossing))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "1 intersecting pairs")

	test.That(t, os.WriteFile(config, []byte(`{"unknown": true}`), 0o600), test.ShouldBeNil)
	_, err = run(t, "--config", config, "check", writeMesh(t, crossing))
	test.That(t, err, test.ShouldNotBeNil)
}
