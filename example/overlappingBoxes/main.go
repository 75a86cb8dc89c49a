package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/mend"
	"github.com/akmonengine/mend/internal/objfile"
	"github.com/akmonengine/mend/kernel"
)

const (
	meshCells = 24
	// weldStep est le pas de la grille sur laquelle les sommets sont recollés
	weldStep = 1e-6
)

// boxMesh maille une boîte par marching cubes puis recolle les sommets identiques
func boxMesh(size, offset v3.Vec, angle float64) objfile.Mesh {
	box, err := sdf.Box3D(size, 0)
	if err != nil {
		log.Fatalf("sdf.Box3D: %v", err)
	}
	m := sdf.Translate3d(offset).Mul(sdf.RotateZ(angle))
	triangles := render.ToTriangles(sdf.Transform3D(box, m), render.NewMarchingCubesUniform(meshCells))

	welder := newWelder(weldStep)
	faces := make([][3]int, 0, len(triangles))
	for _, tri := range triangles {
		var face [3]int
		for i := 0; i < 3; i++ {
			face[i] = welder.add(mgl64.Vec3{tri[i].X, tri[i].Y, tri[i].Z})
		}
		faces = append(faces, face)
	}
	return objfile.Mesh{Vertices: welder.vertices, Faces: faces}
}

type welder struct {
	step     float64
	index    map[[3]int64]int
	vertices []mgl64.Vec3
}

func newWelder(step float64) *welder {
	return &welder{step: step, index: make(map[[3]int64]int)}
}

// add renvoie l'indice du sommet déjà vu dans la même cellule, ou en crée un
func (w *welder) add(p mgl64.Vec3) int {
	var key [3]int64
	var snapped mgl64.Vec3
	for i := 0; i < 3; i++ {
		key[i] = int64(math.Round(p[i] / w.step))
		snapped[i] = float64(key[i]) * w.step
	}
	if idx, ok := w.index[key]; ok {
		return idx
	}
	idx := len(w.vertices)
	w.index[key] = idx
	w.vertices = append(w.vertices, snapped)
	return idx
}

func main() {
	ctx := context.Background()
	a := boxMesh(v3.Vec{X: 2, Y: 2, Z: 2}, v3.Vec{}, 0)
	b := boxMesh(v3.Vec{X: 2, Y: 2, Z: 2}, v3.Vec{X: 1, Y: 0.7, Z: 0.4}, math.Pi/7)

	fmt.Println("🧪 Deux boîtes qui se chevauchent")
	fmt.Println("==================================")
	fmt.Printf("  Boîte A: %d sommets, %d faces\n", len(a.Vertices), len(a.Faces))
	fmt.Printf("  Boîte B: %d sommets, %d faces\n", len(b.Vertices), len(b.Faces))

	// Détection seule sur chaque boîte: le maillage d'une boîte seule est propre
	for name, m := range map[string]objfile.Mesh{"A": a, "B": b} {
		res, err := mend.Detect(ctx, m.Vertices, m.Faces, mend.Options{})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("  Boîte %s: %d paires qui s'intersectent\n", name, res.Count)
	}

	k := kernel.Inexact{}
	ma, err := mend.FromFloat64(k, a.Vertices, a.Faces)
	if err != nil {
		log.Fatal(err)
	}
	mb, err := mend.FromFloat64(k, b.Vertices, b.Faces)
	if err != nil {
		log.Fatal(err)
	}
	engine, err := mend.NewEngine(k, mend.Options{CrossOnly: true, StitchAll: true})
	if err != nil {
		log.Fatal(err)
	}
	resolved := 0
	engine.Events.Subscribe(mend.PATCH_RESOLVED, func(event mend.Event) {
		resolved++
	})
	engine.Events.Subscribe(mend.PATCH_FAILED, func(event mend.Event) {
		fmt.Printf("  ⚠️  patch %v: %v\n", event.(mend.PatchFailedEvent).Members, event.(mend.PatchFailedEvent).Err)
	})

	res, err := engine.ResolveMeshes(ctx, ma, mb)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nA contre B: %d paires, %d patches retriangulés\n", res.Count, resolved)
	fmt.Printf("Résultat: %d sommets, %d faces (%v)\n", len(res.Vertices), len(res.Faces), res.Timings.Retriangulate)

	out := objfile.Mesh{Vertices: res.Mesh().Float64(), Faces: res.Faces}
	if err := objfile.WriteFile("overlapping_boxes.obj", out); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✅ overlapping_boxes.obj écrit")
}
