package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/akmonengine/mend"
	"github.com/akmonengine/mend/internal/objfile"
	"github.com/akmonengine/mend/kernel"
)

// maxPairRows bounds the pair listing of check.
const maxPairRows = 20

func check(c *cli.Context, path string, opts mend.Options) error {
	m, err := objfile.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := mend.Detect(c.Context, m.Vertices, m.Faces, opts)
	if err != nil {
		return err
	}

	if !res.Intersecting() {
		printf(c, "%s: no intersecting faces (%d faces)\n", path, len(m.Faces))
		return nil
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Face A", "Face B"})
	for i, p := range res.Pairs {
		if i == maxPairRows {
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d more", len(res.Pairs)-maxPairRows), ""})
			break
		}
		t.AppendRow(table.Row{i + 1, p[0], p[1]})
	}
	printf(c, "%s\n", t.Render())
	if res.Status.FirstHit {
		printf(c, "%s: stopped at the first intersecting pair\n", path)
	} else {
		printf(c, "%s: %d intersecting pairs (%d faces)\n", path, res.Count, len(m.Faces))
	}
	return nil
}

func repair(c *cli.Context, in, out string, opts mend.Options) error {
	m, err := objfile.ReadFile(in)
	if err != nil {
		return err
	}

	var r report
	var result objfile.Mesh
	switch kind := c.String(flagKernel); kind {
	case kernelExact:
		result, r, err = repairWith[kernel.Rat](c, kernel.Exact{}, m, opts)
	case kernelInexact:
		result, r, err = repairWith[kernel.Float](c, kernel.Inexact{}, m, opts)
	default:
		return errors.Errorf("unknown kernel %q", kind)
	}
	if err != nil {
		return err
	}
	if err := objfile.WriteFile(out, result); err != nil {
		return err
	}
	printf(c, "%s\n", r.render())
	if r.failed > 0 {
		printf(c, "%d patches could not be resolved and were kept unchanged\n", r.failed)
	}
	return nil
}

func repairWith[T kernel.Scalar[T]](c *cli.Context, k kernel.Kernel[T], m objfile.Mesh, opts mend.Options) (objfile.Mesh, report, error) {
	in, err := mend.FromFloat64(k, m.Vertices, m.Faces)
	if err != nil {
		return objfile.Mesh{}, report{}, err
	}
	e, err := mend.NewEngine(k, opts)
	if err != nil {
		return objfile.Mesh{}, report{}, err
	}

	r := report{facesIn: len(m.Faces), verticesIn: len(m.Vertices)}
	e.Events.Subscribe(mend.PATCH_RESOLVED, func(event mend.Event) {
		resolved := event.(mend.PatchResolvedEvent)
		r.patchSizes = append(r.patchSizes, float64(len(resolved.Members)))
		r.patchTriangles = append(r.patchTriangles, float64(resolved.Triangles))
	})
	e.Events.Subscribe(mend.PATCH_FAILED, func(event mend.Event) {
		r.failed++
	})

	res, err := e.Resolve(c.Context, in)
	if err != nil {
		return objfile.Mesh{}, report{}, err
	}
	r.pairs = res.Count
	r.facesOut = len(res.Faces)
	r.verticesOut = len(res.Vertices)
	r.timings = res.Timings
	return objfile.Mesh{Vertices: res.Mesh().Float64(), Faces: res.Faces}, r, nil
}

type report struct {
	facesIn, facesOut       int
	verticesIn, verticesOut int
	pairs                   int
	failed                  int
	patchSizes              stats.Float64Data
	patchTriangles          stats.Float64Data
	timings                 mend.Timings
}

func (r report) render() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"", "Input", "Output"})
	t.AppendRow(table.Row{"Faces", r.facesIn, r.facesOut})
	t.AppendRow(table.Row{"Vertices", r.verticesIn, r.verticesOut})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Intersecting pairs", r.pairs, ""})
	t.AppendRow(table.Row{"Patches resolved", len(r.patchSizes), ""})
	t.AppendRow(table.Row{"Patches failed", r.failed, ""})
	if summary, ok := summarize(r.patchSizes); ok {
		t.AppendRow(table.Row{"Faces per patch", summary, ""})
	}
	if summary, ok := summarize(r.patchTriangles); ok {
		t.AppendRow(table.Row{"Triangles per patch", summary, ""})
	}
	t.AppendSeparator()
	for _, phase := range []struct {
		name string
		d    fmt.Stringer
	}{
		{"Build", r.timings.Build},
		{"Broad phase", r.timings.BroadPhase},
		{"Narrow phase", r.timings.NarrowPhase},
		{"Cluster", r.timings.Cluster},
		{"Retriangulate", r.timings.Retriangulate},
		{"Stitch", r.timings.Stitch},
	} {
		t.AppendRow(table.Row{phase.name, "", phase.d})
	}
	return t.Render()
}

// summarize formats mean, median and max of data; it fails on empty data.
func summarize(data stats.Float64Data) (string, bool) {
	mean, err := data.Mean()
	if err != nil {
		return "", false
	}
	median, err := data.Median()
	if err != nil {
		return "", false
	}
	maximum, err := data.Max()
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("mean %.2f, median %.1f, max %.0f", mean, median, maximum), true
}
