package mend

import (
	"os"
	"runtime"

	"github.com/edaniels/golog"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// NumThreadsEnv overrides the worker count when Options.Workers is zero.
const NumThreadsEnv = "MEND_NUM_THREADS"

// BroadPhaseKind selects the candidate pair enumeration.
type BroadPhaseKind string

const (
	// BroadPhaseGrid hashes boxes into a uniform grid.
	BroadPhaseGrid BroadPhaseKind = "grid"
	// BroadPhaseRTree queries an R-tree of boxes.
	BroadPhaseRTree BroadPhaseKind = "rtree"
)

// Options controls a run.
type Options struct {
	// Workers is the narrow phase and retriangulation parallelism. Zero reads NumThreadsEnv,
	// then falls back to the hardware parallelism.
	Workers int `json:"workers"`
	// DetectOnly stops after the narrow phase: no vertices or faces are produced.
	DetectOnly bool `json:"detect_only"`
	// FirstOnly stops at the first intersecting pair.
	FirstOnly bool `json:"first_only"`
	// StitchAll merges every pair of output vertices with equal coordinates.
	StitchAll bool `json:"stitch_all"`
	// CrossOnly, in two-mesh runs, ignores pairs within the same input mesh.
	CrossOnly  bool           `json:"cross_only"`
	BroadPhase BroadPhaseKind `json:"broad_phase"`
	// GridCellSize is the grid broad phase cell edge. Zero derives it from the mean box size.
	GridCellSize float64 `json:"grid_cell_size"`
	// Debug panics on unresolved patch assignments instead of failing the patch.
	Debug bool `json:"debug"`

	Logger golog.Logger `json:"-"`
}

// DecodeOptions reads options from generic configuration such as a parsed JSON or YAML
// file. Values are weakly typed: "4" is accepted for workers.
func DecodeOptions(raw map[string]interface{}) (Options, error) {
	var opts Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, errors.Wrap(err, "decoding options")
	}
	return opts, opts.validate()
}

func (o Options) validate() error {
	switch o.BroadPhase {
	case "", BroadPhaseGrid, BroadPhaseRTree:
	default:
		return errors.Errorf("unknown broad phase %q", o.BroadPhase)
	}
	if o.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", o.Workers)
	}
	if o.GridCellSize < 0 {
		return errors.Errorf("grid cell size must not be negative, got %v", o.GridCellSize)
	}
	return nil
}

// withDefaults resolves the worker count and fills the zero values.
func (o Options) withDefaults() Options {
	if o.Workers == 0 {
		o.Workers = workersFromEnv(os.Getenv(NumThreadsEnv))
	}
	o.Workers = clampWorkers(o.Workers)
	if o.BroadPhase == "" {
		o.BroadPhase = BroadPhaseGrid
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// workersFromEnv parses the override; anything unparsable means "use the hardware".
func workersFromEnv(v string) int {
	if v == "" {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return n
}

// clampWorkers keeps the count within [1, NumCPU]; non-positive values select NumCPU.
func clampWorkers(n int) int {
	hw := runtime.NumCPU()
	if n <= 0 || n > hw {
		return hw
	}
	return n
}
