// Package main is the mend command: it checks meshes for self-intersections and repairs them.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/akmonengine/mend"
)

const (
	// Flags.
	flagConfig     = "config"
	flagDebug      = "debug"
	flagWorkers    = "workers"
	flagBroadPhase = "broad-phase"
	flagCellSize   = "cell-size"
	flagFirstOnly  = "first-only"
	flagStitchAll  = "stitch-all"
	flagKernel     = "kernel"

	kernelExact   = "exact"
	kernelInexact = "inexact"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	var logger golog.Logger

	return &cli.App{
		Name:      "mend",
		Usage:     "find and resolve self-intersections of triangle meshes",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load options from JSON `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.IntFlag{
				Name:    flagWorkers,
				Aliases: []string{"j"},
				Usage:   "number of workers, 0 uses " + mend.NumThreadsEnv + " or every CPU",
			},
			&cli.StringFlag{
				Name:  flagBroadPhase,
				Usage: "candidate pair search: grid or rtree",
			},
			&cli.Float64Flag{
				Name:  flagCellSize,
				Usage: "grid cell size, 0 derives it from the face sizes",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("mend")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "report intersecting face pairs of an OBJ mesh",
				ArgsUsage: "<mesh.obj>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagFirstOnly,
						Usage: "stop at the first intersecting pair",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return errors.New("check takes exactly one mesh")
					}
					opts, err := loadOptions(c, logger)
					if err != nil {
						return err
					}
					return check(c, c.Args().First(), opts)
				},
			},
			{
				Name:      "repair",
				Usage:     "retriangulate an OBJ mesh so that faces only meet along shared edges and vertices",
				ArgsUsage: "<in.obj> <out.obj>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagStitchAll,
						Usage: "merge every pair of output vertices with equal coordinates",
					},
					&cli.StringFlag{
						Name:  flagKernel,
						Value: kernelExact,
						Usage: "number type of the constructions: exact or inexact",
					},
				},
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 2 {
						return errors.New("repair takes an input and an output mesh")
					}
					opts, err := loadOptions(c, logger)
					if err != nil {
						return err
					}
					return repair(c, c.Args().Get(0), c.Args().Get(1), opts)
				},
			},
		},
	}
}

// loadOptions reads the config file, then applies the flags that were set.
func loadOptions(c *cli.Context, logger golog.Logger) (mend.Options, error) {
	raw := map[string]interface{}{}
	if path := c.String(flagConfig); path != "" {
		//nolint:gosec
		data, err := os.ReadFile(path)
		if err != nil {
			return mend.Options{}, errors.Wrap(err, "reading config")
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return mend.Options{}, errors.Wrapf(err, "parsing config %s", path)
		}
	}

	flagsToKeys := map[string]string{
		flagWorkers:    "workers",
		flagBroadPhase: "broad_phase",
		flagCellSize:   "grid_cell_size",
		flagFirstOnly:  "first_only",
		flagStitchAll:  "stitch_all",
	}
	for name, key := range flagsToKeys {
		if c.IsSet(name) {
			raw[key] = c.Value(name)
		}
	}

	opts, err := mend.DecodeOptions(raw)
	if err != nil {
		return mend.Options{}, err
	}
	opts.Logger = logger
	return opts, nil
}

func printf(c *cli.Context, format string, a ...interface{}) {
	fmt.Fprintf(c.App.Writer, format, a...)
}
