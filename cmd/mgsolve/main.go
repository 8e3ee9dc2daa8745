// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command mgsolve solves the one-dimensional model problem
//  -u'' + c u = f on (0, 1),  u(0) = u(1) = 0
// with a Krylov method preconditioned by geometric multigrid and reports the
// convergence and the memory held by the preconditioner.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vladimir-ch/multigrid/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "mgsolve",
		Short: "Solve a model problem with a multigrid-preconditioned Krylov method",
		Long: `mgsolve assembles a nested hierarchy of finite-element discretizations,
builds a multigrid preconditioner on it and solves one or more random
right-hand sides concurrently.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg
			if configPath != "" {
				var err error
				c, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}
			overlay(cmd, &c, &cfg)
			if err := c.Validate(); err != nil {
				return err
			}
			log, err := c.Log.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return run(cmd.Context(), c, log, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	f.IntVar(&cfg.Problem.CoarseElements, "coarse-elements", cfg.Problem.CoarseElements, "number of elements of the coarsest mesh")
	f.IntVarP(&cfg.Problem.Levels, "levels", "l", cfg.Problem.Levels, "number of levels of the hierarchy")
	f.Float64Var(&cfg.Problem.Reaction, "reaction", cfg.Problem.Reaction, "reaction coefficient c")
	f.BoolVar(&cfg.Problem.Galerkin, "galerkin", cfg.Problem.Galerkin, "use Galerkin coarse-grid operators")
	f.IntVarP(&cfg.Problem.RightHandSides, "rhs", "n", cfg.Problem.RightHandSides, "number of random right-hand sides")
	f.Int64Var(&cfg.Problem.Seed, "seed", cfg.Problem.Seed, "seed of the random right-hand sides")
	f.StringVar(&cfg.Multigrid.Smoother, "smoother", cfg.Multigrid.Smoother, "smoother (gauss-seidel, jacobi)")
	f.IntVar(&cfg.Multigrid.SmoothingSteps, "smoothing-steps", cfg.Multigrid.SmoothingSteps, "pre- and post-smoothing steps on the finest level")
	f.IntVar(&cfg.Multigrid.Cycle, "cycle", cfg.Multigrid.Cycle, "coarse-grid corrections per level (1: V-cycle, 2: W-cycle)")
	f.IntVar(&cfg.Multigrid.SmoothingStepIncrease, "increase", cfg.Multigrid.SmoothingStepIncrease, "growth factor of smoothing steps per coarser level")
	f.StringVar(&cfg.Multigrid.CoarseType, "coarse-type", cfg.Multigrid.CoarseType, "coarse-grid strategy (exact, user, iterative, smoothing)")
	f.IntVar(&cfg.Multigrid.CoarseSmoothingSteps, "coarse-smoothing-steps", cfg.Multigrid.CoarseSmoothingSteps, "coarse-grid smoothing or defect-correction steps")
	f.StringVarP(&cfg.Solver.Method, "method", "m", cfg.Solver.Method, "Krylov method (cg, bicg, bicgstab, gmres)")
	f.Float64Var(&cfg.Solver.Tolerance, "tol", cfg.Solver.Tolerance, "relative residual tolerance")
	f.IntVarP(&cfg.Solver.Concurrency, "jobs", "j", cfg.Solver.Concurrency, "right-hand sides solved concurrently")
	f.StringVar(&cfg.Solver.Plot, "plot", cfg.Solver.Plot, "write the residual history chart to this file (.png, .svg, .pdf)")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	f.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format (text, json)")
	return cmd
}

// overlay copies the values of the flags set on the command line from flags
// into c.
func overlay(cmd *cobra.Command, c, flags *config.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("coarse-elements", func() { c.Problem.CoarseElements = flags.Problem.CoarseElements })
	set("levels", func() { c.Problem.Levels = flags.Problem.Levels })
	set("reaction", func() { c.Problem.Reaction = flags.Problem.Reaction })
	set("galerkin", func() { c.Problem.Galerkin = flags.Problem.Galerkin })
	set("rhs", func() { c.Problem.RightHandSides = flags.Problem.RightHandSides })
	set("seed", func() { c.Problem.Seed = flags.Problem.Seed })
	set("smoother", func() { c.Multigrid.Smoother = flags.Multigrid.Smoother })
	set("smoothing-steps", func() { c.Multigrid.SmoothingSteps = flags.Multigrid.SmoothingSteps })
	set("cycle", func() { c.Multigrid.Cycle = flags.Multigrid.Cycle })
	set("increase", func() { c.Multigrid.SmoothingStepIncrease = flags.Multigrid.SmoothingStepIncrease })
	set("coarse-type", func() { c.Multigrid.CoarseType = flags.Multigrid.CoarseType })
	set("coarse-smoothing-steps", func() { c.Multigrid.CoarseSmoothingSteps = flags.Multigrid.CoarseSmoothingSteps })
	set("method", func() { c.Solver.Method = flags.Solver.Method })
	set("tol", func() { c.Solver.Tolerance = flags.Solver.Tolerance })
	set("jobs", func() { c.Solver.Concurrency = flags.Solver.Concurrency })
	set("plot", func() { c.Solver.Plot = flags.Solver.Plot })
	set("log-level", func() { c.Log.Level = flags.Log.Level })
	set("log-format", func() { c.Log.Format = flags.Log.Format })
}
