// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladimir-ch/multigrid"
	"github.com/vladimir-ch/multigrid/internal/config"
	"github.com/vladimir-ch/multigrid/internal/poisson"
	"github.com/vladimir-ch/multigrid/internal/smoother"
	"github.com/vladimir-ch/multigrid/internal/sparse"
	"github.com/vladimir-ch/multigrid/iterative"
)

// solution is the outcome of the solve of one right-hand side.
type solution struct {
	rhs    int
	result iterative.Result
	err    error
}

func run(ctx context.Context, c config.Config, log *logrus.Logger, out io.Writer) error {
	start := time.Now()
	h, p, err := setup(c, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("releasing preconditioner")
		}
	}()
	fine := h.NumLevels() - 1
	log.WithFields(logrus.Fields{
		"levels":  h.NumLevels(),
		"dofs":    h.NumDofs(fine),
		"elapsed": time.Since(start),
	}).Info("preconditioner ready")

	sols := make([]solution, c.Problem.RightHandSides)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Solver.Concurrency)
	for i := range sols {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := rightHandSide(h, c.Problem.Seed+int64(i))
			res, err := solve(h, b, p, c.Solver)
			sols[i] = solution{rhs: i, result: res, err: err}
			entry := log.WithFields(logrus.Fields{
				"rhs":        i,
				"iterations": res.Stats.Iterations,
				"residual":   res.Stats.ResidualNorm,
				"runtime":    res.Stats.Runtime,
			})
			if err != nil {
				entry.WithError(err).Warn("solve did not converge")
				return nil
			}
			entry.Debug("solved")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report(out, c, h, p, sols)
	if c.Solver.Plot != "" {
		histories := make([][]float64, len(sols))
		for i, s := range sols {
			histories[i] = s.result.Stats.History
		}
		if err := plotHistory(c.Solver.Plot, histories); err != nil {
			return err
		}
		log.WithField("path", c.Solver.Plot).Info("wrote residual history")
	}
	for _, s := range sols {
		if s.err != nil {
			return fmt.Errorf("right-hand side %d: %w", s.rhs, s.err)
		}
	}
	return nil
}

// setup refines the hierarchy one level at a time and updates the
// preconditioner after every refinement.
func setup(c config.Config, log *logrus.Logger) (*poisson.Hierarchy, *multigrid.Preconditioner, error) {
	var hopts []poisson.Option
	if c.Problem.Reaction != 0 {
		hopts = append(hopts, poisson.WithReaction(c.Problem.Reaction))
	}
	updateAll := c.Multigrid.UpdateAll
	if c.Problem.Galerkin {
		hopts = append(hopts, poisson.WithGalerkin())
		// Every refinement changes all Galerkin operators.
		updateAll = true
	}
	h := poisson.New(c.Problem.CoarseElements, hopts...)

	var s multigrid.Smoother
	switch c.Multigrid.Smoother {
	case "jacobi":
		s = smoother.NewJacobi(h, c.Multigrid.Damping)
	default:
		s = smoother.NewGaussSeidel(h)
	}
	opts, err := c.Multigrid.Options()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, multigrid.WithUpdateAll(updateAll), multigrid.WithLogger(log))
	p := multigrid.New(h, h,
		multigrid.Own(s),
		multigrid.Own[multigrid.Prolongation](poisson.NewProlongation(h)),
		opts...)
	if err := prepare(c, log, h, p); err != nil {
		if cerr := p.Close(); cerr != nil {
			log.WithError(cerr).Warn("releasing preconditioner")
		}
		return nil, nil, err
	}
	return h, p, nil
}

// prepare grows h to the configured number of levels, updating p after every
// refinement, and installs the user coarse-grid solver if one is selected.
func prepare(c config.Config, log *logrus.Logger, h *poisson.Hierarchy, p *multigrid.Preconditioner) error {
	if err := p.Update(); err != nil {
		return err
	}
	for h.NumLevels() < c.Problem.Levels {
		h.Refine()
		if err := p.Update(); err != nil {
			return err
		}
	}

	// CG relies on a symmetric operator.
	if c.Solver.Method == "cg" && !h.Matrix(h.NumLevels()-1).IsSymmetric(1e-10) {
		return errors.New("cg needs a symmetric operator")
	}

	ct, _ := c.Multigrid.CoarseTypeValue()
	if ct == multigrid.UserCoarse {
		inv, err := sparse.Factorize(h.Matrix(0), h.FreeDofs())
		if err != nil {
			return fmt.Errorf("coarse-grid factorization: %w", err)
		}
		log.WithFields(logrus.Fields{
			"dofs":     h.NumDofs(0),
			"cholesky": inv.Cholesky(),
		}).Debug("factorized user coarse-grid solver")
		p.SetCoarsePreconditioner(multigrid.Own[multigrid.Inverse](inv))
	}
	return nil
}

// rightHandSide returns a random load vector that vanishes at the
// constrained dofs.
func rightHandSide(h *poisson.Hierarchy, seed int64) []float64 {
	rnd := rand.New(rand.NewSource(seed))
	b := make([]float64, h.NumDofs(h.NumLevels()-1))
	for i := range b {
		if h.Free(i) {
			b[i] = rnd.NormFloat64()
		}
	}
	return b
}

func newMethod(s config.Solver) iterative.Method {
	switch s.Method {
	case "bicg":
		return &iterative.BiCG{}
	case "bicgstab":
		return &iterative.BiCGSTAB{}
	case "gmres":
		return &iterative.GMRES{Restart: s.Restart}
	default:
		return &iterative.CG{}
	}
}

func solve(h *poisson.Hierarchy, b []float64, p *multigrid.Preconditioner, s config.Solver) (iterative.Result, error) {
	a := h.Matrix(h.NumLevels() - 1)
	method := newMethod(s)
	if g, ok := method.(*iterative.GMRES); ok && g.Restart > len(b) {
		g.Restart = len(b)
	}
	return iterative.LinearSolve(iterative.MatrixOps{MatVec: a.MulVec, MatTransVec: a.MulTransVec}, b, method, iterative.Settings{
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
		PSolve:        p.Apply,
		RecordHistory: true,
	})
}

func report(out io.Writer, c config.Config, h *poisson.Hierarchy, p *multigrid.Preconditioner, sols []solution) {
	fine := h.NumLevels() - 1
	fmt.Fprintf(out, "levels %d, dofs %s, matrix entries %s\n",
		h.NumLevels(), humanize.Comma(int64(h.NumDofs(fine))), humanize.Comma(int64(h.Matrix(fine).NNZ())))
	fmt.Fprintf(out, "%s, %s smoother, cycle %d, coarse %s\n",
		c.Solver.Method, c.Multigrid.Smoother, c.Multigrid.Cycle, c.Multigrid.CoarseType)
	for _, s := range sols {
		status := "converged"
		if s.err != nil {
			status = s.err.Error()
		}
		st := s.result.Stats
		fmt.Fprintf(out, "rhs %d: %d iterations, residual %.3e, %v, %s\n",
			s.rhs, st.Iterations, st.ResidualNorm, st.Runtime.Round(time.Microsecond), status)
	}
	stats := p.Stats()
	fmt.Fprintf(out, "preconditioner: %s applications, %s coarse solves, %d factorizations\n",
		humanize.Comma(stats.Applies), humanize.Comma(stats.CoarseSolves), stats.Factorizations)
	for _, mu := range p.MemoryUsage() {
		fmt.Fprintf(out, "memory: %s %s in %d blocks\n", mu.Name, humanize.IBytes(uint64(mu.Bytes)), mu.Blocks)
	}
}
