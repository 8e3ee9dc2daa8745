// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid

import (
	"fmt"
	"strings"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/vladimir-ch/multigrid/iterative"
)

// CoarseType selects how the system on level 0 is resolved.
type CoarseType int

const (
	// ExactCoarse applies an exact inverse of the level-0 operator,
	// factorized by Update.
	ExactCoarse CoarseType = iota
	// UserCoarse applies an inverse supplied with
	// SetCoarsePreconditioner.
	UserCoarse
	// IterativeCoarse solves the level-0 system with preconditioner-free
	// conjugate gradients on every visit.
	IterativeCoarse
	// SmoothingCoarse only smooths on level 0.
	SmoothingCoarse
)

var coarseTypeNames = [...]string{
	ExactCoarse:     "exact",
	UserCoarse:      "user",
	IterativeCoarse: "iterative",
	SmoothingCoarse: "smoothing",
}

func (t CoarseType) String() string {
	if t < 0 || int(t) >= len(coarseTypeNames) {
		return fmt.Sprintf("CoarseType(%d)", int(t))
	}
	return coarseTypeNames[t]
}

// ParseCoarseType returns the CoarseType named s. Names are those returned by
// CoarseType.String and are matched case-insensitively.
func ParseCoarseType(s string) (CoarseType, error) {
	for t, name := range coarseTypeNames {
		if strings.EqualFold(s, name) {
			return CoarseType(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCoarseType, s)
}

// coarseCache holds the level-0 inverse used by the exact and user
// strategies. It is written only by factorize, SetCoarsePreconditioner and
// Close. Switching the coarse type keeps it.
type coarseCache struct {
	inv   Handle[Inverse]
	valid bool
}

func (c *coarseCache) get() (Inverse, bool) {
	if !c.valid {
		return nil, false
	}
	return c.inv.Get()
}

func (c *coarseCache) set(inv Handle[Inverse]) error {
	err := c.inv.release()
	c.inv = inv
	c.valid = true
	return err
}

func (c *coarseCache) release() error {
	c.valid = false
	return c.inv.release()
}

// factorize builds the exact inverse of the level-0 operator, restricted to
// the free degrees of freedom when some of them are constrained.
func (p *Preconditioner) factorize() error {
	start := time.Now()
	op := p.ops.Operator(0)
	n0 := p.h.NumDofs(0)
	free := p.h.FreeDofs()

	var (
		inv Inverse
		err error
	)
	if free == nil || allFree(free, n0) {
		inv, err = op.Invert()
	} else {
		inv, err = op.InvertFree(free)
	}
	if err != nil {
		return levelError(0, "factorization", err)
	}
	if err := p.coarse.set(Own(inv)); err != nil {
		return levelError(0, "release of coarse-grid solver", err)
	}
	p.stats.factorizations.Add(1)
	p.log.WithFields(logrus.Fields{
		"dofs":     n0,
		"restrict": free != nil,
		"elapsed":  time.Since(start),
	}).Debug("multigrid: factorized coarse-grid operator")
	return nil
}

func allFree(free *bitset.BitSet, n int) bool {
	for i := 0; i < n; i++ {
		if !free.Test(uint(i)) {
			return false
		}
	}
	return true
}

// solveCoarse resolves the system on level 0 according to the coarse type.
func (p *Preconditioner) solveCoarse(s Smoother, u, f []float64) error {
	p.stats.coarseSolves.Add(1)
	switch p.coarseType {
	case ExactCoarse, UserCoarse:
		inv, ok := p.coarse.get()
		if !ok {
			return ErrNoCoarseSolver
		}
		if err := inv.SolveVec(u, f); err != nil {
			return levelError(0, "coarse-grid solve", err)
		}
		if p.coarseSmoothingSteps > 1 {
			d := s.NewVector(0)
			w := s.NewVector(0)
			for i := 1; i < p.coarseSmoothingSteps; i++ {
				if err := s.Residual(0, u, f, d); err != nil {
					return levelError(0, "coarse-grid residual", err)
				}
				if err := inv.SolveVec(w, d); err != nil {
					return levelError(0, "coarse-grid solve", err)
				}
				floats.Add(u, w)
			}
		}
		return nil

	case IterativeCoarse:
		op := p.ops.Operator(0)
		res, err := iterative.LinearSolve(iterative.MatrixOps{MatVec: op.MulVec}, f, &iterative.CG{}, iterative.Settings{
			Tolerance:     p.coarseTolerance,
			MaxIterations: p.coarseMaxIterations,
		})
		if err != nil {
			return levelError(0, "iterative coarse-grid solve", err)
		}
		copy(u, res.X)
		return nil

	case SmoothingCoarse:
		if err := s.PreSmooth(0, u, f, p.coarseSmoothingSteps); err != nil {
			return levelError(0, "pre-smoothing", err)
		}
		if err := s.PostSmooth(0, u, f, p.coarseSmoothingSteps); err != nil {
			return levelError(0, "post-smoothing", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %v", ErrUnknownCoarseType, p.coarseType)
	}
}
