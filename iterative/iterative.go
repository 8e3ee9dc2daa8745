// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iterative provides Krylov subspace methods for solving linear
// systems.
//
// The methods do not touch the system matrix or the preconditioner
// themselves. Each call to Method.Iterate hands back an Operation that the
// driver performs on the vectors referenced by a Context before the method
// resumes. LinearSolve is such a driver. It is used by the multigrid module
// in two places: as the outer solver accelerated by a multigrid
// preconditioner passed as Settings.PSolve, and as the inner solver of the
// iterative coarse-grid strategy.
package iterative

import (
	"errors"
	"fmt"
)

// Operation is a request from a Method to its driver.
type Operation uint64

// Operations requested by Method.Iterate. Unless stated otherwise the input
// vector is Context.Src and the output vector is Context.Dst.
const (
	// NoOperation asks the driver to call Iterate again.
	NoOperation Operation = 0

	// MatVec requests dst = A*src.
	MatVec Operation = 1 << (iota - 1)

	// MatTransVec requests dst = Aᵀ*src.
	MatTransVec

	// PSolve requests the solution of M*dst = src.
	PSolve

	// PSolveTrans requests the solution of Mᵀ*dst = src.
	PSolveTrans

	// ComputeResidual requests Context.Residual = b - A*Context.X
	// together with its norm in Context.ResidualNorm.
	ComputeResidual

	// CheckResidualNorm requests that Context.Converged be set according
	// to Context.ResidualNorm.
	CheckResidualNorm

	// EndIteration marks the end of one iteration. Context.X holds the
	// current approximation. A method that returns EndIteration with
	// Context.Converged set must be re-initialized before further use.
	EndIteration
)

var opNames = map[Operation]string{
	NoOperation:       "NoOperation",
	MatVec:            "MatVec",
	MatTransVec:       "MatTransVec",
	PSolve:            "PSolve",
	PSolveTrans:       "PSolveTrans",
	ComputeResidual:   "ComputeResidual",
	CheckResidualNorm: "CheckResidualNorm",
	EndIteration:      "EndIteration",
}

func (op Operation) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Operation(%d)", uint64(op))
}

// Method is a Krylov method for the n×n non-singular system
//  A x = b.
//
// A Method never sees A or the preconditioner M. It communicates with its
// driver through a Context and the Operations returned by Iterate.
type Method interface {
	// Init prepares the method for a system of dimension dim. It must be
	// called before the first Iterate and after convergence.
	Init(dim int)

	// Iterate advances the method until it needs the driver to perform
	// an Operation on the vectors in ctx.
	Iterate(ctx *Context) (Operation, error)
}

// Context holds the vectors shared by a Method and its driver. The driver
// may only change it as requested by an Operation.
type Context struct {
	// X is the approximate solution. It holds the initial guess before
	// the first Iterate and is kept current by the method whenever it
	// requests ComputeResidual or EndIteration.
	X []float64

	// Residual is b - A*X. It holds the initial residual before the first
	// Iterate.
	Residual []float64

	// ResidualNorm is the residual norm the stopping test is applied to.
	// A method may provide an estimate instead of the norm of Residual.
	ResidualNorm float64

	// Converged is set by the driver in response to CheckResidualNorm.
	Converged bool

	// Src and Dst are the operands of MatVec, MatTransVec, PSolve and
	// PSolveTrans.
	Src, Dst []float64
}

var (
	// ErrBreakdown is returned when a method divides by a quantity that
	// has vanished.
	ErrBreakdown = errors.New("iterative: breakdown")

	// ErrNotPositiveDefinite is returned by CG when it meets a direction
	// of non-positive curvature.
	ErrNotPositiveDefinite = errors.New("iterative: matrix not positive definite")
)

func breakdown(method, quantity string) error {
	return fmt.Errorf("%w: %s vanished in %s", ErrBreakdown, quantity, method)
}

// eps is the unit roundoff of float64. Scalars smaller than eps² in
// magnitude are treated as zero by the breakdown checks.
const eps = 1.0 / (1 << 53)

func vanished(v float64) bool {
	return -eps*eps < v && v < eps*eps
}

// zeroed returns a zero vector of length n, reusing the storage of v when it
// is large enough.
func zeroed(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	v = v[:n]
	clear(v)
	return v
}
