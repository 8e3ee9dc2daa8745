// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"gonum.org/v1/gonum/floats"
)

// CG is the preconditioned conjugate gradient method for symmetric positive
// definite systems. The preconditioner must be symmetric positive definite as
// well, which holds for a multigrid cycle with symmetric smoothing.
//
// CG requests MatVec and PSolve.
type CG struct {
	state cgState

	// rz is rᵀz of the current iteration, rzPrev that of the previous one.
	// rzPrev is zero before the first direction has been formed.
	rz, rzPrev float64

	z, p, ap []float64
}

type cgState int

const (
	cgIdle cgState = iota
	cgPrecondition
	cgDirection
	cgStep
	cgNext
)

// Init implements the Method interface.
func (cg *CG) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}
	cg.z = zeroed(cg.z, dim)
	cg.p = zeroed(cg.p, dim)
	cg.ap = zeroed(cg.ap, dim)
	cg.rzPrev = 0
	cg.state = cgPrecondition
}

// Iterate implements the Method interface.
func (cg *CG) Iterate(ctx *Context) (Operation, error) {
	switch cg.state {
	case cgPrecondition:
		ctx.Src, ctx.Dst = ctx.Residual, cg.z
		cg.state = cgDirection
		return PSolve, nil

	case cgDirection:
		cg.rz = floats.Dot(ctx.Residual, cg.z)
		if cg.rzPrev == 0 {
			copy(cg.p, cg.z)
		} else {
			floats.AddScaledTo(cg.p, cg.z, cg.rz/cg.rzPrev, cg.p)
		}
		ctx.Src, ctx.Dst = cg.p, cg.ap
		cg.state = cgStep
		return MatVec, nil

	case cgStep:
		curv := floats.Dot(cg.p, cg.ap)
		if curv <= 0 {
			cg.state = cgIdle
			return NoOperation, ErrNotPositiveDefinite
		}
		alpha := cg.rz / curv
		floats.AddScaled(ctx.X, alpha, cg.p)
		floats.AddScaled(ctx.Residual, -alpha, cg.ap)
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Src, ctx.Dst = nil, nil
		ctx.Converged = false
		cg.state = cgNext
		return CheckResidualNorm, nil

	case cgNext:
		if ctx.Converged {
			cg.state = cgIdle
		} else {
			cg.rzPrev = cg.rz
			cg.state = cgPrecondition
		}
		return EndIteration, nil
	}
	panic("iterative: CG.Init not called")
}
