// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"gonum.org/v1/gonum/floats"
)

// BiCGSTAB is the preconditioned stabilized biconjugate gradient method for
// general non-singular systems. Each iteration takes two half steps and the
// residual norm is checked after both.
//
// BiCGSTAB requests MatVec and PSolve.
type BiCGSTAB struct {
	state bicgstabState

	rho, rhoPrev float64
	alpha, omega float64

	// rs is the fixed shadow residual. During the second half step the
	// intermediate residual s lives in Context.Residual.
	rs     []float64
	p, v   []float64
	ph, sh []float64
	t      []float64
}

type bicgstabState int

const (
	bicgstabIdle bicgstabState = iota
	bicgstabDirection
	bicgstabMulDirection
	bicgstabHalfStep
	bicgstabPreconditionS
	bicgstabMulS
	bicgstabStep
	bicgstabNext
)

// Init implements the Method interface.
func (b *BiCGSTAB) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}
	for _, v := range []*[]float64{&b.rs, &b.p, &b.v, &b.ph, &b.sh, &b.t} {
		*v = zeroed(*v, dim)
	}
	b.rhoPrev = 0
	b.state = bicgstabDirection
}

// Iterate implements the Method interface.
func (b *BiCGSTAB) Iterate(ctx *Context) (Operation, error) {
	r := ctx.Residual
	switch b.state {
	case bicgstabDirection:
		if b.rhoPrev == 0 {
			copy(b.rs, r)
		}
		b.rho = floats.Dot(b.rs, r)
		if vanished(b.rho) {
			b.state = bicgstabIdle
			return NoOperation, breakdown("BiCGSTAB", "rho")
		}
		if b.rhoPrev == 0 {
			copy(b.p, r)
		} else {
			// p = r + β(p - ωv)
			beta := (b.rho / b.rhoPrev) * (b.alpha / b.omega)
			floats.AddScaled(b.p, -b.omega, b.v)
			floats.AddScaledTo(b.p, r, beta, b.p)
		}
		ctx.Src, ctx.Dst = b.p, b.ph
		b.state = bicgstabMulDirection
		return PSolve, nil

	case bicgstabMulDirection:
		ctx.Src, ctx.Dst = b.ph, b.v
		b.state = bicgstabHalfStep
		return MatVec, nil

	case bicgstabHalfStep:
		den := floats.Dot(b.rs, b.v)
		if vanished(den) {
			b.state = bicgstabIdle
			return NoOperation, breakdown("BiCGSTAB", "r̃ᵀv")
		}
		b.alpha = b.rho / den
		floats.AddScaled(r, -b.alpha, b.v)
		ctx.ResidualNorm = floats.Norm(r, 2)
		ctx.Src, ctx.Dst = nil, nil
		ctx.Converged = false
		b.state = bicgstabPreconditionS
		return CheckResidualNorm, nil

	case bicgstabPreconditionS:
		if ctx.Converged {
			floats.AddScaled(ctx.X, b.alpha, b.ph)
			b.state = bicgstabIdle
			return EndIteration, nil
		}
		ctx.Src, ctx.Dst = r, b.sh
		b.state = bicgstabMulS
		return PSolve, nil

	case bicgstabMulS:
		ctx.Src, ctx.Dst = b.sh, b.t
		b.state = bicgstabStep
		return MatVec, nil

	case bicgstabStep:
		tt := floats.Dot(b.t, b.t)
		if tt == 0 {
			b.state = bicgstabIdle
			return NoOperation, breakdown("BiCGSTAB", "Aŝ")
		}
		b.omega = floats.Dot(b.t, r) / tt
		floats.AddScaled(ctx.X, b.alpha, b.ph)
		floats.AddScaled(ctx.X, b.omega, b.sh)
		floats.AddScaled(r, -b.omega, b.t)
		ctx.ResidualNorm = floats.Norm(r, 2)
		ctx.Src, ctx.Dst = nil, nil
		ctx.Converged = false
		b.state = bicgstabNext
		return CheckResidualNorm, nil

	case bicgstabNext:
		switch {
		case ctx.Converged:
			b.state = bicgstabIdle
		case vanished(b.omega):
			b.state = bicgstabIdle
			return NoOperation, breakdown("BiCGSTAB", "omega")
		default:
			b.rhoPrev = b.rho
			b.state = bicgstabDirection
		}
		return EndIteration, nil
	}
	panic("iterative: BiCGSTAB.Init not called")
}
