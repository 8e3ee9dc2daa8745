// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"gonum.org/v1/gonum/floats"
)

// BiCG is the preconditioned biconjugate gradient method for general
// non-singular systems. Alongside the residual r it updates a shadow
// residual r̃ driven by Aᵀ and Mᵀ.
//
// BiCG requests MatVec, MatTransVec, PSolve and PSolveTrans.
type BiCG struct {
	state bicgState

	rho, rhoPrev float64

	// Quantities of the shadow system carry the suffix s.
	rs     []float64
	z, zs  []float64
	p, ps  []float64
	ap, as []float64
}

type bicgState int

const (
	bicgIdle bicgState = iota
	bicgPrecondition
	bicgPreconditionShadow
	bicgDirection
	bicgMulShadow
	bicgStep
	bicgNext
)

// Init implements the Method interface.
func (b *BiCG) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}
	for _, v := range []*[]float64{&b.rs, &b.z, &b.zs, &b.p, &b.ps, &b.ap, &b.as} {
		*v = zeroed(*v, dim)
	}
	b.rhoPrev = 0
	b.state = bicgPrecondition
}

// Iterate implements the Method interface.
func (b *BiCG) Iterate(ctx *Context) (Operation, error) {
	switch b.state {
	case bicgPrecondition:
		if b.rhoPrev == 0 {
			copy(b.rs, ctx.Residual)
		}
		ctx.Src, ctx.Dst = ctx.Residual, b.z
		b.state = bicgPreconditionShadow
		return PSolve, nil

	case bicgPreconditionShadow:
		ctx.Src, ctx.Dst = b.rs, b.zs
		b.state = bicgDirection
		return PSolveTrans, nil

	case bicgDirection:
		b.rho = floats.Dot(b.z, b.rs)
		if vanished(b.rho) {
			b.state = bicgIdle
			return NoOperation, breakdown("BiCG", "rho")
		}
		if b.rhoPrev == 0 {
			copy(b.p, b.z)
			copy(b.ps, b.zs)
		} else {
			beta := b.rho / b.rhoPrev
			floats.AddScaledTo(b.p, b.z, beta, b.p)
			floats.AddScaledTo(b.ps, b.zs, beta, b.ps)
		}
		ctx.Src, ctx.Dst = b.p, b.ap
		b.state = bicgMulShadow
		return MatVec, nil

	case bicgMulShadow:
		ctx.Src, ctx.Dst = b.ps, b.as
		b.state = bicgStep
		return MatTransVec, nil

	case bicgStep:
		den := floats.Dot(b.ps, b.ap)
		if vanished(den) {
			b.state = bicgIdle
			return NoOperation, breakdown("BiCG", "p̃ᵀAp")
		}
		alpha := b.rho / den
		floats.AddScaled(ctx.X, alpha, b.p)
		floats.AddScaled(ctx.Residual, -alpha, b.ap)
		floats.AddScaled(b.rs, -alpha, b.as)
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Src, ctx.Dst = nil, nil
		ctx.Converged = false
		b.state = bicgNext
		return CheckResidualNorm, nil

	case bicgNext:
		if ctx.Converged {
			b.state = bicgIdle
		} else {
			b.rhoPrev = b.rho
			b.state = bicgPrecondition
		}
		return EndIteration, nil
	}
	panic("iterative: BiCG.Init not called")
}
