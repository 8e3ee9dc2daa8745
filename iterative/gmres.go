// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
)

// GMRES is the restarted generalized minimal residual method with left
// preconditioning for general non-singular systems. The residual norm
// checked inside a restart cycle is the estimate of the preconditioned
// residual norm provided by the Arnoldi process. At the end of every cycle
// the true residual is computed and checked. One iteration is one cycle.
//
// GMRES requests MatVec and PSolve.
type GMRES struct {
	// Restart is the dimension of the Krylov subspace built in one cycle.
	// It must satisfy 0 <= Restart <= dim, where 0 selects dim.
	Restart int

	state gmresState
	m     int // Cycle length.
	j     int // Arnoldi step within the cycle.

	basis [][]float64 // m+1 orthonormal vectors.
	hess  []float64   // (m+1)×m Hessenberg matrix, row-major with stride m.
	cs    []float64   // Givens cosines.
	sn    []float64   // Givens sines.
	g     []float64   // Rotated right-hand side of the least-squares problem.
	av, w []float64
}

type gmresState int

const (
	gmresIdle gmresState = iota
	gmresStart
	gmresNormalize
	gmresPrecondition
	gmresArnoldi
	gmresInner
	gmresCheckTrue
	gmresRestart
)

// Init implements the Method interface.
func (g *GMRES) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}
	if g.Restart < 0 || g.Restart > dim {
		panic("iterative: GMRES.Restart out of range")
	}
	g.m = g.Restart
	if g.m == 0 {
		g.m = dim
	}

	if cap(g.basis) < g.m+1 {
		g.basis = make([][]float64, g.m+1)
	}
	g.basis = g.basis[:g.m+1]
	for i := range g.basis {
		g.basis[i] = zeroed(g.basis[i], dim)
	}
	g.hess = zeroed(g.hess, (g.m+1)*g.m)
	g.cs = zeroed(g.cs, g.m)
	g.sn = zeroed(g.sn, g.m)
	g.g = zeroed(g.g, g.m+1)
	g.av = zeroed(g.av, dim)
	g.w = zeroed(g.w, dim)
	g.state = gmresStart
}

// Iterate implements the Method interface.
func (g *GMRES) Iterate(ctx *Context) (Operation, error) {
	switch g.state {
	case gmresStart:
		ctx.Src, ctx.Dst = ctx.Residual, g.basis[0]
		g.state = gmresNormalize
		return PSolve, nil

	case gmresNormalize:
		beta := floats.Norm(g.basis[0], 2)
		if beta == 0 {
			g.state = gmresIdle
			return NoOperation, breakdown("GMRES", "preconditioned residual")
		}
		floats.Scale(1/beta, g.basis[0])
		clear(g.g)
		g.g[0] = beta
		g.j = 0
		return g.mulBasis(ctx), nil

	case gmresPrecondition:
		ctx.Src, ctx.Dst = g.av, g.w
		g.state = gmresArnoldi
		return PSolve, nil

	case gmresArnoldi:
		g.arnoldi()
		ctx.ResidualNorm = math.Abs(g.g[g.j+1])
		ctx.Src, ctx.Dst = nil, nil
		ctx.Converged = false
		g.state = gmresInner
		return CheckResidualNorm, nil

	case gmresInner:
		if ctx.Converged {
			g.update(ctx.X, g.j+1)
			g.state = gmresIdle
			return EndIteration, nil
		}
		if g.j+1 < g.m {
			g.j++
			return g.mulBasis(ctx), nil
		}
		g.update(ctx.X, g.m)
		g.state = gmresCheckTrue
		return ComputeResidual, nil

	case gmresCheckTrue:
		ctx.Converged = false
		g.state = gmresRestart
		return CheckResidualNorm, nil

	case gmresRestart:
		if ctx.Converged {
			g.state = gmresIdle
		} else {
			g.state = gmresStart
		}
		return EndIteration, nil
	}
	panic("iterative: GMRES.Init not called")
}

// mulBasis requests the product of A with the current basis vector.
func (g *GMRES) mulBasis(ctx *Context) Operation {
	ctx.Src, ctx.Dst = g.basis[g.j], g.av
	g.state = gmresPrecondition
	return MatVec
}

// arnoldi orthogonalizes w against the basis, reduces the new column of the
// Hessenberg matrix to upper triangular form with Givens rotations, which are
// also applied to g, and stores the column.
func (g *GMRES) arnoldi() {
	j := g.j
	col := make([]float64, j+2)
	for i := 0; i <= j; i++ {
		col[i] = floats.Dot(g.w, g.basis[i])
		floats.AddScaled(g.w, -col[i], g.basis[i])
	}
	col[j+1] = floats.Norm(g.w, 2)
	next := g.basis[j+1]
	copy(next, g.w)
	if col[j+1] != 0 {
		floats.Scale(1/col[j+1], next)
	}

	for i := 0; i < j; i++ {
		col[i], col[i+1] = rotate(g.cs[i], g.sn[i], col[i], col[i+1])
	}
	c, s, r, _ := blas64.Implementation().Drotg(col[j], col[j+1])
	g.cs[j], g.sn[j] = c, s
	col[j], col[j+1] = r, 0
	g.g[j], g.g[j+1] = rotate(c, s, g.g[j], g.g[j+1])

	for i, v := range col {
		g.hess[i*g.m+j] = v
	}
}

// update adds the combination of the first k basis vectors that minimizes
// the residual over the current cycle to x.
func (g *GMRES) update(x []float64, k int) {
	y := g.g[:k]
	blas64.Implementation().Dtrsv(blas.Upper, blas.NoTrans, blas.NonUnit, k, g.hess, g.m, y, 1)
	for i, yi := range y {
		floats.AddScaled(x, yi, g.basis[i])
	}
}

// rotate applies the plane rotation [c s; -s c] to (x, y).
func rotate(c, s, x, y float64) (float64, float64) {
	return c*x + s*y, c*y - s*x
}
