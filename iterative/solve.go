// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrIterationLimit is returned by LinearSolve when the method did not
// converge within Settings.MaxIterations iterations. The Result still holds
// the last approximation.
var ErrIterationLimit = errors.New("iterative: iteration limit reached")

// MatrixOps represents the system matrix A by its action on vectors.
type MatrixOps struct {
	// MatVec stores A*x into dst. It must not be nil.
	MatVec func(dst, x []float64)

	// MatTransVec stores Aᵀ*x into dst. Only BiCG uses it.
	MatTransVec func(dst, x []float64)
}

// Settings adjusts the iterative process. The zero value of a field selects
// its default.
type Settings struct {
	// X0 is the initial guess. The zero vector is used if X0 is nil,
	// otherwise its length must match the dimension of the system.
	X0 []float64

	// Tolerance is the relative residual tolerance. The solve stops once
	//  |r| < Tolerance * |b|.
	// It must lie in [eps, 1) and defaults to 1e-6.
	Tolerance float64

	// MaxIterations bounds the number of iterations. It defaults to twice
	// the dimension of the system.
	MaxIterations int

	// PSolve stores into dst the solution of M*dst = rhs. No
	// preconditioning is done if it is nil.
	PSolve func(dst, rhs []float64) error

	// PSolveTrans stores into dst the solution of Mᵀ*dst = rhs. PSolve is
	// used in its place if it is nil.
	PSolveTrans func(dst, rhs []float64) error

	// RecordHistory appends the residual norm at the end of every
	// iteration to Stats.History.
	RecordHistory bool
}

// Result is the outcome of LinearSolve.
type Result struct {
	// X is the last approximate solution.
	X []float64

	Stats Stats
}

// Stats collects counters of a solve.
type Stats struct {
	Iterations int

	// MatVec counts both MatVec and MatTransVec operations.
	MatVec int

	// PSolve counts both PSolve and PSolveTrans operations.
	PSolve int

	// ResidualNorm is the residual norm at the last iteration.
	ResidualNorm float64

	// History is filled when Settings.RecordHistory is set.
	History []float64

	StartTime time.Time
	Runtime   time.Duration
}

// LinearSolve finds an approximate solution of
//  A*x = b
// with the given method. The dimension of the system is len(b). The
// operations in a must include those the method requests.
func LinearSolve(a MatrixOps, b []float64, method Method, settings Settings) (Result, error) {
	switch {
	case a.MatVec == nil:
		panic("iterative: nil MatVec")
	case method == nil:
		panic("iterative: nil method")
	case settings.X0 != nil && len(settings.X0) != len(b):
		panic("iterative: initial guess has wrong length")
	}

	d := driver{
		a:     a,
		b:     b,
		set:   settings,
		stats: Stats{StartTime: time.Now()},
	}
	if len(b) == 0 {
		return Result{Stats: d.stats}, nil
	}
	d.defaults()

	err := d.run(method)
	d.stats.Runtime = time.Since(d.stats.StartTime)
	return Result{X: d.ctx.X, Stats: d.stats}, err
}

// driver carries out the operations requested by a Method.
type driver struct {
	a     MatrixOps
	b     []float64
	bnorm float64
	set   Settings
	ctx   Context
	stats Stats
}

func (d *driver) defaults() {
	s := &d.set
	if s.Tolerance == 0 {
		s.Tolerance = 1e-6
	}
	if s.Tolerance < eps || s.Tolerance >= 1 {
		panic(fmt.Sprintf("iterative: tolerance %v out of range", s.Tolerance))
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * len(d.b)
	}
	if s.PSolveTrans == nil {
		s.PSolveTrans = s.PSolve
	}
}

func (d *driver) run(method Method) error {
	n := len(d.b)
	d.ctx.X = make([]float64, n)
	d.ctx.Residual = make([]float64, n)
	if d.set.X0 == nil {
		copy(d.ctx.Residual, d.b)
		d.ctx.ResidualNorm = floats.Norm(d.ctx.Residual, 2)
	} else {
		copy(d.ctx.X, d.set.X0)
		d.residual()
	}
	d.bnorm = floats.Norm(d.b, 2)
	d.stats.ResidualNorm = d.ctx.ResidualNorm
	if d.bnorm == 0 || d.converged() {
		return nil
	}

	method.Init(n)
	for {
		op, err := method.Iterate(&d.ctx)
		if err != nil {
			return err
		}
		done, err := d.perform(op)
		if done || err != nil {
			return err
		}
	}
}

// perform executes op and reports whether the solve has finished.
func (d *driver) perform(op Operation) (done bool, err error) {
	ctx := &d.ctx
	switch op {
	case NoOperation:
	case MatVec:
		d.a.MatVec(ctx.Dst, ctx.Src)
		d.stats.MatVec++
	case MatTransVec:
		if d.a.MatTransVec == nil {
			panic("iterative: nil MatTransVec")
		}
		d.a.MatTransVec(ctx.Dst, ctx.Src)
		d.stats.MatVec++
	case PSolve:
		return false, d.precondition(d.set.PSolve)
	case PSolveTrans:
		return false, d.precondition(d.set.PSolveTrans)
	case ComputeResidual:
		d.residual()
	case CheckResidualNorm:
		ctx.Converged = d.converged()
	case EndIteration:
		d.stats.Iterations++
		d.stats.ResidualNorm = ctx.ResidualNorm
		if d.set.RecordHistory {
			d.stats.History = append(d.stats.History, ctx.ResidualNorm)
		}
		if ctx.Converged {
			return true, nil
		}
		if d.stats.Iterations >= d.set.MaxIterations {
			return true, ErrIterationLimit
		}
	default:
		panic(fmt.Sprintf("iterative: invalid operation %v", op))
	}
	return false, nil
}

func (d *driver) precondition(solve func(dst, rhs []float64) error) error {
	if solve == nil {
		copy(d.ctx.Dst, d.ctx.Src)
		return nil
	}
	d.stats.PSolve++
	return solve(d.ctx.Dst, d.ctx.Src)
}

// residual stores b - A*X into the context.
func (d *driver) residual() {
	r := d.ctx.Residual
	d.a.MatVec(r, d.ctx.X)
	d.stats.MatVec++
	floats.AddScaledTo(r, d.b, -1, r)
	d.ctx.ResidualNorm = floats.Norm(r, 2)
}

func (d *driver) converged() bool {
	return d.ctx.ResidualNorm < d.set.Tolerance*d.bnorm
}
