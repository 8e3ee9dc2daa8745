// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// TwoLevel is a two-level preconditioner: smoothing on one level combined
// with an externally built coarse-grid preconditioner acting on the leading
// coordinates of that level. It is a single unrolled level of the cycle of
// Preconditioner and does not need a hierarchy or a prolongation.
type TwoLevel struct {
	a         Operator
	coarse    Inverse
	coarseDim int
	smoother  Handle[Smoother]
	level     int

	smoothingSteps int
}

// NewTwoLevel returns a two-level preconditioner for the operator a on
// level. coarse acts on the leading coarseDim coordinates; it is not owned by
// the TwoLevel.
func NewTwoLevel(a Operator, coarse Inverse, coarseDim int, s Handle[Smoother], level int) *TwoLevel {
	if a == nil {
		panic("multigrid: nil operator")
	}
	if coarse == nil {
		panic("multigrid: nil coarse-grid preconditioner")
	}
	r, c := a.Dims()
	if r != c {
		panic("multigrid: operator not square")
	}
	if coarseDim < 0 || r < coarseDim {
		panic(ErrHierarchyMismatch)
	}
	t := &TwoLevel{
		a:              a,
		coarse:         coarse,
		coarseDim:      coarseDim,
		smoother:       s,
		level:          level,
		smoothingSteps: 1,
	}
	return t
}

// SetSmoothingSteps sets the number of pre- and post-smoothing steps. It
// panics if steps < 1.
func (t *TwoLevel) SetSmoothingSteps(steps int) {
	if steps < 1 {
		panic("multigrid: invalid number of smoothing steps")
	}
	t.smoothingSteps = steps
}

// Update refreshes the smoother. The coarse-grid preconditioner is managed by
// its owner.
func (t *TwoLevel) Update() error {
	s, ok := t.smoother.Get()
	if !ok {
		return nil
	}
	if err := s.Update(false); err != nil {
		return fmt.Errorf("in TwoLevel.Update: smoother update: %w", err)
	}
	return nil
}

// Apply stores into dst the two-level approximation of A^{-1} f. f is not
// modified.
func (t *TwoLevel) Apply(dst, f []float64) error {
	if err := t.apply(dst, f); err != nil {
		return fmt.Errorf("in TwoLevel.Apply: %w", err)
	}
	return nil
}

func (t *TwoLevel) apply(dst, f []float64) error {
	s, ok := t.smoother.Get()
	if !ok {
		return ErrNoSmoother
	}
	n, _ := t.a.Dims()
	if len(dst) != n || len(f) != n {
		return fmt.Errorf("%w: vector lengths %d and %d, operator has dimension %d", ErrHierarchyMismatch, len(dst), len(f), n)
	}

	zero(dst)
	res := s.NewVector(t.level)
	if err := s.PreSmoothResidual(t.level, dst, f, res, t.smoothingSteps); err != nil {
		return levelError(t.level, "pre-smoothing", err)
	}

	cres, err := prefix(res, t.coarseDim)
	if err != nil {
		return levelError(t.level, "restriction", err)
	}
	cw := make([]float64, t.coarseDim)
	if err := t.coarse.SolveVec(cw, cres); err != nil {
		return levelError(t.level, "coarse-grid solve", err)
	}
	cu, err := prefix(dst, t.coarseDim)
	if err != nil {
		return levelError(t.level, "prolongation", err)
	}
	floats.Add(cu, cw)

	if err := s.PostSmooth(t.level, dst, f, t.smoothingSteps); err != nil {
		return levelError(t.level, "post-smoothing", err)
	}
	return nil
}

// MemoryUsage reports the memory held by the coarse-grid preconditioner and
// the smoother.
func (t *TwoLevel) MemoryUsage() []MemoryUsage {
	mu := memoryUsage(t.coarse)
	if s, ok := t.smoother.Get(); ok {
		mu = append(mu, memoryUsage(s)...)
	}
	return mu
}

// Close releases the smoother if it is owned.
func (t *TwoLevel) Close() error {
	return t.smoother.release()
}
