// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smoother

import (
	"github.com/vladimir-ch/multigrid"
)

// Jacobi is the damped Jacobi smoother
//  u += omega D^{-1} (f - A u)
// restricted to the free dofs. It is safe for concurrent smoothing once
// Update has returned.
type Jacobi struct {
	base
	omega float64
}

var (
	_ multigrid.Smoother    = (*Jacobi)(nil)
	_ multigrid.UpdateAller = (*Jacobi)(nil)
)

// NewJacobi returns a damped Jacobi smoother on lv. It panics if omega is
// not in (0, 2).
func NewJacobi(lv Levels, omega float64) *Jacobi {
	if !(0 < omega && omega < 2) {
		panic("smoother: invalid damping factor")
	}
	return &Jacobi{base: base{lv: lv}, omega: omega}
}

func (j *Jacobi) smooth(level int, u, f []float64, steps int) error {
	m, dinv, err := j.level(level, u, f)
	if err != nil {
		return err
	}
	r := make([]float64, len(u))
	for k := 0; k < steps; k++ {
		j.residual(m, u, f, r)
		for i, v := range r {
			u[i] += j.omega * dinv[i] * v
		}
	}
	return nil
}

// PreSmooth implements multigrid.Smoother.
func (j *Jacobi) PreSmooth(level int, u, f []float64, steps int) error {
	return j.smooth(level, u, f, steps)
}

// PostSmooth implements multigrid.Smoother.
func (j *Jacobi) PostSmooth(level int, u, f []float64, steps int) error {
	return j.smooth(level, u, f, steps)
}

// PreSmoothResidual implements multigrid.Smoother.
func (j *Jacobi) PreSmoothResidual(level int, u, f, res []float64, steps int) error {
	if err := j.smooth(level, u, f, steps); err != nil {
		return err
	}
	return j.Residual(level, u, f, res)
}
