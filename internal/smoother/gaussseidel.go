// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smoother

import (
	"github.com/vladimir-ch/multigrid"
)

// GaussSeidel is the symmetric Gauss-Seidel smoother. Pre-smoothing sweeps
// the free dofs in increasing order and post-smoothing in decreasing order,
// so that a V-cycle with equal pre- and post-smoothing is symmetric for a
// symmetric operator.
type GaussSeidel struct {
	base
}

var (
	_ multigrid.Smoother    = (*GaussSeidel)(nil)
	_ multigrid.UpdateAller = (*GaussSeidel)(nil)
)

// NewGaussSeidel returns a Gauss-Seidel smoother on lv.
func NewGaussSeidel(lv Levels) *GaussSeidel {
	return &GaussSeidel{base: base{lv: lv}}
}

func (g *GaussSeidel) sweep(level int, u, f []float64, steps int, backward bool) error {
	m, dinv, err := g.level(level, u, f)
	if err != nil {
		return err
	}
	n := len(u)
	for k := 0; k < steps; k++ {
		for ii := 0; ii < n; ii++ {
			i := ii
			if backward {
				i = n - 1 - ii
			}
			if dinv[i] == 0 {
				continue
			}
			v := f[i]
			cols, vals := m.Row(i)
			for p, j := range cols {
				v -= vals[p] * u[j]
			}
			u[i] += dinv[i] * v
		}
	}
	return nil
}

// PreSmooth implements multigrid.Smoother.
func (g *GaussSeidel) PreSmooth(level int, u, f []float64, steps int) error {
	return g.sweep(level, u, f, steps, false)
}

// PostSmooth implements multigrid.Smoother.
func (g *GaussSeidel) PostSmooth(level int, u, f []float64, steps int) error {
	return g.sweep(level, u, f, steps, true)
}

// PreSmoothResidual implements multigrid.Smoother.
func (g *GaussSeidel) PreSmoothResidual(level int, u, f, res []float64, steps int) error {
	if err := g.sweep(level, u, f, steps, false); err != nil {
		return err
	}
	return g.Residual(level, u, f, res)
}
