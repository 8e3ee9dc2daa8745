// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package smoother provides point relaxation smoothers for the levels of a
// hierarchy of sparse matrices.
package smoother

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/vladimir-ch/multigrid"
	"github.com/vladimir-ch/multigrid/internal/sparse"
)

// Levels describes the hierarchy a smoother works on.
type Levels interface {
	NumLevels() int
	NumDofs(level int) int
	FreeDofs() *bitset.BitSet
	Matrix(level int) *sparse.Matrix
}

// ErrZeroDiagonal is returned by Update when a free dof has a zero diagonal
// entry.
var ErrZeroDiagonal = errors.New("smoother: zero diagonal entry")

// base holds the per-level state shared by the smoothers: the level
// matrices, the inverted diagonals and the free dofs.
type base struct {
	lv        Levels
	updateAll bool

	mats    []*sparse.Matrix
	invDiag [][]float64
	free    *bitset.BitSet
}

// SetUpdateAll implements multigrid.UpdateAller.
func (b *base) SetUpdateAll(all bool) {
	b.updateAll = all
}

// Update implements multigrid.Smoother. Without force or update-all only the
// levels added since the last update are set up.
func (b *base) Update(force bool) error {
	nl := b.lv.NumLevels()
	start := len(b.mats)
	if force || b.updateAll || nl < start {
		start = 0
	}
	b.mats = b.mats[:start]
	b.invDiag = b.invDiag[:start]
	b.free = b.lv.FreeDofs()
	for l := start; l < nl; l++ {
		m := b.lv.Matrix(l)
		d := m.Diag()
		for i, v := range d {
			switch {
			case !b.isFree(i):
				d[i] = 0
			case v == 0:
				return fmt.Errorf("%w: level %d, dof %d", ErrZeroDiagonal, l, i)
			default:
				d[i] = 1 / v
			}
		}
		b.mats = append(b.mats, m)
		b.invDiag = append(b.invDiag, d)
	}
	return nil
}

func (b *base) isFree(i int) bool {
	return b.free == nil || b.free.Test(uint(i))
}

func (b *base) level(level int, u, f []float64) (*sparse.Matrix, []float64, error) {
	if level < 0 || len(b.mats) <= level {
		return nil, nil, fmt.Errorf("smoother: level %d not set up, call Update", level)
	}
	m := b.mats[level]
	n, _ := m.Dims()
	if len(u) != n || len(f) != n {
		return nil, nil, fmt.Errorf("%w: vectors of length %d and %d on level %d with %d dofs", multigrid.ErrHierarchyMismatch, len(u), len(f), level, n)
	}
	return m, b.invDiag[level], nil
}

// residual stores f - A*u into res, with zeros at constrained dofs.
func (b *base) residual(m *sparse.Matrix, u, f, res []float64) {
	m.MulVec(res, u)
	for i := range res {
		if b.isFree(i) {
			res[i] = f[i] - res[i]
		} else {
			res[i] = 0
		}
	}
}

// Residual implements multigrid.Smoother.
func (b *base) Residual(level int, u, f, res []float64) error {
	m, _, err := b.level(level, u, f)
	if err != nil {
		return err
	}
	if len(res) != len(u) {
		return fmt.Errorf("%w: residual of length %d on level %d", multigrid.ErrHierarchyMismatch, len(res), level)
	}
	b.residual(m, u, f, res)
	return nil
}

// NewVector implements multigrid.Smoother.
func (b *base) NewVector(level int) []float64 {
	return make([]float64, b.lv.NumDofs(level))
}

// MemoryUsage implements multigrid.MemoryReporter.
func (b *base) MemoryUsage() []multigrid.MemoryUsage {
	var bytes int
	for _, d := range b.invDiag {
		bytes += 8 * len(d)
	}
	return []multigrid.MemoryUsage{{
		Name:   "smoother diagonals",
		Bytes:  bytes,
		Blocks: len(b.invDiag),
	}}
}

// Close drops the per-level state.
func (b *base) Close() error {
	b.mats = nil
	b.invDiag = nil
	return nil
}
