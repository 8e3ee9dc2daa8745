// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package poisson

import (
	"fmt"

	"github.com/vladimir-ch/multigrid"
)

// Prolongation is linear interpolation between consecutive levels of a
// Hierarchy, with restriction as its transpose. Coordinates of constrained
// dofs are zero after either operation.
type Prolongation struct {
	h      *Hierarchy
	levels int
}

var _ multigrid.Prolongation = (*Prolongation)(nil)

// NewProlongation returns the prolongation of h. Update must be called
// before use and after every refinement.
func NewProlongation(h *Hierarchy) *Prolongation {
	return &Prolongation{h: h}
}

// Update records the current number of levels of the hierarchy.
func (p *Prolongation) Update() error {
	p.levels = p.h.NumLevels()
	return nil
}

func (p *Prolongation) check(level int, v []float64) (nc, n int, err error) {
	if level < 1 || p.levels <= level {
		return 0, 0, fmt.Errorf("poisson: prolongation level %d out of range [1,%d)", level, p.levels)
	}
	nc, n = p.h.ndofs[level-1], p.h.ndofs[level]
	if len(v) < n {
		return 0, 0, fmt.Errorf("%w: vector of length %d on level %d with %d dofs", multigrid.ErrHierarchyMismatch, len(v), level, n)
	}
	return nc, n, nil
}

// RestrictInPlace implements multigrid.Prolongation.
func (p *Prolongation) RestrictInPlace(level int, v []float64) error {
	nc, n, err := p.check(level, v)
	if err != nil {
		return err
	}
	for k := nc; k < n; k++ {
		a, b := p.h.parents[k][0], p.h.parents[k][1]
		v[a] += v[k] / 2
		v[b] += v[k] / 2
	}
	p.clearConstrained(v[:nc])
	return nil
}

// ProlongateInPlace implements multigrid.Prolongation.
func (p *Prolongation) ProlongateInPlace(level int, v []float64) error {
	nc, n, err := p.check(level, v)
	if err != nil {
		return err
	}
	p.clearConstrained(v[:nc])
	for k := nc; k < n; k++ {
		a, b := p.h.parents[k][0], p.h.parents[k][1]
		v[k] = (v[a] + v[b]) / 2
	}
	return nil
}

func (p *Prolongation) clearConstrained(v []float64) {
	for i := range v {
		if !p.h.Free(i) {
			v[i] = 0
		}
	}
}
