// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid_test

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/vladimir-ch/multigrid"
	"github.com/vladimir-ch/multigrid/internal/smoother"
	"github.com/vladimir-ch/multigrid/internal/sparse"
)

// levels is a hierarchy of near-identity tridiagonal matrices
//  I + eps*tridiag(-1, 2, -1)
// on nested spaces.
type levels struct {
	eps  float64
	dofs []int
	free *bitset.BitSet
	mats []*sparse.Matrix
}

var (
	_ multigrid.Hierarchy        = (*levels)(nil)
	_ multigrid.OperatorProvider = (*levels)(nil)
	_ smoother.Levels            = (*levels)(nil)
)

func newLevels(eps float64, dofs ...int) *levels {
	l := &levels{eps: eps}
	for _, n := range dofs {
		l.add(n)
	}
	return l
}

// add appends a finer level with n dofs.
func (l *levels) add(n int) {
	l.dofs = append(l.dofs, n)
	l.mats = append(l.mats, nearIdentity(n, l.eps))
}

func nearIdentity(n int, eps float64) *sparse.Matrix {
	t := sparse.NewTriplet(n, n)
	for i := 0; i < n; i++ {
		t.Append(i, i, 1+2*eps)
		if i > 0 {
			t.Append(i, i-1, -eps)
		}
		if i+1 < n {
			t.Append(i, i+1, -eps)
		}
	}
	return t.ToCSR()
}

func (l *levels) NumLevels() int                        { return len(l.dofs) }
func (l *levels) NumDofs(level int) int                 { return l.dofs[level] }
func (l *levels) FreeDofs() *bitset.BitSet              { return l.free }
func (l *levels) Operator(level int) multigrid.Operator { return l.mats[level] }
func (l *levels) Matrix(level int) *sparse.Matrix       { return l.mats[level] }

// injection restricts by truncation and prolongates by zero extension.
type injection struct {
	h       *levels
	updates int
	closed  bool
}

func (p *injection) Update() error {
	p.updates++
	return nil
}

func (p *injection) check(level int, v []float64) error {
	if level < 1 || p.h.NumLevels() <= level {
		return fmt.Errorf("injection: level %d out of range", level)
	}
	if len(v) != p.h.NumDofs(level) {
		return multigrid.ErrHierarchyMismatch
	}
	return nil
}

func (p *injection) RestrictInPlace(level int, v []float64) error {
	return p.check(level, v)
}

func (p *injection) ProlongateInPlace(level int, v []float64) error {
	if err := p.check(level, v); err != nil {
		return err
	}
	for i := p.h.NumDofs(level - 1); i < len(v); i++ {
		v[i] = 0
	}
	return nil
}

func (p *injection) Close() error {
	p.closed = true
	return nil
}

var errBoom = errors.New("boom")

// recorder wraps a smoother and records the calls made to it.
type recorder struct {
	multigrid.Smoother

	mu        sync.Mutex
	events    []string
	forced    []bool
	updateAll bool
	closed    bool

	// failPost makes PostSmooth on that level return errBoom.
	failPost int
}

func newRecorder(s multigrid.Smoother) *recorder {
	return &recorder{Smoother: s, failPost: -1}
}

func (r *recorder) record(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *recorder) Update(force bool) error {
	r.forced = append(r.forced, force)
	return r.Smoother.Update(force)
}

func (r *recorder) PreSmooth(level int, u, f []float64, steps int) error {
	r.record("pre %d %d", level, steps)
	return r.Smoother.PreSmooth(level, u, f, steps)
}

func (r *recorder) PostSmooth(level int, u, f []float64, steps int) error {
	r.record("post %d %d", level, steps)
	if level == r.failPost {
		return errBoom
	}
	return r.Smoother.PostSmooth(level, u, f, steps)
}

func (r *recorder) PreSmoothResidual(level int, u, f, res []float64, steps int) error {
	r.record("preres %d %d", level, steps)
	return r.Smoother.PreSmoothResidual(level, u, f, res, steps)
}

func (r *recorder) Residual(level int, u, f, res []float64) error {
	r.record("res %d", level)
	return r.Smoother.Residual(level, u, f, res)
}

func (r *recorder) SetUpdateAll(all bool) {
	r.updateAll = all
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

// jacobiInverse is the inverse of the diagonal of a matrix, used as an
// approximate coarse-grid solver.
type jacobiInverse struct {
	d      []float64
	closed bool
}

func newJacobiInverse(m *sparse.Matrix) *jacobiInverse {
	d := m.Diag()
	for i := range d {
		d[i] = 1 / d[i]
	}
	return &jacobiInverse{d: d}
}

func (j *jacobiInverse) SolveVec(dst, rhs []float64) error {
	for i, v := range rhs {
		dst[i] = j.d[i] * v
	}
	return nil
}

func (j *jacobiInverse) Close() error {
	j.closed = true
	return nil
}
