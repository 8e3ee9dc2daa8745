// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/multigrid"
)

// ErrSingular is returned when a matrix cannot be factorized.
var ErrSingular = errors.New("sparse: matrix is singular")

// Factor is a dense direct factorization of a sparse matrix, optionally
// restricted to a subset of its rows and columns. Symmetric positive definite
// matrices are factorized with Cholesky, all others with LU. Factor is safe
// for concurrent use by multiple goroutines.
type Factor struct {
	n    int
	free []int // Indices of the factorized rows and columns.

	chol *mat.Cholesky
	lu   *mat.LU
}

var _ multigrid.Inverse = (*Factor)(nil)

// Factorize computes the factorization of the rows and columns of m in free.
// If free is nil, all of m is factorized.
func Factorize(m *Matrix, free *bitset.BitSet) (*Factor, error) {
	r, c := m.Dims()
	if r != c {
		panic("sparse: matrix not square")
	}

	f := &Factor{n: r}
	pos := make([]int, r)
	for i := 0; i < r; i++ {
		if free == nil || free.Test(uint(i)) {
			pos[i] = len(f.free)
			f.free = append(f.free, i)
		} else {
			pos[i] = -1
		}
	}
	nf := len(f.free)
	if nf == 0 {
		return f, nil
	}

	a := make([]float64, nf*nf)
	for ii, i := range f.free {
		cols, vals := m.Row(i)
		for k, j := range cols {
			if jj := pos[j]; jj >= 0 {
				a[ii*nf+jj] = vals[k]
			}
		}
	}

	if isSymmetricDense(a, nf) {
		var chol mat.Cholesky
		if chol.Factorize(mat.NewSymDense(nf, a)) {
			f.chol = &chol
			return f, nil
		}
	}
	var lu mat.LU
	lu.Factorize(mat.NewDense(nf, nf, a))
	if math.IsInf(lu.Cond(), 1) {
		return nil, fmt.Errorf("%w: %d×%d block", ErrSingular, nf, nf)
	}
	f.lu = &lu
	return f, nil
}

func isSymmetricDense(a []float64, n int) bool {
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if a[i*n+j] != a[j*n+i] {
				return false
			}
		}
	}
	return true
}

// SolveVec implements multigrid.Inverse. The entries of dst outside the
// factorized set are zero.
func (f *Factor) SolveVec(dst, rhs []float64) error {
	if len(dst) != f.n || len(rhs) != f.n {
		panic("sparse: dimension mismatch")
	}
	nf := len(f.free)
	if nf == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}
	if nf == f.n {
		return f.solve(dst, rhs)
	}

	b := make([]float64, nf)
	x := make([]float64, nf)
	for ii, i := range f.free {
		b[ii] = rhs[i]
	}
	for i := range dst {
		dst[i] = 0
	}
	if err := f.solve(x, b); err != nil {
		return err
	}
	for ii, i := range f.free {
		dst[i] = x[ii]
	}
	return nil
}

func (f *Factor) solve(dst, rhs []float64) error {
	x := mat.NewVecDense(len(dst), dst)
	b := mat.NewVecDense(len(rhs), rhs)
	if f.chol != nil {
		return f.chol.SolveVecTo(x, b)
	}
	return f.lu.SolveVecTo(x, false, b)
}

// Cholesky reports whether f uses a Cholesky factorization.
func (f *Factor) Cholesky() bool {
	return f.chol != nil
}

// MemoryUsage implements multigrid.MemoryReporter.
func (f *Factor) MemoryUsage() []multigrid.MemoryUsage {
	nf := len(f.free)
	return []multigrid.MemoryUsage{{
		Name:   "coarse-grid factor",
		Bytes:  8*nf*nf + 8*nf,
		Blocks: 2,
	}}
}
