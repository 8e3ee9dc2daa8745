// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides the sparse matrix formats used by the reference
// discretization: coordinate and dictionary assembly formats and a compressed
// sparse row matrix that implements multigrid.Operator.
package sparse

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/vladimir-ch/multigrid"
)

// Matrix is a compressed sparse row matrix. Column indices within a row are
// sorted. Matrix is immutable once built and safe for concurrent reads.
type Matrix struct {
	r, c   int
	rowPtr []int
	colIdx []int
	vals   []float64
}

var _ multigrid.Operator = (*Matrix)(nil)

func (m *Matrix) Dims() (r, c int) {
	return m.r, m.c
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.vals)
}

// At returns the entry (i, j).
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || m.r <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("sparse: column index out of range")
	}
	cols, vals := m.Row(i)
	lo, hi := 0, len(cols)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if cols[mid] < j {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(cols) && cols[lo] == j {
		return vals[lo]
	}
	return 0
}

// Row returns the column indices and values of the stored entries of row i.
// The returned slices must not be modified.
func (m *Matrix) Row(i int) (cols []int, vals []float64) {
	start, end := m.rowPtr[i], m.rowPtr[i+1]
	return m.colIdx[start:end], m.vals[start:end]
}

// Diag returns the diagonal of m.
func (m *Matrix) Diag() []float64 {
	n := min(m.r, m.c)
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = m.At(i, i)
	}
	return d
}

// MulVec computes dst = m*x.
func (m *Matrix) MulVec(dst, x []float64) {
	if m.c != len(x) {
		panic("sparse: dimension mismatch")
	}
	if m.r != len(dst) {
		panic("sparse: dimension mismatch")
	}
	for i := range dst {
		var v float64
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			v += m.vals[k] * x[m.colIdx[k]]
		}
		dst[i] = v
	}
}

// MulTransVec computes dst = m^T*x.
func (m *Matrix) MulTransVec(dst, x []float64) {
	if m.c != len(dst) {
		panic("sparse: dimension mismatch")
	}
	if m.r != len(x) {
		panic("sparse: dimension mismatch")
	}
	for j := range dst {
		dst[j] = 0
	}
	for i := 0; i < m.r; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			dst[m.colIdx[k]] += m.vals[k] * x[i]
		}
	}
}

// IsSymmetric reports whether m equals its transpose up to tol in each entry.
func (m *Matrix) IsSymmetric(tol float64) bool {
	if m.r != m.c {
		return false
	}
	for i := 0; i < m.r; i++ {
		cols, vals := m.Row(i)
		for k, j := range cols {
			d := vals[k] - m.At(j, i)
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}

// Invert implements multigrid.Operator.
func (m *Matrix) Invert() (multigrid.Inverse, error) {
	return m.InvertFree(nil)
}

// InvertFree implements multigrid.Operator. Indices beyond the dimension of
// m in free are ignored.
func (m *Matrix) InvertFree(free *bitset.BitSet) (multigrid.Inverse, error) {
	return Factorize(m, free)
}

// MemoryUsage implements multigrid.MemoryReporter.
func (m *Matrix) MemoryUsage() []multigrid.MemoryUsage {
	return []multigrid.MemoryUsage{{
		Name:   "sparse matrix",
		Bytes:  8*len(m.vals) + 8*len(m.colIdx) + 8*len(m.rowPtr),
		Blocks: 3,
	}}
}
