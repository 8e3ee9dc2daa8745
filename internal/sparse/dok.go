// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// DOK is a dictionary-of-keys matrix. It supports random access updates and
// is used where the sparsity pattern is not known in advance, such as the
// Galerkin product of prolongation and fine-level matrices.
type DOK struct {
	Rows, Cols int

	data map[index]float64
}

type index struct {
	row, col int
}

// NewDOK returns an empty r×c DOK matrix.
func NewDOK(r, c int) *DOK {
	return &DOK{
		Rows: r,
		Cols: c,
		data: make(map[index]float64),
	}
}

// AddAt adds v to the entry (i, j).
func (m *DOK) AddAt(i, j int, v float64) {
	m.check(i, j)
	m.data[index{i, j}] += v
}

func (m *DOK) check(i, j int) {
	if i < 0 || m.Rows <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.Cols <= j {
		panic("sparse: column index out of range")
	}
}

// Each calls fn for every stored entry in unspecified order.
func (m *DOK) Each(fn func(i, j int, v float64)) {
	for ij, aij := range m.data {
		fn(ij.row, ij.col, aij)
	}
}
