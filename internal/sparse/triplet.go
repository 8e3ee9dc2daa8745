// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

type triplet struct {
	i, j int
	v    float64
}

// Triplet is a coordinate-list assembly format. Duplicate entries are
// allowed and are summed when the matrix is compressed.
type Triplet struct {
	r, c int
	data []triplet
}

// NewTriplet returns an empty r×c triplet matrix.
func NewTriplet(r, c int) *Triplet {
	if r < 0 || c < 0 {
		panic("sparse: negative dimension")
	}
	return &Triplet{
		r: r,
		c: c,
	}
}

// Append adds v to the entry (i, j).
func (m *Triplet) Append(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic("sparse: row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("sparse: column index out of range")
	}
	m.data = append(m.data, triplet{i, j, v})
}

// ToCSR compresses m into a CSR matrix with sorted column indices. Duplicate
// entries are summed; explicit zeros that result are kept.
func (m *Triplet) ToCSR() *Matrix {
	data := make([]triplet, len(m.data))
	copy(data, m.data)
	sort.Slice(data, func(a, b int) bool {
		if data[a].i != data[b].i {
			return data[a].i < data[b].i
		}
		return data[a].j < data[b].j
	})

	a := &Matrix{
		r:      m.r,
		c:      m.c,
		rowPtr: make([]int, m.r+1),
	}
	for k := 0; k < len(data); {
		t := data[k]
		v := t.v
		k++
		for k < len(data) && data[k].i == t.i && data[k].j == t.j {
			v += data[k].v
			k++
		}
		a.colIdx = append(a.colIdx, t.j)
		a.vals = append(a.vals, v)
		a.rowPtr[t.i+1]++
	}
	for i := 0; i < m.r; i++ {
		a.rowPtr[i+1] += a.rowPtr[i]
	}
	return a
}
