// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid

import "fmt"

// prefix returns the view of the leading n coordinates of v. The view shares
// storage with v.
func prefix(v []float64, n int) ([]float64, error) {
	if n < 0 || len(v) < n {
		return nil, fmt.Errorf("%w: range [0,%d) of vector of length %d", ErrHierarchyMismatch, n, len(v))
	}
	return v[:n:n], nil
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// checkNesting verifies that the dimensions of the levels of h are
// non-decreasing, so that every coarse space is a prefix of the next finer
// one.
func checkNesting(h Hierarchy) error {
	nl := h.NumLevels()
	if nl < 1 {
		return fmt.Errorf("%w: no levels", ErrHierarchyMismatch)
	}
	prev := h.NumDofs(0)
	if prev < 0 {
		return fmt.Errorf("%w: negative dimension on level 0", ErrHierarchyMismatch)
	}
	for l := 1; l < nl; l++ {
		n := h.NumDofs(l)
		if n < prev {
			return fmt.Errorf("%w: level %d has %d dofs, fewer than %d on level %d", ErrHierarchyMismatch, l, n, prev, l-1)
		}
		prev = n
	}
	return nil
}
