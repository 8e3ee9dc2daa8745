// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

type testCase struct {
	name  string
	n     int
	iters int
	tol   float64
	a     MatrixOps
}

// randomSPD returns a dense symmetric positive definite test matrix with a
// dominant diagonal.
func randomSPD(n int, rnd *rand.Rand) testCase {
	a := make([]float64, n*n)
	lda := n
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a[i*lda+j] = rnd.Float64()
		}
	}
	for i := 0; i < n; i++ {
		a[i*lda+i] += float64(n)
	}
	bi := blas64.Implementation()
	return testCase{
		name:  fmt.Sprintf("randomSPD%d", n),
		n:     n,
		iters: 2 * n,
		tol:   1e-10,
		a: MatrixOps{
			MatVec: func(dst, x []float64) {
				bi.Dsymv(blas.Upper, n, 1, a, lda, x, 1, 0, dst, 1)
			},
			MatTransVec: func(dst, x []float64) {
				bi.Dsymv(blas.Upper, n, 1, a, lda, x, 1, 0, dst, 1)
			},
		},
	}
}

// laplace1D returns the tridiagonal matrix tridiag(-1, 2, -1) of order n.
func laplace1D(n int) testCase {
	matvec := func(dst, x []float64) {
		for i := range dst {
			v := 2 * x[i]
			if i > 0 {
				v -= x[i-1]
			}
			if i < n-1 {
				v -= x[i+1]
			}
			dst[i] = v
		}
	}
	return testCase{
		name:  fmt.Sprintf("laplace1D%d", n),
		n:     n,
		iters: 2 * n,
		tol:   1e-8,
		a:     MatrixOps{MatVec: matvec, MatTransVec: matvec},
	}
}

// convection1D returns the non-symmetric tridiagonal matrix
// tridiag(-1-c, 4, -1+c) of order n.
func convection1D(n int, c float64) testCase {
	apply := func(dst, x []float64, lo, up float64) {
		for i := range dst {
			v := 4 * x[i]
			if i > 0 {
				v += lo * x[i-1]
			}
			if i < n-1 {
				v += up * x[i+1]
			}
			dst[i] = v
		}
	}
	return testCase{
		name:  fmt.Sprintf("convection1D%d", n),
		n:     n,
		iters: 4 * n,
		tol:   1e-8,
		a: MatrixOps{
			MatVec:      func(dst, x []float64) { apply(dst, x, -1-c, -1+c) },
			MatTransVec: func(dst, x []float64) { apply(dst, x, -1+c, -1-c) },
		},
	}
}

// jacobi returns a diagonal preconditioner solve for a matrix with constant
// diagonal d.
func jacobi(d float64) func(dst, rhs []float64) error {
	return func(dst, rhs []float64) error {
		for i, v := range rhs {
			dst[i] = v / d
		}
		return nil
	}
}

func onesRHS(a MatrixOps, n int) (want, b []float64) {
	want = make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	b = make([]float64, n)
	a.MatVec(b, want)
	return want, b
}
