// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestCG(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	var cases []testCase
	for _, n := range []int{1, 2, 3, 4, 5, 10, 20, 50, 100, 200} {
		cases = append(cases, randomSPD(n, rnd))
	}
	cases = append(cases, laplace1D(10), laplace1D(50))

	for _, tc := range cases {
		n := tc.n
		// The all-ones vector solves the system.
		want, b := onesRHS(tc.a, n)
		r, err := LinearSolve(tc.a, b, &CG{}, Settings{
			MaxIterations: tc.iters,
			Tolerance:     1e-12,
		})
		if err != nil {
			t.Errorf("%v: unexpected error %v", tc.name, err)
			continue
		}
		if dist := floats.Distance(r.X, want, math.Inf(1)); dist > tc.tol*float64(n) {
			t.Errorf("%v: solution off by %v", tc.name, dist)
		}
	}
}

func TestCGIndefinite(t *testing.T) {
	neg := MatrixOps{MatVec: func(dst, x []float64) {
		for i, v := range x {
			dst[i] = -v
		}
	}}
	_, err := LinearSolve(neg, []float64{1, 2, 3}, &CG{}, Settings{})
	if !errors.Is(err, ErrNotPositiveDefinite) {
		t.Errorf("unexpected error: got %v, want %v", err, ErrNotPositiveDefinite)
	}
}

func TestBreakdown(t *testing.T) {
	// The rotation by 90° gives rᵀAr = 0 for every r.
	rot := func(dst, x []float64) { dst[0], dst[1] = -x[1], x[0] }
	trans := func(dst, x []float64) { dst[0], dst[1] = x[1], -x[0] }
	a := MatrixOps{MatVec: rot, MatTransVec: trans}
	for _, m := range []Method{&BiCG{}, &BiCGSTAB{}} {
		_, err := LinearSolve(a, []float64{1, 0}, m, Settings{})
		if !errors.Is(err, ErrBreakdown) {
			t.Errorf("%T: unexpected error: got %v, want %v", m, err, ErrBreakdown)
		}
	}
}

func TestOperationString(t *testing.T) {
	for op, want := range map[Operation]string{
		NoOperation:  "NoOperation",
		PSolveTrans:  "PSolveTrans",
		EndIteration: "EndIteration",
		1 << 20:      "Operation(1048576)",
	} {
		if got := op.String(); got != want {
			t.Errorf("unexpected name: got %q, want %q", got, want)
		}
	}
}

func TestCGPreconditioned(t *testing.T) {
	tc := laplace1D(40)
	want, b := onesRHS(tc.a, tc.n)
	r, err := LinearSolve(tc.a, b, &CG{}, Settings{
		Tolerance:     1e-12,
		PSolve:        jacobi(2),
		RecordHistory: true,
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if dist := floats.Distance(r.X, want, math.Inf(1)); dist > 1e-6 {
		t.Errorf("unexpected solution, |want-got|=%v", dist)
	}
	if r.Stats.PSolve == 0 {
		t.Errorf("preconditioner was not used")
	}
	if len(r.Stats.History) != r.Stats.Iterations {
		t.Errorf("unexpected history length: got %v, want %v", len(r.Stats.History), r.Stats.Iterations)
	}
	if r.Stats.History[len(r.Stats.History)-1] != r.Stats.ResidualNorm {
		t.Errorf("last history entry differs from final residual norm")
	}
}

func TestCGIterationLimit(t *testing.T) {
	tc := laplace1D(100)
	_, b := onesRHS(tc.a, tc.n)
	r, err := LinearSolve(tc.a, b, &CG{}, Settings{
		MaxIterations: 3,
		Tolerance:     1e-12,
	})
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("unexpected error: got %v, want %v", err, ErrIterationLimit)
	}
	if r.Stats.Iterations != 3 {
		t.Errorf("unexpected number of iterations: got %v, want 3", r.Stats.Iterations)
	}
}

func TestLinearSolveZeroRHS(t *testing.T) {
	tc := laplace1D(7)
	b := make([]float64, tc.n)
	r, err := LinearSolve(tc.a, b, &CG{}, Settings{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if r.Stats.Iterations != 0 {
		t.Errorf("unexpected iterations for zero right-hand side: %v", r.Stats.Iterations)
	}
	for i, v := range r.X {
		if v != 0 {
			t.Errorf("unexpected X[%d]=%v, want 0", i, v)
		}
	}
}
