// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package poisson

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNumDofs(t *testing.T) {
	for _, n0 := range []int{1, 2, 5} {
		h := NewLevels(n0, 4)
		require.Equal(t, 4, h.NumLevels())
		for l := 0; l < 4; l++ {
			assert.Equal(t, n0<<l+1, h.NumDofs(l), "coarse elements %d, level %d", n0, l)
		}
	}
}

func TestRefinePositions(t *testing.T) {
	h := New(2)
	h.Refine()
	assert.Equal(t, []float64{0, 0.5, 1, 0.25, 0.75}, h.Positions(1))
	assert.Equal(t, []float64{0, 0.5, 1}, h.Positions(0))

	a, b := h.Parents(3)
	assert.Equal(t, [2]int{0, 1}, [2]int{a, b})
	a, b = h.Parents(4)
	assert.Equal(t, [2]int{1, 2}, [2]int{a, b})
	assert.Panics(t, func() { h.Parents(1) })
}

func TestFreeDofs(t *testing.T) {
	h := NewLevels(3, 3)
	n := h.NumDofs(2)
	for i := 0; i < n; i++ {
		x := h.pos[i]
		assert.Equal(t, x != 0 && x != 1, h.Free(i), "dof %d at %v", i, x)
	}
	assert.Equal(t, uint(n-2), h.FreeDofs().Count())
}

func TestMatrixPrefix(t *testing.T) {
	// The matrix of every level is the standard stiffness matrix in the
	// hierarchical numbering.
	h := NewLevels(2, 3)
	for l := 0; l < h.NumLevels(); l++ {
		m := h.Matrix(l)
		n := h.NumDofs(l)
		r, c := m.Dims()
		require.Equal(t, n, r)
		require.Equal(t, n, c)
		assert.True(t, m.IsSymmetric(0))
		hinv := float64(int(2) << l)
		for i := 0; i < n; i++ {
			if !h.Free(i) {
				assert.Equal(t, 1.0, m.At(i, i))
				continue
			}
			assert.InDelta(t, 2*hinv, m.At(i, i), 1e-12, "level %d, dof %d", l, i)
		}
	}
}

func TestGalerkinMatchesRediscretization(t *testing.T) {
	re := NewLevels(2, 4)
	ga := NewLevels(2, 4, WithGalerkin())
	for l := 0; l < re.NumLevels(); l++ {
		a, b := re.Matrix(l), ga.Matrix(l)
		n := re.NumDofs(l)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				assert.InDelta(t, a.At(i, j), b.At(i, j), 1e-10, "level %d, entry (%d,%d)", l, i, j)
			}
		}
	}
}

func TestReactionAddsToDiagonal(t *testing.T) {
	h0 := New(4)
	h1 := New(4, WithReaction(2))
	e := 0.25
	for i := 1; i < 4; i++ {
		assert.InDelta(t, h0.Matrix(0).At(i, i)+2*e, h1.Matrix(0).At(i, i), 1e-14)
	}
	assert.Panics(t, func() { New(4, WithReaction(-1)) })
}

func TestProlongationInterpolates(t *testing.T) {
	h := NewLevels(2, 4)
	p := NewProlongation(h)
	require.NoError(t, p.Update())

	g := func(x float64) float64 { return math.Sin(math.Pi * x) }
	for l := 1; l < h.NumLevels(); l++ {
		nc, n := h.NumDofs(l-1), h.NumDofs(l)
		v := make([]float64, n)
		for i := 0; i < nc; i++ {
			v[i] = g(h.pos[i])
		}
		coarse := append([]float64(nil), v[:nc]...)
		for i := range coarse {
			if !h.Free(i) {
				coarse[i] = 0
			}
		}
		require.NoError(t, p.ProlongateInPlace(l, v))
		assert.Equal(t, coarse, v[:nc], "coarse prefix changed on level %d", l)
		for k := nc; k < n; k++ {
			a, b := h.Parents(k)
			assert.InDelta(t, (coarse[a]+coarse[b])/2, v[k], 1e-15)
		}
	}
}

func TestRestrictionIsAdjoint(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	h := NewLevels(3, 4)
	p := NewProlongation(h)
	require.NoError(t, p.Update())

	for l := 1; l < h.NumLevels(); l++ {
		nc, n := h.NumDofs(l-1), h.NumDofs(l)
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			x[i] = rnd.NormFloat64()
		}
		for i := 0; i < nc; i++ {
			y[i] = rnd.NormFloat64()
		}
		rx := append([]float64(nil), x...)
		py := append([]float64(nil), y...)
		require.NoError(t, p.RestrictInPlace(l, rx))
		require.NoError(t, p.ProlongateInPlace(l, py))
		assert.InDelta(t, floats.Dot(x, py), floats.Dot(rx[:nc], y[:nc]), 1e-12, "level %d", l)
	}
}

func TestRestrictionOfCoarseVector(t *testing.T) {
	// A vector supported on the coarse dofs restricts to itself.
	h := NewLevels(2, 2)
	p := NewProlongation(h)
	require.NoError(t, p.Update())
	v := []float64{0, 3, 0, 0, 0}
	require.NoError(t, p.RestrictInPlace(1, v))
	assert.Equal(t, []float64{0, 3, 0}, v[:3])
}

func TestProlongationErrors(t *testing.T) {
	h := NewLevels(2, 2)
	p := NewProlongation(h)
	assert.Error(t, p.RestrictInPlace(1, make([]float64, 5)), "Update not called")
	require.NoError(t, p.Update())
	assert.Error(t, p.RestrictInPlace(0, make([]float64, 5)))
	assert.Error(t, p.ProlongateInPlace(1, make([]float64, 4)))

	h.Refine()
	assert.Error(t, p.ProlongateInPlace(2, make([]float64, 9)), "level added after Update")
	require.NoError(t, p.Update())
	assert.NoError(t, p.ProlongateInPlace(2, make([]float64, 9)))
}
