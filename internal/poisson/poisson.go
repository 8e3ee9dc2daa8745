// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package poisson provides a nested hierarchy of linear finite-element
// discretizations of
//  -u'' + c u = f on (0, 1),  u(0) = u(1) = 0,
// used to exercise the multigrid preconditioner.
//
// Degrees of freedom are numbered hierarchically: the nodes of the coarse
// mesh come first, and each refinement appends the midpoints of the previous
// elements. The dofs of every level are therefore a prefix of the dofs of the
// next finer level.
package poisson

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/vladimir-ch/multigrid"
	"github.com/vladimir-ch/multigrid/internal/sparse"
)

// Hierarchy is a nested sequence of uniform meshes of (0, 1).
type Hierarchy struct {
	coarseElements int
	reaction       float64
	galerkin       bool

	pos     []float64 // Node coordinate of each dof.
	parents [][2]int  // End points of the parent element of each dof; unused below ndofs[0].
	ndofs   []int
	mats    []*sparse.Matrix
	free    *bitset.BitSet
}

var (
	_ multigrid.Hierarchy        = (*Hierarchy)(nil)
	_ multigrid.OperatorProvider = (*Hierarchy)(nil)
)

// Option configures a Hierarchy.
type Option func(*Hierarchy)

// WithReaction sets the coefficient c of the lumped reaction term. It must be
// non-negative.
func WithReaction(c float64) Option {
	return func(h *Hierarchy) {
		if c < 0 {
			panic("poisson: negative reaction coefficient")
		}
		h.reaction = c
	}
}

// WithGalerkin makes the operators of the coarser levels the Galerkin
// products P^T A P of the finer ones instead of rediscretizations.
func WithGalerkin() Option {
	return func(h *Hierarchy) { h.galerkin = true }
}

// New returns a single-level hierarchy with the given number of elements on
// the coarse mesh.
func New(coarseElements int, opts ...Option) *Hierarchy {
	if coarseElements < 1 {
		panic("poisson: invalid number of coarse elements")
	}
	h := &Hierarchy{coarseElements: coarseElements}
	for _, opt := range opts {
		opt(h)
	}
	n := coarseElements + 1
	h.pos = make([]float64, n)
	h.parents = make([][2]int, n)
	for i := range h.pos {
		h.pos[i] = float64(i) / float64(coarseElements)
	}
	h.ndofs = []int{n}
	h.assemble()
	return h
}

// NewLevels returns a hierarchy refined to the given number of levels.
func NewLevels(coarseElements, levels int, opts ...Option) *Hierarchy {
	if levels < 1 {
		panic("poisson: invalid number of levels")
	}
	h := New(coarseElements, opts...)
	for h.NumLevels() < levels {
		h.Refine()
	}
	return h
}

// Refine adds a finer level by bisecting every element of the finest mesh.
func (h *Hierarchy) Refine() {
	order := h.order(len(h.ndofs) - 1)
	for k := 0; k+1 < len(order); k++ {
		a, b := order[k], order[k+1]
		h.pos = append(h.pos, (h.pos[a]+h.pos[b])/2)
		h.parents = append(h.parents, [2]int{a, b})
	}
	h.ndofs = append(h.ndofs, len(h.pos))
	h.assemble()
}

func (h *Hierarchy) NumLevels() int {
	return len(h.ndofs)
}

func (h *Hierarchy) NumDofs(level int) int {
	h.checkLevel(level)
	return h.ndofs[level]
}

// FreeDofs returns the dofs of the finest level that are not on the
// boundary.
func (h *Hierarchy) FreeDofs() *bitset.BitSet {
	return h.free
}

// Free reports whether dof i is unconstrained.
func (h *Hierarchy) Free(i int) bool {
	return h.free.Test(uint(i))
}

// Operator implements multigrid.OperatorProvider.
func (h *Hierarchy) Operator(level int) multigrid.Operator {
	return h.Matrix(level)
}

// Matrix returns the stiffness matrix of level. Constrained rows and columns
// are replaced by those of the identity.
func (h *Hierarchy) Matrix(level int) *sparse.Matrix {
	h.checkLevel(level)
	return h.mats[level]
}

// Positions returns the node coordinates of the dofs of level.
func (h *Hierarchy) Positions(level int) []float64 {
	h.checkLevel(level)
	return h.pos[:h.ndofs[level]]
}

// Parents returns the end points of the element that was bisected to create
// dof i. It panics if i belongs to the coarse mesh.
func (h *Hierarchy) Parents(i int) (a, b int) {
	if i < h.ndofs[0] || len(h.pos) <= i {
		panic("poisson: dof without parents")
	}
	p := h.parents[i]
	return p[0], p[1]
}

func (h *Hierarchy) checkLevel(level int) {
	if level < 0 || len(h.ndofs) <= level {
		panic(fmt.Sprintf("poisson: level %d out of range [0,%d)", level, len(h.ndofs)))
	}
}

// order returns the dofs of level sorted by position.
func (h *Hierarchy) order(level int) []int {
	n := h.ndofs[level]
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return h.pos[order[a]] < h.pos[order[b]] })
	return order
}

// assemble rebuilds the free dofs and the level matrices after the mesh
// changed.
func (h *Hierarchy) assemble() {
	n := len(h.pos)
	h.free = bitset.New(uint(n))
	for i := 0; i < n; i++ {
		h.free.Set(uint(i))
	}
	h.free.Clear(0)
	h.free.Clear(uint(h.coarseElements))

	nl := len(h.ndofs)
	if !h.galerkin {
		h.mats = h.mats[:0]
		for l := 0; l < nl; l++ {
			h.mats = append(h.mats, h.constrain(h.stiffness(l), h.ndofs[l]))
		}
		return
	}

	h.mats = make([]*sparse.Matrix, nl)
	fine := h.stiffness(nl - 1)
	h.mats[nl-1] = h.constrain(fine, h.ndofs[nl-1])
	for l := nl - 1; l > 0; l-- {
		fine = h.galerkinProduct(l, h.mats[l])
		h.mats[l-1] = h.constrain(fine, h.ndofs[l-1])
	}
}

// stiffness assembles the unconstrained matrix of level.
func (h *Hierarchy) stiffness(level int) *sparse.DOK {
	n := h.ndofs[level]
	a := sparse.NewDOK(n, n)
	order := h.order(level)
	for k := 0; k+1 < len(order); k++ {
		i, j := order[k], order[k+1]
		e := h.pos[j] - h.pos[i]
		a.AddAt(i, i, 1/e+h.reaction*e/2)
		a.AddAt(j, j, 1/e+h.reaction*e/2)
		a.AddAt(i, j, -1/e)
		a.AddAt(j, i, -1/e)
	}
	return a
}

// galerkinProduct returns P^T A P where P prolongates from level-1 to level.
func (h *Hierarchy) galerkinProduct(level int, a *sparse.Matrix) *sparse.DOK {
	nc := h.ndofs[level-1]
	n := h.ndofs[level]
	c := sparse.NewDOK(nc, nc)
	for i := 0; i < n; i++ {
		cols, vals := a.Row(i)
		for k, j := range cols {
			for _, pi := range h.interpolation(i, nc) {
				for _, pj := range h.interpolation(j, nc) {
					c.AddAt(pi.dof, pj.dof, pi.weight*vals[k]*pj.weight)
				}
			}
		}
	}
	return c
}

type weight struct {
	dof    int
	weight float64
}

// interpolation returns the coarse dofs and weights that define the value of
// fine dof i.
func (h *Hierarchy) interpolation(i, nc int) []weight {
	if i < nc {
		return []weight{{i, 1}}
	}
	p := h.parents[i]
	return []weight{{p[0], 0.5}, {p[1], 0.5}}
}

// constrain converts a to CSR with the rows and columns of constrained dofs
// replaced by those of the identity.
func (h *Hierarchy) constrain(a *sparse.DOK, n int) *sparse.Matrix {
	t := sparse.NewTriplet(n, n)
	for i := 0; i < n; i++ {
		if !h.Free(i) {
			t.Append(i, i, 1)
		}
	}
	a.Each(func(i, j int, v float64) {
		if h.Free(i) && h.Free(j) {
			t.Append(i, j, v)
		}
	})
	return t.ToCSR()
}
