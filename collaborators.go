// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid

import (
	"io"
	"reflect"

	"github.com/bits-and-blooms/bitset"
)

// Hierarchy describes a sequence of nested discretizations. Level 0 is the
// coarsest level and NumLevels()-1 is the finest.
//
// The degrees of freedom of level l-1 must be the leading NumDofs(l-1)
// coordinates of a level-l vector.
type Hierarchy interface {
	// NumLevels returns the current number of levels.
	NumLevels() int

	// NumDofs returns the dimension of the vector space on level.
	NumDofs(level int) int

	// FreeDofs returns the set of unconstrained degrees of freedom on
	// the finest level, or nil if no degree of freedom is constrained.
	FreeDofs() *bitset.BitSet
}

// OperatorProvider supplies the linear operator of each level.
type OperatorProvider interface {
	Operator(level int) Operator
}

// Operator is a square linear operator on one level.
type Operator interface {
	Dims() (r, c int)

	// MulVec computes dst = A*x.
	MulVec(dst, x []float64)

	// Invert returns an exact inverse of the operator.
	Invert() (Inverse, error)

	// InvertFree returns the inverse of the operator restricted to the
	// degrees of freedom in free. The inverse maps constrained
	// coordinates to zero.
	InvertFree(free *bitset.BitSet) (Inverse, error)
}

// Inverse is an (approximate) inverse of an Operator.
type Inverse interface {
	// SolveVec stores into dst the solution of A*dst = rhs.
	SolveVec(dst, rhs []float64) error
}

// Smoother performs relaxation sweeps on a level. u is updated in place and f
// is the right-hand side; both have the dimension of level.
type Smoother interface {
	// Update refreshes the internal per-level state. If force is true,
	// all levels are rebuilt, otherwise only new levels.
	Update(force bool) error

	PreSmooth(level int, u, f []float64, steps int) error
	PostSmooth(level int, u, f []float64, steps int) error

	// PreSmoothResidual pre-smooths u and stores the residual f - A*u
	// of the smoothed iterate into res.
	PreSmoothResidual(level int, u, f, res []float64, steps int) error

	// Residual stores f - A*u into res.
	Residual(level int, u, f, res []float64) error

	// NewVector returns a zero vector of the dimension of level.
	NewVector(level int) []float64
}

// Prolongation transfers vectors between consecutive levels. Both operations
// work in place on a level-level vector: RestrictInPlace leaves the
// restricted vector in the leading NumDofs(level-1) coordinates, and
// ProlongateInPlace reads its input from there.
type Prolongation interface {
	Update() error
	RestrictInPlace(level int, v []float64) error
	ProlongateInPlace(level int, v []float64) error
}

// UpdateAller is implemented by collaborators that distinguish between
// refreshing only new levels and refreshing all levels.
type UpdateAller interface {
	SetUpdateAll(all bool)
}

// MemoryUsage describes memory held by one component.
type MemoryUsage struct {
	Name   string
	Bytes  int
	Blocks int
}

// MemoryReporter is implemented by collaborators that can report the memory
// they hold.
type MemoryReporter interface {
	MemoryUsage() []MemoryUsage
}

func memoryUsage(v any) []MemoryUsage {
	if r, ok := v.(MemoryReporter); ok {
		return r.MemoryUsage()
	}
	return nil
}

// Handle holds a collaborator together with its ownership. A Handle made
// with Own releases the collaborator when its holder is closed; a Handle
// made with Borrow never does. The zero Handle holds nothing.
type Handle[T any] struct {
	v     T
	valid bool
	close func() error
}

// Own returns a Handle that owns v. If v implements io.Closer, it is closed
// together with the holder.
func Own[T any](v T) Handle[T] {
	if isNil(v) {
		return Handle[T]{}
	}
	h := Handle[T]{v: v, valid: true}
	if c, ok := any(v).(io.Closer); ok {
		h.close = c.Close
	}
	return h
}

// Borrow returns a Handle that references v without owning it.
func Borrow[T any](v T) Handle[T] {
	return Handle[T]{v: v, valid: true}
}

// Get returns the held collaborator and whether the Handle holds one.
func (h Handle[T]) Get() (T, bool) {
	return h.v, h.valid && !isNil(h.v)
}

// Owned reports whether the holder is responsible for releasing the
// collaborator.
func (h Handle[T]) Owned() bool {
	return h.close != nil
}

func (h *Handle[T]) release() error {
	c := h.close
	var zero T
	*h = Handle[T]{v: zero}
	if c == nil {
		return nil
	}
	return c()
}

// isNil reports whether v is nil or a nil value of a nilable kind held in
// an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
