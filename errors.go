// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multigrid

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCoarseType is returned when the coarse-grid strategy is
	// not one of the CoarseType constants.
	ErrUnknownCoarseType = errors.New("multigrid: unknown coarse type")

	// ErrNoSmoother is returned when a cycle needs a smoother and none
	// was supplied.
	ErrNoSmoother = errors.New("multigrid: no smoother")

	// ErrNoProlongation is returned when a cycle visits a level above 0
	// and no prolongation was supplied.
	ErrNoProlongation = errors.New("multigrid: no prolongation")

	// ErrNoCoarseSolver is returned when the exact or user coarse-grid
	// strategy is selected and no coarse inverse is available, typically
	// because Update has not been called.
	ErrNoCoarseSolver = errors.New("multigrid: no coarse-grid solver")

	// ErrHierarchyMismatch is returned when vector or level dimensions
	// violate the nesting of the hierarchy.
	ErrHierarchyMismatch = errors.New("multigrid: hierarchy mismatch")
)

// LevelError records the level and the call site at which a cycle failed.
type LevelError struct {
	Level int
	Op    string
	Err   error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("multigrid: level %d: %s: %v", e.Level, e.Op, e.Err)
}

func (e *LevelError) Unwrap() error {
	return e.Err
}

func levelError(level int, op string, err error) error {
	if err == nil {
		return nil
	}
	return &LevelError{Level: level, Op: op, Err: err}
}
