// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package multigrid provides a geometric multigrid preconditioner for linear
// systems arising from nested finite-element discretizations.
//
// A Preconditioner approximates the inverse of the finest-level operator of a
// Hierarchy by a recursive cycle: smoothing on each level, restriction of the
// residual to the next coarser level, a correction computed there, and its
// prolongation back. Level 0 is resolved by one of the CoarseType strategies.
// The discretization, the level operators, the smoother and the prolongation
// are supplied by the caller through the interfaces in this package.
//
// Apply has the signature of iterative.Settings.PSolve, so a Preconditioner
// plugs directly into the Krylov methods of package iterative.
package multigrid

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Preconditioner is a multigrid preconditioner.
//
// Apply may be called concurrently once Update has returned. Update and the
// setters must not run concurrently with Apply.
type Preconditioner struct {
	h   Hierarchy
	ops OperatorProvider

	smoother     Handle[Smoother]
	prolongation Handle[Prolongation]
	coarse       coarseCache

	smoothingSteps       int
	cycle                int
	incSmoothing         int
	coarseType           CoarseType
	coarseSmoothingSteps int
	coarseTolerance      float64
	coarseMaxIterations  int
	updateAll            bool
	updateAlways         bool

	log   logrus.FieldLogger
	stats counters
}

// Option configures a Preconditioner at construction.
type Option func(*Preconditioner)

// WithSmoothingSteps is the Option form of SetSmoothingSteps.
func WithSmoothingSteps(steps int) Option {
	return func(p *Preconditioner) { p.SetSmoothingSteps(steps) }
}

// WithCycle is the Option form of SetCycle.
func WithCycle(cycle int) Option {
	return func(p *Preconditioner) { p.SetCycle(cycle) }
}

// WithIncreaseSmoothingSteps is the Option form of SetIncreaseSmoothingSteps.
func WithIncreaseSmoothingSteps(factor int) Option {
	return func(p *Preconditioner) { p.SetIncreaseSmoothingSteps(factor) }
}

// WithCoarseType is the Option form of SetCoarseType.
func WithCoarseType(t CoarseType) Option {
	return func(p *Preconditioner) { p.SetCoarseType(t) }
}

// WithCoarseSmoothingSteps is the Option form of SetCoarseSmoothingSteps.
func WithCoarseSmoothingSteps(steps int) Option {
	return func(p *Preconditioner) { p.SetCoarseSmoothingSteps(steps) }
}

// WithCoarsePreconditioner is the Option form of SetCoarsePreconditioner.
func WithCoarsePreconditioner(inv Handle[Inverse]) Option {
	return func(p *Preconditioner) { p.SetCoarsePreconditioner(inv) }
}

// WithCoarseTolerance is the Option form of SetCoarseTolerance.
func WithCoarseTolerance(tol float64) Option {
	return func(p *Preconditioner) { p.SetCoarseTolerance(tol) }
}

// WithUpdateAll is the Option form of SetUpdateAll.
func WithUpdateAll(all bool) Option {
	return func(p *Preconditioner) { p.SetUpdateAll(all) }
}

// WithUpdateAlways is the Option form of SetUpdateAlways.
func WithUpdateAlways(always bool) Option {
	return func(p *Preconditioner) { p.SetUpdateAlways(always) }
}

// WithLogger sets the logger used for lifecycle events. By default nothing
// is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Preconditioner) {
		if l == nil {
			panic("multigrid: nil logger")
		}
		p.log = l
	}
}

// New returns a multigrid preconditioner for the finest level of h. The
// operators of the levels are taken from ops. Update must be called before
// the first Apply and whenever the hierarchy or its operators change.
//
// The defaults are one smoothing step, a V-cycle, constant smoothing across
// levels, an exact coarse-grid solve and one coarse smoothing step.
func New(h Hierarchy, ops OperatorProvider, s Handle[Smoother], pr Handle[Prolongation], opts ...Option) *Preconditioner {
	if h == nil {
		panic("multigrid: nil hierarchy")
	}
	if ops == nil {
		panic("multigrid: nil operator provider")
	}
	discard := logrus.New()
	discard.Out = io.Discard
	p := &Preconditioner{
		h:                    h,
		ops:                  ops,
		smoother:             s,
		prolongation:         pr,
		smoothingSteps:       1,
		cycle:                1,
		incSmoothing:         1,
		coarseType:           ExactCoarse,
		coarseSmoothingSteps: 1,
		coarseTolerance:      1e-10,
		log:                  discard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetSmoothingSteps sets the number of pre- and post-smoothing steps on the
// finest level. It panics if steps < 1.
func (p *Preconditioner) SetSmoothingSteps(steps int) {
	if steps < 1 {
		panic("multigrid: invalid number of smoothing steps")
	}
	p.smoothingSteps = steps
}

// SetCycle sets the number of recursive coarse-grid corrections per level.
// 1 gives a V-cycle and 2 a W-cycle. 0 disables the coarse-grid correction
// so that only smoothing is done. It panics if cycle < 0.
func (p *Preconditioner) SetCycle(cycle int) {
	if cycle < 0 {
		panic("multigrid: invalid cycle")
	}
	p.cycle = cycle
}

// SetIncreaseSmoothingSteps sets the factor by which the number of
// smoothing steps grows from one level to the next coarser one. It panics if
// factor < 1.
func (p *Preconditioner) SetIncreaseSmoothingSteps(factor int) {
	if factor < 1 {
		panic("multigrid: invalid smoothing step increase")
	}
	p.incSmoothing = factor
}

// SetCoarseType selects the coarse-grid strategy. A cached coarse-grid
// inverse is kept and used again once ExactCoarse or UserCoarse is selected.
func (p *Preconditioner) SetCoarseType(t CoarseType) {
	if t < ExactCoarse || SmoothingCoarse < t {
		panic(ErrUnknownCoarseType)
	}
	if t == p.coarseType {
		return
	}
	p.log.WithFields(logrus.Fields{"from": p.coarseType, "to": t}).Debug("multigrid: coarse type changed")
	p.coarseType = t
}

// SetCoarsePreconditioner installs inv as the coarse-grid solver and selects
// UserCoarse.
func (p *Preconditioner) SetCoarsePreconditioner(inv Handle[Inverse]) {
	if _, ok := inv.Get(); !ok {
		panic("multigrid: nil coarse-grid preconditioner")
	}
	p.SetCoarseType(UserCoarse)
	if err := p.coarse.set(inv); err != nil {
		p.log.WithError(err).Warn("multigrid: releasing coarse-grid solver")
	}
}

// SetCoarseSmoothingSteps sets the number of smoothing steps of
// SmoothingCoarse, and the number of defect-correction passes of ExactCoarse
// and UserCoarse. It panics if steps < 1.
func (p *Preconditioner) SetCoarseSmoothingSteps(steps int) {
	if steps < 1 {
		panic("multigrid: invalid number of coarse smoothing steps")
	}
	p.coarseSmoothingSteps = steps
}

// SetCoarseTolerance sets the relative tolerance of IterativeCoarse. It
// panics if tol is not in (0, 1).
func (p *Preconditioner) SetCoarseTolerance(tol float64) {
	if !(0 < tol && tol < 1) {
		panic("multigrid: invalid coarse tolerance")
	}
	p.coarseTolerance = tol
}

// SetCoarseMaxIterations sets the iteration limit of IterativeCoarse. Zero
// means twice the dimension of level 0. It panics if n < 0.
func (p *Preconditioner) SetCoarseMaxIterations(n int) {
	if n < 0 {
		panic("multigrid: invalid coarse iteration limit")
	}
	p.coarseMaxIterations = n
}

// SetUpdateAll sets whether Update refactorizes the coarse-grid operator on
// every call rather than only while the hierarchy has a single level. The
// setting is forwarded to the smoother if it implements UpdateAller.
func (p *Preconditioner) SetUpdateAll(all bool) {
	p.updateAll = all
	if s, ok := p.smoother.Get(); ok {
		if ua, ok := s.(UpdateAller); ok {
			ua.SetUpdateAll(all)
		}
	}
}

// SetUpdateAlways sets whether Update forces the smoother to rebuild all of
// its levels.
func (p *Preconditioner) SetUpdateAlways(always bool) {
	p.updateAlways = always
}

// Update refreshes the smoother and the prolongation and, if the hierarchy
// has a single level or update-all is set, rebuilds the coarse-grid inverse
// of ExactCoarse. It validates the nesting of the hierarchy.
func (p *Preconditioner) Update() error {
	if err := p.update(); err != nil {
		return fmt.Errorf("in Preconditioner.Update: %w", err)
	}
	return nil
}

func (p *Preconditioner) update() error {
	if err := checkNesting(p.h); err != nil {
		return err
	}
	if s, ok := p.smoother.Get(); ok {
		if err := s.Update(p.updateAlways); err != nil {
			return fmt.Errorf("smoother update: %w", err)
		}
	}
	if pr, ok := p.prolongation.Get(); ok {
		if err := pr.Update(); err != nil {
			return fmt.Errorf("prolongation update: %w", err)
		}
	}

	nl := p.h.NumLevels()
	p.log.WithFields(logrus.Fields{
		"levels": nl,
		"dofs":   p.h.NumDofs(nl - 1),
		"coarse": p.coarseType,
	}).Debug("multigrid: update")
	if nl == 1 || p.updateAll {
		if p.coarseType == ExactCoarse {
			return p.factorize()
		}
	}
	return nil
}

// Apply stores into dst the result of one multigrid cycle applied to f,
// starting from a zero initial guess. f is not modified. The lengths of dst
// and f must equal the dimension of the finest level.
func (p *Preconditioner) Apply(dst, f []float64) error {
	if err := p.apply(dst, f); err != nil {
		return fmt.Errorf("in Preconditioner.Apply: %w", err)
	}
	return nil
}

func (p *Preconditioner) apply(dst, f []float64) error {
	level := p.h.NumLevels() - 1
	if level < 0 {
		return fmt.Errorf("%w: no levels", ErrHierarchyMismatch)
	}
	n := p.h.NumDofs(level)
	if len(f) != n || len(dst) != n {
		return fmt.Errorf("%w: vector lengths %d and %d, finest level has %d dofs", ErrHierarchyMismatch, len(dst), len(f), n)
	}
	p.stats.applies.Add(1)
	zero(dst)
	return p.MGM(level, dst, f, 1)
}

// MGM performs one multigrid cycle on level, improving u for the right-hand
// side f. incsm multiplies the number of smoothing steps. f is not modified.
func (p *Preconditioner) MGM(level int, u, f []float64, incsm int) error {
	s, ok := p.smoother.Get()
	if !ok {
		return ErrNoSmoother
	}
	if level <= 0 {
		return p.solveCoarse(s, u, f)
	}

	steps := p.smoothingSteps * incsm
	if p.cycle == 0 {
		if err := s.PreSmooth(level, u, f, steps); err != nil {
			return levelError(level, "pre-smoothing", err)
		}
		if err := s.PostSmooth(level, u, f, steps); err != nil {
			return levelError(level, "post-smoothing", err)
		}
		return nil
	}

	pr, ok := p.prolongation.Get()
	if !ok {
		return levelError(level, "restriction", ErrNoProlongation)
	}

	d := s.NewVector(level)
	w := s.NewVector(level)
	if err := s.PreSmoothResidual(level, u, f, d, steps); err != nil {
		return levelError(level, "pre-smoothing", err)
	}

	nc := p.h.NumDofs(level - 1)
	dt, err := prefix(d, nc)
	if err != nil {
		return levelError(level, "restriction", err)
	}
	wt, err := prefix(w, nc)
	if err != nil {
		return levelError(level, "restriction", err)
	}

	if err := pr.RestrictInPlace(level, d); err != nil {
		return levelError(level, "restriction", err)
	}
	for j := 0; j < p.cycle; j++ {
		if err := p.MGM(level-1, wt, dt, incsm*p.incSmoothing); err != nil {
			return levelError(level, "coarse-grid correction", err)
		}
	}
	if err := pr.ProlongateInPlace(level, w); err != nil {
		return levelError(level, "prolongation", err)
	}
	floats.Add(u, w)

	if err := s.PostSmooth(level, u, f, steps); err != nil {
		return levelError(level, "post-smoothing", err)
	}
	return nil
}

// MemoryUsage reports the memory held by the coarse-grid solver and the
// smoother.
func (p *Preconditioner) MemoryUsage() []MemoryUsage {
	var mu []MemoryUsage
	if inv, ok := p.coarse.get(); ok {
		mu = append(mu, memoryUsage(inv)...)
	}
	if s, ok := p.smoother.Get(); ok {
		mu = append(mu, memoryUsage(s)...)
	}
	return mu
}

// Close releases the collaborators owned by p. Borrowed collaborators are
// left untouched. p must not be used after Close.
func (p *Preconditioner) Close() error {
	return errors.Join(
		p.smoother.release(),
		p.prolongation.release(),
		p.coarse.release(),
	)
}

// Stats holds counters of the work done by a Preconditioner.
type Stats struct {
	// Applies is the number of calls to Apply.
	Applies int64
	// CoarseSolves is the number of visits to level 0.
	CoarseSolves int64
	// Factorizations is the number of coarse-grid factorizations done
	// by Update.
	Factorizations int64
}

type counters struct {
	applies        atomic.Int64
	coarseSolves   atomic.Int64
	factorizations atomic.Int64
}

// Stats returns the counters accumulated since p was created.
func (p *Preconditioner) Stats() Stats {
	return Stats{
		Applies:        p.stats.applies.Load(),
		CoarseSolves:   p.stats.coarseSolves.Load(),
		Factorizations: p.stats.factorizations.Load(),
	}
}
