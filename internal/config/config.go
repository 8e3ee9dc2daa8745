// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the run configuration of the mgsolve command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/vladimir-ch/multigrid"
)

// Config is the configuration of a solver run.
type Config struct {
	Problem   Problem   `yaml:"problem"`
	Multigrid Multigrid `yaml:"multigrid"`
	Solver    Solver    `yaml:"solver"`
	Log       Log       `yaml:"log"`
}

// Problem describes the model problem and its hierarchy.
type Problem struct {
	CoarseElements int     `yaml:"coarse_elements" validate:"gte=1"`
	Levels         int     `yaml:"levels" validate:"gte=1,lte=24"`
	Reaction       float64 `yaml:"reaction" validate:"gte=0"`
	Galerkin       bool    `yaml:"galerkin"`

	// RightHandSides is the number of random right-hand sides solved
	// concurrently.
	RightHandSides int   `yaml:"right_hand_sides" validate:"gte=1"`
	Seed           int64 `yaml:"seed"`
}

// Multigrid holds the preconditioner settings.
type Multigrid struct {
	Smoother              string  `yaml:"smoother" validate:"oneof=gauss-seidel jacobi"`
	Damping               float64 `yaml:"damping" validate:"gt=0,lt=2"`
	SmoothingSteps        int     `yaml:"smoothing_steps" validate:"gte=1"`
	Cycle                 int     `yaml:"cycle" validate:"gte=0"`
	SmoothingStepIncrease int     `yaml:"smoothing_step_increase" validate:"gte=1"`
	CoarseType            string  `yaml:"coarse_type" validate:"oneof=exact user iterative smoothing"`
	CoarseSmoothingSteps  int     `yaml:"coarse_smoothing_steps" validate:"gte=1"`
	CoarseTolerance       float64 `yaml:"coarse_tolerance" validate:"gt=0,lt=1"`
	UpdateAll             bool    `yaml:"update_all"`
	UpdateAlways          bool    `yaml:"update_always"`
}

// Solver holds the settings of the outer Krylov solver.
type Solver struct {
	Method        string  `yaml:"method" validate:"oneof=cg bicg bicgstab gmres"`
	Restart       int     `yaml:"restart" validate:"gte=0"`
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0,lt=1"`
	MaxIterations int     `yaml:"max_iterations" validate:"gte=0"`
	Concurrency   int     `yaml:"concurrency" validate:"gte=1"`

	// Plot is the path of a residual history chart. Empty means no chart.
	Plot string `yaml:"plot"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Problem: Problem{
			CoarseElements: 2,
			Levels:         8,
			RightHandSides: 1,
			Seed:           1,
		},
		Multigrid: Multigrid{
			Smoother:              "gauss-seidel",
			Damping:               2.0 / 3,
			SmoothingSteps:        1,
			Cycle:                 1,
			SmoothingStepIncrease: 1,
			CoarseType:            "exact",
			CoarseSmoothingSteps:  1,
			CoarseTolerance:       1e-10,
		},
		Solver: Solver{
			Method:      "cg",
			Tolerance:   1e-8,
			Concurrency: 4,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration in path on top of the defaults and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration on top of the defaults and validates the
// result. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the ranges of all settings.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fmt.Sprintf("%s: failed %q with value %v", fe.Namespace(), fe.ActualTag(), fe.Value())
		}
		return fmt.Errorf("config: invalid settings: %s", strings.Join(msgs, "; "))
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// CoarseTypeValue returns the configured coarse-grid strategy.
func (m Multigrid) CoarseTypeValue() (multigrid.CoarseType, error) {
	return multigrid.ParseCoarseType(m.CoarseType)
}

// Options returns the preconditioner options of m.
func (m Multigrid) Options() ([]multigrid.Option, error) {
	ct, err := m.CoarseTypeValue()
	if err != nil {
		return nil, err
	}
	return []multigrid.Option{
		multigrid.WithSmoothingSteps(m.SmoothingSteps),
		multigrid.WithCycle(m.Cycle),
		multigrid.WithIncreaseSmoothingSteps(m.SmoothingStepIncrease),
		multigrid.WithCoarseType(ct),
		multigrid.WithCoarseSmoothingSteps(m.CoarseSmoothingSteps),
		multigrid.WithCoarseTolerance(m.CoarseTolerance),
		multigrid.WithUpdateAll(m.UpdateAll),
		multigrid.WithUpdateAlways(m.UpdateAlways),
	}, nil
}

// Logger returns a logger writing to w at the configured level and format.
func (l Log) Logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	switch l.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		return nil, fmt.Errorf("config: unknown log format %q", l.Format)
	}
	return log, nil
}
