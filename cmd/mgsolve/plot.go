// Copyright ©2026 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// plotHistory saves a chart of the residual norms in histories to path. The
// format is chosen by the extension of path.
func plotHistory(path string, histories [][]float64) error {
	p := plot.New()
	p.Title.Text = "Residual history"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Residual norm"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	for i, h := range histories {
		pts := make(plotter.XYs, 0, len(h))
		for k, r := range h {
			// Exact zeros have no place on a logarithmic axis.
			if r > 0 {
				pts = append(pts, plotter.XY{X: float64(k + 1), Y: r})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot: right-hand side %d: %w", i, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("rhs %d", i), line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}
