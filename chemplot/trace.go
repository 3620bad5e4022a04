/*
 * trace.go, part of gochem
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU Lesser General Public License as published by
    the Free Software Foundation, either version 2.1 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU Lesser General Public License
    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
*/
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

// Package chemplot draws plots of the progress of geometry optimizations.
package chemplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Size of the whole figure.
var (
	Width  = 5 * vg.Inch
	Height = 6 * vg.Inch
)

func basicPlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func xys(data []float64) (plotter.XYs, error) {
	pts := make(plotter.XYs, 0, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("No finite data points to plot")
	}
	return pts, nil
}

// addSeries adds pts to p as a line with a circle at each point, in the
// colorindex-th color of the default palette.
func addSeries(p *plot.Plot, pts plotter.XYs, colorindex int) error {
	l, s, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	l.Color = plotutil.Color(colorindex)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Color = plotutil.Color(colorindex)
	p.Add(l, s)
	return nil
}

// TracePlot draws the energy (top) and RMS gradient (bottom) after each step of an
// optimization, and saves the figure to filename. The format is given by the
// extension of filename (png, svg, pdf, etc.). If conv is larger than 0, it is
// drawn as a horizontal line in the gradient plot.
func TracePlot(energies, rmsg []float64, conv float64, title, filename string) error {
	if len(energies) == 0 || len(energies) != len(rmsg) {
		return fmt.Errorf("TracePlot: %d energies and %d gradients given", len(energies), len(rmsg))
	}
	format := strings.TrimPrefix(filepath.Ext(filename), ".")
	if format == "" {
		return fmt.Errorf("TracePlot: no extension in file name %s", filename)
	}
	pe := basicPlot(title, "Energy")
	pts, err := xys(energies)
	if err != nil {
		return fmt.Errorf("TracePlot: energy: %w", err)
	}
	if err := addSeries(pe, pts, 0); err != nil {
		return err
	}

	pg := basicPlot("", "RMS gradient")
	pts, err = xys(rmsg)
	if err != nil {
		return fmt.Errorf("TracePlot: gradient: %w", err)
	}
	if err := addSeries(pg, pts, 1); err != nil {
		return err
	}
	if conv > 0 {
		th := plotter.NewFunction(func(float64) float64 { return conv })
		th.Color = color.RGBA{R: 200, A: 255}
		th.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		pg.Add(th)
		pg.Legend.Add("convergence", th)
		pg.Y.Min = math.Min(pg.Y.Min, conv)
		pg.Y.Max = math.Max(pg.Y.Max, conv)
	}
	return save([][]*plot.Plot{{pe}, {pg}}, format, filename)
}

func save(plots [][]*plot.Plot, format, filename string) error {
	c, err := draw.NewFormattedCanvas(Width, Height, format)
	if err != nil {
		return err
	}
	t := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      2 * vg.Millimeter,
		PadY:      4 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	canvases := plot.Align(plots, t, draw.New(c))
	for i := range plots {
		for j := range plots[i] {
			plots[i][j].Draw(canvases[i][j])
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
