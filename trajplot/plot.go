/*
 * plot.go, part of molview.
 *
 * Copyright 2024 Raul Mera <rauldotmeraatusachdotcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package trajplot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range pts {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}

func line(p *plot.Plot, name string, x, y []float64, c color.Color) error {
	l, err := plotter.NewLine(xys(x, y))
	if err != nil {
		return err
	}
	l.Color = c
	l.Width = vg.Points(1)
	p.Add(l)
	p.Legend.Add(name, l)
	return nil
}

//Plot saves to filename (the format is given by the extension) a plot of the number of
//spheres and tunnels, and the atom RMSD, against the frame number.
func Plot(S *Series, title, filename string) error {
	if S.Len() == 0 {
		return fmt.Errorf("trajplot: no frames to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.Title.Padding = 3 * vg.Millimeter
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Count / RMSD (A)"
	p.Add(plotter.NewGrid())
	if err := line(p, "spheres", S.Frames, S.Spheres, color.RGBA{R: 200, A: 255}); err != nil {
		return err
	}
	if err := line(p, "tunnels", S.Frames, S.Tunnels, color.RGBA{B: 200, A: 255}); err != nil {
		return err
	}
	if err := line(p, "RMSD", S.Frames, S.RMSD, color.RGBA{G: 150, A: 255}); err != nil {
		return err
	}
	p.Legend.Top = true
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}

//PlotRadii saves a histogram of the sphere radii.
func PlotRadii(S *Series, nbins int, title, filename string) error {
	if len(S.Radii) == 0 {
		return fmt.Errorf("trajplot: no spheres to plot")
	}
	h, err := plotter.NewHist(plotter.Values(S.Radii), nbins)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 128, G: 25, B: 217, A: 255}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Radius (A)"
	p.Y.Label.Text = "Spheres"
	p.Add(h)
	return p.Save(4*vg.Inch, 4*vg.Inch, filename)
}
