/*
 * series.go, part of molview.
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

//Package trajplot collects per-frame statistics of a trajectory, and plots them.
package trajplot

import (
	"fmt"
	"math"
	"slices"

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//Series has one value per frame of each quantity.
type Series struct {
	Frames  []float64 //frame numbers
	Spheres []float64 //tunnel spheres
	Tunnels []float64 //distinct tunnels
	RMSD    []float64 //atom RMSD from the first frame
	Radii   []float64 //radii of all the spheres of all frames
	Skipped []int     //frames that could not be read
}

//Len returns the number of frames in the series.
func (S *Series) Len() int { return len(S.Frames) }

//Summary has basic statistics of a quantity
type Summary struct {
	Mean, Std, Min, Max float64
}

func (S Summary) String() string {
	return fmt.Sprintf("%.3f ± %.3f [%.3f, %.3f]", S.Mean, S.Std, S.Min, S.Max)
}

//Summarize returns the statistics of vals. Empty slices give NaN.
func Summarize(vals []float64) Summary {
	if len(vals) == 0 {
		nan := math.NaN()
		return Summary{nan, nan, nan, nan}
	}
	var S Summary
	S.Mean, S.Std = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		S.Std = 0
	}
	S.Min, S.Max = floats.Min(vals), floats.Max(vals)
	return S
}

//RMSD returns the root mean square deviation between the vectors of a and b, which must have the same size.
func RMSD(a, b *v3.Matrix) float64 {
	n := a.NVecs()
	if n == 0 {
		return 0
	}
	return floats.Distance(a.RawData(), b.RawData(), 2) / math.Sqrt(float64(n))
}

//Collect reads every step-th frame of src. Frames that fail to load are recorded in Skipped,
//unless the error is critical.
func Collect(src molview.FrameSource, step int) (*Series, error) {
	if step < 1 {
		step = 1
	}
	S := new(Series)
	n := src.Len()
	ref, coords := v3.Zeros(n), v3.Zeros(n)
	types := make([]int, n)
	first := true
	for i := 0; i < src.NFrames(); i += step {
		if err := src.LoadAtomFrameInto(i, coords, types); err != nil {
			if molview.IsCritical(err) {
				return S, molview.ErrDecorate(err, "Collect")
			}
			S.Skipped = append(S.Skipped, i)
			continue
		}
		tun, err := src.LoadTunnelFrame(i)
		if err != nil {
			if molview.IsCritical(err) {
				return S, molview.ErrDecorate(err, "Collect")
			}
			S.Skipped = append(S.Skipped, i)
			continue
		}
		if first {
			ref.CopyFrom(coords)
			first = false
		}
		S.Frames = append(S.Frames, float64(i))
		S.Spheres = append(S.Spheres, float64(tun.Len()))
		S.Tunnels = append(S.Tunnels, float64(len(tun)))
		S.RMSD = append(S.RMSD, RMSD(coords, ref))
		for _, spheres := range tun {
			for _, s := range spheres {
				S.Radii = append(S.Radii, s.Radius)
			}
		}
	}
	return S, nil
}

//RadiusHistogram bins the sphere radii in nbins bins of equal width. It returns the
//bin dividers (nbins+1 values) and the counts.
func (S *Series) RadiusHistogram(nbins int) ([]float64, []float64) {
	if len(S.Radii) == 0 || nbins < 1 {
		return nil, nil
	}
	x := slices.Clone(S.Radii)
	slices.Sort(x)
	lo, hi := x[0], x[len(x)-1]
	if hi == lo {
		hi = lo + 1
	}
	dividers := make([]float64, nbins+1)
	floats.Span(dividers, lo, hi)
	//the last divider must be above the largest value
	dividers[nbins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, x, nil)
	return dividers, counts
}
