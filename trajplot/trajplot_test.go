/*
 * trajplot_test.go, part of molview.
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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/molview"
	"github.com/rmera/molview/traj/rawtraj"
	v3 "github.com/rmera/molview/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTraj(Te *testing.T) *rawtraj.Trajectory {
	dir := Te.TempDir()
	a, i, t := filepath.Join(dir, "a.bin"), filepath.Join(dir, "t.idx"), filepath.Join(dir, "t.bin")
	W, err := rawtraj.NewWriter(a, i, t)
	require.NoError(Te, err)
	for f := 0; f < 3; f++ {
		coords := v3.Zeros(2)
		coords.SetVec(0, [3]float64{float64(f), 0, 0})
		coords.SetVec(1, [3]float64{0, float64(f), 0})
		var spheres []molview.TunnelSphere
		for s := 0; s < f; s++ {
			spheres = append(spheres, molview.TunnelSphere{TunnelID: s % 2, Radius: 1 + float64(s)})
		}
		require.NoError(Te, W.WNext(coords, []int{0, 0}, spheres))
	}
	require.NoError(Te, W.Close())
	T, err := rawtraj.Open(a, i, t)
	require.NoError(Te, err)
	Te.Cleanup(func() { T.Close() })
	return T
}

func TestCollect(Te *testing.T) {
	S, err := Collect(writeTraj(Te), 1)
	require.NoError(Te, err)
	assert.Equal(Te, []float64{0, 1, 2}, S.Frames)
	assert.Equal(Te, []float64{0, 1, 2}, S.Spheres)
	assert.Equal(Te, []float64{0, 1, 2}, S.Tunnels)
	//both atoms move f along one axis
	assert.InDeltaSlice(Te, []float64{0, 1, 2}, S.RMSD, 1e-9)
	assert.ElementsMatch(Te, []float64{1, 1, 2}, S.Radii)
	assert.Empty(Te, S.Skipped)

	S, err = Collect(writeTraj(Te), 2)
	require.NoError(Te, err)
	assert.Equal(Te, []float64{0, 2}, S.Frames)
}

func TestSummarize(Te *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	assert.Equal(Te, 2.5, s.Mean)
	assert.InDelta(Te, 1.29099, s.Std, 1e-4)
	assert.Equal(Te, 1.0, s.Min)
	assert.Equal(Te, 4.0, s.Max)
	assert.Equal(Te, 0.0, Summarize([]float64{3}).Std)
	assert.True(Te, math.IsNaN(Summarize(nil).Mean))
}

func TestRadiusHistogram(Te *testing.T) {
	S := &Series{Radii: []float64{1, 1.2, 1.9, 2, 3}}
	div, counts := S.RadiusHistogram(2)
	require.Len(Te, div, 3)
	assert.Equal(Te, []float64{3, 2}, counts)
	div, counts = (&Series{}).RadiusHistogram(3)
	assert.Nil(Te, div)
	assert.Nil(Te, counts)
}

func TestPlot(Te *testing.T) {
	S, err := Collect(writeTraj(Te), 1)
	require.NoError(Te, err)
	dir := Te.TempDir()
	name := filepath.Join(dir, "stats.png")
	require.NoError(Te, Plot(S, "test", name))
	st, err := os.Stat(name)
	require.NoError(Te, err)
	assert.Positive(Te, st.Size())
	require.NoError(Te, PlotRadii(S, 4, "radii", filepath.Join(dir, "radii.svg")))
	assert.Error(Te, Plot(&Series{}, "empty", name))
}
