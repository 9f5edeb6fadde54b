/*
 * molview_test.go, part of molview.
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

package molview

import (
	"errors"
	"fmt"
	"testing"

	v3 "github.com/rmera/molview/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(Te *testing.T) {
	var err error = NewMissingFileError("/nope/atoms.bin", "atoms")
	assert.True(Te, IsCritical(err))
	var terr TrajError
	require.True(Te, errors.As(err, &terr))
	assert.Equal(Te, "/nope/atoms.bin", terr.FileName())

	cf := NewStrideError("tunnels.bin", 3, 21, SphereStride)
	assert.False(Te, cf.Critical())
	wrapped := fmt.Errorf("loading: %w", cf)
	assert.False(Te, IsCritical(wrapped))
	var c *CorruptFrameError
	require.True(Te, errors.As(wrapped, &c))
	assert.Equal(Te, 3, c.Frame)
	assert.True(Te, cf.SetCritical().Critical())

	deco := ErrDecorate(NewCapacityExceededError("atoms", 10, 5), "Upload")
	assert.Contains(Te, deco.Error(), "Upload")
	assert.True(Te, IsCritical(deco))

	assert.False(Te, IsCritical(nil))
	assert.True(Te, IsCritical(errors.New("plain")))

	var last LastFrameError
	err = NewLastFrameError("a.bin", "raw")
	assert.True(Te, errors.As(err, &last))
	assert.False(Te, IsCritical(err))
}

func TestTypeTable(Te *testing.T) {
	T := NewTypeTable()
	assert.Equal(Te, len(AtomSymbols), T.Len())
	r, err := T.Radius(0)
	require.NoError(Te, err)
	assert.InDelta(Te, 1.548, r, 1e-9)
	ti, err := T.Type("cl")
	require.NoError(Te, err)
	assert.Equal(Te, "Cl", AtomSymbols[ti])

	r, err = T.Radius(100)
	var w *UnknownTypeWarning
	require.True(Te, errors.As(err, &w))
	assert.Equal(Te, 100, w.Type)
	assert.Equal(Te, DefaultRadius, r)
	c, err := T.Color(-1)
	assert.Error(Te, err)
	assert.Equal(Te, DefaultColor, c)

	custom := NewTypeTable("C", "Xx")
	radii := custom.Radii()
	assert.InDelta(Te, 1.548, radii[0], 1e-6)
	assert.InDelta(Te, DefaultRadius, radii[1], 1e-6)
	_, err = custom.Radius(1)
	require.True(Te, errors.As(err, &w))
	assert.Equal(Te, "Xx", w.Symbol)
	assert.Len(Te, custom.Colors(), 2)
}

func TestReadPDBTemplate(Te *testing.T) {
	T, err := ReadPDBTemplate("testdata/tiny.pdb")
	var w *UnknownTypeWarning
	require.True(Te, errors.As(err, &w), "the Xx atom should give a warning")
	require.NotNil(Te, T)
	assert.Equal(Te, "tiny", T.Name)
	assert.Equal(Te, 4, T.Len())
	assert.Equal(Te, []string{"N", "C", "Xx", "O"}, T.Symbols)
	assert.InDelta(Te, 1.4, T.Radii[0], 1e-9)
	assert.InDelta(Te, DefaultRadius, T.Radii[2], 1e-9)
	//bbox is x [-1,3] y [-2,4] z [0,4]
	assert.Equal(Te, [3]float64{1, 1, 2}, T.Center)
	assert.Equal(Te, [3]float64{-2, -1, 0}, T.Coords.Vec(0))
	v := T.Vec4s()
	assert.Equal(Te, float32(1.4), v[0][3])

	_, err = ReadPDBTemplate("testdata/absent.pdb")
	var m *MissingFileError
	assert.True(Te, errors.As(err, &m))
}

func TestTemplateFromFrame(Te *testing.T) {
	coords, err := v3.NewMatrix([]float64{0, 0, 0, 2, 2, 2})
	require.NoError(Te, err)
	T, err := TemplateFromFrame("traj", coords, []int{0, 5}, NewTypeTable())
	require.NoError(Te, err)
	assert.Equal(Te, [3]float64{1, 1, 1}, T.Center)
	assert.Equal(Te, [3]float64{-1, -1, -1}, T.Coords.Vec(0))
	assert.Equal(Te, [3]float64{0, 0, 0}, coords.Vec(0), "the input is not modified")
	assert.Equal(Te, []string{"C", "H"}, T.Symbols)

	_, err = TemplateFromFrame("bad", coords, []int{0}, NewTypeTable())
	assert.Error(Te, err)
}

func TestSymbolFromName(Te *testing.T) {
	for name, want := range map[string]string{"CA": "C", "HG21": "H", "ZN": "Zn", "CL": "Cl", "OXT": "O", "FE": "Fe"} {
		s, err := symbolFromName(name)
		require.NoError(Te, err, name)
		assert.Equal(Te, want, s, name)
	}
	_, err := symbolFromName("XX")
	assert.Error(Te, err)
}
