/*
 * convert_test.go, part of molview.
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

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/molview"
	"github.com/rmera/molview/traj/dcd"
	"github.com/rmera/molview/traj/rawtraj"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyPDB = "../../testdata/tiny.pdb"

//writeDCD writes nframes frames of 4 atoms, with x = atom + 10*frame.
func writeDCD(Te *testing.T, name string, nframes int) {
	W, err := dcd.NewWriter(name, 4)
	require.NoError(Te, err)
	c := v3.Zeros(4)
	for f := 0; f < nframes; f++ {
		for i := 0; i < 4; i++ {
			c.Set(i, 0, float64(i+10*f))
			c.Set(i, 1, 1)
			c.Set(i, 2, -1)
		}
		require.NoError(Te, W.WNext(c))
	}
	require.NoError(Te, W.Close())
}

func TestReadTunnels(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "tunnels.txt")
	text := "# frame tunnel x y z r\n0 1 0 0 0 1.5\n\n0 1 1 0 0 1.2\n2 3 4 5 6 0.9\n"
	require.NoError(Te, os.WriteFile(name, []byte(text), 0o644))
	T, err := readTunnels(name)
	require.NoError(Te, err)
	require.Len(Te, T[0], 2)
	assert.Equal(Te, 1.2, T[0][1].Radius)
	assert.Equal(Te, [3]float64{4, 5, 6}, T[2][0].Position)
	assert.Equal(Te, 3, T[2][0].TunnelID)

	require.NoError(Te, os.WriteFile(name, []byte("0 1 2\n"), 0o644))
	_, err = readTunnels(name)
	assert.ErrorContains(Te, err, ":1:")
	require.NoError(Te, os.WriteFile(name, []byte("0 1 a 0 0 1\n"), 0o644))
	_, err = readTunnels(name)
	assert.Error(Te, err)

	_, err = readTunnels(filepath.Join(Te.TempDir(), "none.txt"))
	var m *molview.MissingFileError
	assert.True(Te, errors.As(err, &m))
}

func TestAtomTypes(Te *testing.T) {
	types, err := atomTypes(tinyPDB, molview.NewTypeTable(), zerolog.Nop())
	require.NoError(Te, err)
	//N, C, an unknown element and O
	assert.Equal(Te, []int{1, 0, -1, 2}, types)
}

func TestConvert(Te *testing.T) {
	dir := Te.TempDir()
	dcdName := filepath.Join(dir, "traj.dcd")
	writeDCD(Te, dcdName, 3)
	tunnels := filepath.Join(dir, "tunnels.txt")
	require.NoError(Te, os.WriteFile(tunnels, []byte("1 2 0 0 0 1.5\n1 2 1 0 0 1.4\n9 1 0 0 0 1\n"), 0o644))
	out := Output{Atoms: filepath.Join(dir, "atoms.bin.zst"), Index: filepath.Join(dir, "tunnels.idx"), Tunnels: filepath.Join(dir, "tunnels.bin")}
	n, err := convert(dcdName, tinyPDB, tunnels, out, zerolog.Nop())
	require.NoError(Te, err)
	assert.Equal(Te, 3, n)

	T, err := rawtraj.Open(out.Atoms, out.Index, out.Tunnels)
	require.NoError(Te, err)
	defer T.Close()
	assert.Equal(Te, 3, T.NFrames())
	assert.Equal(Te, 4, T.Len())
	atoms, err := T.LoadAtomFrame(2)
	require.NoError(Te, err)
	assert.Equal(Te, 23.0, atoms[3].Position[0])
	assert.Equal(Te, 2, atoms[3].Type)
	assert.Equal(Te, -1, atoms[2].Type)
	tun, err := T.LoadTunnelFrame(1)
	require.NoError(Te, err)
	require.Len(Te, tun[2], 2)
	assert.InDelta(Te, 1.4, tun[2][1].Radius, 1e-6)
	tun, err = T.LoadTunnelFrame(0)
	require.NoError(Te, err)
	assert.Empty(Te, tun)
}

func TestConvertMismatch(Te *testing.T) {
	dir := Te.TempDir()
	dcdName := filepath.Join(dir, "traj.dcd")
	W, err := dcd.NewWriter(dcdName, 2)
	require.NoError(Te, err)
	require.NoError(Te, W.WNext(v3.Zeros(2)))
	require.NoError(Te, W.Close())
	out := Output{Atoms: filepath.Join(dir, "a.bin"), Index: filepath.Join(dir, "t.idx"), Tunnels: filepath.Join(dir, "t.bin")}
	_, err = convert(dcdName, tinyPDB, "", out, zerolog.Nop())
	assert.ErrorContains(Te, err, "has 2 atoms")
}
