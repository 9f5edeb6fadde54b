/*
 * rawtraj_test.go, part of molview.
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

package rawtraj

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32bytes(vals ...float32) []byte {
	b := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func i32bytes(vals ...int32) []byte {
	b := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

//writes the three files with the given contents and returns their names.
func rawFiles(Te *testing.T, atoms, index, tunnels []byte) (string, string, string) {
	dir := Te.TempDir()
	names := []string{filepath.Join(dir, "atoms.bin"), filepath.Join(dir, "index.bin"), filepath.Join(dir, "tunnels.bin")}
	for i, d := range [][]byte{atoms, index, tunnels} {
		require.NoError(Te, os.WriteFile(names[i], d, 0o644))
	}
	return names[0], names[1], names[2]
}

func TestBuildIndex(Te *testing.T) {
	sizes := []int32{0, 20, 40, 0, 0, 100, 20}
	F, err := BuildIndex(sizes)
	require.NoError(Te, err)
	require.Equal(Te, len(sizes), F.Len())
	assert.Equal(Te, int64(0), F.Offsets[0])
	for i := 1; i < F.Len(); i++ {
		assert.Equal(Te, F.Offsets[i-1]+F.Sizes[i-1], F.Offsets[i], "frame %d", i)
	}
	assert.Equal(Te, int64(180), F.Total())
	off, size, ok := F.Block(5)
	assert.True(Te, ok)
	assert.Equal(Te, int64(60), off)
	assert.Equal(Te, int64(100), size)
	_, _, ok = F.Block(7)
	assert.False(Te, ok)

	_, err = BuildIndex([]int32{20, -20})
	var c *molview.CorruptFrameError
	require.True(Te, errors.As(err, &c))
	assert.True(Te, c.Critical())
	assert.Equal(Te, 1, c.Frame)

	F, err = BuildIndex(nil)
	require.NoError(Te, err)
	assert.Equal(Te, int64(0), F.Total())
}

func TestTwoFrameAtoms(Te *testing.T) {
	atoms := f32bytes(
		0, 1, 2, 3, 0,
		1, 4, 5, 6, 0,
		0, 7, 8, 9, 0,
		1, 10, 11, 12, 0)
	a, i, t := rawFiles(Te, atoms, i32bytes(0, 0), nil)
	T, err := Open(a, i, t)
	require.NoError(Te, err)
	defer T.Close()
	assert.Equal(Te, 2, T.Len())
	assert.Equal(Te, 2, T.NFrames())
	frame, err := T.LoadAtomFrame(1)
	require.NoError(Te, err)
	assert.Equal(Te, []molview.AtomRecord{
		{Type: 0, Position: [3]float64{7, 8, 9}},
		{Type: 0, Position: [3]float64{10, 11, 12}},
	}, frame)
	again, err := T.LoadAtomFrame(1)
	require.NoError(Te, err)
	assert.Equal(Te, frame, again)

	coords := v3.Zeros(2)
	types := make([]int, 2)
	require.NoError(Te, T.LoadAtomFrameInto(0, coords, types))
	assert.Equal(Te, [3]float64{4, 5, 6}, coords.Vec(1))
	assert.Error(Te, T.LoadAtomFrameInto(0, v3.Zeros(1), types))

	_, err = T.LoadAtomFrame(2)
	var c *molview.CorruptFrameError
	require.True(Te, errors.As(err, &c))
	assert.False(Te, c.Critical())
}

func TestTunnelFrames(Te *testing.T) {
	atoms := f32bytes(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	a, i, t := rawFiles(Te, atoms, i32bytes(0, 20), f32bytes(1, 2, 3, 1.5, 4))
	T, err := Open(a, i, t)
	require.NoError(Te, err)
	defer T.Close()
	assert.Equal(Te, 1, T.Len())
	assert.Equal(Te, 1, T.MaxTunnelSpheres())
	t0, err := T.LoadTunnelFrame(0)
	require.NoError(Te, err)
	assert.NotNil(Te, t0)
	assert.Empty(Te, t0)
	t1, err := T.LoadTunnelFrame(1)
	require.NoError(Te, err)
	require.Len(Te, t1, 1)
	require.Len(Te, t1[4], 1)
	assert.Equal(Te, molview.TunnelSphere{TunnelID: 4, Position: [3]float64{1, 2, 3}, Radius: 1.5}, t1[4][0])
	_, err = T.LoadTunnelFrame(-1)
	assert.Error(Te, err)
}

func TestTunnelStride(Te *testing.T) {
	a, i, t := rawFiles(Te, f32bytes(0, 0, 0, 0, 0), i32bytes(16), make([]byte, 16))
	T, err := Open(a, i, t)
	require.NoError(Te, err)
	defer T.Close()
	_, err = T.LoadTunnelFrame(0)
	var c *molview.CorruptFrameError
	require.True(Te, errors.As(err, &c))
	assert.Equal(Te, int64(16), c.Bytes)
	assert.False(Te, molview.IsCritical(err))
}

func TestOpenErrors(Te *testing.T) {
	a, i, t := rawFiles(Te, f32bytes(0, 0, 0, 0, 0), i32bytes(0, 0), nil)
	_, err := Open(a, i, filepath.Join(filepath.Dir(t), "nope.bin"))
	var m *molview.MissingFileError
	require.True(Te, errors.As(err, &m))
	assert.Equal(Te, "tunnel data", m.Role)

	//5 floats can't be split in 2 frames
	_, err = Open(a, i, t)
	var c *molview.CorruptFrameError
	require.True(Te, errors.As(err, &c))
	assert.True(Te, c.Critical())

	//the index needs more tunnel bytes than there are
	a, i, t = rawFiles(Te, f32bytes(0, 0, 0, 0, 0), i32bytes(40), make([]byte, 20))
	_, err = Open(a, i, t)
	require.True(Te, errors.As(err, &c))
	assert.Equal(Te, t, c.File)

	//index not made of int32
	a, i, t = rawFiles(Te, f32bytes(0, 0, 0, 0, 0), []byte{0, 0, 0}, nil)
	_, err = Open(a, i, t)
	assert.True(Te, molview.IsCritical(err))

	_, err = ReadIndexFile(filepath.Join(Te.TempDir(), "none"))
	assert.True(Te, errors.As(err, &m))
}

func testWriteRead(Te *testing.T, ext string) {
	dir := Te.TempDir()
	a := filepath.Join(dir, "atoms.bin"+ext)
	i := filepath.Join(dir, "index.bin")
	t := filepath.Join(dir, "tunnels.bin"+ext)
	W, err := NewWriter(a, i, t)
	require.NoError(Te, err)
	frames := [][]molview.AtomRecord{
		{{Type: 1, Position: [3]float64{1, 2, 3}}, {Type: 2, Position: [3]float64{4, 5, 6}}},
		{{Type: 1, Position: [3]float64{1.5, 2, 3}}, {Type: 2, Position: [3]float64{4, 5.5, 6}}},
		{{Type: 1, Position: [3]float64{2, 2, 3}}, {Type: 2, Position: [3]float64{4, 6, 6}}},
	}
	spheres := [][]molview.TunnelSphere{
		nil,
		{{TunnelID: 0, Radius: 1, Position: [3]float64{0, 0, 1}}, {TunnelID: 1, Radius: 2}, {TunnelID: 0, Radius: 3}},
		{{TunnelID: 2, Radius: 0.5}},
	}
	for j := range frames {
		require.NoError(Te, W.WriteFrame(frames[j], spheres[j]))
	}
	assert.Error(Te, W.WriteFrame(frames[0][:1], nil), "atom number can't change")
	require.NoError(Te, W.Close())
	require.NoError(Te, W.Close())

	sizes, err := ReadIndexFile(i)
	require.NoError(Te, err)
	assert.Equal(Te, []int32{0, 60, 20}, sizes)

	T, err := Open(a, i, t)
	require.NoError(Te, err)
	defer T.Close()
	for j := range frames {
		f, err := T.LoadAtomFrame(j)
		require.NoError(Te, err)
		assert.Equal(Te, frames[j], f)
	}
	tun, err := T.LoadTunnelFrame(1)
	require.NoError(Te, err)
	assert.Equal(Te, 3, tun.Len())
	require.Len(Te, tun[0], 2)
	assert.Equal(Te, 1.0, tun[0][0].Radius)
	assert.Equal(Te, 3.0, tun[0][1].Radius)

	//sequential reading
	coords := v3.Zeros(2)
	n := 0
	for T.Readable() {
		require.NoError(Te, T.Next(coords))
		n++
	}
	assert.Equal(Te, 3, n)
	assert.Equal(Te, [3]float64{4, 6, 6}, coords.Vec(1))
	err = T.Next(nil)
	var last molview.LastFrameError
	assert.True(Te, errors.As(err, &last))
	T.Rewind()
	assert.True(Te, T.Readable())
}

func TestWriteReadPlain(Te *testing.T) { testWriteRead(Te, "") }
func TestWriteReadZstd(Te *testing.T)  { testWriteRead(Te, ".zst") }
func TestWriteReadGzip(Te *testing.T)  { testWriteRead(Te, ".gz") }

func TestConcurrentLoads(Te *testing.T) {
	atoms := f32bytes(0, 1, 1, 1, 0, 0, 2, 2, 2, 1)
	a, i, t := rawFiles(Te, atoms, i32bytes(0, 0), nil)
	T, err := Open(a, i, t)
	require.NoError(Te, err)
	defer T.Close()
	done := make(chan [3]float64)
	for k := 0; k < 8; k++ {
		go func(k int) {
			f, err := T.LoadAtomFrame(k % 2)
			if err != nil {
				done <- [3]float64{-1, -1, -1}
				return
			}
			done <- f[0].Position
		}(k)
	}
	for k := 0; k < 8; k++ {
		p := <-done
		assert.Contains(Te, [][3]float64{{1, 1, 1}, {2, 2, 2}}, p)
	}
}
