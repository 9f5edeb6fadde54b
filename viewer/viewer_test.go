/*
 * viewer_test.go, part of molview.
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

package viewer

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview"
	"github.com/rmera/molview/config"
	"github.com/rmera/molview/depthsort"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/gpu/soft"
	"github.com/rmera/molview/impostor"
	"github.com/rmera/molview/playback"
	"github.com/rmera/molview/traj/rawtraj"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const natoms = 3

//atomX is the x coordinate of atom j in frame f of the test trajectory.
func atomX(f, j int) float64 { return float64(2*j + f) }

var testTunnels = [][]molview.TunnelSphere{
	nil,
	{{TunnelID: 1, Position: [3]float64{0, 1, 0}, Radius: 1}, {TunnelID: 1, Position: [3]float64{1, 1, 0}, Radius: 1.2}},
	{{TunnelID: 2, Position: [3]float64{0, -1, 0}, Radius: 0.8}, {TunnelID: 1, Position: [3]float64{2, 1, 0}, Radius: 1}, {TunnelID: 2, Position: [3]float64{1, -1, 0}, Radius: 0.9}},
	nil,
}

func writeTraj(Te *testing.T) *rawtraj.Trajectory {
	dir := Te.TempDir()
	a, i, t := filepath.Join(dir, "atoms.bin"), filepath.Join(dir, "tunnels.idx"), filepath.Join(dir, "tunnels.bin")
	W, err := rawtraj.NewWriter(a, i, t)
	require.NoError(Te, err)
	for f, spheres := range testTunnels {
		coords := v3.Zeros(natoms)
		for j := 0; j < natoms; j++ {
			coords.SetVec(j, [3]float64{atomX(f, j), 0, 0})
		}
		require.NoError(Te, W.WNext(coords, []int{0, 1, 2}, spheres))
	}
	require.NoError(Te, W.Close())
	T, err := rawtraj.Open(a, i, t)
	require.NoError(Te, err)
	Te.Cleanup(func() { T.Close() })
	return T
}

func testConfig() *config.Config {
	C := config.Default()
	C.Playback.Delay = 1
	C.Smoothing.Speed = 0.5
	return C
}

func newViewer(Te *testing.T, C *config.Config, src molview.FrameSource) (*Viewer, *soft.Device, *soft.Backend) {
	dev := soft.NewDevice()
	back := soft.NewBackend(dev, zerolog.Nop())
	V, err := New(C, src, dev, back, zerolog.Nop())
	require.NoError(Te, err)
	Te.Cleanup(V.Close)
	return V, dev, back
}

func xs(M *v3.Matrix) []float64 {
	ret := make([]float64, M.NVecs())
	for i := range ret {
		ret[i] = M.At(i, 0)
	}
	return ret
}

func TestPlaybackAndSmoothing(Te *testing.T) {
	V, _, _ := newViewer(Te, testConfig(), writeTraj(Te))
	assert.False(Te, V.Loaded())

	V.SimTick(Input{})
	require.True(Te, V.Loaded())
	assert.Equal(Te, 0, V.State.Current)
	//the first load snaps
	assert.Equal(Te, []float64{0, 2, 4}, xs(V.Atoms.Current))

	V.SimTick(Input{})
	assert.Equal(Te, 1, V.State.Current)
	assert.Equal(Te, []float64{1, 3, 5}, xs(V.Atoms.Target))
	assert.InDeltaSlice(Te, []float64{0.5, 2.5, 4.5}, xs(V.Atoms.Current), 1e-9)

	//no new frame, the smoothing goes on
	V.SimTick(Input{TogglePause: true})
	assert.Equal(Te, playback.Paused, V.State.Mode)
	assert.InDeltaSlice(Te, []float64{0.75, 2.75, 4.75}, xs(V.Atoms.Current), 1e-9)

	//scrubbing is discontinuous, and snaps
	V.SimTick(Input{Scrubbing: true, Scrub: 3})
	assert.Equal(Te, playback.Scrubbing, V.State.Mode)
	assert.Equal(Te, []float64{3, 5, 7}, xs(V.Atoms.Current))

	//releasing the slider goes back to the paused state
	V.SimTick(Input{})
	assert.Equal(Te, playback.Paused, V.State.Mode)
	V.SimTick(Input{StepForward: true})
	assert.Equal(Te, 0, V.State.Current)
	assert.InDeltaSlice(Te, []float64{1.5, 3.5, 5.5}, xs(V.Atoms.Current), 1e-9)
	V.SimTick(Input{StepBack: true})
	assert.Equal(Te, 3, V.State.Current)
	assert.Equal(Te, 0, V.FrameErrors())
}

func TestAtomProperties(Te *testing.T) {
	C := testConfig()
	C.Render.AtomAlpha = 0.7
	V, _, _ := newViewer(Te, C, writeTraj(Te))
	V.SimTick(Input{})
	table := molview.NewTypeTable()
	for i, t := range V.Atoms.Types {
		r, _ := table.Radius(t)
		c, _ := table.Color(t)
		assert.Equal(Te, r, V.Atoms.Radii[i])
		assert.Equal(Te, mgl32.Vec4(c), V.Atoms.Colors[i])
		assert.Equal(Te, 0.7, V.Atoms.Alphas[i])
	}
	assert.Equal(Te, []int{0, 1, 2}, V.Atoms.Types)
}

func TestDepthOrder(Te *testing.T) {
	V, _, _ := newViewer(Te, testConfig(), writeTraj(Te))
	V.Camera = V.Camera.Orbit(60, 20)
	V.SimTick(Input{})
	V.SimTick(Input{})
	S := depthsort.New(0)
	forward, eye := vec3(V.Camera.Forward()), vec3(V.Camera.Position)

	keys := S.Keys(V.Atoms.Current, forward, eye)
	assert.True(Te, depthsort.Monotonic(keys, V.Atoms.Perm, depthsort.Descending))
	skeys := S.Keys(V.Spheres.Current, forward, eye)
	assert.True(Te, depthsort.Monotonic(skeys, V.Spheres.Perm, depthsort.Ascending))

	for i, p := range V.Atoms.Perm {
		assert.Equal(Te, V.Atoms.Current.Vec(p), V.Atoms.Display.Vec(i))
		assert.Equal(Te, V.Atoms.Types[p], V.Atoms.DisplayTypes[i])
	}
	for i, p := range V.Spheres.Perm {
		assert.Equal(Te, V.Spheres.Radii[p], V.Spheres.DisplayRadii[i])
	}
}

func TestTunnelSelection(Te *testing.T) {
	V, _, _ := newViewer(Te, testConfig(), writeTraj(Te))
	V.SimTick(Input{})
	assert.Equal(Te, 0, V.Spheres.Len())
	V.SimTick(Input{})
	V.SimTick(Input{})
	require.Equal(Te, 2, V.State.Current)
	//all tunnels, by id, in file order within a tunnel
	assert.Equal(Te, []int{1, 2, 2}, V.Spheres.Types)
	assert.Equal(Te, []float64{1, 0.8, 0.9}, V.Spheres.Radii)
	//a change in the number of spheres snaps
	assert.Equal(Te, []float64{2, 0, 1}, xs(V.Spheres.Current))
	assert.Equal(Te, 0.5, V.Spheres.Alphas[0])
	assert.Equal(Te, TunnelColor(2), V.Spheres.Colors[1])

	V.SelectTunnel(2)
	assert.Equal(Te, 2, V.Tunnel())
	assert.Equal(Te, []int{2, 2}, V.Spheres.Types)
	V.SelectTunnel(7)
	assert.Equal(Te, 0, V.Spheres.Len())
	V.SelectTunnel(-5)
	assert.Equal(Te, AllTunnels, V.Tunnel())
	assert.Equal(Te, 3, V.Spheres.Len())

	assert.Equal(Te, []int{1, 2}, V.TunnelIDs())
	for _, want := range []int{1, 2, AllTunnels, 1} {
		V.CycleTunnel()
		assert.Equal(Te, want, V.Tunnel())
	}
	assert.Equal(Te, 1, V.Spheres.Len())
}

//flaky fails to load one frame.
type flaky struct {
	molview.FrameSource
	bad int
}

func (F flaky) LoadAtomFrameInto(i int, coords *v3.Matrix, types []int) error {
	if i == F.bad {
		return molview.NewCorruptFrameError("atoms.bin", i, "test failure")
	}
	return F.FrameSource.LoadAtomFrameInto(i, coords, types)
}

func TestFrameErrorHoldsDisplay(Te *testing.T) {
	C := testConfig()
	C.Smoothing.Speed = 1
	V, _, _ := newViewer(Te, C, flaky{FrameSource: writeTraj(Te), bad: 1})
	V.SimTick(Input{})
	V.SimTick(Input{})
	assert.Equal(Te, 1, V.FrameErrors())
	assert.Equal(Te, 1, V.State.Previous)
	assert.Equal(Te, []float64{0, 2, 4}, xs(V.Atoms.Current))
	V.SimTick(Input{})
	assert.Equal(Te, []float64{2, 4, 6}, xs(V.Atoms.Current))
	assert.Equal(Te, 1, V.FrameErrors())
}

func TestFirstFrameBroken(Te *testing.T) {
	dev := soft.NewDevice()
	_, err := New(testConfig(), flaky{FrameSource: writeTraj(Te), bad: 0}, dev, soft.NewBackend(dev, zerolog.Nop()), zerolog.Nop())
	var cf *molview.CorruptFrameError
	assert.ErrorAs(Te, err, &cf)
	assert.Equal(Te, 0, dev.Live())
}

func TestCapacityCheckedFirst(Te *testing.T) {
	T := writeTraj(Te)
	for _, c := range []func(*config.Config){
		func(C *config.Config) { C.Capacity.Atoms = natoms - 1 },
		func(C *config.Config) { C.Capacity.Spheres = 2 },
	} {
		C := testConfig()
		c(C)
		dev := soft.NewDevice()
		_, err := New(C, T, dev, soft.NewBackend(dev, zerolog.Nop()), zerolog.Nop())
		var ce *molview.CapacityExceededError
		require.ErrorAs(Te, err, &ce)
		assert.Equal(Te, 0, dev.Live())
	}
}

func TestTopology(Te *testing.T) {
	C := testConfig()
	C.Files.Topology = filepath.Join("..", "testdata", "tiny.pdb")
	V, _, _ := newViewer(Te, C, writeTraj(Te))
	i, ok := V.Manager().TypeIndex("tiny")
	assert.True(Te, ok)
	assert.Equal(Te, i, V.MoleculeType())
	count := gpu.DecodeInt32s(V.Manager().Types().AtomCount.(*soft.Buffer).Bytes())
	assert.Equal(Te, []int32{4}, count)

	C.Files.Topology = filepath.Join("..", "testdata", "missing.pdb")
	dev := soft.NewDevice()
	_, err := New(C, writeTraj(Te), dev, soft.NewBackend(dev, zerolog.Nop()), zerolog.Nop())
	var mf *molview.MissingFileError
	assert.ErrorAs(Te, err, &mf)
	assert.Equal(Te, 0, dev.Live())
}

func TestMoleculeFromFirstFrame(Te *testing.T) {
	V, _, _ := newViewer(Te, testConfig(), writeTraj(Te))
	tmpl := gpu.DecodeVec4s(V.Manager().Types().Templates.(*soft.Buffer).Bytes())
	require.Len(Te, tmpl, natoms)
	//centered on the bounding box
	assert.Equal(Te, float32(-2), tmpl[0][0])
	assert.Equal(Te, float32(2), tmpl[2][0])
}

func TestRenderTick(Te *testing.T) {
	V, dev, back := newViewer(Te, testConfig(), writeTraj(Te))
	src := soft.NewTexture(64, 48, impostor.FormatColor, true)
	dst := soft.NewTexture(64, 48, impostor.FormatColor, true)
	//nothing to draw before the first frame
	require.NoError(Te, V.RenderTick(src, dst))
	assert.Nil(Te, V.Manager().Fragments())

	V.SimTick(Input{})
	require.NoError(Te, V.RenderTick(src, dst))
	assert.Equal(Te, natoms, V.Manager().Count(gpu.Atoms))
	assert.Equal(Te, 0, V.Manager().Count(gpu.Spheres))
	frags := V.Manager().Fragments().(*soft.Buffer)
	assert.Equal(Te, uint32(natoms), frags.Counter())
	assert.Positive(Te, dst.Covered(mgl32.Vec4{}))

	V.SimTick(Input{})
	require.NoError(Te, V.RenderTick(src, dst))
	assert.Equal(Te, 2, V.Manager().Count(gpu.Spheres))
	assert.Equal(Te, 1, dev.Allocations("fragments"))
	assert.NotNil(Te, back.Global(impostor.GlobalDepth))

	V.Close()
	V.Close()
	assert.Equal(Te, 0, dev.Live())
	assert.Equal(Te, 0, dev.DoubleReleases())
	assert.Equal(Te, 0, back.LiveTemporaries())
	assert.Error(Te, V.RenderTick(src, dst))
}

func TestPrefetchedPlayback(Te *testing.T) {
	C := testConfig()
	C.Prefetch = true
	C.Smoothing.Speed = 1
	V, _, _ := newViewer(Te, C, writeTraj(Te))
	for tick := 0; tick < 6; tick++ {
		V.SimTick(Input{})
		f := tick % len(testTunnels)
		assert.Equal(Te, f, V.State.Current)
		assert.Equal(Te, []float64{atomX(f, 0), atomX(f, 1), atomX(f, 2)}, xs(V.Atoms.Current))
	}
	assert.Equal(Te, 0, V.FrameErrors())
}

func TestPrefetcher(Te *testing.T) {
	T := writeTraj(Te)
	P := NewPrefetcher(T)
	defer P.Close()
	_, ok := P.Poll()
	assert.False(Te, ok)
	require.True(Te, P.Request(2))
	assert.False(Te, P.Request(3))
	assert.Equal(Te, 2, P.Pending())
	f, ok := P.Wait()
	require.True(Te, ok)
	require.NoError(Te, f.Err)
	assert.Equal(Te, 2, f.Index)
	assert.Equal(Te, atomX(2, 1), f.Coords.At(1, 0))
	assert.Equal(Te, 3, f.Tunnels.Len())
	assert.Equal(Te, -1, P.Pending())

	require.True(Te, P.Request(1))
	_, ok = P.Take(3)
	assert.False(Te, ok)
	require.True(Te, P.Request(3))
	f, ok = P.Take(3)
	assert.True(Te, ok)
	assert.Equal(Te, 3, f.Index)

	//a failed load comes back with its error
	require.True(Te, P.Request(10))
	f, ok = P.Wait()
	require.True(Te, ok)
	assert.Error(Te, f.Err)

	P.Close()
	P.Close()
	assert.False(Te, P.Request(0))
}

func TestCamera(Te *testing.T) {
	C := DefaultCamera()
	assert.True(Te, C.Forward().ApproxEqual(mgl32.Vec3{0, 0, -1}))
	O := C.Orbit(90, 0)
	assert.InDelta(Te, 100, O.Position.Len(), 1e-3)
	assert.InDelta(Te, 0, O.Position[2], 1e-3)

	coords := v3.Zeros(2)
	coords.SetVec(0, [3]float64{-5, 0, 0})
	coords.SetVec(1, [3]float64{5, 0, 0})
	F := C.Frame(coords)
	assert.Equal(Te, mgl32.Vec3{}, F.Target)
	assert.True(Te, C.Forward().ApproxEqualThreshold(F.Forward(), 1e-5))
	assert.Less(Te, F.Near, F.Position.Len())
	assert.Greater(Te, F.Far, F.Position.Len())
}
