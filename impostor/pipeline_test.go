/*
 * pipeline_test.go, part of molview.
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

package impostor_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/gpu/soft"
	"github.com/rmera/molview/impostor"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 32

//recorder wraps the soft backend and records what the indirect pass sees.
type recorder struct {
	*soft.Backend
	liveAtIndirect  []int
	countAtIndirect []uint32
}

func (R *recorder) DrawPointsIndirect(pass impostor.Pass, args gpu.Buffer, b *impostor.Bindings) error {
	R.liveAtIndirect = append(R.liveAtIndirect, R.LiveTemporaries())
	R.countAtIndirect = append(R.countAtIndirect, gpu.DecodeUint32s(args.(*soft.Buffer).Bytes())[0])
	return R.Backend.DrawPointsIndirect(pass, args, b)
}

type fixture struct {
	dev      *soft.Device
	mgr      *gpu.Manager
	back     *recorder
	pipe     *impostor.Pipeline
	src, dst *soft.Texture
	frame    impostor.Frame
}

func newFixture(Te *testing.T) *fixture {
	F := &fixture{dev: soft.NewDevice()}
	var err error
	F.mgr, err = gpu.NewManager(F.dev, gpu.DefaultCapacity(), zerolog.Nop())
	require.NoError(Te, err)
	require.NoError(Te, F.mgr.SetTypeTable(molview.NewTypeTable("C", "O")))
	F.back = &recorder{Backend: soft.NewBackend(F.dev, zerolog.Nop())}
	F.pipe = impostor.New(F.back, F.mgr, zerolog.Nop())
	F.src = soft.NewTexture(size, size, impostor.FormatColor, true)
	F.dst = soft.NewTexture(size, size, impostor.FormatColor, true)
	eye := mgl32.Vec3{0, 0, 10}
	F.frame.Uniforms = impostor.Uniforms{
		View:          mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Projection:    mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100),
		ViewDirection: mgl32.Vec3{0, 0, -1},
		Scale:         1,
	}
	return F
}

func upload(Te *testing.T, M *gpu.Manager, s gpu.Set, xs ...float64) {
	coords := v3.Zeros(len(xs))
	D := gpu.EntityData{Positions: coords}
	for i, x := range xs {
		coords.Set(i, 0, x)
		D.Types = append(D.Types, i%2)
		D.Alphas = append(D.Alphas, 1)
		D.Radii = append(D.Radii, 0.5)
		D.Colors = append(D.Colors, mgl32.Vec4{0, 1, 0, 1})
	}
	require.NoError(Te, M.Upload(s, D))
}

func TestRenderAtoms(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0, 2)
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))

	frags := F.mgr.Fragments().(*soft.Buffer)
	assert.Equal(Te, uint32(2), frags.Counter())
	//the draw used exactly the appended count
	require.Len(Te, F.back.countAtIndirect, 1)
	assert.Equal(Te, frags.Counter(), F.back.countAtIndirect[0])
	assert.Equal(Te, 2, F.back.Draws[impostor.PassImpostor])
	//position and info targets were released before the indirect draw
	assert.Equal(Te, []int{2}, F.back.liveAtIndirect)

	rec := gpu.DecodeFragment(frags.Bytes())
	assert.Equal(Te, float32(0.5), rec.Radius)
	assert.Equal(Te, float32(1), rec.Alpha)

	covered := F.dst.Covered(mgl32.Vec4{})
	assert.Positive(Te, covered)
	center := F.dst.At(size/2, size/2)
	assert.Greater(Te, center[1], center[0])
	depth, normals := F.pipe.Globals()
	assert.Less(Te, depth.(*soft.Texture).Depth(size/2, size/2), float32(1))
	assert.Equal(Te, float32(1), depth.(*soft.Texture).Depth(0, 0))
	assert.Same(Te, depth, F.back.Global(impostor.GlobalDepth))
	assert.Same(Te, normals, F.back.Global(impostor.GlobalDepthNormals))
}

func TestAtomColors(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0)
	F.frame.Uniforms.ShowAtomColors = true
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	//type 0 is carbon, grey
	c := F.dst.At(size/2, size/2)
	assert.InDelta(Te, c[0], c[1], 1e-5)
	assert.InDelta(Te, c[1], c[2], 1e-5)
}

func TestRenderBothSets(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0, 2)
	upload(Te, F.mgr, gpu.Spheres, -2, -1, 1)
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	assert.Equal(Te, []uint32{2, 3}, F.back.countAtIndirect)
	assert.Equal(Te, []int{2, 2}, F.back.liveAtIndirect)
}

func TestOccludedBySceneDepth(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0, 2)
	F.src.Fill(mgl32.Vec4{0.1, 0.2, 0.3, 1})
	F.src.FillDepth(0)
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	assert.Equal(Te, uint32(0), F.mgr.Fragments().(*soft.Buffer).Counter())
	assert.Equal(Te, []uint32{0}, F.back.countAtIndirect)
	assert.Equal(Te, 0, F.dst.Covered(mgl32.Vec4{0.1, 0.2, 0.3, 1}))
}

func TestRenderNothing(Te *testing.T) {
	F := newFixture(Te)
	F.src.Fill(mgl32.Vec4{1, 0, 0, 1})
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	assert.Nil(Te, F.mgr.Fragments())
	assert.Equal(Te, 0, F.dst.Covered(mgl32.Vec4{1, 0, 0, 1}))
	assert.Equal(Te, 0, F.back.LiveTemporaries())
}

func TestResizeOncePerViewport(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0)
	for i := 0; i < 4; i++ {
		require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	}
	assert.Equal(Te, 1, F.dev.Allocations("fragments"))
	big := soft.NewTexture(2*size, size, impostor.FormatColor, true)
	bigdst := soft.NewTexture(2*size, size, impostor.FormatColor, true)
	require.NoError(Te, F.pipe.Render(big, bigdst, F.frame))
	assert.Equal(Te, 2, F.dev.Allocations("fragments"))
	assert.Equal(Te, 1, F.dev.Allocations("drawArgs"))
	//only the globals of the last frame are alive
	assert.Equal(Te, 2, F.back.LiveTemporaries())
}

type probe struct {
	back   *soft.Backend
	called int
	ok     bool
}

func (P *probe) Apply(b impostor.Backend, color, depth, normals impostor.Target, params impostor.AOParams) error {
	P.called++
	P.ok = P.back.Global(impostor.GlobalDepth) == depth && P.back.Global(impostor.GlobalDepthNormals) == normals
	return params.Validate()
}

func TestPostEffect(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0)
	P := &probe{back: F.back.Backend}
	F.pipe.Post = P
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	assert.Equal(Te, 1, P.called)
	assert.True(Te, P.ok)
	//a failing effect is logged, and the frame still finishes
	F.pipe.AO.Radius = -1
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	assert.Equal(Te, 2, P.called)
}

func TestAOValidate(Te *testing.T) {
	assert.NoError(Te, impostor.DefaultAO().Validate())
	bad := impostor.DefaultAO()
	bad.BlurIterations = -1
	assert.Error(Te, bad.Validate())
	bad = impostor.DefaultAO()
	bad.Sharpness = 2
	assert.Error(Te, bad.Validate())
}

func TestCloseIdempotent(Te *testing.T) {
	F := newFixture(Te)
	upload(Te, F.mgr, gpu.Atoms, 0, 2)
	require.NoError(Te, F.pipe.Render(F.src, F.dst, F.frame))
	F.pipe.Close()
	F.pipe.Close()
	assert.Equal(Te, 0, F.back.LiveTemporaries())
	assert.Error(Te, F.pipe.Render(F.src, F.dst, F.frame))
	F.mgr.Close()
	F.mgr.Close()
	assert.Equal(Te, 0, F.dev.Live())
	assert.Equal(Te, 0, F.dev.DoubleReleases())
}

func TestPassNames(Te *testing.T) {
	assert.Equal(Te, "cull", impostor.PassCull.String())
	assert.Equal(Te, "Pass(9)", impostor.Pass(9).String())
}
