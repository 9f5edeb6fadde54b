/*
 * backend.go, part of molview.
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

//Package impostor draws atoms and tunnel spheres as screen-space sphere impostors.
//
//Each frame, every set of entities goes through three passes: the entities are drawn as points
//into a position and an info target, a full-screen cull pass appends one record per visible
//entity to the fragment buffer, and an indirect draw renders exactly the appended records
//as shaded spheres, writing color, depth and normals. The fragment count goes from the
//cull pass to the indirect draw without passing through the CPU.
package impostor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/gpu"
)

//Target is a render target, with a color plane, a depth plane, or both.
type Target interface {
	Width() int
	Height() int
}

//Format is the format of a color target
type Format int

const (
	FormatColor Format = iota //8 bits per channel RGBA
	FormatFloat               //float RGBA
	FormatDepth               //depth only
)

//Pass identifies one of the programs of the pipeline.
type Pass int

const (
	PassDepthNormals Pass = iota //copies the scene depth and normals from the source
	PassPositionInfo             //entities as points into position and info targets
	PassCull                     //full screen, appends visible entities to the fragment buffer
	PassImpostor                 //indirect, draws the fragments as spheres
	NPasses
)

var passNames = [NPasses]string{"depthnormals", "posinfo", "cull", "impostor"}

func (P Pass) String() string {
	if P < 0 || P >= NPasses {
		return fmt.Sprintf("Pass(%d)", int(P))
	}
	return passNames[P]
}

//Names of the global textures exposed after each frame.
const (
	GlobalDepth        = "_CameraDepthTexture"
	GlobalDepthNormals = "_CameraDepthNormalsTexture"
)

//Uniforms are the per-frame parameters of all passes.
type Uniforms struct {
	View           mgl32.Mat4
	Projection     mgl32.Mat4
	ViewDirection  mgl32.Vec3
	Scale          float32 //multiplies the radii
	ShowAtomColors bool    //use the per-type colors instead of the per-entity ones
}

//Bindings are the resources a pass reads and writes.
type Bindings struct {
	Set      gpu.Set
	Count    int //entities in the set
	Entities gpu.EntityBuffers

	Fragments gpu.Buffer //append buffer
	DrawArgs  gpu.Buffer

	AtomRadii  gpu.Buffer
	AtomColors gpu.Buffer
	Types      gpu.TypeBuffers

	PosTex  Target //written by PassPositionInfo, read by PassCull
	InfoTex Target
	Depth   Target //the shared scene depth, read by PassCull

	Uniforms Uniforms
}

//Backend runs the passes on some device.
type Backend interface {
	//Temporary returns a w x h target of the given format, with a depth plane if depth is true.
	Temporary(w, h int, format Format, depth bool) (Target, error)
	ReleaseTemporary(t Target)
	//SetTargets sets the color targets and the depth target for the following draws.
	//The depth plane of depth is used, it can be nil.
	SetTargets(colors []Target, depth Target) error
	Clear(color, depth bool, rgba mgl32.Vec4) error
	//DrawPoints draws n entities as points with the program of pass.
	DrawPoints(pass Pass, n int, b *Bindings) error
	//FullScreen runs pass on every pixel of the current targets, reading from input
	//(which can be nil) and the textures in b.
	FullScreen(pass Pass, input Target, b *Bindings) error
	//DrawPointsIndirect draws as many points as the vertex count in args says.
	DrawPointsIndirect(pass Pass, args gpu.Buffer, b *Bindings) error
	//ResetCounter sets the counter of an append buffer to zero.
	ResetCounter(buf gpu.Buffer) error
	//CopyCount copies the counter of the append buffer src, as uint32, at the given offset of dst.
	CopyCount(src, dst gpu.Buffer, offset int) error
	Blit(src, dst Target) error
	SetGlobalTexture(name string, t Target)
}
