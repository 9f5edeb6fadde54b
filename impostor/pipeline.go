/*
 * pipeline.go, part of molview.
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

package impostor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/gpu"
	"github.com/rs/zerolog"
)

//AOParams are the ambient occlusion parameters given to the post effect.
type AOParams struct {
	Radius         float64 //[0,10]
	Intensity      float64 //[0,4]
	Sharpness      float64 //[0,1]
	BlurIterations int     //[0,8]
}

//DefaultAO returns the default ambient occlusion parameters
func DefaultAO() AOParams {
	return AOParams{Radius: 1, Intensity: 1, Sharpness: 0.5, BlurIterations: 2}
}

//Validate returns an error if a parameter is out of its range.
func (A AOParams) Validate() error {
	switch {
	case A.Radius < 0 || A.Radius > 10:
		return fmt.Errorf("ao radius %g out of [0,10]", A.Radius)
	case A.Intensity < 0 || A.Intensity > 4:
		return fmt.Errorf("ao intensity %g out of [0,4]", A.Intensity)
	case A.Sharpness < 0 || A.Sharpness > 1:
		return fmt.Errorf("ao sharpness %g out of [0,1]", A.Sharpness)
	case A.BlurIterations < 0 || A.BlurIterations > 8:
		return fmt.Errorf("ao blur iterations %d out of [0,8]", A.BlurIterations)
	}
	return nil
}

//PostEffect is applied to the color target after the impostors are drawn, with the
//depth and depth-normal targets of the frame.
type PostEffect interface {
	Apply(b Backend, color, depth, normals Target, params AOParams) error
}

//Pipeline renders the entities uploaded to a gpu.Manager.
type Pipeline struct {
	backend Backend
	mgr     *gpu.Manager
	log     zerolog.Logger
	AO      AOParams
	Post    PostEffect //can be nil

	//the depth and depth-normal targets of the last frame, exposed as globals
	depth        Target
	depthNormals Target
	closed       bool
}

//New returns a pipeline that draws with backend the buffers of mgr.
func New(backend Backend, mgr *gpu.Manager, log zerolog.Logger) *Pipeline {
	return &Pipeline{backend: backend, mgr: mgr, log: log, AO: DefaultAO()}
}

//Frame has the parameters for one frame.
type Frame struct {
	Uniforms Uniforms
}

//releaseGlobals releases the depth targets of the previous frame.
func (P *Pipeline) releaseGlobals() {
	if P.depth != nil {
		P.backend.ReleaseTemporary(P.depth)
		P.depth = nil
	}
	if P.depthNormals != nil {
		P.backend.ReleaseTemporary(P.depthNormals)
		P.depthNormals = nil
	}
}

//Render draws the entities over src, and copies the result to dst. If there are
//no entities, src is just copied to dst.
func (P *Pipeline) Render(src, dst Target, frame Frame) error {
	if P.closed {
		return fmt.Errorf("Render: pipeline closed")
	}
	if P.mgr.Count(gpu.Atoms)+P.mgr.Count(gpu.Spheres) == 0 {
		return P.backend.Blit(src, dst)
	}
	w, h := src.Width(), src.Height()
	if _, err := P.mgr.Resize(w, h); err != nil {
		return err
	}
	args, err := P.mgr.DrawArgs()
	if err != nil {
		return err
	}
	P.releaseGlobals()
	if P.depth, err = P.backend.Temporary(w, h, FormatDepth, true); err != nil {
		return err
	}
	if P.depthNormals, err = P.backend.Temporary(w, h, FormatColor, false); err != nil {
		return err
	}
	radii, colors := P.mgr.LookupTables()
	b := &Bindings{
		Fragments:  P.mgr.Fragments(),
		DrawArgs:   args,
		AtomRadii:  radii,
		AtomColors: colors,
		Types:      P.mgr.Types(),
		Depth:      P.depth,
		Uniforms:   frame.Uniforms,
	}
	if err := P.backend.SetTargets([]Target{P.depthNormals}, P.depth); err != nil {
		return err
	}
	if err := P.backend.FullScreen(PassDepthNormals, src, b); err != nil {
		return fmt.Errorf("depth/normals pass: %w", err)
	}
	for s := gpu.Atoms; s < gpu.NSets; s++ {
		n := P.mgr.Count(s)
		if n == 0 {
			continue
		}
		b.Set, b.Count, b.Entities = s, n, P.mgr.Entities(s)
		if err := P.renderSet(src, dst, b); err != nil {
			return fmt.Errorf("rendering %s: %w", s, err)
		}
	}
	P.backend.SetGlobalTexture(GlobalDepth, P.depth)
	P.backend.SetGlobalTexture(GlobalDepthNormals, P.depthNormals)
	if P.Post != nil {
		if err := P.Post.Apply(P.backend, src, P.depth, P.depthNormals, P.AO); err != nil {
			P.log.Warn().Err(err).Msg("post effect failed")
		}
	}
	return P.backend.Blit(src, dst)
}

func (P *Pipeline) renderSet(src, dst Target, b *Bindings) error {
	w, h := src.Width(), src.Height()
	var pos, info Target
	release := func() {
		for _, t := range []*Target{&info, &pos} {
			if *t != nil {
				P.backend.ReleaseTemporary(*t)
				*t = nil
			}
		}
	}
	defer release()
	var err error
	if pos, err = P.backend.Temporary(w, h, FormatFloat, true); err != nil {
		return err
	}
	if info, err = P.backend.Temporary(w, h, FormatFloat, false); err != nil {
		return err
	}

	//position/info
	if err := P.backend.SetTargets([]Target{pos, info}, pos); err != nil {
		return err
	}
	if err := P.backend.Clear(true, true, mgl32.Vec4{}); err != nil {
		return err
	}
	if err := P.backend.DrawPoints(PassPositionInfo, b.Count, b); err != nil {
		return err
	}
	//cull
	b.PosTex, b.InfoTex = pos, info
	if err := P.backend.ResetCounter(b.Fragments); err != nil {
		return err
	}
	if err := P.backend.SetTargets([]Target{dst}, nil); err != nil {
		return err
	}
	if err := P.backend.FullScreen(PassCull, nil, b); err != nil {
		return err
	}
	if err := P.backend.CopyCount(b.Fragments, b.DrawArgs, 0); err != nil {
		return err
	}
	b.PosTex, b.InfoTex = nil, nil
	release()
	//impostors
	if err := P.backend.SetTargets([]Target{src, P.depthNormals}, P.depth); err != nil {
		return err
	}
	return P.backend.DrawPointsIndirect(PassImpostor, b.DrawArgs, b)
}

//Globals returns the depth and depth-normal targets of the last rendered frame.
func (P *Pipeline) Globals() (depth, normals Target) { return P.depth, P.depthNormals }

//Close releases the targets kept between frames. It can be called more than once.
func (P *Pipeline) Close() {
	if P.closed {
		return
	}
	P.releaseGlobals()
	P.closed = true
}
