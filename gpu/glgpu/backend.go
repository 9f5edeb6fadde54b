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

package glgpu

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/impostor"
	"github.com/rs/zerolog"
)

//Shader storage binding points of the buffers in impostor.Bindings.
const (
	BindPositions = iota
	BindTypes
	BindAlphas
	BindRadii
	BindColors
	BindFragments
	BindAtomRadii
	BindAtomColors
	BindTypeAtomCount
	BindTypeAtomStart
	BindTemplates
	BindTypeColors
)

//BindFragmentCounter is the atomic counter binding of the fragment buffer.
const BindFragmentCounter = 0

//Texture units of the sampled targets. Global textures take the units after UnitGlobals,
//in the order they were set.
const (
	UnitPosTex = iota
	UnitInfoTex
	UnitSceneDepth
	UnitInputColor
	UnitInputDepth
	UnitGlobals
)

//Target is an impostor.Target backed by GL textures. The zero fbo is the window.
type Target struct {
	w, h     int
	format   impostor.Format
	color    uint32
	depth    uint32
	screen   bool
	released bool
}

func (T *Target) Width() int  { return T.w }
func (T *Target) Height() int { return T.h }

//Screen returns the target of the default framebuffer, w x h pixels.
func Screen(w, h int) *Target {
	return &Target{w: w, h: h, screen: true}
}

type global struct {
	name string
	t    *Target
}

//Backend runs the impostor passes with the GL programs loaded from a shader directory.
type Backend struct {
	dev      *Device
	log      zerolog.Logger
	programs [impostor.NPasses]uint32
	vao      uint32
	drawFBO  uint32
	readFBO  uint32
	current  []*Target
	depth    *Target
	globals  []global
	temps    map[*Target]bool
	closed   bool
}

//NewBackend compiles the programs from the shaders in dir. It needs a current GL context.
func NewBackend(dev *Device, dir string, log zerolog.Logger) (*Backend, error) {
	sources, err := LoadSources(dir)
	if err != nil {
		return nil, err
	}
	B := &Backend{dev: dev, log: log, temps: make(map[*Target]bool)}
	for i, s := range sources {
		prog, err := linkProgram(s)
		if err != nil {
			B.Close()
			return nil, err
		}
		B.programs[i] = prog
	}
	gl.GenVertexArrays(1, &B.vao)
	gl.GenFramebuffers(1, &B.drawFBO)
	gl.GenFramebuffers(1, &B.readFBO)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	if err := glError("backend setup"); err != nil {
		B.Close()
		return nil, err
	}
	log.Debug().Str("shaders", dir).Msg("impostor programs linked")
	return B, nil
}

func (B *Backend) textures(t *Target, format impostor.Format, depth bool) {
	switch format {
	case impostor.FormatColor:
		t.color = newTexture(gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, t.w, t.h)
	case impostor.FormatFloat:
		t.color = newTexture(gl.RGBA32F, gl.RGBA, gl.FLOAT, t.w, t.h)
	}
	if depth || format == impostor.FormatDepth {
		t.depth = newTexture(gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT, t.w, t.h)
	}
}

func newTexture(internal int32, format, xtype uint32, w, h int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(w), int32(h), 0, format, xtype, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

//Temporary allocates the textures of a w x h target.
func (B *Backend) Temporary(w, h int, format impostor.Format, depth bool) (impostor.Target, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("glgpu: temporary target of %dx%d", w, h)
	}
	t := &Target{w: w, h: h, format: format}
	B.textures(t, format, depth)
	if err := glError("temporary target"); err != nil {
		deleteTextures(t)
		return nil, err
	}
	B.temps[t] = true
	return t, nil
}

func deleteTextures(t *Target) {
	if t.color != 0 {
		gl.DeleteTextures(1, &t.color)
	}
	if t.depth != 0 {
		gl.DeleteTextures(1, &t.depth)
	}
	t.released = true
}

//ReleaseTemporary deletes the textures of t.
func (B *Backend) ReleaseTemporary(t impostor.Target) {
	T, ok := t.(*Target)
	if !ok || !B.temps[T] {
		B.log.Warn().Msgf("release of a target that is not a live temporary: %T", t)
		return
	}
	delete(B.temps, T)
	deleteTextures(T)
}

//LiveTemporaries returns the number of temporaries not yet released
func (B *Backend) LiveTemporaries() int { return len(B.temps) }

func asTarget(t impostor.Target) (*Target, error) {
	T, ok := t.(*Target)
	if !ok || T == nil {
		return nil, fmt.Errorf("glgpu: target %T not created by this backend", t)
	}
	if T.released {
		return nil, fmt.Errorf("glgpu: target was released")
	}
	return T, nil
}

//SetTargets attaches colors and depth to the draw framebuffer. The window can only be
//used as the sole color target, with its own depth.
func (B *Backend) SetTargets(colors []impostor.Target, depth impostor.Target) error {
	B.current = B.current[:0]
	B.depth = nil
	for _, c := range colors {
		T, err := asTarget(c)
		if err != nil {
			return err
		}
		B.current = append(B.current, T)
	}
	if depth != nil {
		T, err := asTarget(depth)
		if err != nil {
			return err
		}
		if T.depth == 0 && !T.screen {
			return fmt.Errorf("glgpu: depth target without a depth plane")
		}
		B.depth = T
	}
	if len(B.current) == 1 && B.current[0].screen {
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(B.current[0].w), int32(B.current[0].h))
		return glError("set targets")
	}
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, B.drawFBO)
	bufs := make([]uint32, 0, len(B.current))
	var w, h int
	for i, T := range B.current {
		if T.screen {
			return fmt.Errorf("glgpu: the window can't be combined with other targets")
		}
		att := uint32(gl.COLOR_ATTACHMENT0 + i)
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, att, gl.TEXTURE_2D, T.color, 0)
		bufs = append(bufs, att)
		w, h = T.w, T.h
	}
	for i := len(B.current); i < 4; i++ {
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, uint32(gl.COLOR_ATTACHMENT0+i), gl.TEXTURE_2D, 0, 0)
	}
	var dtex uint32
	if B.depth != nil {
		dtex = B.depth.depth
		if w == 0 {
			w, h = B.depth.w, B.depth.h
		}
	}
	gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, dtex, 0)
	if len(bufs) > 0 {
		gl.DrawBuffers(int32(len(bufs)), &bufs[0])
	} else {
		gl.DrawBuffer(gl.NONE)
	}
	if status := gl.CheckFramebufferStatus(gl.DRAW_FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("glgpu: framebuffer not complete: 0x%x", status)
	}
	gl.Viewport(0, 0, int32(w), int32(h))
	return glError("set targets")
}

//Clear clears the current targets.
func (B *Backend) Clear(color, depth bool, rgba mgl32.Vec4) error {
	var mask uint32
	if color {
		gl.ClearColor(rgba[0], rgba[1], rgba[2], rgba[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		gl.DepthMask(true)
		gl.ClearDepth(1)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
	return glError("clear")
}

func bindSSBO(index uint32, b gpu.Buffer) error {
	if b == nil {
		return nil
	}
	G, err := asBuffer(b)
	if err != nil {
		return err
	}
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, index, G.id)
	return nil
}

func (B *Backend) uniform(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

func (B *Backend) bindTexture(prog uint32, name string, unit int, tex uint32) {
	loc := B.uniform(prog, name)
	if loc < 0 || tex == 0 {
		return
	}
	gl.ActiveTexture(uint32(gl.TEXTURE0 + unit))
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Uniform1i(loc, int32(unit))
}

func colorOf(t impostor.Target) uint32 {
	if T, ok := t.(*Target); ok && T != nil && !T.released {
		return T.color
	}
	return 0
}

func depthOf(t impostor.Target) uint32 {
	if T, ok := t.(*Target); ok && T != nil && !T.released {
		if T.depth != 0 {
			return T.depth
		}
		if T.format == impostor.FormatFloat {
			return T.color
		}
	}
	return 0
}

//use makes the program of pass current and binds everything b and input provide.
func (B *Backend) use(pass impostor.Pass, input impostor.Target, b *impostor.Bindings) error {
	if B.closed {
		return fmt.Errorf("glgpu: backend closed")
	}
	if pass < 0 || pass >= impostor.NPasses {
		return fmt.Errorf("glgpu: unknown pass %v", pass)
	}
	prog := B.programs[pass]
	gl.UseProgram(prog)
	gl.BindVertexArray(B.vao)
	if input != nil {
		B.bindTexture(prog, "_InputColor", UnitInputColor, colorOf(input))
		B.bindTexture(prog, "_InputDepth", UnitInputDepth, depthOf(input))
	}
	for i, g := range B.globals {
		B.bindTexture(prog, g.name, UnitGlobals+i, colorOf(g.t))
	}
	if b == nil {
		return glError("use " + pass.String())
	}
	ssbos := []struct {
		index uint32
		buf   gpu.Buffer
	}{
		{BindPositions, b.Entities.Positions},
		{BindTypes, b.Entities.Types},
		{BindAlphas, b.Entities.Alphas},
		{BindRadii, b.Entities.Radii},
		{BindColors, b.Entities.Colors},
		{BindFragments, b.Fragments},
		{BindAtomRadii, b.AtomRadii},
		{BindAtomColors, b.AtomColors},
		{BindTypeAtomCount, b.Types.AtomCount},
		{BindTypeAtomStart, b.Types.AtomStart},
		{BindTemplates, b.Types.Templates},
		{BindTypeColors, b.Types.Colors},
	}
	for _, s := range ssbos {
		if err := bindSSBO(s.index, s.buf); err != nil {
			return err
		}
	}
	if b.Fragments != nil {
		F, err := asBuffer(b.Fragments)
		if err != nil {
			return err
		}
		gl.BindBufferBase(gl.ATOMIC_COUNTER_BUFFER, BindFragmentCounter, F.counter)
	}
	B.bindTexture(prog, "_PosTex", UnitPosTex, colorOf(b.PosTex))
	B.bindTexture(prog, "_InfoTex", UnitInfoTex, colorOf(b.InfoTex))
	B.bindTexture(prog, "_SceneDepth", UnitSceneDepth, depthOf(b.Depth))
	u := b.Uniforms
	if loc := B.uniform(prog, "_View"); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &u.View[0])
	}
	if loc := B.uniform(prog, "_Projection"); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &u.Projection[0])
	}
	if loc := B.uniform(prog, "_ViewDirection"); loc >= 0 {
		gl.Uniform3fv(loc, 1, &u.ViewDirection[0])
	}
	if loc := B.uniform(prog, "_Scale"); loc >= 0 {
		gl.Uniform1f(loc, u.Scale)
	}
	if loc := B.uniform(prog, "_ShowAtomColors"); loc >= 0 {
		var show int32
		if u.ShowAtomColors {
			show = 1
		}
		gl.Uniform1i(loc, show)
	}
	if loc := B.uniform(prog, "_Set"); loc >= 0 {
		gl.Uniform1i(loc, int32(b.Set))
	}
	if loc := B.uniform(prog, "_Count"); loc >= 0 {
		gl.Uniform1i(loc, int32(b.Count))
	}
	return glError("use " + pass.String())
}

//DrawPoints draws n points, one per entity, with depth testing.
func (B *Backend) DrawPoints(pass impostor.Pass, n int, b *impostor.Bindings) error {
	if err := B.use(pass, nil, b); err != nil {
		return err
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
	gl.DrawArrays(gl.POINTS, 0, int32(n))
	return glError("draw " + pass.String())
}

//FullScreen draws a single triangle covering the viewport. The vertex shader is
//expected to generate its corners from gl_VertexID.
func (B *Backend) FullScreen(pass impostor.Pass, input impostor.Target, b *impostor.Bindings) error {
	if err := B.use(pass, input, b); err != nil {
		return err
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	if pass == impostor.PassCull {
		//the appended records and the counter are read by the next copy and draw
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.ATOMIC_COUNTER_BARRIER_BIT)
	}
	return glError("full screen " + pass.String())
}

//DrawPointsIndirect draws with the arguments stored in args, blending by alpha.
func (B *Backend) DrawPointsIndirect(pass impostor.Pass, args gpu.Buffer, b *impostor.Bindings) error {
	A, err := asBuffer(args)
	if err != nil {
		return err
	}
	if A.desc.Kind != gpu.IndirectArgs {
		return fmt.Errorf("glgpu: indirect draw from %s buffer %s", A.desc.Kind, A.desc.Name)
	}
	if err := B.use(pass, nil, b); err != nil {
		return err
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, A.id)
	gl.DrawArraysIndirect(gl.POINTS, gl.PtrOffset(0))
	gl.BindBuffer(gl.DRAW_INDIRECT_BUFFER, 0)
	gl.Disable(gl.BLEND)
	return glError("indirect " + pass.String())
}

func appendBuffer(b gpu.Buffer) (*Buffer, error) {
	G, err := asBuffer(b)
	if err != nil {
		return nil, err
	}
	if G.desc.Kind != gpu.Append {
		return nil, fmt.Errorf("glgpu: %s is a %s buffer, not an append one", G.desc.Name, G.desc.Kind)
	}
	return G, nil
}

//ResetCounter zeroes the atomic counter of buf.
func (B *Backend) ResetCounter(buf gpu.Buffer) error {
	G, err := appendBuffer(buf)
	if err != nil {
		return err
	}
	var zero uint32
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, G.counter)
	gl.BufferSubData(gl.ATOMIC_COUNTER_BUFFER, 0, 4, gl.Ptr(&zero))
	gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, 0)
	return glError("reset counter")
}

//CopyCount copies the counter of src into dst at offset, on the GPU.
func (B *Backend) CopyCount(src, dst gpu.Buffer, offset int) error {
	S, err := appendBuffer(src)
	if err != nil {
		return err
	}
	D, err := asBuffer(dst)
	if err != nil {
		return err
	}
	if offset < 0 || offset+4 > D.desc.Size() {
		return fmt.Errorf("glgpu: count copy at %d overflows %s", offset, D.desc.Name)
	}
	gl.BindBuffer(gl.COPY_READ_BUFFER, S.counter)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, D.id)
	gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, 0, offset, 4)
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	gl.MemoryBarrier(gl.COMMAND_BARRIER_BIT)
	return glError("copy count")
}

//Blit copies the color of src into dst, and the depth too when neither is the window.
func (B *Backend) Blit(src, dst impostor.Target) error {
	S, err := asTarget(src)
	if err != nil {
		return err
	}
	D, err := asTarget(dst)
	if err != nil {
		return err
	}
	readFBO, drawFBO := uint32(0), uint32(0)
	if !S.screen {
		readFBO = B.readFBO
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, readFBO)
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, S.color, 0)
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, S.depth, 0)
	}
	if !D.screen {
		drawFBO = B.drawFBO
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, drawFBO)
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, D.color, 0)
		gl.FramebufferTexture2D(gl.DRAW_FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, D.depth, 0)
		att := uint32(gl.COLOR_ATTACHMENT0)
		gl.DrawBuffers(1, &att)
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, readFBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, drawFBO)
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if !S.screen && !D.screen && S.depth != 0 && D.depth != 0 {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.BlitFramebuffer(0, 0, int32(S.w), int32(S.h), 0, 0, int32(D.w), int32(D.h), mask, gl.NEAREST)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	return glError("blit")
}

//SetGlobalTexture makes t available to every program as the sampler name.
func (B *Backend) SetGlobalTexture(name string, t impostor.Target) {
	T, ok := t.(*Target)
	if !ok {
		B.log.Warn().Str("name", name).Msgf("global texture of type %T ignored", t)
		return
	}
	for i, g := range B.globals {
		if g.name == name {
			B.globals[i].t = T
			return
		}
	}
	B.globals = append(B.globals, global{name: name, t: T})
}

//Close deletes the programs, the framebuffers and every live temporary.
func (B *Backend) Close() {
	if B.closed {
		return
	}
	B.closed = true
	for t := range B.temps {
		deleteTextures(t)
	}
	B.temps = map[*Target]bool{}
	for i, p := range B.programs {
		if p != 0 {
			gl.DeleteProgram(p)
			B.programs[i] = 0
		}
	}
	if B.vao != 0 {
		gl.DeleteVertexArrays(1, &B.vao)
	}
	if B.drawFBO != 0 {
		gl.DeleteFramebuffers(1, &B.drawFBO)
	}
	if B.readFBO != 0 {
		gl.DeleteFramebuffers(1, &B.readFBO)
	}
}
