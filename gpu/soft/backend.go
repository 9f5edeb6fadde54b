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

package soft

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/impostor"
	"github.com/rs/zerolog"
)

//Backend runs the impostor passes on the CPU, on Textures and Buffers created by a Device.
type Backend struct {
	dev     *Device
	log     zerolog.Logger
	colors  []*Texture
	depth   *Texture
	globals map[string]impostor.Target
	temps   map[*Texture]bool
	//Draws counts the points drawn by each pass since the backend was created.
	Draws [impostor.NPasses]int
}

//NewBackend returns a backend for the buffers of dev.
func NewBackend(dev *Device, log zerolog.Logger) *Backend {
	return &Backend{dev: dev, log: log, globals: make(map[string]impostor.Target), temps: make(map[*Texture]bool)}
}

//Device returns the device of the backend
func (B *Backend) Device() *Device { return B.dev }

func asTexture(t impostor.Target) (*Texture, error) {
	tex, ok := t.(*Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("%T is not a soft texture", t)
	}
	if tex.released {
		return nil, fmt.Errorf("use of a released texture")
	}
	return tex, nil
}

//Temporary returns a new texture, which must be released with ReleaseTemporary.
func (B *Backend) Temporary(w, h int, format impostor.Format, depth bool) (impostor.Target, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", w, h)
	}
	T := NewTexture(w, h, format, depth)
	T.temp = true
	B.temps[T] = true
	return T, nil
}

//ReleaseTemporary releases a texture obtained from Temporary.
func (B *Backend) ReleaseTemporary(t impostor.Target) {
	T, ok := t.(*Texture)
	if !ok || !T.temp || T.released {
		B.log.Warn().Msg("release of a texture that is not a live temporary")
		return
	}
	T.released = true
	T.color, T.depth = nil, nil
	delete(B.temps, T)
}

//LiveTemporaries returns the number of temporaries not yet released.
func (B *Backend) LiveTemporaries() int { return len(B.temps) }

//SetTargets sets the targets for the following passes.
func (B *Backend) SetTargets(colors []impostor.Target, depth impostor.Target) error {
	B.colors = B.colors[:0]
	for _, c := range colors {
		t, err := asTexture(c)
		if err != nil {
			return err
		}
		B.colors = append(B.colors, t)
	}
	B.depth = nil
	if depth != nil {
		t, err := asTexture(depth)
		if err != nil {
			return err
		}
		if !t.HasDepth() {
			return fmt.Errorf("depth target without a depth plane")
		}
		B.depth = t
	}
	return nil
}

//Clear clears the color targets to rgba and the depth to 1.
func (B *Backend) Clear(color, depth bool, rgba mgl32.Vec4) error {
	if color {
		for _, c := range B.colors {
			c.Fill(rgba)
		}
	}
	if depth && B.depth != nil {
		B.depth.FillDepth(1)
	}
	return nil
}

func (B *Backend) viewport() (int, int, error) {
	switch {
	case len(B.colors) > 0:
		return B.colors[0].w, B.colors[0].h, nil
	case B.depth != nil:
		return B.depth.w, B.depth.h, nil
	}
	return 0, 0, fmt.Errorf("no render targets set")
}

//projection of a point to window coordinates
type projected struct {
	x, y  int     //pixel
	depth float32 //[0,1]
	w     float32 //clip w
	ok    bool    //inside the view volume
}

func project(u *impostor.Uniforms, p mgl32.Vec3, w, h int) projected {
	clip := u.Projection.Mul4(u.View).Mul4x1(p.Vec4(1))
	if clip[3] <= 0 {
		return projected{}
	}
	ndc := clip.Vec3().Mul(1 / clip[3])
	if ndc[0] < -1 || ndc[0] > 1 || ndc[1] < -1 || ndc[1] > 1 || ndc[2] < -1 || ndc[2] > 1 {
		return projected{}
	}
	x := int(math.Floor(float64((ndc[0]*0.5 + 0.5) * float32(w))))
	y := int(math.Floor(float64((ndc[1]*0.5 + 0.5) * float32(h))))
	return projected{x: min(x, w-1), y: min(y, h-1), depth: ndc[2]*0.5 + 0.5, w: clip[3], ok: true}
}

func vec4At(data []byte, i int) mgl32.Vec4 {
	var v mgl32.Vec4
	for j := range v {
		v[j] = math.Float32frombits(le.Uint32(data[16*i+4*j:]))
	}
	return v
}

func f32At(data []byte, i int) float32 {
	return math.Float32frombits(le.Uint32(data[4*i:]))
}

func i32At(data []byte, i int) int32 {
	return int32(le.Uint32(data[4*i:]))
}

//DrawPoints draws n entities as points. Only PassPositionInfo is a point pass.
func (B *Backend) DrawPoints(pass impostor.Pass, n int, b *impostor.Bindings) error {
	if pass != impostor.PassPositionInfo {
		return fmt.Errorf("%s is not a point pass", pass)
	}
	if len(B.colors) < 2 || B.depth == nil {
		return fmt.Errorf("%s needs two color targets and a depth target", pass)
	}
	pos, err := bytesOf(b.Entities.Positions)
	if err != nil {
		return err
	}
	radii, err := bytesOf(b.Entities.Radii)
	if err != nil {
		return err
	}
	types, err := bytesOf(b.Entities.Types)
	if err != nil {
		return err
	}
	alphas, err := bytesOf(b.Entities.Alphas)
	if err != nil {
		return err
	}
	if len(pos) < 16*n || len(radii) < 4*n || len(types) < 4*n || len(alphas) < 4*n {
		return fmt.Errorf("%d points requested, the buffers are too small", n)
	}
	w, h := B.colors[0].w, B.colors[0].h
	u := &b.Uniforms
	for i := 0; i < n; i++ {
		p := vec4At(pos, i)
		pr := project(u, p.Vec3(), w, h)
		if !pr.ok || pr.depth >= B.depth.Depth(pr.x, pr.y) {
			continue
		}
		B.depth.SetDepth(pr.x, pr.y, pr.depth)
		B.colors[0].Set(pr.x, pr.y, mgl32.Vec4{p[0], p[1], p[2], f32At(radii, i) * u.Scale})
		B.colors[1].Set(pr.x, pr.y, mgl32.Vec4{float32(i32At(types, i)), float32(i), f32At(alphas, i), 1})
	}
	B.Draws[pass] += n
	return nil
}

//FullScreen runs the depth/normals capture or the cull pass.
func (B *Backend) FullScreen(pass impostor.Pass, input impostor.Target, b *impostor.Bindings) error {
	switch pass {
	case impostor.PassDepthNormals:
		return B.depthNormals(input)
	case impostor.PassCull:
		return B.cull(b)
	}
	return fmt.Errorf("%s is not a full screen pass", pass)
}

//depthNormals copies the depth of the input into the depth target, and writes
//a view-facing normal with the depth in the 4th component to the color target.
func (B *Backend) depthNormals(input impostor.Target) error {
	src, err := asTexture(input)
	if err != nil {
		return err
	}
	w, h, err := B.viewport()
	if err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := src.Depth(x, y)
			if B.depth != nil {
				B.depth.SetDepth(x, y, d)
			}
			for _, c := range B.colors {
				c.Set(x, y, mgl32.Vec4{0.5, 0.5, 1, d})
			}
		}
	}
	B.Draws[impostor.PassDepthNormals]++
	return nil
}

//cull appends one fragment for each pixel covered by an entity in front of the scene depth.
func (B *Backend) cull(b *impostor.Bindings) error {
	pos, err := asTexture(b.PosTex)
	if err != nil {
		return fmt.Errorf("cull position texture: %w", err)
	}
	info, err := asTexture(b.InfoTex)
	if err != nil {
		return fmt.Errorf("cull info texture: %w", err)
	}
	frags, err := asBuffer(b.Fragments)
	if err != nil {
		return err
	}
	if frags.desc.Stride != gpu.FragmentStride {
		return fmt.Errorf("fragment buffer stride %d, expected %d", frags.desc.Stride, gpu.FragmentStride)
	}
	var scene *Texture
	if b.Depth != nil {
		if scene, err = asTexture(b.Depth); err != nil {
			return err
		}
	}
	rec := make([]byte, gpu.FragmentStride)
	dropped := 0
	for y := 0; y < pos.h; y++ {
		for x := 0; x < pos.w; x++ {
			in := info.At(x, y)
			if in[3] == 0 {
				continue
			}
			if scene != nil && pos.Depth(x, y) >= scene.Depth(x, y) {
				continue
			}
			p := pos.At(x, y)
			gpu.FragmentRecord{X: p[0], Y: p[1], Z: p[2], Radius: p[3], Type: int32(in[0]), Entity: int32(in[1]),
				Alpha: in[2], Pixel: int32(y*pos.w + x)}.Put(rec)
			if !frags.Append(rec) {
				dropped++
			}
		}
	}
	if dropped > 0 {
		B.log.Warn().Int("count", dropped).Msg("fragment buffer full, fragments dropped")
	}
	B.Draws[impostor.PassCull]++
	return nil
}

//DrawPointsIndirect draws the fragments as shaded spheres. The number of fragments is
//the vertex count in args.
func (B *Backend) DrawPointsIndirect(pass impostor.Pass, args gpu.Buffer, b *impostor.Bindings) error {
	if pass != impostor.PassImpostor {
		return fmt.Errorf("%s is not an indirect pass", pass)
	}
	argdata, err := bytesOf(args)
	if err != nil {
		return err
	}
	if len(argdata) < gpu.DrawArgsStride {
		return fmt.Errorf("indirect arguments buffer too small")
	}
	count := int(le.Uint32(argdata))
	frags, err := bytesOf(b.Fragments)
	if err != nil {
		return err
	}
	if count*gpu.FragmentStride > len(frags) {
		return fmt.Errorf("indirect draw of %d fragments, the buffer holds %d", count, len(frags)/gpu.FragmentStride)
	}
	if len(B.colors) == 0 || B.depth == nil {
		return fmt.Errorf("%s needs a color and a depth target", pass)
	}
	lut, err := bytesOf(b.AtomColors)
	if err != nil {
		return err
	}
	ecolors, err := bytesOf(b.Entities.Colors)
	if err != nil {
		return err
	}
	for k := 0; k < count; k++ {
		f := gpu.DecodeFragment(frags[k*gpu.FragmentStride:])
		color := mgl32.Vec4{1, 1, 1, 1}
		switch {
		case b.Set == gpu.Atoms && b.Uniforms.ShowAtomColors && int(f.Type) >= 0 && 16*(int(f.Type)+1) <= len(lut):
			color = vec4At(lut, int(f.Type))
		case int(f.Entity) >= 0 && 16*(int(f.Entity)+1) <= len(ecolors):
			color = vec4At(ecolors, int(f.Entity))
		}
		color[3] = f.Alpha
		B.splat(&b.Uniforms, f, color)
	}
	B.Draws[pass] += count
	return nil
}

//splat draws one sphere impostor
func (B *Backend) splat(u *impostor.Uniforms, f gpu.FragmentRecord, color mgl32.Vec4) {
	w, h := B.depth.w, B.depth.h
	center := mgl32.Vec3{f.X, f.Y, f.Z}
	pr := project(u, center, w, h)
	if !pr.ok {
		return
	}
	rpx := f.Radius * u.Projection.At(1, 1) * float32(h) * 0.5 / pr.w
	//depth of the point of the sphere closest to the camera
	vc := u.View.Mul4x1(center.Vec4(1))
	vc[2] += f.Radius
	fc := u.Projection.Mul4x1(vc)
	front := pr.depth
	if fc[3] > 0 {
		front = fc[2]/fc[3]*0.5 + 0.5
	}
	r := int(math.Ceil(float64(rpx)))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := pr.x+dx, pr.y+dy
			if x < 0 || y < 0 || x >= w || y >= h {
				continue
			}
			var nx, ny float32
			if rpx > 0 {
				nx, ny = float32(dx)/rpx, float32(dy)/rpx
			}
			d2 := nx*nx + ny*ny
			if d2 > 1 {
				continue
			}
			nz := float32(math.Sqrt(float64(1 - d2)))
			depth := pr.depth - nz*(pr.depth-front)
			if depth >= B.depth.Depth(x, y) {
				continue
			}
			B.depth.SetDepth(x, y, depth)
			shade := 0.3 + 0.7*nz
			c := B.colors[0].At(x, y)
			a := color[3]
			for i := 0; i < 3; i++ {
				c[i] = color[i]*shade*a + c[i]*(1-a)
			}
			c[3] = a + c[3]*(1-a)
			B.colors[0].Set(x, y, c)
			if len(B.colors) > 1 {
				B.colors[1].Set(x, y, mgl32.Vec4{nx*0.5 + 0.5, ny*0.5 + 0.5, nz*0.5 + 0.5, depth})
			}
		}
	}
}

//ResetCounter sets the counter of an append buffer to zero.
func (B *Backend) ResetCounter(buf gpu.Buffer) error {
	sb, err := asBuffer(buf)
	if err != nil {
		return err
	}
	if sb.desc.Kind != gpu.Append {
		return fmt.Errorf("buffer %s is not an append buffer", sb.desc.Name)
	}
	sb.counter = 0
	return nil
}

//CopyCount copies the counter of src to dst, at offset.
func (B *Backend) CopyCount(src, dst gpu.Buffer, offset int) error {
	s, err := asBuffer(src)
	if err != nil {
		return err
	}
	if s.desc.Kind != gpu.Append {
		return fmt.Errorf("buffer %s is not an append buffer", s.desc.Name)
	}
	return dst.Write(offset, gpu.Uint32s(nil, s.counter))
}

//Blit copies the color and depth of src into dst, which must have the same size.
func (B *Backend) Blit(src, dst impostor.Target) error {
	s, err := asTexture(src)
	if err != nil {
		return err
	}
	d, err := asTexture(dst)
	if err != nil {
		return err
	}
	if s.w != d.w || s.h != d.h {
		return fmt.Errorf("blit from %dx%d to %dx%d", s.w, s.h, d.w, d.h)
	}
	if s.color != nil && d.color != nil {
		copy(d.color, s.color)
	}
	if s.depth != nil && d.depth != nil {
		copy(d.depth, s.depth)
	}
	return nil
}

//SetGlobalTexture makes t available to later passes and effects under name.
func (B *Backend) SetGlobalTexture(name string, t impostor.Target) {
	B.globals[name] = t
}

//Global returns the global texture with the given name, or nil.
func (B *Backend) Global(name string) impostor.Target { return B.globals[name] }
