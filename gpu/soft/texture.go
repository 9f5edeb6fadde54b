/*
 * texture.go, part of molview.
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
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/impostor"
)

//Texture is a render target in main memory. Rows go from the bottom of the viewport (y=0) up.
type Texture struct {
	w, h     int
	format   impostor.Format
	color    []mgl32.Vec4 //nil for depth-only textures
	depth    []float32    //nil for textures without depth
	temp     bool
	released bool
}

//NewTexture returns a w x h color texture, cleared to transparent black, with a depth
//plane cleared to 1 if depth is true.
func NewTexture(w, h int, format impostor.Format, depth bool) *Texture {
	T := &Texture{w: w, h: h, format: format}
	if format != impostor.FormatDepth {
		T.color = make([]mgl32.Vec4, w*h)
	}
	if depth || format == impostor.FormatDepth {
		T.depth = make([]float32, w*h)
		for i := range T.depth {
			T.depth[i] = 1
		}
	}
	return T
}

//Width of the texture in pixels
func (T *Texture) Width() int { return T.w }

//Height of the texture in pixels
func (T *Texture) Height() int { return T.h }

//HasDepth returns true if the texture has a depth plane
func (T *Texture) HasDepth() bool { return T.depth != nil }

func (T *Texture) inside(x, y int) bool { return x >= 0 && y >= 0 && x < T.w && y < T.h }

//At returns the color at pixel x, y. Textures without color, and pixels outside
//the texture, give zero.
func (T *Texture) At(x, y int) mgl32.Vec4 {
	if T.color == nil || !T.inside(x, y) {
		return mgl32.Vec4{}
	}
	return T.color[y*T.w+x]
}

//Set sets the color of pixel x, y. 8-bit color textures clamp the values to [0,1].
func (T *Texture) Set(x, y int, c mgl32.Vec4) {
	if T.color == nil || !T.inside(x, y) {
		return
	}
	if T.format == impostor.FormatColor {
		for i := range c {
			c[i] = mgl32.Clamp(c[i], 0, 1)
		}
	}
	T.color[y*T.w+x] = c
}

//Depth returns the depth at pixel x, y, 1 (the far plane) if there is no depth plane.
func (T *Texture) Depth(x, y int) float32 {
	if T.depth == nil || !T.inside(x, y) {
		return 1
	}
	return T.depth[y*T.w+x]
}

//SetDepth sets the depth of pixel x, y, if the texture has a depth plane.
func (T *Texture) SetDepth(x, y int, d float32) {
	if T.depth == nil || !T.inside(x, y) {
		return
	}
	T.depth[y*T.w+x] = d
}

//Fill sets all the color pixels to c.
func (T *Texture) Fill(c mgl32.Vec4) {
	for i := range T.color {
		T.color[i] = c
	}
}

//FillDepth sets all the depth pixels to d.
func (T *Texture) FillDepth(d float32) {
	for i := range T.depth {
		T.depth[i] = d
	}
}

//Covered returns the number of pixels whose color differs from c.
func (T *Texture) Covered(c mgl32.Vec4) int {
	n := 0
	for _, v := range T.color {
		if v != c {
			n++
		}
	}
	return n
}

//Image returns the color plane as an 8-bit image, top row first. Channels are clamped to [0,1].
func (T *Texture) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, T.w, T.h))
	if T.color == nil {
		return img
	}
	to8 := func(v float32) uint8 {
		return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
	}
	for y := 0; y < T.h; y++ {
		for x := 0; x < T.w; x++ {
			c := T.color[y*T.w+x]
			img.SetRGBA(x, T.h-1-y, color.RGBA{to8(c[0]), to8(c[1]), to8(c[2]), to8(c[3])})
		}
	}
	return img
}
