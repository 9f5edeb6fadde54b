/*
 * camera.go, part of molview.
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
	"math"

	"github.com/go-gl/mathgl/mgl32"
	v3 "github.com/rmera/molview/v3"
)

//Camera is a perspective camera looking from Position to Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32 //vertical field of view, in degrees
	Near     float32
	Far      float32
}

//DefaultCamera returns a camera at (0,0,100) looking at the origin.
func DefaultCamera() Camera {
	return Camera{Position: mgl32.Vec3{0, 0, 100}, Up: mgl32.Vec3{0, 1, 0}, FovY: 45, Near: 0.1, Far: 1000}
}

//Forward returns the unit vector along which the camera looks.
func (C Camera) Forward() mgl32.Vec3 {
	f := C.Target.Sub(C.Position)
	if f.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return f.Normalize()
}

//View returns the view matrix.
func (C Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(C.Position, C.Target, C.Up)
}

//Projection returns the projection matrix for a viewport of the given aspect ratio (width/height).
func (C Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(C.FovY), aspect, C.Near, C.Far)
}

//Orbit rotates the camera position around the target by yaw degrees around the up vector
//and pitch degrees around the camera's right vector.
func (C Camera) Orbit(yaw, pitch float32) Camera {
	offset := C.Position.Sub(C.Target)
	right := C.Forward().Cross(C.Up)
	if right.Len() == 0 {
		right = mgl32.Vec3{1, 0, 0}
	}
	q := mgl32.QuatRotate(mgl32.DegToRad(yaw), C.Up.Normalize()).Mul(mgl32.QuatRotate(mgl32.DegToRad(pitch), right.Normalize()))
	C.Position = C.Target.Add(q.Rotate(offset))
	return C
}

//Frame moves the camera along its current direction so that a sphere enclosing coords fills
//the vertical field of view, and points it to the sphere center. Near and Far are adjusted.
func (C Camera) Frame(coords *v3.Matrix) Camera {
	n := coords.NVecs()
	if n == 0 {
		return C
	}
	var center [3]float64
	for i := 0; i < n; i++ {
		v := coords.Vec(i)
		for j := range center {
			center[j] += v[j] / float64(n)
		}
	}
	var r2 float64
	for i := 0; i < n; i++ {
		v := coords.Vec(i)
		d := (v[0]-center[0])*(v[0]-center[0]) + (v[1]-center[1])*(v[1]-center[1]) + (v[2]-center[2])*(v[2]-center[2])
		r2 = math.Max(r2, d)
	}
	r := float32(math.Sqrt(r2)) + 2 //room for the atom radii
	dir := C.Forward()
	C.Target = mgl32.Vec3{float32(center[0]), float32(center[1]), float32(center[2])}
	dist := r / float32(math.Sin(float64(mgl32.DegToRad(C.FovY))/2))
	C.Position = C.Target.Sub(dir.Mul(dist))
	C.Near = max(0.01, dist-2*r)
	C.Far = dist + 2*r
	return C
}

func vec3(v mgl32.Vec3) [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}
