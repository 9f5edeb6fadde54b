/*
 * encode.go, part of molview.
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

package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	v3 "github.com/rmera/molview/v3"
)

//Strides of the per-entity buffers.
const (
	Vec4Stride    = 16
	Int32Stride   = 4
	Float32Stride = 4
)

var le = binary.LittleEndian

//Float32s encodes values as little-endian float32, appending to dst.
func Float32s(dst []byte, values ...float32) []byte {
	for _, v := range values {
		dst = le.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

//Float64s encodes values as little-endian float32, appending to dst.
func Float64s(dst []byte, values []float64) []byte {
	for _, v := range values {
		dst = le.AppendUint32(dst, math.Float32bits(float32(v)))
	}
	return dst
}

//Int32s encodes values as little-endian int32, appending to dst.
func Int32s(dst []byte, values ...int32) []byte {
	for _, v := range values {
		dst = le.AppendUint32(dst, uint32(v))
	}
	return dst
}

//Ints encodes values as little-endian int32, appending to dst.
func Ints(dst []byte, values []int) []byte {
	for _, v := range values {
		dst = le.AppendUint32(dst, uint32(int32(v)))
	}
	return dst
}

//Uint32s encodes values as little-endian uint32, appending to dst.
func Uint32s(dst []byte, values ...uint32) []byte {
	for _, v := range values {
		dst = le.AppendUint32(dst, v)
	}
	return dst
}

//Vec4s encodes the vectors as 4 float32 each, appending to dst.
func Vec4s(dst []byte, values ...mgl32.Vec4) []byte {
	for _, v := range values {
		dst = Float32s(dst, v[:]...)
	}
	return dst
}

//Positions encodes each vector of coords as a vec4 with the given w, appending to dst.
func Positions(dst []byte, coords *v3.Matrix, w float32) []byte {
	d := coords.RawData()
	for i := 0; i+2 < len(d); i += 3 {
		dst = Float32s(dst, float32(d[i]), float32(d[i+1]), float32(d[i+2]), w)
	}
	return dst
}

//DecodeInt32s decodes little-endian int32 from b.
func DecodeInt32s(b []byte) []int32 {
	ret := make([]int32, len(b)/4)
	for i := range ret {
		ret[i] = int32(le.Uint32(b[4*i:]))
	}
	return ret
}

//DecodeUint32s decodes little-endian uint32 from b.
func DecodeUint32s(b []byte) []uint32 {
	ret := make([]uint32, len(b)/4)
	for i := range ret {
		ret[i] = le.Uint32(b[4*i:])
	}
	return ret
}

//DecodeFloat32s decodes little-endian float32 from b.
func DecodeFloat32s(b []byte) []float32 {
	ret := make([]float32, len(b)/4)
	for i := range ret {
		ret[i] = math.Float32frombits(le.Uint32(b[4*i:]))
	}
	return ret
}

//DecodeVec4s decodes groups of 4 float32 from b.
func DecodeVec4s(b []byte) []mgl32.Vec4 {
	f := DecodeFloat32s(b)
	ret := make([]mgl32.Vec4, len(f)/4)
	for i := range ret {
		copy(ret[i][:], f[4*i:4*i+4])
	}
	return ret
}

//FragmentStride is the size in bytes of a FragmentRecord.
const FragmentStride = 32

//FragmentRecord is one visible entity, as appended by the cull pass
//and consumed by the impostor pass.
type FragmentRecord struct {
	X, Y, Z, Radius float32
	Type            int32
	Entity          int32 //index of the entity in the uploaded (sorted) buffers
	Alpha           float32
	Pixel           int32 //y*width+x of the pixel that produced the record
}

//Put encodes F into the first FragmentStride bytes of b.
func (F FragmentRecord) Put(b []byte) {
	_ = b[FragmentStride-1]
	le.PutUint32(b, math.Float32bits(F.X))
	le.PutUint32(b[4:], math.Float32bits(F.Y))
	le.PutUint32(b[8:], math.Float32bits(F.Z))
	le.PutUint32(b[12:], math.Float32bits(F.Radius))
	le.PutUint32(b[16:], uint32(F.Type))
	le.PutUint32(b[20:], uint32(F.Entity))
	le.PutUint32(b[24:], math.Float32bits(F.Alpha))
	le.PutUint32(b[28:], uint32(F.Pixel))
}

//DecodeFragment decodes a record from the first FragmentStride bytes of b.
func DecodeFragment(b []byte) FragmentRecord {
	_ = b[FragmentStride-1]
	return FragmentRecord{
		X:      math.Float32frombits(le.Uint32(b)),
		Y:      math.Float32frombits(le.Uint32(b[4:])),
		Z:      math.Float32frombits(le.Uint32(b[8:])),
		Radius: math.Float32frombits(le.Uint32(b[12:])),
		Type:   int32(le.Uint32(b[16:])),
		Entity: int32(le.Uint32(b[20:])),
		Alpha:  math.Float32frombits(le.Uint32(b[24:])),
		Pixel:  int32(le.Uint32(b[28:])),
	}
}
