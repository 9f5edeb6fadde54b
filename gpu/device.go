/*
 * device.go, part of molview.
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

//Package gpu manages the buffers the impostor pipeline keeps on the graphics device.
//
//The device itself is reached through the Device and Buffer interfaces, implemented
//by the packages gpu/soft (on the CPU) and gpu/glgpu (OpenGL 4.3).
//GPU buffers are only mirrors of data owned by the CPU, they are rewritten every frame.
package gpu

import "fmt"

//Kind is the type of a GPU buffer.
type Kind int

const (
	Structured   Kind = iota //array of fixed-size records
	Append                   //array of records with an atomic counter, written by shaders
	IndirectArgs             //arguments for an indirect draw call
)

func (K Kind) String() string {
	switch K {
	case Structured:
		return "structured"
	case Append:
		return "append"
	case IndirectArgs:
		return "indirect"
	default:
		return fmt.Sprintf("Kind(%d)", int(K))
	}
}

//BufferDesc describes a buffer to be created.
type BufferDesc struct {
	Name   string //for debugging and logging
	Count  int    //number of records
	Stride int    //bytes per record
	Kind   Kind
}

//Size returns the size of the buffer in bytes
func (B BufferDesc) Size() int { return B.Count * B.Stride }

//Buffer is a block of device memory.
type Buffer interface {
	Desc() BufferDesc
	//Write copies data into the buffer, starting at offset bytes.
	Write(offset int, data []byte) error
	//Read copies the first len(data) bytes of the buffer into data.
	Read(data []byte) error
	//Release frees the device memory. The buffer can't be used afterwards.
	Release()
}

//Device creates buffers.
type Device interface {
	NewBuffer(desc BufferDesc) (Buffer, error)
}

//DrawArgsStride is the size of the indirect draw arguments: vertex count, instance count,
//first vertex and first instance, as uint32.
const DrawArgsStride = 16

//DrawArgsInit is the initial content of the indirect draw buffer. The vertex count is
//overwritten with the fragment count every frame.
var DrawArgsInit = [4]uint32{0, 1, 0, 0}
