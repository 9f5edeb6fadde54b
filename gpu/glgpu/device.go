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

//Package glgpu implements the gpu device and the impostor backend on OpenGL 4.3.
//
//Structured buffers are shader storage buffers, append buffers are a shader storage
//buffer plus a 4-byte atomic counter buffer, and indirect arguments live in a
//GL_DRAW_INDIRECT_BUFFER. All functions must be called from the goroutine that owns
//the GL context.
package glgpu

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/rmera/molview/gpu"
	"github.com/rs/zerolog"
)

//Buffer is a gpu.Buffer in GL memory.
type Buffer struct {
	id       uint32
	counter  uint32 //atomic counter buffer, for Append buffers
	target   uint32
	desc     gpu.BufferDesc
	released bool
	dev      *Device
}

//Desc returns the description the buffer was created with
func (B *Buffer) Desc() gpu.BufferDesc { return B.desc }

//ID returns the GL name of the buffer
func (B *Buffer) ID() uint32 { return B.id }

//Counter returns the GL name of the atomic counter buffer, 0 if B is not an append buffer.
func (B *Buffer) Counter() uint32 { return B.counter }

//Write copies data into the buffer at offset.
func (B *Buffer) Write(offset int, data []byte) error {
	if B.released {
		return fmt.Errorf("write to released buffer %s", B.desc.Name)
	}
	if offset < 0 || offset+len(data) > B.desc.Size() {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %s of %d bytes", len(data), offset, B.desc.Name, B.desc.Size())
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(B.target, B.id)
	gl.BufferSubData(B.target, offset, len(data), unsafe.Pointer(&data[0]))
	gl.BindBuffer(B.target, 0)
	return glError("write " + B.desc.Name)
}

//Read copies the first len(data) bytes of the buffer into data.
func (B *Buffer) Read(data []byte) error {
	if B.released {
		return fmt.Errorf("read from released buffer %s", B.desc.Name)
	}
	if len(data) > B.desc.Size() {
		return fmt.Errorf("read of %d bytes from buffer %s of %d bytes", len(data), B.desc.Name, B.desc.Size())
	}
	if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(B.target, B.id)
	gl.GetBufferSubData(B.target, 0, len(data), unsafe.Pointer(&data[0]))
	gl.BindBuffer(B.target, 0)
	return glError("read " + B.desc.Name)
}

//Release deletes the GL buffers. Releasing twice does nothing.
func (B *Buffer) Release() {
	if B.released {
		return
	}
	B.released = true
	gl.DeleteBuffers(1, &B.id)
	if B.counter != 0 {
		gl.DeleteBuffers(1, &B.counter)
	}
	B.dev.live--
}

//Device creates GL buffers. It needs a current OpenGL 4.3 context.
type Device struct {
	log  zerolog.Logger
	live int
}

//NewDevice initializes the GL function pointers and checks the context version.
func NewDevice(log zerolog.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("glgpu: can't initialize OpenGL: %w", err)
	}
	log.Info().Str("version", gl.GoStr(gl.GetString(gl.VERSION))).Str("renderer", gl.GoStr(gl.GetString(gl.RENDERER))).Msg("OpenGL context")
	return &Device{log: log}, nil
}

//Live returns the number of buffers created and not yet released
func (D *Device) Live() int { return D.live }

func bufferTarget(k gpu.Kind) (uint32, error) {
	switch k {
	case gpu.Structured, gpu.Append:
		return gl.SHADER_STORAGE_BUFFER, nil
	case gpu.IndirectArgs:
		return gl.DRAW_INDIRECT_BUFFER, nil
	}
	return 0, fmt.Errorf("glgpu: unknown buffer kind %v", k)
}

//NewBuffer allocates a zeroed buffer for desc.
func (D *Device) NewBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if desc.Count <= 0 || desc.Stride <= 0 {
		return nil, fmt.Errorf("glgpu: buffer %s with %d records of %d bytes", desc.Name, desc.Count, desc.Stride)
	}
	target, err := bufferTarget(desc.Kind)
	if err != nil {
		return nil, err
	}
	B := &Buffer{target: target, desc: desc, dev: D}
	zero := make([]byte, desc.Size())
	gl.GenBuffers(1, &B.id)
	gl.BindBuffer(target, B.id)
	gl.BufferData(target, len(zero), unsafe.Pointer(&zero[0]), gl.DYNAMIC_DRAW)
	gl.BindBuffer(target, 0)
	if desc.Kind == gpu.Append {
		var c uint32
		gl.GenBuffers(1, &B.counter)
		gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, B.counter)
		gl.BufferData(gl.ATOMIC_COUNTER_BUFFER, 4, unsafe.Pointer(&c), gl.DYNAMIC_DRAW)
		gl.BindBuffer(gl.ATOMIC_COUNTER_BUFFER, 0)
	}
	if err := glError("allocate " + desc.Name); err != nil {
		gl.DeleteBuffers(1, &B.id)
		if B.counter != 0 {
			gl.DeleteBuffers(1, &B.counter)
		}
		return nil, err
	}
	D.live++
	D.log.Debug().Str("buffer", desc.Name).Stringer("kind", desc.Kind).Int("bytes", desc.Size()).Msg("allocated")
	return B, nil
}

func asBuffer(b gpu.Buffer) (*Buffer, error) {
	B, ok := b.(*Buffer)
	if !ok || B == nil {
		return nil, fmt.Errorf("glgpu: buffer %T not created by this device", b)
	}
	if B.released {
		return nil, fmt.Errorf("glgpu: buffer %s was released", B.desc.Name)
	}
	return B, nil
}

var glErrors = map[uint32]string{
	gl.INVALID_ENUM:                  "invalid enum",
	gl.INVALID_VALUE:                 "invalid value",
	gl.INVALID_OPERATION:             "invalid operation",
	gl.INVALID_FRAMEBUFFER_OPERATION: "invalid framebuffer operation",
	gl.OUT_OF_MEMORY:                 "out of memory",
}

//glError returns the pending GL error, if any, drained so the next call starts clean.
func glError(op string) error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}
	name, ok := glErrors[code]
	if !ok {
		name = fmt.Sprintf("error 0x%x", code)
	}
	return fmt.Errorf("glgpu: %s: %s", op, name)
}
