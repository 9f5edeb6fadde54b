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

//Package soft implements the gpu device and the impostor backend on the CPU.
//It follows the same protocol as a real GPU, including append buffers with counters and
//indirect draws that read their count from a buffer, so it can stand in for one in tests
//and in headless tools.
package soft

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/rmera/molview/gpu"
)

//Buffer is a gpu.Buffer in main memory.
type Buffer struct {
	desc     gpu.BufferDesc
	data     []byte
	counter  uint32 //for Append buffers
	released bool
	dev      *Device
}

//Desc returns the description the buffer was created with
func (B *Buffer) Desc() gpu.BufferDesc { return B.desc }

//Write copies data into the buffer at offset.
func (B *Buffer) Write(offset int, data []byte) error {
	if B.released {
		return fmt.Errorf("write to released buffer %s", B.desc.Name)
	}
	if offset < 0 || offset+len(data) > len(B.data) {
		return fmt.Errorf("write of %d bytes at %d overflows buffer %s of %d bytes", len(data), offset, B.desc.Name, len(B.data))
	}
	copy(B.data[offset:], data)
	return nil
}

//Read copies the first len(data) bytes of the buffer into data.
func (B *Buffer) Read(data []byte) error {
	if B.released {
		return fmt.Errorf("read from released buffer %s", B.desc.Name)
	}
	if len(data) > len(B.data) {
		return fmt.Errorf("read of %d bytes from buffer %s of %d bytes", len(data), B.desc.Name, len(B.data))
	}
	copy(data, B.data)
	return nil
}

//Release frees the buffer. Releasing it again is recorded by the device as an error.
func (B *Buffer) Release() {
	B.dev.release(B)
}

//Bytes returns the contents of the buffer. Changes to the slice change the buffer.
func (B *Buffer) Bytes() []byte { return B.data }

//Counter returns the counter of an append buffer.
func (B *Buffer) Counter() uint32 { return B.counter }

//Append adds a record at the position of the counter and increases it. If the buffer is
//full the record is dropped and Append returns false.
func (B *Buffer) Append(record []byte) bool {
	if int(B.counter) >= B.desc.Count {
		return false
	}
	copy(B.data[int(B.counter)*B.desc.Stride:], record[:B.desc.Stride])
	B.counter++
	return true
}

//Device creates Buffers, and keeps track of them.
type Device struct {
	mu             sync.Mutex
	live           map[*Buffer]bool
	allocs         map[string]int
	doubleReleases int
	//MaxBytes, if positive, is the largest buffer the device can create.
	MaxBytes int
	//Refuse names buffers the device fails to create, as if it were out of memory.
	Refuse map[string]bool
}

//NewDevice returns an empty device.
func NewDevice() *Device {
	return &Device{live: make(map[*Buffer]bool), allocs: make(map[string]int)}
}

//NewBuffer creates a zero-filled buffer.
func (D *Device) NewBuffer(desc gpu.BufferDesc) (gpu.Buffer, error) {
	if desc.Count < 0 || desc.Stride <= 0 {
		return nil, fmt.Errorf("invalid buffer %s: %d records of %d bytes", desc.Name, desc.Count, desc.Stride)
	}
	if D.MaxBytes > 0 && desc.Size() > D.MaxBytes {
		return nil, fmt.Errorf("buffer %s of %d bytes exceeds the device limit of %d", desc.Name, desc.Size(), D.MaxBytes)
	}
	D.mu.Lock()
	defer D.mu.Unlock()
	if D.Refuse[desc.Name] {
		return nil, fmt.Errorf("buffer %s: out of device memory", desc.Name)
	}
	B := &Buffer{desc: desc, data: make([]byte, desc.Size()), dev: D}
	D.live[B] = true
	D.allocs[desc.Name]++
	return B, nil
}

func (D *Device) release(B *Buffer) {
	D.mu.Lock()
	defer D.mu.Unlock()
	if B.released {
		D.doubleReleases++
		return
	}
	B.released = true
	B.data = nil
	delete(D.live, B)
}

//Live returns the number of buffers created and not released.
func (D *Device) Live() int {
	D.mu.Lock()
	defer D.mu.Unlock()
	return len(D.live)
}

//Allocations returns how many buffers with the given name have been created.
func (D *Device) Allocations(name string) int {
	D.mu.Lock()
	defer D.mu.Unlock()
	return D.allocs[name]
}

//DoubleReleases returns how many times an already released buffer was released again.
func (D *Device) DoubleReleases() int {
	D.mu.Lock()
	defer D.mu.Unlock()
	return D.doubleReleases
}

//bytesOf returns the contents of b, reading them if b is not a soft Buffer.
func bytesOf(b gpu.Buffer) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	if sb, ok := b.(*Buffer); ok {
		if sb.released {
			return nil, fmt.Errorf("use of released buffer %s", sb.desc.Name)
		}
		return sb.data, nil
	}
	data := make([]byte, b.Desc().Size())
	err := b.Read(data)
	return data, err
}

func asBuffer(b gpu.Buffer) (*Buffer, error) {
	sb, ok := b.(*Buffer)
	if !ok || sb == nil {
		return nil, fmt.Errorf("%T is not a soft buffer", b)
	}
	if sb.released {
		return nil, fmt.Errorf("use of released buffer %s", sb.desc.Name)
	}
	return sb, nil
}

var le = binary.LittleEndian
