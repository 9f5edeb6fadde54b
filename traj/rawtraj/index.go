/*
 * index.go, part of molview.
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

package rawtraj

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rmera/molview"
)

//FrameIndex has the byte offset and size of the block of each frame in a file
//with frames of variable size.
type FrameIndex struct {
	Offsets []int64
	Sizes   []int64
}

//BuildIndex computes the offset of each frame from the sizes of all of them.
//The first frame starts at 0, and each other one right after its predecessor.
//Negative sizes give a critical CorruptFrameError.
func BuildIndex(sizes []int32) (FrameIndex, error) {
	F := FrameIndex{Offsets: make([]int64, len(sizes)), Sizes: make([]int64, len(sizes))}
	var offset int64
	for i, s := range sizes {
		if s < 0 {
			return FrameIndex{}, molview.NewCorruptFrameError("", i, fmt.Sprintf("negative frame size %d", s)).SetCritical()
		}
		F.Offsets[i] = offset
		F.Sizes[i] = int64(s)
		offset += int64(s)
	}
	return F, nil
}

//Len returns the number of frames in the index.
func (F FrameIndex) Len() int { return len(F.Sizes) }

//Total returns the number of bytes spanned by all the frames.
func (F FrameIndex) Total() int64 {
	n := len(F.Sizes)
	if n == 0 {
		return 0
	}
	return F.Offsets[n-1] + F.Sizes[n-1]
}

//Block returns the offset and size of frame i. ok is false if i is out of range.
func (F FrameIndex) Block(i int) (offset, size int64, ok bool) {
	if i < 0 || i >= len(F.Sizes) {
		return 0, 0, false
	}
	return F.Offsets[i], F.Sizes[i], true
}

//ReadIndexFile reads a tunnel index file, and returns the size of each frame.
func ReadIndexFile(name string) ([]int32, error) {
	src, err := openSource(name, "tunnel index")
	if err != nil {
		return nil, molview.ErrDecorate(err, "ReadIndexFile")
	}
	defer src.Close()
	return readIndex(src, name)
}

func readIndex(src *source, name string) ([]int32, error) {
	if src.size%4 != 0 {
		return nil, molview.NewStrideError(name, -1, src.size, 4).SetCritical()
	}
	sizes := make([]int32, src.size/4)
	r := io.NewSectionReader(src, 0, src.size)
	if err := binary.Read(r, binary.LittleEndian, sizes); err != nil {
		return nil, fmt.Errorf("ReadIndexFile: %s: %w", name, err)
	}
	return sizes, nil
}

//writeIndex writes sizes, as little-endian int32, to w.
func writeIndex(w io.Writer, sizes []int32) error {
	return binary.Write(w, binary.LittleEndian, sizes)
}
