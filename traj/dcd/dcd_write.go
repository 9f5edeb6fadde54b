/*
 * dcd_write.go, part of molview.
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

package dcd

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	v3 "github.com/rmera/molview/v3"
)

//DCDWObj is a Charmm/NAMD binary trajectory file
//opened for writing
type DCDWObj struct {
	natoms    int32
	writable  bool //Is it ready to be written on
	filename  string
	frames    int32
	dcd       *os.File
	buf       *bufio.Writer
	dcdFields [3][]float32
	endian    binary.ByteOrder
}

//NewWriter initializes a DCD trajectory for writing, with natoms atoms per frame.
func NewWriter(filename string, natoms int) (*DCDWObj, error) {
	D := &DCDWObj{natoms: int32(natoms), filename: filename, endian: binary.LittleEndian}
	if natoms <= 0 {
		return nil, newError("the number of atoms must be positive", filename, true, "NewWriter")
	}
	if err := D.initWrite(); err != nil {
		return nil, errDecorate(err, "NewWriter")
	}
	for i := range D.dcdFields {
		D.dcdFields[i] = make([]float32, natoms)
	}
	return D, nil
}

//Len returns the number of atoms per frame
func (D *DCDWObj) Len() int { return int(D.natoms) }

//Close writes the number of frames to the header and closes the file.
func (D *DCDWObj) Close() error {
	if !D.writable {
		return nil
	}
	D.writable = false
	err := D.updateFrames()
	if err2 := D.dcd.Close(); err == nil {
		err = err2
	}
	return err
}

func (D *DCDWObj) write(data any) error {
	if err := binary.Write(D.buf, D.endian, data); err != nil {
		return newError(err.Error(), D.filename, true, "binary.Write")
	}
	return nil
}

//writes all of data, stopping at the first error
func (D *DCDWObj) writeAll(data ...any) error {
	for _, v := range data {
		if err := D.write(v); err != nil {
			return err
		}
	}
	return nil
}

//initWrite writes a little-endian CHARMM header.
func (D *DCDWObj) initWrite() error {
	var err error
	D.dcd, err = os.Create(D.filename)
	if err != nil {
		return newError(err.Error(), D.filename, true, "os.Create", "initWrite")
	}
	D.buf = bufio.NewWriter(D.dcd)
	var header [20]int32
	header[2] = 1   //step interval (nsavc)
	header[19] = 24 //charmm version, let's say, 24
	title := make([]byte, 2*mAXTITLE)
	for j := range title {
		title[j] = 'l'
	}
	title[len(title)-1] = 0 //null-ended
	//the frame count (header[0]) is updated on Close. Delta time goes in header[9].
	err = D.writeAll(int32(84), []byte("CORD"), header[:9], float32(1), header[10:], int32(84),
		int32(4+len(title)), int32(2), title, int32(4+len(title)),
		int32(4), D.natoms, int32(4))
	if err != nil {
		D.dcd.Close()
		return errDecorate(err, "initWrite")
	}
	D.writable = true
	return nil
}

//WNext writes the next frame to the trajectory.
//the box isn't actually used, so far. It's only there for compatibility.
func (D *DCDWObj) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !D.writable {
		return newError(TrajUnIni, D.filename, true, "WNext")
	}
	if towrite == nil || int32(towrite.NVecs()) != D.natoms {
		return newError("Coordinates don't match the trajectory size", D.filename, true, "WNext")
	}
	d := towrite.RawData()
	for i := 0; i < int(D.natoms); i++ {
		for j := range D.dcdFields {
			D.dcdFields[j][i] = float32(d[3*i+j])
		}
	}
	blocksize := D.natoms * 4
	for _, block := range D.dcdFields {
		if err := D.writeAll(blocksize, block, blocksize); err != nil {
			return errDecorate(err, "WNext")
		}
	}
	D.frames++
	return nil
}

//DCD requires the number of frames at the begining.
func (D *DCDWObj) updateFrames() error {
	if err := D.buf.Flush(); err != nil {
		return newError(err.Error(), D.filename, true, "Flush", "updateFrames")
	}
	if _, err := D.dcd.Seek(8, io.SeekStart); err != nil {
		return newError(err.Error(), D.filename, true, "Seek", "updateFrames")
	}
	if err := binary.Write(D.dcd, D.endian, D.frames); err != nil {
		return newError(err.Error(), D.filename, true, "binary.Write", "updateFrames")
	}
	return nil
}
