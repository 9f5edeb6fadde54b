/*
 * dcd.go, part of molview.
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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
)

const mAXTITLE int32 = 80

//DCDObj is a Charmm/NAMD binary trajectory file open for reading.
type DCDObj struct {
	natoms     int32
	nframes    int32 //as declared in the header
	readLast   bool  //Have we read the last frame?
	readable   bool  //Is it ready to be read?
	filename   string
	charmm     bool //Charmm traj?
	extrablock bool
	fourdim    bool
	fixed      int32 //Fixed atoms (not supported)
	fhandle    *os.File
	dcd        io.Reader //the, possibly decompressed, contents of fhandle
	closer     io.Closer
	dcdFields  [3][]float32
	endian     binary.ByteOrder
	log        zerolog.Logger
}

//Option configures a DCDObj
type Option func(*DCDObj)

//WithLogger sets the logger for the DCD reader.
func WithLogger(l zerolog.Logger) Option {
	return func(D *DCDObj) { D.log = l }
}

//New opens a DCD file for reading. Files ending in .gz or .zst are decompressed
//on the fly.
func New(filename string, opts ...Option) (*DCDObj, error) {
	D := &DCDObj{filename: filename, log: zerolog.Nop()}
	for _, o := range opts {
		o(D)
	}
	if err := D.initRead(); err != nil {
		D.Close()
		return nil, errDecorate(err, "New")
	}
	for i := range D.dcdFields {
		D.dcdFields[i] = make([]float32, int(D.natoms))
	}
	return D, nil
}

//Readable returns true if the object is ready to be read from
//false otherwise. It doesnt guarantee that there is something
//to read.
func (D *DCDObj) Readable() bool {
	return D.readable
}

//Len returns the number of atoms per frame.
func (D *DCDObj) Len() int {
	return int(D.natoms)
}

//NFrames returns the number of frames declared in the header. Some programs don't
//set it, so 0 doesn't mean that the file has no frames.
func (D *DCDObj) NFrames() int {
	return int(D.nframes)
}

//Close closes the file. It can be called more than once.
func (D *DCDObj) Close() {
	D.readable = false
	if D.closer != nil {
		D.closer.Close()
		D.closer = nil
	}
	if D.fhandle != nil {
		D.fhandle.Close()
		D.fhandle = nil
	}
}

//read reads binary data from the trajectory, with the file's endianness.
func (D *DCDObj) read(data any) error {
	return binary.Read(D.dcd, D.endian, data)
}

//expect reads an int32 and checks that it has the value want.
func (D *DCDObj) expect(want int32, caller string) error {
	var check int32
	if err := D.read(&check); err != nil {
		return newError(err.Error(), D.filename, true, caller)
	}
	if check != want {
		return newError(fmt.Sprintf("%s: expected %d, got %d", WrongFormat, want, check), D.filename, true, caller)
	}
	return nil
}

//initRead reads the header.
//It supports big and little endianness, charmm or (namd>=2.1) and no
//fixed atoms.
func (D *DCDObj) initRead() error {
	var err error
	D.fhandle, err = os.Open(D.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return molview.NewMissingFileError(D.filename, "dcd")
		}
		return newError(err.Error(), D.filename, true, "os.Open", "initRead")
	}
	D.dcd, D.closer, err = D.prepSource()
	if err != nil {
		return err
	}
	//The first block has 84 bytes. If we don't read an 84 the file is big endian.
	head := make([]byte, 4)
	if _, err := io.ReadFull(D.dcd, head); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	D.endian = binary.LittleEndian
	if binary.LittleEndian.Uint32(head) != 84 {
		D.endian = binary.BigEndian
		if binary.BigEndian.Uint32(head) != 84 {
			return newError(WrongFormat, D.filename, true, "initRead")
		}
	}
	//Then the magic number "CORD", also for some unknown reason.
	magic := make([]byte, 4)
	if err := D.read(magic); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	if string(magic) != "CORD" {
		return newError("Wrong magic number", D.filename, true, "initRead")
	}
	//The rest of the block is 20 int32 (one is actually a float32)
	buf := make([]byte, 80)
	if err := D.read(buf); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	field := func(i int) int32 { return int32(D.endian.Uint32(buf[4*i:])) }
	D.nframes = field(0)
	//X-plor sets this last int to zero, charmm sets it to its version number.
	if field(19) == 0 {
		return newError("X-plor DCD not supported", D.filename, true, "initRead")
	}
	D.charmm = true
	D.extrablock = field(10) != 0
	D.fourdim = field(11) == 1
	D.fixed = field(8)
	if err := D.expect(84, "initRead"); err != nil {
		return err
	}
	//title block
	var blocksize, ntitle int32
	if err := D.read(&blocksize); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	if err := D.read(&ntitle); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	if ntitle < 0 || ntitle > 1000 {
		return newError(fmt.Sprintf("%s: %d title lines", WrongFormat, ntitle), D.filename, true, "initRead")
	}
	title := make([]byte, mAXTITLE*ntitle)
	if err := D.read(title); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	if err := D.expect(blocksize, "initRead"); err != nil {
		return err
	}
	//one must read a 4 before and after the natoms
	if err := D.expect(4, "initRead"); err != nil {
		return err
	}
	if err := D.read(&D.natoms); err != nil {
		return newError(err.Error(), D.filename, true, "initRead")
	}
	if err := D.expect(4, "initRead"); err != nil {
		return err
	}
	if D.fixed != 0 {
		return newError("Fixed atoms not supported", D.filename, true, "initRead")
	}
	D.readable = true
	return nil
}

//Next reads the next frame into keep, or discards it if keep is nil.
//The box is not read. After the last frame, a molview.LastFrameError is returned.
func (D *DCDObj) Next(keep *v3.Matrix, box ...[]float64) error {
	if !D.readable {
		return newError(TrajUnIni, D.filename, true, "Next")
	}
	if err := D.nextRaw(); err != nil {
		if errors.Is(err, io.EOF) {
			D.Close()
			return molview.NewLastFrameError(D.filename, "dcd")
		}
		var e *Error
		if errors.As(err, &e) {
			return errDecorate(e, "Next")
		}
		return newError(err.Error(), D.filename, true, "Next")
	}
	if keep == nil {
		return nil
	}
	if keep.NVecs() != int(D.natoms) {
		return newError(NotEnoughSpace, D.filename, true, "Next")
	}
	d := keep.RawData()
	for i := 0; i < int(D.natoms); i++ {
		d[3*i] = float64(D.dcdFields[0][i])
		d[3*i+1] = float64(D.dcdFields[1][i])
		d[3*i+2] = float64(D.dcdFields[2][i])
	}
	return nil
}

//nextRaw reads the next frame into D.dcdFields. It returns io.EOF if the
//trajectory ended before the frame started.
func (D *DCDObj) nextRaw() error {
	if D.readLast {
		return io.EOF
	}
	var blocksize int32
	if err := D.read(&blocksize); err != nil {
		return err //an EOF here just means there are no more frames
	}
	//Sadly, even when there is an extra (unit cell) block, it is not present in all
	//snapshots for some trajectories, so we must use the block size to see if
	//there is an extra block or if the X block starts inmediately
	if D.extrablock && blocksize != D.natoms*4 {
		if _, err := D.readByteBlock(blocksize); err != nil {
			return err
		}
		if err := D.read(&blocksize); err != nil {
			return unexpected(err)
		}
	}
	for i := range D.dcdFields {
		if i > 0 {
			if err := D.read(&blocksize); err != nil {
				return unexpected(err)
			}
		}
		if err := D.readFloat32Block(blocksize, D.dcdFields[i]); err != nil {
			return err
		}
	}
	//we skip the 4-D values if they exist. Apparently this is not present in the
	//last snapshot, so an EOF here signals that we have read the last snapshot.
	if D.fourdim {
		if err := D.read(&blocksize); err != nil {
			if errors.Is(err, io.EOF) {
				D.readLast = true
				return nil
			}
			return err
		}
		if _, err := D.readByteBlock(blocksize); err != nil {
			return err
		}
	}
	return nil
}

//an EOF in the middle of a frame is not the normal end of the trajectory
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

//Reads the contents of a block of the given size into block, which must have the
//appropiate size, and checks the block size at the end.
func (D *DCDObj) readFloat32Block(blocksize int32, block []float32) error {
	if blocksize != int32(len(block))*4 {
		return newError(NotEnoughSpace, D.filename, true, "readFloat32Block")
	}
	if err := D.read(block); err != nil {
		return unexpected(err)
	}
	return unexpected(D.expect(blocksize, "readFloat32Block"))
}

//reads a block of blocksize bytes, and checks the size at the end.
func (D *DCDObj) readByteBlock(blocksize int32) ([]byte, error) {
	if blocksize < 0 {
		return nil, newError(WrongFormat, D.filename, true, "readByteBlock")
	}
	block := make([]byte, blocksize)
	if _, err := io.ReadFull(D.dcd, block); err != nil {
		return nil, unexpected(err)
	}
	if err := D.expect(blocksize, "readByteBlock"); err != nil {
		return nil, err
	}
	return block, nil
}

//ReadAll reads all the remaining frames, calling f with each of them, in a newly allocated matrix.
//It returns the number of frames read. Reading stops at the first error, from the file or from f.
func (D *DCDObj) ReadAll(f func(*v3.Matrix) error) (int, error) {
	n := 0
	for {
		coords := v3.Zeros(D.Len())
		err := D.Next(coords)
		if err != nil {
			var last molview.LastFrameError
			if errors.As(err, &last) {
				return n, nil
			}
			return n, err
		}
		if err := f(coords); err != nil {
			return n, err
		}
		n++
	}
}
