/*
 * trajectory.go, part of molview.
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
	"math"
	"os"
	"sync"

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
)

//Trajectory gives random access to the frames of a raw trajectory.
//It is safe to load frames from several goroutines.
type Trajectory struct {
	atomsName   string
	tunnelsName string
	atoms       *source
	tunnels     *source
	index       FrameIndex
	natoms      int
	next        int //next frame for sequential reading
	readable    bool
	mu          sync.Mutex
	buf         []byte //for atom frames
	log         zerolog.Logger
}

//Option configures a Trajectory
type Option func(*Trajectory)

//WithLogger sets the logger for the trajectory. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(T *Trajectory) { T.log = l }
}

//Open opens the trajectory formed by the atom file, the tunnel index file and the tunnel data file.
//All three files must exist, otherwise a MissingFileError is returned. The number
//of frames is the number of entries in the index, and the number of atoms per frame is
//derived from the size of the atom file, which needs to be a multiple of nframes*AtomStride.
//Also, the tunnel data file must be at least as large as the sum of the sizes in the index.
//Violations give critical CorruptFrameErrors.
func Open(atoms, index, tunnels string, opts ...Option) (*Trajectory, error) {
	T := &Trajectory{atomsName: atoms, tunnelsName: tunnels, log: zerolog.Nop()}
	for _, o := range opts {
		o(T)
	}
	for _, f := range [][2]string{{atoms, "atoms"}, {index, "tunnel index"}, {tunnels, "tunnel data"}} {
		if _, err := os.Stat(f[0]); os.IsNotExist(err) {
			return nil, molview.ErrDecorate(molview.NewMissingFileError(f[0], f[1]), "Open")
		}
	}
	idx, err := openSource(index, "tunnel index")
	if err != nil {
		return nil, molview.ErrDecorate(err, "Open")
	}
	sizes, err := readIndex(idx, index)
	idx.Close()
	if err != nil {
		return nil, molview.ErrDecorate(err, "Open")
	}
	T.index, err = BuildIndex(sizes)
	if err != nil {
		c := err.(*molview.CorruptFrameError)
		c.File = index
		return nil, molview.ErrDecorate(c, "Open")
	}
	nframes := T.index.Len()
	if nframes == 0 {
		return nil, molview.NewCorruptFrameError(index, -1, "the index has no frames").SetCritical()
	}
	T.atoms, err = openSource(atoms, "atoms")
	if err != nil {
		return nil, molview.ErrDecorate(err, "Open")
	}
	T.tunnels, err = openSource(tunnels, "tunnel data")
	if err != nil {
		T.atoms.Close()
		return nil, molview.ErrDecorate(err, "Open")
	}
	framebytes := int64(nframes) * molview.AtomStride
	if T.atoms.size%framebytes != 0 {
		T.Close()
		return nil, molview.NewCorruptFrameError(atoms, -1,
			fmt.Sprintf("%d bytes can't be divided in %d frames of %d-byte records", T.atoms.size, nframes, molview.AtomStride)).SetCritical()
	}
	T.natoms = int(T.atoms.size / framebytes)
	if total := T.index.Total(); T.tunnels.size < total {
		T.Close()
		return nil, molview.NewCorruptFrameError(tunnels, -1,
			fmt.Sprintf("the index requires %d bytes, but the file has %d", total, T.tunnels.size)).SetCritical()
	}
	T.buf = make([]byte, T.natoms*molview.AtomStride)
	T.readable = true
	T.log.Info().Str("file", atoms).Int("frames", nframes).Int("atoms", T.natoms).Msg("trajectory opened")
	return T, nil
}

//Readable returns true if there are frames left to read sequentially.
func (T *Trajectory) Readable() bool {
	return T.readable && T.next < T.index.Len()
}

//Len returns the number of atoms per frame.
func (T *Trajectory) Len() int { return T.natoms }

//NFrames returns the number of frames in the trajectory.
func (T *Trajectory) NFrames() int { return T.index.Len() }

//Index returns the tunnel frame index.
func (T *Trajectory) Index() FrameIndex { return T.index }

//MaxTunnelSpheres returns the largest number of tunnel spheres in a frame.
func (T *Trajectory) MaxTunnelSpheres() int {
	var m int64
	for _, v := range T.index.Sizes {
		m = max(m, v)
	}
	return int(m / molview.SphereStride)
}

//Close closes the files of the trajectory. It can be called more than once.
func (T *Trajectory) Close() error {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.readable = false
	var err error
	if T.atoms != nil {
		err = T.atoms.Close()
	}
	if T.tunnels != nil {
		if err2 := T.tunnels.Close(); err == nil {
			err = err2
		}
	}
	return err
}

func (T *Trajectory) checkFrame(i int, file string) error {
	if !T.readable {
		return molview.NewCorruptFrameError(file, i, "the trajectory is closed")
	}
	if i < 0 || i >= T.index.Len() {
		return molview.NewCorruptFrameError(file, i, fmt.Sprintf("frame out of range [0,%d)", T.index.Len()))
	}
	return nil
}

//LoadAtomFrame returns the atoms of frame i.
func (T *Trajectory) LoadAtomFrame(i int) ([]molview.AtomRecord, error) {
	ret := make([]molview.AtomRecord, T.natoms)
	err := T.loadAtoms(i, func(j int, p [3]float64, t int) {
		ret[j] = molview.AtomRecord{Type: t, Position: p}
	})
	if err != nil {
		return nil, molview.ErrDecorate(err, "LoadAtomFrame")
	}
	return ret, nil
}

//LoadAtomFrameInto puts the positions of the atoms of frame i in coords, and their types in types.
//coords must have Len() vectors, and types, Len() elements.
func (T *Trajectory) LoadAtomFrameInto(i int, coords *v3.Matrix, types []int) error {
	if coords.NVecs() != T.natoms || len(types) != T.natoms {
		return fmt.Errorf("LoadAtomFrameInto: room for %d atoms/%d types given, %d needed", coords.NVecs(), len(types), T.natoms)
	}
	d := coords.RawData()
	err := T.loadAtoms(i, func(j int, p [3]float64, t int) {
		d[3*j], d[3*j+1], d[3*j+2] = p[0], p[1], p[2]
		types[j] = t
	})
	return molview.ErrDecorate(err, "LoadAtomFrameInto")
}

func (T *Trajectory) loadAtoms(i int, put func(j int, p [3]float64, t int)) error {
	T.mu.Lock()
	defer T.mu.Unlock()
	if err := T.checkFrame(i, T.atomsName); err != nil {
		return err
	}
	framesize := int64(T.natoms * molview.AtomStride)
	if _, err := T.atoms.ReadAt(T.buf, int64(i)*framesize); err != nil {
		return molview.NewCorruptFrameError(T.atomsName, i, err.Error())
	}
	for j := 0; j < T.natoms; j++ {
		r := T.buf[j*molview.AtomStride:]
		p := [3]float64{f32(r[4:]), f32(r[8:]), f32(r[12:])}
		put(j, p, int(f32(r[16:])))
	}
	return nil
}

//LoadTunnelFrame returns the tunnel spheres of frame i, grouped by tunnel ID.
//A frame with no spheres gives an empty map.
func (T *Trajectory) LoadTunnelFrame(i int) (molview.Tunnels, error) {
	T.mu.Lock()
	defer T.mu.Unlock()
	if err := T.checkFrame(i, T.tunnelsName); err != nil {
		return nil, molview.ErrDecorate(err, "LoadTunnelFrame")
	}
	offset, size, _ := T.index.Block(i)
	ret := make(molview.Tunnels)
	if size == 0 {
		return ret, nil
	}
	if size%molview.SphereStride != 0 {
		return nil, molview.ErrDecorate(molview.NewStrideError(T.tunnelsName, i, size, molview.SphereStride), "LoadTunnelFrame")
	}
	buf := make([]byte, size)
	if _, err := T.tunnels.ReadAt(buf, offset); err != nil {
		return nil, molview.ErrDecorate(molview.NewCorruptFrameError(T.tunnelsName, i, err.Error()), "LoadTunnelFrame")
	}
	for j := int64(0); j < size; j += molview.SphereStride {
		r := buf[j:]
		s := molview.TunnelSphere{
			Position: [3]float64{f32(r), f32(r[4:]), f32(r[8:])},
			Radius:   f32(r[12:]),
			TunnelID: int(f32(r[16:])),
		}
		ret[s.TunnelID] = append(ret[s.TunnelID], s)
	}
	return ret, nil
}

//Next reads the next frame into output, or skips it if output is nil.
//Box information is not present in raw trajectories, the box argument is ignored.
//After the last frame, a LastFrameError is returned.
func (T *Trajectory) Next(output *v3.Matrix, box ...[]float64) error {
	if T.next >= T.index.Len() {
		return molview.NewLastFrameError(T.atomsName, "raw")
	}
	i := T.next
	T.next++
	if output == nil {
		return nil
	}
	if output.NVecs() != T.natoms {
		return fmt.Errorf("Next: output has %d vectors, %d needed", output.NVecs(), T.natoms)
	}
	d := output.RawData()
	err := T.loadAtoms(i, func(j int, p [3]float64, _ int) {
		d[3*j], d[3*j+1], d[3*j+2] = p[0], p[1], p[2]
	})
	return molview.ErrDecorate(err, "Next")
}

//Rewind sets the sequential reading back to the first frame.
func (T *Trajectory) Rewind() { T.next = 0 }

func f32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
