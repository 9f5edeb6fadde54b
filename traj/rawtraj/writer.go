/*
 * writer.go, part of molview.
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

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
)

//Writer writes raw trajectories. Files whose names end in .zst are
//compressed with zstd, and those ending in .gz, with gzip.
type Writer struct {
	atoms     *sink
	tunnels   *sink
	indexName string
	sizes     []int32
	natoms    int //-1 until the first frame is written
	buf       []byte
	writeable bool
}

//NewWriter creates the three files of a trajectory and returns a Writer for them.
//The index file is written when the Writer is closed.
func NewWriter(atoms, index, tunnels string) (*Writer, error) {
	W := &Writer{indexName: index, natoms: -1}
	var err error
	if W.atoms, err = createSink(atoms); err != nil {
		return nil, err
	}
	if W.tunnels, err = createSink(tunnels); err != nil {
		W.atoms.Close()
		return nil, err
	}
	W.writeable = true
	return W, nil
}

//Len returns the number of atoms per frame, or -1 if no frame has been written.
func (W *Writer) Len() int { return W.natoms }

//WNext writes a frame with the atoms in coords, of the given types, and the given tunnel spheres,
//in order. All frames must have the same number of atoms.
func (W *Writer) WNext(coords *v3.Matrix, types []int, spheres []molview.TunnelSphere) error {
	if !W.writeable {
		return fmt.Errorf("WNext: writer is closed")
	}
	n := coords.NVecs()
	if len(types) != n {
		return fmt.Errorf("WNext: %d types for %d atoms", len(types), n)
	}
	if W.natoms < 0 {
		W.natoms = n
	} else if n != W.natoms {
		return fmt.Errorf("WNext: %d atoms given, but the trajectory has %d", n, W.natoms)
	}
	d := coords.RawData()
	W.buf = W.buf[:0]
	for i := 0; i < n; i++ {
		W.buf = putf32(W.buf, float64(i), d[3*i], d[3*i+1], d[3*i+2], float64(types[i]))
	}
	if _, err := W.atoms.Write(W.buf); err != nil {
		return err
	}
	W.buf = W.buf[:0]
	for _, s := range spheres {
		W.buf = putf32(W.buf, s.Position[0], s.Position[1], s.Position[2], s.Radius, float64(s.TunnelID))
	}
	if _, err := W.tunnels.Write(W.buf); err != nil {
		return err
	}
	W.sizes = append(W.sizes, int32(len(W.buf)))
	return nil
}

//WriteFrame writes a frame with the given atoms and tunnel spheres.
func (W *Writer) WriteFrame(atoms []molview.AtomRecord, spheres []molview.TunnelSphere) error {
	coords := v3.Zeros(len(atoms))
	types := make([]int, len(atoms))
	for i, a := range atoms {
		coords.SetVec(i, a.Position)
		types[i] = a.Type
	}
	return W.WNext(coords, types, spheres)
}

//Close flushes the data files and writes the index. It can be called more than once.
func (W *Writer) Close() error {
	if !W.writeable {
		return nil
	}
	W.writeable = false
	err := W.atoms.Close()
	if err2 := W.tunnels.Close(); err == nil {
		err = err2
	}
	idx, err2 := createSink(W.indexName)
	if err2 != nil {
		if err == nil {
			err = err2
		}
		return err
	}
	if err2 = writeIndex(idx, W.sizes); err == nil {
		err = err2
	}
	if err2 = idx.Close(); err == nil {
		err = err2
	}
	return err
}

func putf32(b []byte, vals ...float64) []byte {
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	return b
}
