/*
 * interfaces.go, part of molview.
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

package molview

import v3 "github.com/rmera/molview/v3"

//Traj is a trajectory read one frame after the other, as by the converter and the statistics tools.
type Traj interface {
	//Readable is false once the trajectory has been closed or fully read.
	Readable() bool

	//Next puts the next frame in output. A nil output skips the frame.
	Next(output *v3.Matrix, box ...[]float64) error

	//Len returns the number of atoms in each frame.
	Len() int
}

//FrameSource gives random access to the frames of a trajectory.
type FrameSource interface {
	//NFrames returns the number of frames in the trajectory.
	NFrames() int

	//Len returns the number of atoms per frame.
	Len() int

	//LoadAtomFrameInto puts the positions and types of the atoms in frame i in coords and types,
	//which must have room for Len() atoms.
	LoadAtomFrameInto(i int, coords *v3.Matrix, types []int) error

	//LoadTunnelFrame returns the tunnel spheres of frame i. Frames without spheres
	//give an empty, non-nil, map.
	LoadTunnelFrame(i int) (Tunnels, error)
}

//Error is implemented by all the errors of molview. Decorate adds the name of a caller to the
//error, keeping its type, and returns all the names added so far. An empty string just
//returns them.
type Error interface {
	Error() string
	Decorate(string) []string
	Critical() bool
}

//TrajError is an error tied to a trajectory file.
type TrajError interface {
	Error
	FileName() string
	Format() string
}

//LastFrameError marks the end of a sequential read. It is not a failure, readers
//return it after the last frame so callers can tell it apart with errors.As.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination()
}
