/*
 * doc.go, part of molview.
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

/*Package rawtraj reads and writes the raw binary trajectories used by the viewer.

A trajectory is made of three files. The atom file holds, for each frame,
atomCount records of 5 little-endian float32 [id, x, y, z, atomType], with frames
concatenated without padding. The tunnel index file is an array of little-endian int32,
one per frame, with the size in bytes of that frame's block in the tunnel data file,
which holds records of 5 float32 [x, y, z, radius, tunnelId]. Frames can have no
tunnel spheres, in which case their size is 0.

Atom and tunnel files can be compressed with zstd (.zst) or gzip (.gz). Compressed
files are decompressed into memory when opened, so frames can still be read in any order.
*/
package rawtraj
