/*
 * records.go, part of molview.
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

//AtomStride is the size in bytes of one atom record in an atom trajectory file:
//5 float32, [id, x, y, z, atomType].
const AtomStride = 5 * 4

//SphereStride is the size in bytes of one tunnel sphere record in a tunnel data file:
//5 float32, [x, y, z, radius, tunnelId].
const SphereStride = 5 * 4

//AtomRecord is one atom of one frame.
type AtomRecord struct {
	Type     int
	Position [3]float64
}

//TunnelSphere is one sphere of a tunnel in one frame.
type TunnelSphere struct {
	TunnelID int
	Position [3]float64
	Radius   float64
}

//Tunnels maps a tunnel ID to the spheres of that tunnel, in the order
//they appear in the frame.
type Tunnels map[int][]TunnelSphere

//Len returns the total number of spheres in all tunnels.
func (T Tunnels) Len() int {
	n := 0
	for _, v := range T {
		n += len(v)
	}
	return n
}
