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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*Package molview provides the shared types of a streaming viewer for molecular dynamics
trajectories: the atom and tunnel-sphere records read from binary trajectory files, the
error taxonomy used by all the subpackages, the interfaces for frame readers, the
atom-type (radius/color) lookup tables, and a reader for PDB files used to register
molecule types.

The actual work is done in the subpackages:

	traj/rawtraj  random-access binary trajectories (atoms + tunnel spheres)
	traj/dcd      CHARMM/NAMD DCD reader, used to convert trajectories
	playback      frame cursor state machine
	smooth        exponential temporal smoothing of positions
	depthsort     view-dependent ordering of entities
	gpu           GPU resource manager
	impostor      multi-pass impostor render pipeline
	gpu/soft      CPU implementation of the GPU contracts
	gpu/glgpu     OpenGL 4.3 implementation of the GPU contracts
	viewer        ties everything together, one simulation and one render tick per frame
	config        settings from defaults, files, the environment and flags
	trajplot      per-frame statistics and their plots

*/
package molview
