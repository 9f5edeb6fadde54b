/*
 * convert.go, part of molview.
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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rmera/molview"
	"github.com/rmera/molview/traj/dcd"
	"github.com/rmera/molview/traj/rawtraj"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
)

//Output are the names of the three files of a raw trajectory.
type Output struct {
	Atoms, Index, Tunnels string
}

//atomTypes returns the type of each atom of the PDB file, as an index in table.
//Symbols not in the table get the type -1.
func atomTypes(pdb string, table *molview.TypeTable, log zerolog.Logger) ([]int, error) {
	T, err := molview.ReadPDBTemplate(pdb)
	if T == nil {
		return nil, err
	}
	types := make([]int, T.Len())
	unknown := 0
	for i, s := range T.Symbols {
		types[i], err = table.Type(s)
		if err != nil {
			unknown++
		}
	}
	if unknown > 0 {
		log.Warn().Str("file", pdb).Int("count", unknown).Msg("atoms of unknown type")
	}
	return types, nil
}

//readTunnels reads tunnel spheres from a text file with one sphere per line:
//frame tunnelId x y z radius. Empty lines and lines starting with # are skipped.
func readTunnels(name string) (map[int][]molview.TunnelSphere, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, molview.NewMissingFileError(name, "tunnels")
		}
		return nil, err
	}
	defer f.Close()
	ret := make(map[int][]molview.TunnelSphere)
	s := bufio.NewScanner(f)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 6 {
			return nil, fmt.Errorf("%s:%d: %d fields, expected 6", name, line, len(fields))
		}
		var vals [6]float64
		for i, v := range fields {
			if vals[i], err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, line, err)
			}
		}
		frame := int(vals[0])
		ret[frame] = append(ret[frame], molview.TunnelSphere{
			TunnelID: int(vals[1]),
			Position: [3]float64{vals[2], vals[3], vals[4]},
			Radius:   vals[5],
		})
	}
	return ret, s.Err()
}

//convert writes the frames of the DCD file, with the atom types of the PDB file and the
//spheres of the tunnel file (which can be empty), into out. It returns the frames written.
func convert(dcdName, pdbName, tunnelName string, out Output, log zerolog.Logger) (int, error) {
	table := molview.NewTypeTable()
	types, err := atomTypes(pdbName, table, log)
	if err != nil {
		return 0, err
	}
	tunnels := map[int][]molview.TunnelSphere{}
	if tunnelName != "" {
		if tunnels, err = readTunnels(tunnelName); err != nil {
			return 0, err
		}
	}
	traj, err := dcd.New(dcdName, dcd.WithLogger(log))
	if err != nil {
		return 0, err
	}
	defer traj.Close()
	if traj.Len() != len(types) {
		return 0, fmt.Errorf("%s has %d atoms, %s has %d", dcdName, traj.Len(), pdbName, len(types))
	}
	W, err := rawtraj.NewWriter(out.Atoms, out.Index, out.Tunnels)
	if err != nil {
		return 0, err
	}
	coords := v3.Zeros(traj.Len())
	frames := 0
	for {
		err := traj.Next(coords)
		if err != nil {
			var last molview.LastFrameError
			if errors.As(err, &last) {
				break
			}
			W.Close()
			return frames, err
		}
		if err := W.WNext(coords, types, tunnels[frames]); err != nil {
			W.Close()
			return frames, err
		}
		frames++
	}
	for f := range tunnels {
		if f < 0 || f >= frames {
			log.Warn().Int("frame", f).Msg("tunnel spheres for a frame not in the trajectory ignored")
		}
	}
	return frames, W.Close()
}
