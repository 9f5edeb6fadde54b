/*
 * main.go, part of molview.
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

//Command mdconvert turns a DCD trajectory, with the atom types taken from a PDB file,
//into the raw trajectory files read by molview. Tunnel spheres can be given in a text
//file, one per line: frame tunnelId x y z radius.
//Output names ending in .zst or .gz are compressed.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("mdconvert", pflag.ContinueOnError)
	pdb := fs.String("pdb", "", "PDB file with the atoms of the trajectory (required)")
	tunnels := fs.String("tunnels", "", "text file with the tunnel spheres")
	atoms := fs.String("atoms", "atoms.bin", "output atom file")
	index := fs.String("index", "tunnels.idx", "output tunnel index file")
	spheres := fs.String("spheres", "tunnels.bin", "output tunnel sphere file")
	verbose := fs.BoolP("verbose", "v", false, "debug output")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	lvl := zerolog.InfoLevel
	if *verbose {
		lvl = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()
	if fs.NArg() != 1 || *pdb == "" {
		fmt.Fprintln(os.Stderr, "usage: mdconvert --pdb molecule.pdb [flags] trajectory.dcd")
		fs.PrintDefaults()
		os.Exit(2)
	}
	n, err := convert(fs.Arg(0), *pdb, *tunnels, Output{Atoms: *atoms, Index: *index, Tunnels: *spheres}, log)
	if err != nil {
		log.Error().Err(err).Int("frames", n).Msg("conversion failed")
		os.Exit(1)
	}
	log.Info().Int("frames", n).Str("atoms", *atoms).Msg("trajectory written")
}
