/*
 * files.go, part of molview.
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

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	v3 "github.com/rmera/molview/v3"
)

//Template is the geometry of a molecule type, centered on its bounding box center,
//as registered in the GPU type tables.
type Template struct {
	Name    string
	Coords  *v3.Matrix
	Symbols []string
	Radii   []float64
	Center  [3]float64 //the bounding box center that was subtracted from the original coordinates
}

//Len returns the number of atoms in the template.
func (T *Template) Len() int { return T.Coords.NVecs() }

//Vec4s returns, for each atom, its x, y, z coordinates and radius.
func (T *Template) Vec4s() [][4]float32 {
	ret := make([][4]float32, T.Len())
	for i := range ret {
		v := T.Coords.Vec(i)
		ret[i] = [4]float32{float32(v[0]), float32(v[1]), float32(v[2]), float32(T.Radii[i])}
	}
	return ret
}

//CenterOnBox translates coords so the center of their axis-aligned bounding box
//ends up at the origin. It returns the original center.
func CenterOnBox(coords *v3.Matrix) [3]float64 {
	var center [3]float64
	n := coords.NVecs()
	if n == 0 {
		return center
	}
	min := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < n; i++ {
		v := coords.Vec(i)
		for j := 0; j < 3; j++ {
			min[j] = math.Min(min[j], v[j])
			max[j] = math.Max(max[j], v[j])
		}
	}
	for j := 0; j < 3; j++ {
		center[j] = min[j] + (max[j]-min[j])*0.5
	}
	for i := 0; i < n; i++ {
		v := coords.Vec(i)
		coords.SetVec(i, [3]float64{v[0] - center[0], v[1] - center[1], v[2] - center[2]})
	}
	return center
}

//TemplateFromFrame builds a centered template from a copy of the coordinates and the atom types of a frame.
//Types not in table get the default radius. The first UnknownTypeWarning found, if any, is returned
//together with the template.
func TemplateFromFrame(name string, coords *v3.Matrix, types []int, table *TypeTable) (*Template, error) {
	n := coords.NVecs()
	if len(types) != n {
		return nil, fmt.Errorf("%d types given for %d atoms", len(types), n)
	}
	T := &Template{Name: name, Coords: v3.Zeros(n), Symbols: make([]string, n), Radii: make([]float64, n)}
	if n > 0 {
		T.Coords.CopyFrom(coords)
	}
	var warn error
	for i, t := range types {
		s, _ := table.Symbol(t)
		T.Symbols[i] = s
		r, err := table.Radius(t)
		if err != nil && warn == nil {
			warn = err
		}
		T.Radii[i] = r
	}
	T.Center = CenterOnBox(T.Coords)
	return T, warn
}

//ReadPDBTemplate reads the ATOM and HETATM entries of a PDB file into a template,
//centered on the bounding box center of the molecule and named after the file.
//The element symbol is taken from the columns 77-78 if present, and guessed from
//the atom name otherwise. Atoms with unknown symbols get the default radius,
//the first UnknownTypeWarning found is returned together with the template.
func ReadPDBTemplate(pdbname string) (*Template, error) {
	pdbfile, err := os.Open(pdbname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewMissingFileError(pdbname, "pdb")
		}
		return nil, err
	}
	defer pdbfile.Close()
	coords := make([]float64, 0, 300)
	symbols := make([]string, 0, 100)
	radii := make([]float64, 0, 100)
	var warn error
	pdb := bufio.NewScanner(pdbfile)
	contlines := 0
	for pdb.Scan() {
		line := pdb.Text()
		contlines++
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		c, symbol, err := readPDBAtomLine(line)
		if err != nil {
			return nil, fmt.Errorf("ReadPDBTemplate: %s line %d: %w", pdbname, contlines, err)
		}
		r, err := SymbolRadius(symbol)
		if err != nil && warn == nil {
			warn = ErrDecorate(err, "ReadPDBTemplate")
		}
		coords = append(coords, c[:]...)
		symbols = append(symbols, symbol)
		radii = append(radii, r)
	}
	if err := pdb.Err(); err != nil {
		return nil, fmt.Errorf("ReadPDBTemplate: %s: %w", pdbname, err)
	}
	name := strings.TrimSuffix(pdbname[strings.LastIndex(pdbname, "/")+1:], ".pdb")
	T := &Template{Name: name, Symbols: symbols, Radii: radii, Coords: v3.Zeros(0)}
	if len(coords) > 0 {
		T.Coords, err = v3.NewMatrix(coords)
		if err != nil {
			return nil, err
		}
	}
	T.Center = CenterOnBox(T.Coords)
	return T, warn
}

//Parses the coordinates and element of a ATOM or HETATM line of a PDB file.
func readPDBAtomLine(line string) ([3]float64, string, error) {
	var coords [3]float64
	if len(line) < 54 {
		return coords, "", fmt.Errorf("line too short for coordinates: %d characters", len(line))
	}
	var err error
	for i := 0; i < 3; i++ {
		coords[i], err = strconv.ParseFloat(strings.TrimSpace(line[30+8*i:38+8*i]), 64)
		if err != nil {
			return coords, "", err
		}
	}
	symbol := ""
	if len(line) >= 78 {
		symbol = strings.TrimSpace(line[76:78])
	}
	if symbol == "" {
		//no error checking, unknown names just end with the empty symbol,
		//which gets default values.
		name := ""
		if len(line) >= 16 {
			name = strings.TrimSpace(line[12:16])
		}
		symbol, _ = symbolFromName(name)
	}
	return coords, symbol, nil
}

//Guesses the element symbol from a PDB atom name.
func symbolFromName(name string) (string, error) {
	symbol := ""
	if name == "" {
		return symbol, fmt.Errorf("Couldn't guess symbol from empty PDB name")
	}
	up := strings.ToUpper(name)
	switch {
	case len(up) == 4 || up[0] == 'H': //only Hs can have 4-char names in amber.
		symbol = "H"
	case up == "CL":
		symbol = "Cl"
	case strings.HasPrefix(up, "FE"):
		symbol = "Fe"
	case strings.HasPrefix(up, "ZN"):
		symbol = "Zn"
	case up[0] == 'C': //CA is alpha carbon, not calcium
		symbol = "C"
	case up[0] == 'N':
		symbol = "N"
	case up[0] == 'O':
		symbol = "O"
	case up[0] == 'P':
		symbol = "P"
	case up[0] == 'S':
		symbol = "S"
	case up[0] == 'F':
		symbol = "F"
	case up[0] == 'I':
		symbol = "I"
	}
	if symbol == "" {
		return symbol, fmt.Errorf("Couldn't guess symbol from PDB name %s", name)
	}
	return symbol, nil
}
