/*
 * atomicdata.go, part of molview.
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

import "strings"

//DefaultRadius is the radius given to atoms of unknown type.
const DefaultRadius = 1.5

//DefaultColor is the color (RGBA) given to atoms of unknown type.
var DefaultColor = [4]float32{0.5, 0.5, 0.5, 1}

//AtomSymbols is the default ordering of atom types. The atomType field
//of an atom trajectory record is an index in this slice.
var AtomSymbols = []string{"C", "N", "O", "S", "P", "H", "F", "Cl", "Ca", "Fe", "Zn", "I"}

//A map for assigning van der Waals radii to elements.
//Keys are in upper case. Just common "bio-elements" are present
var symbolVdwrad = map[string]float64{
	"F":  1.47,
	"CL": 1.89,
	"H":  1.100,
	"C":  1.548,
	"N":  1.400,
	"O":  1.348,
	"P":  1.880,
	"S":  1.808,
	"CA": 1.948,
	"FE": 1.948,
	"ZN": 1.148,
	"I":  1.748,
}

//CPK-like colors
var symbolColor = map[string][4]float32{
	"H":  {1, 1, 1, 1},
	"C":  {0.56, 0.56, 0.56, 1},
	"N":  {0.19, 0.31, 0.97, 1},
	"O":  {1, 0.05, 0.05, 1},
	"F":  {0.56, 0.88, 0.31, 1},
	"P":  {1, 0.5, 0, 1},
	"S":  {1, 1, 0.19, 1},
	"CL": {0.12, 0.94, 0.12, 1},
	"CA": {0.24, 1, 0, 1},
	"FE": {0.88, 0.4, 0.2, 1},
	"ZN": {0.49, 0.5, 0.69, 1},
	"I":  {0.58, 0, 0.58, 1},
}

//SymbolRadius returns the van der Waals radius for the element symbol,
//which is case-insensitive. For unknown symbols it returns DefaultRadius
//and an UnknownTypeWarning.
func SymbolRadius(symbol string) (float64, error) {
	r, ok := symbolVdwrad[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return DefaultRadius, &UnknownTypeWarning{Symbol: symbol, Type: -1}
	}
	return r, nil
}

//SymbolColor returns the RGBA color for the element symbol. For unknown symbols
//it returns DefaultColor and an UnknownTypeWarning.
func SymbolColor(symbol string) ([4]float32, error) {
	c, ok := symbolColor[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return DefaultColor, &UnknownTypeWarning{Symbol: symbol, Type: -1}
	}
	return c, nil
}

//TypeTable maps the integer atom types found in trajectories to element symbols,
//and through them, to radii and colors.
type TypeTable struct {
	symbols []string
	index   map[string]int
}

//NewTypeTable returns a table where the type i corresponds to symbols[i].
//If no symbols are given, AtomSymbols is used.
func NewTypeTable(symbols ...string) *TypeTable {
	if len(symbols) == 0 {
		symbols = AtomSymbols
	}
	T := &TypeTable{symbols: make([]string, len(symbols)), index: make(map[string]int, len(symbols))}
	copy(T.symbols, symbols)
	for i, v := range T.symbols {
		key := strings.ToUpper(v)
		if _, ok := T.index[key]; !ok {
			T.index[key] = i
		}
	}
	return T
}

//Len returns the number of types in the table
func (T *TypeTable) Len() int { return len(T.symbols) }

//Symbol returns the symbol for type t, or an UnknownTypeWarning and an empty string
//if t is not in the table.
func (T *TypeTable) Symbol(t int) (string, error) {
	if t < 0 || t >= len(T.symbols) {
		return "", &UnknownTypeWarning{Type: t}
	}
	return T.symbols[t], nil
}

//Type returns the type index for the given symbol, or -1 and an UnknownTypeWarning
//if the symbol is not in the table.
func (T *TypeTable) Type(symbol string) (int, error) {
	i, ok := T.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return -1, &UnknownTypeWarning{Symbol: symbol, Type: -1}
	}
	return i, nil
}

//Radius returns the radius for the atom type t. Unknown types give DefaultRadius
//and an UnknownTypeWarning.
func (T *TypeTable) Radius(t int) (float64, error) {
	s, err := T.Symbol(t)
	if err != nil {
		return DefaultRadius, err
	}
	r, err := SymbolRadius(s)
	if err != nil {
		return r, &UnknownTypeWarning{Symbol: s, Type: t}
	}
	return r, nil
}

//Color returns the color for the atom type t. Unknown types give DefaultColor
//and an UnknownTypeWarning.
func (T *TypeTable) Color(t int) ([4]float32, error) {
	s, err := T.Symbol(t)
	if err != nil {
		return DefaultColor, err
	}
	c, err := SymbolColor(s)
	if err != nil {
		return c, &UnknownTypeWarning{Symbol: s, Type: t}
	}
	return c, nil
}

//Radii returns the radius of each type in the table, in order, as a lookup table.
//Symbols without a known radius get DefaultRadius.
func (T *TypeTable) Radii() []float32 {
	ret := make([]float32, len(T.symbols))
	for i := range T.symbols {
		r, _ := T.Radius(i)
		ret[i] = float32(r)
	}
	return ret
}

//Colors returns the color of each type in the table, in order, as a lookup table.
func (T *TypeTable) Colors() [][4]float32 {
	ret := make([][4]float32, len(T.symbols))
	for i := range T.symbols {
		ret[i], _ = T.Color(i)
	}
	return ret
}
