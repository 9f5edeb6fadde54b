/*
 * depthsort.go, part of molview.
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

//Package depthsort orders entities by their distance to the camera along the view axis.
package depthsort

import (
	"cmp"
	"math"
	"slices"

	v3 "github.com/rmera/molview/v3"
	"gonum.org/v1/gonum/mat"
)

//DefaultScale multiplies the distances before they are truncated to integer keys.
const DefaultScale = 1000

//Order is the direction of a sort
type Order int

const (
	Descending Order = iota //farthest first, back to front
	Ascending               //nearest first
)

//AtomOrder and SphereOrder are the orders used for atoms and tunnel spheres, respectively.
const (
	AtomOrder   = Descending
	SphereOrder = Ascending
)

//Sorter computes orderings, reusing its buffers between calls.
//The slices it returns are only valid until the next call.
type Sorter struct {
	Scale float64
	keys  []int64
	perm  []int
	dots  *mat.VecDense
}

//New returns a Sorter with the given scale, or DefaultScale if scale is not positive.
func New(scale float64) *Sorter {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Sorter{Scale: scale}
}

//Keys returns, for each vector p in positions, |forward·(camera-p)|*Scale, truncated to an integer.
func (S *Sorter) Keys(positions *v3.Matrix, forward, camera [3]float64) []int64 {
	n := positions.NVecs()
	S.keys = slices.Grow(S.keys[:0], n)[:n]
	if n == 0 {
		return S.keys
	}
	if S.dots == nil || S.dots.Len() != n {
		S.dots = mat.NewVecDense(n, nil)
	}
	f := mat.NewVecDense(3, forward[:])
	//forward·(camera-p) = forward·camera - forward·p
	S.dots.MulVec(positions.Dense, f)
	fc := forward[0]*camera[0] + forward[1]*camera[1] + forward[2]*camera[2]
	for i := 0; i < n; i++ {
		S.keys[i] = int64(math.Abs(fc-S.dots.AtVec(i)) * S.Scale)
	}
	return S.keys
}

//Sort returns the permutation that orders keys in the given order. Ties are
//broken by the original index, so the sort is stable.
func (S *Sorter) Sort(keys []int64, order Order) []int {
	n := len(keys)
	S.perm = slices.Grow(S.perm[:0], n)[:n]
	for i := range S.perm {
		S.perm[i] = i
	}
	sortPerm(S.perm, keys, order)
	return S.perm
}

//Order computes the keys for positions and returns the permutation that sorts them.
func (S *Sorter) Order(positions *v3.Matrix, forward, camera [3]float64, order Order) []int {
	return S.Sort(S.Keys(positions, forward, camera), order)
}

//Sort returns a newly allocated permutation that orders keys in the given order,
//stable over the original indexes.
func Sort(keys []int64, order Order) []int {
	perm := make([]int, len(keys))
	for i := range perm {
		perm[i] = i
	}
	sortPerm(perm, keys, order)
	return perm
}

func sortPerm(perm []int, keys []int64, order Order) {
	slices.SortFunc(perm, func(a, b int) int {
		c := cmp.Compare(keys[a], keys[b])
		if order == Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

//Apply puts in dst the vectors of src in the order given by perm.
//dst must have len(perm) vectors. It does nothing for empty permutations.
func Apply(perm []int, src, dst *v3.Matrix) {
	if len(perm) == 0 {
		return
	}
	dst.SomeVecs(src, perm)
}

//Permute puts in dst the elements of src in the order given by perm, and returns
//dst, which is reallocated if it lacks room.
func Permute[T any](perm []int, src, dst []T) []T {
	if cap(dst) < len(perm) {
		dst = make([]T, len(perm))
	}
	dst = dst[:len(perm)]
	for i, p := range perm {
		dst[i] = src[p]
	}
	return dst
}

//Monotonic returns true if the keys, read in the order given by perm, never decrease (Ascending)
//or never increase (Descending).
func Monotonic(keys []int64, perm []int, order Order) bool {
	for i := 1; i < len(perm); i++ {
		prev, cur := keys[perm[i-1]], keys[perm[i]]
		if order == Ascending && cur < prev {
			return false
		}
		if order == Descending && cur > prev {
			return false
		}
	}
	return true
}
