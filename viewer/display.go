/*
 * display.go, part of molview.
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

package viewer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/depthsort"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/smooth"
	v3 "github.com/rmera/molview/v3"
)

//DisplayBuffer holds the CPU side state of one class of entities. Target has the
//positions just loaded, Current the smoothed ones, and Display the smoothed ones in depth order.
//The per-entity properties are in source order, and their Display counterparts, in depth order.
type DisplayBuffer struct {
	Current *v3.Matrix
	Target  *v3.Matrix
	Display *v3.Matrix

	Types  []int
	Radii  []float64
	Alphas []float64
	Colors []mgl32.Vec4

	DisplayTypes  []int
	DisplayRadii  []float64
	DisplayAlphas []float64
	DisplayColors []mgl32.Vec4

	Perm  []int
	Order depthsort.Order

	smoother *smooth.Smoother
}

func newDisplayBuffer(order depthsort.Order, speed float64) *DisplayBuffer {
	return &DisplayBuffer{Order: order, smoother: smooth.New(speed), Target: v3.Zeros(0), Current: v3.Zeros(0), Display: v3.Zeros(0)}
}

//Len returns the number of entities in the buffer.
func (D *DisplayBuffer) Len() int { return D.Target.NVecs() }

//resize makes room for n entities. The new Target has undefined contents.
func (D *DisplayBuffer) resize(n int) {
	if D.Target.NVecs() == n {
		return
	}
	D.Target = v3.Zeros(n)
	D.Display = v3.Zeros(n)
	D.Types = resized(D.Types, n)
	D.Radii = resized(D.Radii, n)
	D.Alphas = resized(D.Alphas, n)
	D.Colors = resized(D.Colors, n)
}

func resized[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

//Smooth moves Current towards Target. It snaps the first time, if reset is true, and
//when the number of entities changed.
func (D *DisplayBuffer) Smooth(reset bool) bool {
	var snapped bool
	D.Current, snapped = D.smoother.Apply(D.Current, D.Target, reset)
	return snapped
}

//Sort fills the Display fields with the smoothed state, in depth order as seen from the camera.
func (D *DisplayBuffer) Sort(S *depthsort.Sorter, forward, camera [3]float64) {
	n := D.Current.NVecs()
	if D.Display.NVecs() != n {
		D.Display = v3.Zeros(n)
	}
	D.Perm = append(D.Perm[:0], S.Order(D.Current, forward, camera, D.Order)...)
	depthsort.Apply(D.Perm, D.Current, D.Display)
	D.DisplayTypes = depthsort.Permute(D.Perm, D.Types, D.DisplayTypes)
	D.DisplayRadii = depthsort.Permute(D.Perm, D.Radii, D.DisplayRadii)
	D.DisplayAlphas = depthsort.Permute(D.Perm, D.Alphas, D.DisplayAlphas)
	D.DisplayColors = depthsort.Permute(D.Perm, D.Colors, D.DisplayColors)
}

//EntityData returns the sorted state, ready to be uploaded.
func (D *DisplayBuffer) EntityData() gpu.EntityData {
	return gpu.EntityData{Positions: D.Display, Types: D.DisplayTypes, Alphas: D.DisplayAlphas, Radii: D.DisplayRadii, Colors: D.DisplayColors}
}
