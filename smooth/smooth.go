/*
 * smooth.go, part of molview.
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

//Package smooth moves displayed positions towards newly loaded ones with an exponential decay.
package smooth

import (
	"math"

	v3 "github.com/rmera/molview/v3"
	"gonum.org/v1/gonum/floats"
)

//Smoother brings the current positions of a set of entities closer to their
//target positions every step: cur += (tgt-cur)*Speed. Speed 0 freezes the positions
//and Speed 1 makes them jump to the target.
type Smoother struct {
	speed  float64
	primed bool //has the smoother been applied at least once?
}

//New returns a smoother with the given speed, clamped to [0,1].
func New(speed float64) *Smoother {
	S := new(Smoother)
	S.SetSpeed(speed)
	return S
}

//SetSpeed sets the speed factor, clamped to [0,1]. NaN is taken as 0.
func (S *Smoother) SetSpeed(speed float64) {
	if math.IsNaN(speed) {
		speed = 0
	}
	S.speed = math.Max(0, math.Min(1, speed))
}

//Speed returns the speed factor.
func (S *Smoother) Speed() float64 { return S.speed }

//Reset makes the next Apply snap.
func (S *Smoother) Reset() { S.primed = false }

//Step performs one decay step of the values in cur towards those in tgt. Both slices must have the same length.
func Step(cur, tgt []float64, speed float64) {
	if len(cur) != len(tgt) {
		panic(v3.ErrShape)
	}
	if speed >= 1 {
		copy(cur, tgt)
		return
	}
	// cur = (1-speed)*cur + speed*tgt
	floats.Scale(1-speed, cur)
	floats.AddScaled(cur, speed, tgt)
}

//Step performs one decay step of cur towards tgt. Panics if their sizes differ.
func (S *Smoother) Step(cur, tgt *v3.Matrix) {
	Step(cur.RawData(), tgt.RawData(), S.speed)
}

//Snap copies tgt into cur. Panics if their sizes differ.
func Snap(cur, tgt *v3.Matrix) {
	cur.CopyFrom(tgt)
}

//Apply moves cur towards tgt, and returns the result. It snaps, instead, on the first use, when reset is
//true, or when the number of vectors in cur and tgt differ. The returned bool is true
//if it snapped. cur is modified in place unless the sizes differ, in which case
//a new matrix is returned.
func (S *Smoother) Apply(cur, tgt *v3.Matrix, reset bool) (*v3.Matrix, bool) {
	if cur == nil || cur.NVecs() != tgt.NVecs() {
		cur = v3.Zeros(tgt.NVecs())
		reset = true
	}
	if reset || !S.primed {
		S.primed = true
		if tgt.NVecs() > 0 {
			Snap(cur, tgt)
		}
		return cur, true
	}
	if tgt.NVecs() > 0 {
		S.Step(cur, tgt)
	}
	return cur, false
}

//Converged returns true if every coordinate of cur is within eps of tgt.
func Converged(cur, tgt *v3.Matrix, eps float64) bool {
	if cur.NVecs() != tgt.NVecs() {
		return false
	}
	return floats.EqualApprox(cur.RawData(), tgt.RawData(), eps)
}

//StepsToConverge returns the number of steps needed for a difference d0 to become
//smaller than eps, at the given speed, or -1 if it never will.
func StepsToConverge(d0, eps, speed float64) int {
	if d0 <= eps {
		return 0
	}
	if speed >= 1 {
		return 1
	}
	if speed <= 0 {
		return -1
	}
	// d0*(1-speed)^n <= eps
	return int(math.Ceil(math.Log(eps/d0) / math.Log(1-speed)))
}
