/*
 * v3_test.go, part of molview.
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

package v3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatrix(Te *testing.T) {
	A, err := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	require.NoError(Te, err)
	assert.Equal(Te, 2, A.NVecs())
	assert.Equal(Te, [3]float64{4, 5, 6}, A.Vec(1))

	_, err = NewMatrix([]float64{1, 2})
	require.Error(Te, err)
	_, ok := err.(Error)
	assert.True(Te, ok)
}

func TestZerosEmpty(Te *testing.T) {
	A := Zeros(0)
	assert.Equal(Te, 0, A.NVecs())
	assert.Nil(Te, A.RawData())
	assert.Equal(Te, "[ ]", A.String())
}

func TestSomeVecs(Te *testing.T) {
	A, err := NewMatrix([]float64{0, 0, 0, 1, 1, 1, 2, 2, 2})
	require.NoError(Te, err)
	B := Zeros(3)
	B.SomeVecs(A, []int{2, 0, 1})
	assert.Equal(Te, [3]float64{2, 2, 2}, B.Vec(0))
	assert.Equal(Te, [3]float64{0, 0, 0}, B.Vec(1))
	assert.Equal(Te, [3]float64{1, 1, 1}, B.Vec(2))

	err = B.SomeVecsSafe(A, []int{0, 1, 7})
	assert.Error(Te, err)
}

func TestCopyFromAndViews(Te *testing.T) {
	A, _ := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	B := Zeros(2)
	B.CopyFrom(A)
	B.SetVec(0, [3]float64{9, 9, 9})
	assert.Equal(Te, [3]float64{1, 2, 3}, A.Vec(0))
	v := A.VecView(1)
	v.Set(0, 0, -4)
	assert.Equal(Te, -4.0, A.At(1, 0))
	assert.Panics(Te, func() { Zeros(3).CopyFrom(A) })
}
