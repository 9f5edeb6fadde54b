/*
 * errors.go, part of molview.
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

package dcd

import (
	"fmt"

	"github.com/rmera/molview"
)

//errDecorate is a helper function that asserts that the error is
//implements molview.Error and decorates the error with the caller's name before returning it.
//if used with a non-molview.Error error, it will cause a panic.
func errDecorate(err error, caller string) error {
	err2 := err.(molview.Error)
	err2.Decorate(caller)
	return err2
}

//Error is the general structure for DCD trajectory errors. It fullfills  molview.Error and molview.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("dcd file %s error: %s", err.filename, err.message)
}

//Decorate adds the deco string to the list of callers of the error, and returns the list.
//An empty string just returns the current list.
func (E *Error) Decorate(deco string) []string {
	if deco == "" {
		return E.deco
	}
	E.deco = append(E.deco, deco)
	return E.deco
}

//FileName returns the name of the file for which the error was raised
func (err Error) FileName() string { return err.filename }

//Format returns the format of the file (always "dcd") associated to the error
func (err Error) Format() string { return "dcd" }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

func newError(msg, filename string, critical bool, deco ...string) *Error {
	return &Error{message: msg, filename: filename, deco: deco, critical: critical}
}

const (
	TrajUnIni      = "Traj object uninitialized to read or write"
	WrongFormat    = "Wrong format in the DCD file or frame"
	NotEnoughSpace = "Not enough space in passed slice"
)
