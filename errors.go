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

package molview

import (
	"errors"
	"fmt"
	"strings"
)

//decoration keeps the list of callers through which an error passed.
type decoration []string

func (d *decoration) add(deco string) []string {
	if deco == "" {
		return *d
	}
	*d = append(*d, deco)
	return *d
}

func (d decoration) String() string {
	if len(d) == 0 {
		return ""
	}
	return " (" + strings.Join(d, "<-") + ")"
}

//MissingFileError is returned when one of the files a component requires is absent.
//It is always critical.
type MissingFileError struct {
	Name string //the path that could not be found
	Role string //what the file was supposed to be, i.e. "atoms", "tunnel index"
	deco decoration
}

//NewMissingFileError returns a MissingFileError for the file name playing the given role
func NewMissingFileError(name, role string) *MissingFileError {
	return &MissingFileError{Name: name, Role: role}
}

func (E *MissingFileError) Error() string {
	return fmt.Sprintf("missing %s file %s%s", E.Role, E.Name, E.deco)
}

//Decorate adds the caller to the error's list of callers, and returns the list.
func (E *MissingFileError) Decorate(deco string) []string { return E.deco.add(deco) }

//Critical returns true, a missing file is always critical.
func (E *MissingFileError) Critical() bool { return true }

//FileName returns the missing file.
func (E *MissingFileError) FileName() string { return E.Name }

//Format returns the role of the missing file.
func (E *MissingFileError) Format() string { return E.Role }

//CorruptFrameError is returned when the bytes of a frame can't be decoded into records,
//or when a requested frame doesn't exist. Errors detected
//when opening a trajectory are critical, errors for one frame are not: the frame can just be skipped.
type CorruptFrameError struct {
	File     string
	Frame    int //-1 if the error doesn't concern a particular frame
	Bytes    int64
	Stride   int
	message  string
	critical bool
	deco     decoration
}

//NewCorruptFrameError returns a non-critical error concerning frame of file.
func NewCorruptFrameError(file string, frame int, message string) *CorruptFrameError {
	return &CorruptFrameError{File: file, Frame: frame, message: message}
}

//NewStrideError returns a non-critical error for a block of nbytes that is not a multiple of stride.
func NewStrideError(file string, frame int, nbytes int64, stride int) *CorruptFrameError {
	return &CorruptFrameError{File: file, Frame: frame, Bytes: nbytes, Stride: stride,
		message: fmt.Sprintf("%d bytes is not a multiple of the record size %d", nbytes, stride)}
}

func (E *CorruptFrameError) Error() string {
	if E.Frame < 0 {
		return fmt.Sprintf("corrupt file %s: %s%s", E.File, E.message, E.deco)
	}
	return fmt.Sprintf("corrupt frame %d in %s: %s%s", E.Frame, E.File, E.message, E.deco)
}

//Decorate adds the caller to the error's list of callers, and returns the list.
func (E *CorruptFrameError) Decorate(deco string) []string { return E.deco.add(deco) }

//Critical returns true if the error makes the whole file unusable.
func (E *CorruptFrameError) Critical() bool { return E.critical }

//SetCritical marks the error as critical, and returns it.
func (E *CorruptFrameError) SetCritical() *CorruptFrameError {
	E.critical = true
	return E
}

//FileName returns the file with the corrupt data.
func (E *CorruptFrameError) FileName() string { return E.File }

//Format returns "raw".
func (E *CorruptFrameError) Format() string { return "raw" }

//CapacityExceededError means that more entities than a buffer can hold were requested.
//It is a configuration error, and always critical.
type CapacityExceededError struct {
	Set       string
	Requested int
	Capacity  int
	deco      decoration
}

//NewCapacityExceededError returns an error for set, where requested entities exceed capacity.
func NewCapacityExceededError(set string, requested, capacity int) *CapacityExceededError {
	return &CapacityExceededError{Set: set, Requested: requested, Capacity: capacity}
}

func (E *CapacityExceededError) Error() string {
	return fmt.Sprintf("%d %s requested, but the capacity is %d%s", E.Requested, E.Set, E.Capacity, E.deco)
}

//Decorate adds the caller to the error's list of callers, and returns the list.
func (E *CapacityExceededError) Decorate(deco string) []string { return E.deco.add(deco) }

//Critical returns true
func (E *CapacityExceededError) Critical() bool { return true }

//UnknownTypeWarning is returned, together with a usable default value, when
//an atom type or symbol is not in the lookup tables.
type UnknownTypeWarning struct {
	Symbol string
	Type   int //-1 when the lookup was by symbol
	deco   decoration
}

func (E *UnknownTypeWarning) Error() string {
	if E.Type < 0 {
		return fmt.Sprintf("unknown atom symbol %q, using defaults%s", E.Symbol, E.deco)
	}
	return fmt.Sprintf("unknown atom type %d, using defaults%s", E.Type, E.deco)
}

//Decorate adds the caller to the error's list of callers, and returns the list.
func (E *UnknownTypeWarning) Decorate(deco string) []string { return E.deco.add(deco) }

//Critical returns false
func (E *UnknownTypeWarning) Critical() bool { return false }

//lastFrameError signals the normal end of a trajectory.
type lastFrameError struct {
	file   string
	format string
	deco   decoration
}

//NewLastFrameError returns an error implementing LastFrameError, for the file
//of the given format
func NewLastFrameError(file, format string) LastFrameError {
	return &lastFrameError{file: file, format: format}
}

func (E *lastFrameError) Error() string {
	return fmt.Sprintf("no more frames in %s", E.file)
}
func (E *lastFrameError) Decorate(deco string) []string { return E.deco.add(deco) }
func (E *lastFrameError) Critical() bool                { return false }
func (E *lastFrameError) FileName() string              { return E.file }
func (E *lastFrameError) Format() string                { return E.format }
func (E *lastFrameError) NormalLastFrameTermination()   {}

//ErrDecorate decorates err with the caller's name, if err implements Error,
//and returns it. Other errors are returned unchanged.
func ErrDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if err2, ok := err.(Error); ok {
		err2.Decorate(caller)
		return err2
	}
	return err
}

//IsCritical returns true if err is not nil and it either doesn't wrap
//an Error, or wraps a critical one.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		return e.Critical()
	}
	return true
}
