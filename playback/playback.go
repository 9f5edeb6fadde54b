/*
 * playback.go, part of molview.
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

//Package playback implements the frame cursor of the viewer as a value type.
//Every transition takes a State and returns the new one, there is no hidden state.
package playback

import "fmt"

//Mode is the state of the playback machine
type Mode int

const (
	Paused Mode = iota
	Playing
	Scrubbing
)

func (M Mode) String() string {
	switch M {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	case Scrubbing:
		return "scrubbing"
	default:
		return fmt.Sprintf("Mode(%d)", int(M))
	}
}

//State is the frame cursor. Current is always in [0,Total).
//Previous is the last frame actually loaded, or -1 if none has been.
type State struct {
	Current      int
	Previous     int
	DelayCounter int
	Delay        int //ticks between frame advances while playing
	Step         int //frames advanced each time
	Total        int
	Mode         Mode
	resume       Mode //mode to go back to after scrubbing
	//Reset is set when the cursor jumped discontinuously, so positions should
	//not be interpolated. It is cleared by Loaded, or by scrubbing back to the
	//loaded frame.
	Reset bool
}

//Wrap brings frame into [0,total) wrapping around both ends.
func Wrap(frame, total int) int {
	if total <= 0 {
		return 0
	}
	frame %= total
	if frame < 0 {
		frame += total
	}
	return frame
}

//New returns a playing State at frame 0 with nothing loaded.
//step and delay smaller than 1 are set to 1.
func New(total, step, delay int) State {
	S := State{Previous: -1, Total: total, Mode: Playing, resume: Playing}
	S = S.SetStep(step)
	return S.SetDelay(delay)
}

//SetDelay sets the ticks between advances, at least 1.
func (S State) SetDelay(delay int) State {
	S.Delay = max(delay, 1)
	if S.DelayCounter >= S.Delay {
		S.DelayCounter = 0
	}
	return S
}

//SetStep sets the frames advanced each time, at least 1.
func (S State) SetStep(step int) State {
	S.Step = max(step, 1)
	return S
}

//TogglePause switches between Paused and Playing. While scrubbing it
//changes the mode to go back to when the scrub ends.
func (S State) TogglePause() State {
	switch S.Mode {
	case Paused:
		S.Mode = Playing
	case Playing:
		S.Mode = Paused
	case Scrubbing:
		if S.resume == Paused {
			S.resume = Playing
		} else {
			S.resume = Paused
		}
	}
	S.DelayCounter = 0
	return S
}

//StepForward moves one Step forward. It only works while paused.
func (S State) StepForward() State {
	if S.Mode != Paused {
		return S
	}
	S.Current = Wrap(S.Current+S.Step, S.Total)
	return S
}

//StepBack moves one Step back. It only works while paused.
func (S State) StepBack() State {
	if S.Mode != Paused {
		return S
	}
	S.Current = Wrap(S.Current-S.Step, S.Total)
	return S
}

//Scrub jumps to frame, wrapped into range, and enters the Scrubbing mode.
//If the frame differs from the one last loaded the jump is discontinuous, and
//Reset is set. Scrubbing back onto the loaded frame clears it.
func (S State) Scrub(frame int) State {
	if S.Mode != Scrubbing {
		S.resume = S.Mode
		S.Mode = Scrubbing
	}
	S.Current = Wrap(frame, S.Total)
	S.Reset = S.NeedsLoad()
	S.DelayCounter = 0
	return S
}

//EndScrub returns to the mode the machine was in before scrubbing started.
func (S State) EndScrub() State {
	if S.Mode == Scrubbing {
		S.Mode = S.resume
	}
	return S
}

//Advance runs one tick. While playing, every Delay ticks the cursor moves Step frames,
//wrapping around the end.
func (S State) Advance() State {
	if S.Mode != Playing || S.Total <= 0 {
		return S
	}
	S.DelayCounter++
	if S.DelayCounter >= S.Delay {
		S.DelayCounter = 0
		S.Current = Wrap(S.Current+S.Step, S.Total)
	}
	return S
}

//NeedsLoad returns true if the current frame is not the one last loaded.
func (S State) NeedsLoad() bool {
	return S.Current != S.Previous
}

//Loaded records that the current frame has been loaded.
func (S State) Loaded() State {
	S.Previous = S.Current
	S.Reset = false
	return S
}

//ForceReload makes the current frame be loaded again, with Reset set.
func (S State) ForceReload() State {
	S.Previous = -1
	S.Reset = true
	return S
}

func (S State) String() string {
	return fmt.Sprintf("%s frame %d/%d (loaded %d), step %d every %d ticks", S.Mode, S.Current, S.Total, S.Previous, S.Step, S.Delay)
}
