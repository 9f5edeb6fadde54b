/*
 * prefetch.go, part of molview.
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
	"sync"

	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
)

//LoadedFrame is a frame read from a FrameSource.
type LoadedFrame struct {
	Index   int
	Coords  *v3.Matrix
	Types   []int
	Tunnels molview.Tunnels
	Err     error
}

//LoadFrame reads the atoms and tunnels of frame i from src.
func LoadFrame(src molview.FrameSource, i int) LoadedFrame {
	F := LoadedFrame{Index: i, Coords: v3.Zeros(src.Len()), Types: make([]int, src.Len())}
	if F.Err = src.LoadAtomFrameInto(i, F.Coords, F.Types); F.Err != nil {
		return F
	}
	F.Tunnels, F.Err = src.LoadTunnelFrame(i)
	return F
}

//Prefetcher reads a frame in a goroutine while the current one is shown.
//There is at most one frame in flight or loaded at a time. Its methods must be
//called from a single goroutine.
type Prefetcher struct {
	src      molview.FrameSource
	requests chan int
	ready    chan LoadedFrame
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	pending  int //frame in flight or waiting to be taken, -1 if none
}

//NewPrefetcher starts the loading goroutine.
func NewPrefetcher(src molview.FrameSource) *Prefetcher {
	P := &Prefetcher{src: src, requests: make(chan int, 1), ready: make(chan LoadedFrame, 1), done: make(chan struct{}), pending: -1}
	P.wg.Add(1)
	go func() {
		defer P.wg.Done()
		for i := range P.requests {
			f := LoadFrame(P.src, i)
			select {
			case P.ready <- f:
			case <-P.done:
				return
			}
		}
	}()
	return P
}

//Request starts loading frame i. It returns false, and does nothing, if another
//frame is still in the slot.
func (P *Prefetcher) Request(i int) bool {
	if P.pending >= 0 {
		return false
	}
	select {
	case <-P.done:
		return false
	default:
	}
	P.pending = i
	P.requests <- i
	return true
}

//Pending returns the frame in the slot, or -1.
func (P *Prefetcher) Pending() int { return P.pending }

//Poll returns the loaded frame, if it is ready, freeing the slot.
func (P *Prefetcher) Poll() (LoadedFrame, bool) {
	if P.pending < 0 {
		return LoadedFrame{}, false
	}
	select {
	case f := <-P.ready:
		P.pending = -1
		return f, true
	default:
		return LoadedFrame{}, false
	}
}

//Wait blocks until the frame in the slot is loaded, and returns it. It returns false
//if the slot is empty or the prefetcher was closed.
func (P *Prefetcher) Wait() (LoadedFrame, bool) {
	if P.pending < 0 {
		return LoadedFrame{}, false
	}
	P.pending = -1
	select {
	case f := <-P.ready:
		return f, true
	case <-P.done:
		return LoadedFrame{}, false
	}
}

//Take returns frame i if it is the one in the slot, waiting for it if needed. Any other
//frame in the slot is waited for and dropped, and false is returned.
func (P *Prefetcher) Take(i int) (LoadedFrame, bool) {
	if P.pending < 0 {
		return LoadedFrame{}, false
	}
	f, ok := P.Wait()
	return f, ok && f.Index == i
}

//Close stops the goroutine. It can be called more than once.
func (P *Prefetcher) Close() {
	P.once.Do(func() {
		close(P.done)
		close(P.requests)
		P.wg.Wait()
	})
}
