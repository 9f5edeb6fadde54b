/*
 * viewer.go, part of molview.
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

//Package viewer ties the pieces together: each simulation tick moves the playback cursor,
//loads frames, smooths and sorts the entities, and each render tick uploads them and
//runs the impostor pipeline.
package viewer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview"
	"github.com/rmera/molview/config"
	"github.com/rmera/molview/depthsort"
	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/impostor"
	"github.com/rmera/molview/playback"
	"github.com/rs/zerolog"
)

//AllTunnels selects the spheres of every tunnel.
const AllTunnels = -1

//MoleculeColor is the color given to the registered molecule type.
var MoleculeColor = mgl32.Vec4{0.5, 0.1, 0.85, 1}

var tunnelPalette = []mgl32.Vec4{
	{0.9, 0.3, 0.2, 1},
	{0.2, 0.6, 0.9, 1},
	{0.3, 0.8, 0.3, 1},
	{0.9, 0.8, 0.2, 1},
	{0.7, 0.3, 0.8, 1},
	{0.2, 0.8, 0.8, 1},
}

//TunnelColor returns the color of the spheres of a tunnel.
func TunnelColor(id int) mgl32.Vec4 {
	return tunnelPalette[playback.Wrap(id, len(tunnelPalette))]
}

//Input is what the user did since the last tick.
type Input struct {
	TogglePause bool
	StepForward bool
	StepBack    bool
	//Scrubbing is true while the frame slider is held, and Scrub is the frame it points to.
	Scrubbing bool
	Scrub     int
}

//sphereCounter is implemented by sources that know the largest number of spheres in a frame.
type sphereCounter interface {
	MaxTunnelSpheres() int
}

//Viewer plays a trajectory.
type Viewer struct {
	cfg   *config.Config
	src   molview.FrameSource
	mgr   *gpu.Manager
	pipe  *impostor.Pipeline
	table *molview.TypeTable
	log   zerolog.Logger

	State   playback.State
	Camera  Camera
	Atoms   *DisplayBuffer
	Spheres *DisplayBuffer

	sorter      *depthsort.Sorter
	prefetch    *Prefetcher
	tunnels     molview.Tunnels //of the last loaded frame
	tunnel      int
	molType     int
	loaded      bool
	warned      map[int]bool
	frameErrors int
	closed      bool
}

//New returns a viewer for the frames in src, drawing with backend on buffers from dev.
//The capacities are checked against src before anything is uploaded. The molecule type
//is registered from the configured topology PDB file or, if there is none, from the
//first frame.
func New(cfg *config.Config, src molview.FrameSource, dev gpu.Device, backend impostor.Backend, log zerolog.Logger) (*Viewer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src.NFrames() == 0 {
		return nil, fmt.Errorf("viewer: trajectory without frames")
	}
	mgr, err := gpu.NewManager(dev, cfg.GPUCapacity(), log)
	if err != nil {
		return nil, err
	}
	if err := mgr.Validate(gpu.Atoms, src.Len()); err != nil {
		return nil, molview.ErrDecorate(err, "viewer.New")
	}
	if sc, ok := src.(sphereCounter); ok {
		if err := mgr.Validate(gpu.Spheres, sc.MaxTunnelSpheres()); err != nil {
			return nil, molview.ErrDecorate(err, "viewer.New")
		}
	}
	V := &Viewer{
		cfg:     cfg,
		src:     src,
		mgr:     mgr,
		table:   molview.NewTypeTable(),
		log:     log,
		Camera:  DefaultCamera(),
		Atoms:   newDisplayBuffer(depthsort.AtomOrder, cfg.Smoothing.Speed),
		Spheres: newDisplayBuffer(depthsort.SphereOrder, cfg.Smoothing.Speed),
		sorter:  depthsort.New(depthsort.DefaultScale),
		tunnel:  cfg.Tunnel.Selected,
		warned:  make(map[int]bool),
	}
	if err := mgr.SetTypeTable(V.table); err != nil {
		mgr.Close()
		return nil, err
	}
	first := LoadFrame(src, 0)
	if first.Err != nil {
		mgr.Close()
		return nil, molview.ErrDecorate(first.Err, "viewer.New")
	}
	V.Camera = V.Camera.Frame(first.Coords)
	if err := V.registerMolecule(first); err != nil {
		mgr.Close()
		return nil, err
	}
	V.pipe = impostor.New(backend, mgr, log)
	V.pipe.AO = cfg.AOParams()
	V.State = playback.New(src.NFrames(), cfg.Playback.Step, cfg.Playback.Delay)
	if cfg.Prefetch {
		V.prefetch = NewPrefetcher(src)
	}
	log.Info().Int("frames", src.NFrames()).Int("atoms", src.Len()).Bool("prefetch", cfg.Prefetch).Msg("viewer ready")
	return V, nil
}

//registerMolecule registers the molecule type from the topology file, if there is one,
//or from the first frame.
func (V *Viewer) registerMolecule(first LoadedFrame) error {
	var T *molview.Template
	var err error
	if path := V.cfg.Files.Topology; path != "" {
		T, err = molview.ReadPDBTemplate(path)
	} else {
		T, err = molview.TemplateFromFrame("trajectory", first.Coords, first.Types, V.table)
	}
	if T == nil {
		return err
	}
	if err != nil {
		V.log.Warn().Err(err).Str("type", T.Name).Msg("unknown atom types in the molecule, default radius used")
	}
	atoms := make([]mgl32.Vec4, T.Len())
	for i, v := range T.Vec4s() {
		atoms[i] = v
	}
	V.molType, err = V.mgr.RegisterType(T.Name, atoms, MoleculeColor)
	return err
}

//Manager returns the GPU buffer manager of the viewer.
func (V *Viewer) Manager() *gpu.Manager { return V.mgr }

//Pipeline returns the impostor pipeline of the viewer.
func (V *Viewer) Pipeline() *impostor.Pipeline { return V.pipe }

//MoleculeType returns the index of the registered molecule type.
func (V *Viewer) MoleculeType() int { return V.molType }

//FrameErrors returns the number of frames that could not be loaded.
func (V *Viewer) FrameErrors() int { return V.frameErrors }

//Loaded returns true once a frame has been loaded.
func (V *Viewer) Loaded() bool { return V.loaded }

//SetSmoothing sets the smoothing speed of both entity classes.
func (V *Viewer) SetSmoothing(speed float64) {
	V.Atoms.smoother.SetSpeed(speed)
	V.Spheres.smoother.SetSpeed(speed)
}

//SelectTunnel shows only the spheres of the tunnel id, or all of them for AllTunnels.
//The spheres jump to their new positions.
func (V *Viewer) SelectTunnel(id int) {
	if id < AllTunnels {
		id = AllTunnels
	}
	V.tunnel = id
	if V.loaded {
		V.setSpheres(V.tunnels)
		V.Spheres.smoother.Reset()
	}
}

//Tunnel returns the selected tunnel, or AllTunnels.
func (V *Viewer) Tunnel() int { return V.tunnel }

//TunnelIDs returns the ids of the tunnels in the last loaded frame, in increasing order.
func (V *Viewer) TunnelIDs() []int {
	ids := make([]int, 0, len(V.tunnels))
	for id := range V.tunnels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

//CycleTunnel selects the next tunnel of the last loaded frame, going from all the
//tunnels to the one with the lowest id, and back to all after the highest one.
func (V *Viewer) CycleTunnel() {
	next := AllTunnels
	for _, id := range V.TunnelIDs() {
		if id > V.tunnel {
			next = id
			break
		}
	}
	V.SelectTunnel(next)
}

//SimTick runs one simulation tick: it applies the input to the playback state,
//loads the current frame if needed, then smooths and sorts the entities. A frame that
//can't be loaded is logged and skipped, and the previous frame stays on display.
func (V *Viewer) SimTick(in Input) {
	S := V.State
	if in.TogglePause {
		S = S.TogglePause()
	}
	if in.StepForward {
		S = S.StepForward()
	}
	if in.StepBack {
		S = S.StepBack()
	}
	if in.Scrubbing {
		S = S.Scrub(in.Scrub)
	} else if S.Mode == playback.Scrubbing {
		S = S.EndScrub()
	}
	if S.Previous >= 0 {
		//the first frame is shown before the cursor starts moving
		S = S.Advance()
	}
	reset := false
	if S.NeedsLoad() {
		f := V.fetch(S.Current)
		if f.Err != nil {
			V.frameErrors++
			V.log.Warn().Err(f.Err).Int("frame", S.Current).Msg("frame skipped")
		} else {
			reset = S.Reset || !V.loaded
			V.setAtoms(f)
			V.tunnels = f.Tunnels
			V.setSpheres(f.Tunnels)
			V.loaded = true
		}
		S = S.Loaded()
		if V.prefetch != nil && S.Mode == playback.Playing {
			V.prefetch.Request(playback.Wrap(S.Current+S.Step, S.Total))
		}
	}
	V.State = S
	if !V.loaded {
		return
	}
	V.Atoms.Smooth(reset)
	V.Spheres.Smooth(reset)
	forward, eye := vec3(V.Camera.Forward()), vec3(V.Camera.Position)
	V.Atoms.Sort(V.sorter, forward, eye)
	V.Spheres.Sort(V.sorter, forward, eye)
}

func (V *Viewer) fetch(i int) LoadedFrame {
	if V.prefetch != nil {
		if f, ok := V.prefetch.Take(i); ok {
			return f
		}
	}
	return LoadFrame(V.src, i)
}

func (V *Viewer) setAtoms(f LoadedFrame) {
	D := V.Atoms
	D.resize(f.Coords.NVecs())
	D.Target.CopyFrom(f.Coords)
	copy(D.Types, f.Types)
	for i, t := range D.Types {
		r, err := V.table.Radius(t)
		if err != nil && !V.warned[t] {
			V.warned[t] = true
			V.log.Warn().Err(err).Int("type", t).Msg("unknown atom type, default radius and color used")
		}
		c, _ := V.table.Color(t)
		D.Radii[i] = r
		D.Colors[i] = c
		D.Alphas[i] = V.cfg.Render.AtomAlpha
	}
}

//selected returns the spheres of the selected tunnels, ordered by tunnel id.
func (V *Viewer) selected(tunnels molview.Tunnels) []molview.TunnelSphere {
	if V.tunnel != AllTunnels {
		return tunnels[V.tunnel]
	}
	ids := make([]int, 0, len(tunnels))
	for id := range tunnels {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ret := make([]molview.TunnelSphere, 0, tunnels.Len())
	for _, id := range ids {
		ret = append(ret, tunnels[id]...)
	}
	return ret
}

func (V *Viewer) setSpheres(tunnels molview.Tunnels) {
	spheres := V.selected(tunnels)
	D := V.Spheres
	D.resize(len(spheres))
	for i, s := range spheres {
		D.Target.SetVec(i, s.Position)
		D.Types[i] = s.TunnelID
		D.Radii[i] = s.Radius
		D.Alphas[i] = V.cfg.Render.SphereAlpha
		D.Colors[i] = TunnelColor(s.TunnelID)
	}
}

//Uniforms returns the pass parameters for a viewport of the given size.
func (V *Viewer) Uniforms(w, h int) impostor.Uniforms {
	return impostor.Uniforms{
		View:           V.Camera.View(),
		Projection:     V.Camera.Projection(float32(w) / float32(h)),
		ViewDirection:  V.Camera.Forward(),
		Scale:          float32(V.cfg.Render.PointScale),
		ShowAtomColors: V.cfg.Render.ShowAtomColors,
	}
}

//RenderTick uploads the sorted entities and draws them over src into dst. It does
//nothing until a frame has been loaded.
func (V *Viewer) RenderTick(src, dst impostor.Target) error {
	if V.closed {
		return errors.New("RenderTick: viewer closed")
	}
	if !V.loaded {
		return nil
	}
	if err := V.mgr.Upload(gpu.Atoms, V.Atoms.EntityData()); err != nil {
		return err
	}
	if err := V.mgr.Upload(gpu.Spheres, V.Spheres.EntityData()); err != nil {
		return err
	}
	return V.pipe.Render(src, dst, impostor.Frame{Uniforms: V.Uniforms(src.Width(), src.Height())})
}

//Close stops the prefetcher and releases the pipeline targets and the GPU buffers.
//It can be called more than once. The frame source is not closed.
func (V *Viewer) Close() {
	if V.closed {
		return
	}
	if V.prefetch != nil {
		V.prefetch.Close()
	}
	V.pipe.Close()
	V.mgr.Close()
	V.closed = true
}
