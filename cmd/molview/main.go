/*
 * main.go, part of molview.
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

//Command molview plays a trajectory with its tunnels in an OpenGL 4.3 window.
//
//Keys: space pauses and resumes, the right and left arrows step while paused,
//T cycles through the tunnels, W/A/S/D orbit the camera, and dragging with the left
//mouse button scrubs through the frames. Escape quits.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/config"
	"github.com/rmera/molview/gpu/glgpu"
	"github.com/rmera/molview/impostor"
	"github.com/rmera/molview/traj/rawtraj"
	"github.com/rmera/molview/viewer"
	"github.com/rs/zerolog"
)

//orbitStep is the camera rotation per key press, in degrees.
const orbitStep = 5

var background = mgl32.Vec4{0.05, 0.05, 0.08, 1}

func init() {
	//GL calls must come from the main thread
	runtime.LockOSThread()
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

//controls collects the window events between two ticks.
type controls struct {
	in       viewer.Input
	yaw      float32
	pitch    float32
	cycle    bool
	dragging bool
}

func (C *controls) take() (viewer.Input, float32, float32, bool) {
	in, yaw, pitch, cycle := C.in, C.yaw, C.pitch, C.cycle
	C.in = viewer.Input{Scrubbing: C.in.Scrubbing, Scrub: C.in.Scrub}
	C.yaw, C.pitch, C.cycle = 0, 0, false
	return in, yaw, pitch, cycle
}

func (C *controls) key(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeySpace:
		C.in.TogglePause = true
	case glfw.KeyRight:
		C.in.StepForward = true
	case glfw.KeyLeft:
		C.in.StepBack = true
	case glfw.KeyT:
		C.cycle = true
	case glfw.KeyA:
		C.yaw -= orbitStep
	case glfw.KeyD:
		C.yaw += orbitStep
	case glfw.KeyW:
		C.pitch += orbitStep
	case glfw.KeyS:
		C.pitch -= orbitStep
	}
}

func run() error {
	fs := config.Flags("molview")
	cfgFile := fs.String("config", "", "configuration file (json, yaml or toml)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	cfg, err := config.LoadFlags(*cfgFile, fs)
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	traj, err := rawtraj.Open(cfg.Files.Atoms, cfg.Files.TunnelIndex, cfg.Files.Tunnels, rawtraj.WithLogger(log))
	if err != nil {
		return err
	}
	defer traj.Close()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	win, err := glfw.CreateWindow(cfg.Viewport.Width, cfg.Viewport.Height, "molview: "+cfg.Files.Atoms, nil, nil)
	if err != nil {
		return fmt.Errorf("glfw create window: %w", err)
	}
	defer win.Destroy()
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	dev, err := glgpu.NewDevice(log)
	if err != nil {
		return err
	}
	backend, err := glgpu.NewBackend(dev, cfg.Shaders.Dir, log)
	if err != nil {
		return err
	}
	defer backend.Close()
	V, err := viewer.New(cfg, traj, dev, backend, log)
	if err != nil {
		return err
	}
	defer V.Close()

	C := new(controls)
	win.SetKeyCallback(C.key)
	win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			C.dragging = action == glfw.Press
			C.in.Scrubbing = C.dragging
		}
	})
	win.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if !C.dragging {
			return
		}
		width, _ := w.GetSize()
		if width > 0 {
			C.in.Scrub = int(x / float64(width) * float64(V.State.Total))
		}
	})

	var scene impostor.Target
	sw, sh := 0, 0
	defer func() {
		if scene != nil {
			backend.ReleaseTemporary(scene)
		}
	}()
	for !win.ShouldClose() {
		glfw.PollEvents()
		in, yaw, pitch, cycle := C.take()
		if yaw != 0 || pitch != 0 {
			V.Camera = V.Camera.Orbit(yaw, pitch)
		}
		if cycle {
			V.CycleTunnel()
			log.Info().Int("tunnel", V.Tunnel()).Msg("tunnel selected")
		}
		V.SimTick(in)

		w, h := win.GetFramebufferSize()
		if w == 0 || h == 0 {
			continue //minimized
		}
		if scene == nil || w != sw || h != sh {
			if scene != nil {
				backend.ReleaseTemporary(scene)
			}
			if scene, err = backend.Temporary(w, h, impostor.FormatColor, true); err != nil {
				return err
			}
			sw, sh = w, h
		}
		if err := backend.SetTargets([]impostor.Target{scene}, scene); err != nil {
			return err
		}
		if err := backend.Clear(true, true, background); err != nil {
			return err
		}
		if err := V.RenderTick(scene, glgpu.Screen(w, h)); err != nil {
			log.Error().Err(err).Int("frame", V.State.Current).Msg("render failed")
		}
		win.SwapBuffers()
	}
	log.Info().Int("frameErrors", V.FrameErrors()).Msg("bye")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "molview:", err)
		os.Exit(1)
	}
}
