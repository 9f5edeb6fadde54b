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

//Command trajinfo prints statistics of a raw trajectory and its tunnels, and plots them.
//With -render, it also draws one frame with the software backend into a PNG file.
package main

import (
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview/config"
	"github.com/rmera/molview/gpu/soft"
	"github.com/rmera/molview/impostor"
	"github.com/rmera/molview/traj/rawtraj"
	"github.com/rmera/molview/trajplot"
	"github.com/rmera/molview/viewer"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "trajinfo:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := config.Flags("trajinfo")
	cfgFile := fs.String("config", "", "configuration file (json, yaml or toml)")
	step := fs.Int("step", 1, "use one of every step frames")
	plotFile := fs.String("plot", "", "plot the per-frame series into this file (png, svg, pdf)")
	histFile := fs.String("hist", "", "plot the sphere radius histogram into this file")
	bins := fs.Int("bins", 20, "bins of the radius histogram")
	render := fs.String("render", "", "render a frame into this PNG file")
	frame := fs.Int("frame", 0, "frame to render")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	cfg, err := config.LoadFlags(*cfgFile, fs)
	if err != nil {
		return err
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl).With().Timestamp().Logger()

	traj, err := rawtraj.Open(cfg.Files.Atoms, cfg.Files.TunnelIndex, cfg.Files.Tunnels, rawtraj.WithLogger(log))
	if err != nil {
		return err
	}
	defer traj.Close()
	fmt.Printf("%s: %d frames, %d atoms, up to %d tunnel spheres per frame\n", cfg.Files.Atoms, traj.NFrames(), traj.Len(), traj.MaxTunnelSpheres())

	S, err := trajplot.Collect(traj, *step)
	if err != nil {
		return err
	}
	if len(S.Skipped) > 0 {
		log.Warn().Ints("frames", S.Skipped).Msg("frames skipped")
	}
	fmt.Printf("frames read: %d\n", S.Len())
	fmt.Printf("spheres:     %s\n", trajplot.Summarize(S.Spheres))
	fmt.Printf("tunnels:     %s\n", trajplot.Summarize(S.Tunnels))
	fmt.Printf("RMSD:        %s\n", trajplot.Summarize(S.RMSD))
	fmt.Printf("radii:       %s\n", trajplot.Summarize(S.Radii))
	if *plotFile != "" {
		if err := trajplot.Plot(S, cfg.Files.Atoms, *plotFile); err != nil {
			return err
		}
	}
	if *histFile != "" && len(S.Radii) > 0 {
		if err := trajplot.PlotRadii(S, *bins, "tunnel sphere radii", *histFile); err != nil {
			return err
		}
	}
	if *render != "" {
		return renderFrame(cfg, traj, *frame, *render, log)
	}
	return nil
}

//renderFrame draws frame i of traj on the CPU and saves it as a PNG file.
func renderFrame(cfg *config.Config, traj *rawtraj.Trajectory, i int, name string, log zerolog.Logger) error {
	dev := soft.NewDevice()
	backend := soft.NewBackend(dev, log)
	cfg.Smoothing.Speed = 1
	V, err := viewer.New(cfg, traj, dev, backend, log)
	if err != nil {
		return err
	}
	defer V.Close()
	V.State = V.State.Scrub(i)
	V.SimTick(viewer.Input{})
	w, h := cfg.Viewport.Width, cfg.Viewport.Height
	src := soft.NewTexture(w, h, impostor.FormatColor, true)
	src.Fill(mgl32.Vec4{0, 0, 0, 1})
	dst := soft.NewTexture(w, h, impostor.FormatColor, true)
	if err := V.RenderTick(src, dst); err != nil {
		return err
	}
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(out, dst.Image()); err != nil {
		out.Close()
		return err
	}
	log.Info().Int("frame", V.State.Current).Str("file", name).Msg("frame rendered")
	return out.Close()
}
