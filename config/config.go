/*
 * config.go, part of molview.
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

//Package config loads the settings of the viewer and the tools, from defaults, an optional
//file and MOLVIEW_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/impostor"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//EnvPrefix is the prefix of the environment variables that override the settings.
//MOLVIEW_PLAYBACK_DELAY sets playback.delay, and so on.
const EnvPrefix = "MOLVIEW"

//Playback sets the ticks between frame advances and the frames advanced each time.
type Playback struct {
	Delay int `mapstructure:"delay"`
	Step  int `mapstructure:"step"`
}

//Smoothing sets the fraction of the remaining distance covered each tick, in [0,1].
type Smoothing struct {
	Speed float64 `mapstructure:"speed"`
}

//Render has the impostor drawing settings.
type Render struct {
	PointScale     float64 `mapstructure:"pointScale"`
	ShowAtomColors bool    `mapstructure:"showAtomColors"`
	AtomAlpha      float64 `mapstructure:"atomAlpha"`
	SphereAlpha    float64 `mapstructure:"sphereAlpha"`
}

//Tunnel selects the tunnel shown.
type Tunnel struct {
	Selected int `mapstructure:"selected"` //-1 shows all the tunnels
}

//AO has the ambient occlusion post effect settings.
type AO struct {
	Radius         float64 `mapstructure:"radius"`
	Intensity      float64 `mapstructure:"intensity"`
	Sharpness      float64 `mapstructure:"sharpness"`
	BlurIterations int     `mapstructure:"blurIterations"`
}

//Capacity bounds the device buffers. Inputs larger than these are rejected.
type Capacity struct {
	Atoms         int `mapstructure:"atoms"`
	Spheres       int `mapstructure:"spheres"`
	Types         int `mapstructure:"types"`
	TemplateAtoms int `mapstructure:"templateAtoms"`
}

//Files are the input files. Topology, a PDB file, is optional.
type Files struct {
	Atoms       string `mapstructure:"atoms"`
	TunnelIndex string `mapstructure:"tunnelIndex"`
	Tunnels     string `mapstructure:"tunnels"`
	Topology    string `mapstructure:"topology"`
}

//Viewport is the initial size of the window, or of the rendered image.
type Viewport struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

//Shaders gives the directory with the GLSL sources, <pass>.vert and <pass>.frag.
type Shaders struct {
	Dir string `mapstructure:"dir"`
}

//Config has all the settings.
type Config struct {
	LogLevel  string    `mapstructure:"logLevel"`
	Playback  Playback  `mapstructure:"playback"`
	Smoothing Smoothing `mapstructure:"smoothing"`
	Render    Render    `mapstructure:"render"`
	Tunnel    Tunnel    `mapstructure:"tunnel"`
	AO        AO        `mapstructure:"ao"`
	Capacity  Capacity  `mapstructure:"capacity"`
	Files     Files     `mapstructure:"files"`
	Viewport  Viewport  `mapstructure:"viewport"`
	Prefetch  bool      `mapstructure:"prefetch"`
	Shaders   Shaders   `mapstructure:"shaders"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")

	v.SetDefault("playback.delay", 3)
	v.SetDefault("playback.step", 1)

	v.SetDefault("smoothing.speed", 0.25)

	v.SetDefault("render.pointScale", 1.0)
	v.SetDefault("render.showAtomColors", true)
	v.SetDefault("render.atomAlpha", 1.0)
	v.SetDefault("render.sphereAlpha", 0.5)

	v.SetDefault("tunnel.selected", -1)

	ao := impostor.DefaultAO()
	v.SetDefault("ao.radius", ao.Radius)
	v.SetDefault("ao.intensity", ao.Intensity)
	v.SetDefault("ao.sharpness", ao.Sharpness)
	v.SetDefault("ao.blurIterations", ao.BlurIterations)

	c := gpu.DefaultCapacity()
	v.SetDefault("capacity.atoms", c.Atoms)
	v.SetDefault("capacity.spheres", c.Spheres)
	v.SetDefault("capacity.types", c.Types)
	v.SetDefault("capacity.templateAtoms", c.TemplateAtoms)

	v.SetDefault("files.atoms", "atoms.bin")
	v.SetDefault("files.tunnelIndex", "tunnels.idx")
	v.SetDefault("files.tunnels", "tunnels.bin")
	v.SetDefault("files.topology", "")

	v.SetDefault("viewport.width", 1024)
	v.SetDefault("viewport.height", 768)

	v.SetDefault("prefetch", false)
	v.SetDefault("shaders.dir", "shaders")
}

//Default returns the default settings.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	C := new(Config)
	if err := v.Unmarshal(C); err != nil {
		panic("config: defaults don't unmarshal: " + err.Error())
	}
	return C
}

//Load reads the settings from the file path (json, yaml or toml, by extension), over
//the defaults, and applies the environment overrides. An empty path uses only the
//defaults and the environment. The settings are validated.
func Load(path string) (*Config, error) {
	return LoadFlags(path, nil)
}

//Flags returns a flag set with the settings most often changed from the command line.
//The flag names are the setting keys, so LoadFlags can bind them directly.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("logLevel", "info", "log level: debug, info, warn or error")
	fs.String("files.atoms", "atoms.bin", "atom trajectory file")
	fs.String("files.tunnelIndex", "tunnels.idx", "tunnel index file")
	fs.String("files.tunnels", "tunnels.bin", "tunnel sphere file")
	fs.String("files.topology", "", "PDB file with the molecule, optional")
	fs.Int("playback.delay", 3, "ticks between frames")
	fs.Int("playback.step", 1, "frames advanced each time")
	fs.Float64("smoothing.speed", 0.25, "smoothing speed, 1 disables smoothing")
	fs.Int("tunnel.selected", -1, "tunnel to show, -1 for all")
	fs.Int("viewport.width", 1024, "viewport width")
	fs.Int("viewport.height", 768, "viewport height")
	fs.Bool("prefetch", false, "load the next frame in the background")
	fs.String("shaders.dir", "shaders", "directory with the GL shaders")
	return fs
}

//LoadFlags is like Load, but the flags in fs that were set on the command line take
//precedence over the environment and the file. fs can be nil.
func LoadFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	C := new(Config)
	if err := v.Unmarshal(C); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := C.Validate(); err != nil {
		return nil, err
	}
	return C, nil
}

func inRange(errs []error, name string, val, lo, hi float64) []error {
	if val < lo || val > hi {
		errs = append(errs, fmt.Errorf("%s = %g, out of [%g,%g]", name, val, lo, hi))
	}
	return errs
}

//Validate returns an error listing every setting out of its range.
func (C *Config) Validate() error {
	var errs []error
	if C.Playback.Delay < 1 {
		errs = append(errs, fmt.Errorf("playback.delay = %d, must be at least 1", C.Playback.Delay))
	}
	if C.Playback.Step < 1 {
		errs = append(errs, fmt.Errorf("playback.step = %d, must be at least 1", C.Playback.Step))
	}
	errs = inRange(errs, "smoothing.speed", C.Smoothing.Speed, 0, 1)
	if C.Render.PointScale <= 0 || C.Render.PointScale > 10 {
		errs = append(errs, fmt.Errorf("render.pointScale = %g, out of (0,10]", C.Render.PointScale))
	}
	errs = inRange(errs, "render.atomAlpha", C.Render.AtomAlpha, 0, 1)
	errs = inRange(errs, "render.sphereAlpha", C.Render.SphereAlpha, 0, 1)
	if C.Tunnel.Selected < -1 {
		errs = append(errs, fmt.Errorf("tunnel.selected = %d, must be -1 (all) or a tunnel id", C.Tunnel.Selected))
	}
	if err := C.AOParams().Validate(); err != nil {
		errs = append(errs, err)
	}
	c := C.Capacity
	if c.Atoms < 0 || c.Spheres < 0 || c.Types <= 0 || c.TemplateAtoms <= 0 {
		errs = append(errs, fmt.Errorf("invalid capacity %+v", c))
	}
	if C.Viewport.Width <= 0 || C.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid viewport %dx%d", C.Viewport.Width, C.Viewport.Height))
	}
	if C.Files.Atoms == "" {
		errs = append(errs, errors.New("files.atoms not set"))
	}
	return errors.Join(errs...)
}

//AOParams returns the ambient occlusion settings for the pipeline.
func (C *Config) AOParams() impostor.AOParams {
	return impostor.AOParams{Radius: C.AO.Radius, Intensity: C.AO.Intensity, Sharpness: C.AO.Sharpness, BlurIterations: C.AO.BlurIterations}
}

//GPUCapacity returns the buffer capacities.
func (C *Config) GPUCapacity() gpu.Capacity {
	return gpu.Capacity{Atoms: C.Capacity.Atoms, Spheres: C.Capacity.Spheres, Types: C.Capacity.Types, TemplateAtoms: C.Capacity.TemplateAtoms}
}
