/*
 * shaders.go, part of molview.
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

package glgpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/rmera/molview/impostor"
)

//Source is the GLSL code of one pass.
type Source struct {
	Pass     impostor.Pass
	Vertex   string
	Fragment string
}

//ShaderFiles returns the vertex and fragment file names for pass in dir,
//<dir>/<pass>.vert and <dir>/<pass>.frag.
func ShaderFiles(dir string, pass impostor.Pass) (vert, frag string) {
	return filepath.Join(dir, pass.String()+".vert"), filepath.Join(dir, pass.String()+".frag")
}

//LoadSources reads the shaders of all passes from dir. A missing or empty file is an error.
func LoadSources(dir string) ([impostor.NPasses]Source, error) {
	var ret [impostor.NPasses]Source
	for p := impostor.Pass(0); p < impostor.NPasses; p++ {
		vname, fname := ShaderFiles(dir, p)
		v, err := readShader(vname)
		if err != nil {
			return ret, err
		}
		f, err := readShader(fname)
		if err != nil {
			return ret, err
		}
		ret[p] = Source{Pass: p, Vertex: v, Fragment: f}
	}
	return ret, nil
}

func readShader(name string) (string, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("glgpu: can't read shader: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", fmt.Errorf("glgpu: shader %s is empty", name)
	}
	return string(b), nil
}

func compileShader(source string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		msg := make([]byte, length+1)
		gl.GetShaderInfoLog(shader, length, nil, &msg[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(string(msg), "\x00"))
	}
	return shader, nil
}

//linkProgram compiles and links both shaders of s.
func linkProgram(s Source) (uint32, error) {
	vert, err := compileShader(s.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("glgpu: vertex shader of %s: %w", s.Pass, err)
	}
	defer gl.DeleteShader(vert)
	frag, err := compileShader(s.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("glgpu: fragment shader of %s: %w", s.Pass, err)
	}
	defer gl.DeleteShader(frag)
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &length)
		msg := make([]byte, length+1)
		gl.GetProgramInfoLog(prog, length, nil, &msg[0])
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("glgpu: program %s link error: %s", s.Pass, strings.TrimRight(string(msg), "\x00"))
	}
	return prog, nil
}
