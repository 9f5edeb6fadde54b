/*
 * glgpu_test.go, part of molview.
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
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/molview/gpu"
	"github.com/rmera/molview/impostor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//These tests don't need a GL context.

func writeShaders(Te *testing.T, dir string) {
	for p := impostor.Pass(0); p < impostor.NPasses; p++ {
		v, f := ShaderFiles(dir, p)
		require.NoError(Te, os.WriteFile(v, []byte("#version 430\nvoid main(){}\n"), 0o644))
		require.NoError(Te, os.WriteFile(f, []byte("#version 430\nvoid main(){}\n"), 0o644))
	}
}

func TestShaderFiles(Te *testing.T) {
	v, f := ShaderFiles("shaders", impostor.PassCull)
	assert.Equal(Te, filepath.Join("shaders", "cull.vert"), v)
	assert.Equal(Te, filepath.Join("shaders", "cull.frag"), f)
}

func TestLoadSources(Te *testing.T) {
	dir := Te.TempDir()
	writeShaders(Te, dir)
	src, err := LoadSources(dir)
	require.NoError(Te, err)
	for i, s := range src {
		assert.Equal(Te, impostor.Pass(i), s.Pass)
		assert.Contains(Te, s.Vertex, "#version 430")
		assert.Contains(Te, s.Fragment, "void main")
	}
}

func TestLoadSourcesMissing(Te *testing.T) {
	dir := Te.TempDir()
	writeShaders(Te, dir)
	_, f := ShaderFiles(dir, impostor.PassImpostor)
	require.NoError(Te, os.Remove(f))
	_, err := LoadSources(dir)
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "impostor.frag")

	require.NoError(Te, os.WriteFile(f, []byte("  \n"), 0o644))
	_, err = LoadSources(dir)
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "empty")
}

func TestBufferTarget(Te *testing.T) {
	for _, k := range []gpu.Kind{gpu.Structured, gpu.Append, gpu.IndirectArgs} {
		_, err := bufferTarget(k)
		assert.NoError(Te, err, k.String())
	}
	_, err := bufferTarget(gpu.Kind(7))
	assert.Error(Te, err)
}

func TestScreenTarget(Te *testing.T) {
	s := Screen(640, 480)
	assert.Equal(Te, 640, s.Width())
	assert.Equal(Te, 480, s.Height())
	T, err := asTarget(s)
	require.NoError(Te, err)
	assert.True(Te, T.screen)
	_, err = asTarget(&Target{released: true})
	assert.Error(Te, err)
}
