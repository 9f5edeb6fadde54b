/*
 * manager.go, part of molview.
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

package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rmera/molview"
	v3 "github.com/rmera/molview/v3"
	"github.com/rs/zerolog"
)

//Set identifies one of the classes of entities drawn by the pipeline.
type Set int

const (
	Atoms Set = iota
	Spheres
	NSets
)

func (S Set) String() string {
	switch S {
	case Atoms:
		return "atoms"
	case Spheres:
		return "spheres"
	default:
		return fmt.Sprintf("Set(%d)", int(S))
	}
}

//Capacity has the maximum number of entities, molecule types and template atoms
//the buffers can hold. They are fixed when the Manager is created.
type Capacity struct {
	Atoms         int
	Spheres       int
	Types         int //molecule types
	TemplateAtoms int //atoms in all molecule templates together
}

//DefaultCapacity returns the default capacities.
func DefaultCapacity() Capacity {
	return Capacity{Atoms: 100000, Spheres: 25000, Types: 1000, TemplateAtoms: 1000000}
}

//Of returns the capacity for the entity set s.
func (C Capacity) Of(s Set) int {
	if s == Spheres {
		return C.Spheres
	}
	return C.Atoms
}

//EntityData is what gets uploaded for a set of entities. All slices must have
//the same number of elements as Positions has vectors, except that Colors can be nil,
//in which case the entity colors are uploaded as zeros.
type EntityData struct {
	Positions *v3.Matrix
	Types     []int
	Alphas    []float64
	Radii     []float64
	Colors    []mgl32.Vec4
}

//Len returns the number of entities in D
func (D EntityData) Len() int { return D.Positions.NVecs() }

//EntityBuffers are the device buffers for one set of entities.
type EntityBuffers struct {
	Positions Buffer //vec4
	Types     Buffer //int32
	Alphas    Buffer //float32
	Radii     Buffer //float32
	Colors    Buffer //vec4
}

//complete returns true if all the buffers of E exist.
func (E *EntityBuffers) complete() bool {
	ok := true
	E.each(func(b *Buffer) { ok = ok && *b != nil })
	return ok
}

func (E *EntityBuffers) each(f func(b *Buffer)) {
	f(&E.Positions)
	f(&E.Types)
	f(&E.Alphas)
	f(&E.Radii)
	f(&E.Colors)
}

//TypeBuffers are the device buffers with the registered molecule types.
type TypeBuffers struct {
	AtomCount Buffer //int32, atoms in each type
	AtomStart Buffer //int32, offset of each type's first atom in Templates
	Templates Buffer //vec4, x, y, z, radius
	Colors    Buffer //vec4, one per type
}

func (T *TypeBuffers) each(f func(b *Buffer)) {
	f(&T.AtomCount)
	f(&T.AtomStart)
	f(&T.Templates)
	f(&T.Colors)
}

//Manager owns the device buffers of the pipeline. Buffers are created lazily,
//reallocated only on viewport changes (the fragment buffer) or type registration
//(the type tables), and all released by Close.
type Manager struct {
	dev      Device
	capacity Capacity
	log      zerolog.Logger
	entities [NSets]EntityBuffers
	counts   [NSets]int
	scratch  []byte

	fragments     Buffer
	width, height int

	drawArgs Buffer

	atomRadii  Buffer
	atomColors Buffer
	lutSize    int

	types     TypeBuffers
	typeIndex map[string]int
	nTemplate int //atoms in all templates

	closed bool
}

//NewManager returns a Manager that creates its buffers in dev, with the given capacity
//An invalid capacity gives an error.
func NewManager(dev Device, capacity Capacity, log zerolog.Logger) (*Manager, error) {
	if capacity.Atoms < 0 || capacity.Spheres < 0 || capacity.Types <= 0 || capacity.TemplateAtoms <= 0 {
		return nil, fmt.Errorf("NewManager: invalid capacity %+v", capacity)
	}
	return &Manager{dev: dev, capacity: capacity, log: log, typeIndex: make(map[string]int)}, nil
}

//Capacity returns the capacities of the manager.
func (M *Manager) Capacity() Capacity { return M.capacity }

//replace puts nb in *slot, releasing the buffer that was there, if any.
func (M *Manager) replace(slot *Buffer, nb Buffer) {
	if *slot != nil {
		M.log.Debug().Str("buffer", (*slot).Desc().Name).Msg("releasing buffer")
		(*slot).Release()
	}
	*slot = nb
}

func (M *Manager) alloc(name string, count, stride int, kind Kind) (Buffer, error) {
	if M.closed {
		return nil, fmt.Errorf("buffer %s requested from a closed manager", name)
	}
	b, err := M.dev.NewBuffer(BufferDesc{Name: name, Count: count, Stride: stride, Kind: kind})
	if err != nil {
		return nil, fmt.Errorf("allocating %s: %w", name, err)
	}
	M.log.Debug().Str("buffer", name).Int("count", count).Int("stride", stride).Msg("allocated buffer")
	return b, nil
}

//Validate returns a CapacityExceededError if n entities of set s don't fit in the buffers.
func (M *Manager) Validate(s Set, n int) error {
	if c := M.capacity.Of(s); n > c {
		return molview.NewCapacityExceededError(s.String(), n, c)
	}
	return nil
}

//Count returns the number of entities uploaded for set s.
func (M *Manager) Count(s Set) int { return M.counts[s] }

//Entities returns the buffers for the set s. They are nil before the first upload.
func (M *Manager) Entities(s Set) EntityBuffers { return M.entities[s] }

//allocEntities creates the five buffers of the set s. They are installed only if all of
//them could be created.
func (M *Manager) allocEntities(s Set) error {
	c := max(M.capacity.Of(s), 1)
	specs := []struct {
		name   string
		stride int
	}{
		{"positions", Vec4Stride},
		{"types", Int32Stride},
		{"alphas", Float32Stride},
		{"radii", Float32Stride},
		{"colors", Vec4Stride},
	}
	bufs := make([]Buffer, 0, len(specs))
	for _, v := range specs {
		b, err := M.alloc(s.String()+"."+v.name, c, v.stride, Structured)
		if err != nil {
			for _, r := range bufs {
				r.Release()
			}
			return err
		}
		bufs = append(bufs, b)
	}
	E := &M.entities[s]
	i := 0
	E.each(func(slot *Buffer) {
		M.replace(slot, bufs[i])
		i++
	})
	return nil
}

type pendingWrite struct {
	b    Buffer
	data []byte
}

//Upload copies the data of the set s to the device. It checks the capacity before anything
//is written, and allocates the buffers on the first call.
func (M *Manager) Upload(s Set, data EntityData) error {
	n := data.Len()
	if err := M.Validate(s, n); err != nil {
		return molview.ErrDecorate(err, "Upload")
	}
	if len(data.Types) != n || len(data.Alphas) != n || len(data.Radii) != n || (data.Colors != nil && len(data.Colors) != n) {
		return fmt.Errorf("Upload: inconsistent data for %d %s", n, s)
	}
	if !M.entities[s].complete() {
		if err := M.allocEntities(s); err != nil {
			return err
		}
	}
	E := M.entities[s]
	//scratch is reused for the positions, the largest buffer.
	M.scratch = Positions(M.scratch[:0], data.Positions, 1)
	writes := []pendingWrite{
		{E.Positions, M.scratch},
		{E.Types, Ints(nil, data.Types)},
		{E.Alphas, Float64s(nil, data.Alphas)},
		{E.Radii, Float64s(nil, data.Radii)},
	}
	if data.Colors != nil {
		writes = append(writes, pendingWrite{E.Colors, Vec4s(nil, data.Colors...)})
	} else {
		writes = append(writes, pendingWrite{E.Colors, make([]byte, n*Vec4Stride)})
	}
	for _, w := range writes {
		if err := w.b.Write(0, w.data); err != nil {
			return fmt.Errorf("Upload %s: %w", w.b.Desc().Name, err)
		}
	}
	M.counts[s] = n
	return nil
}

//Resize makes sure the fragment buffer can hold one record per pixel of a
//w x h viewport. The buffer is reallocated only if the viewport changed. It returns true
//if it was reallocated.
func (M *Manager) Resize(w, h int) (bool, error) {
	if w <= 0 || h <= 0 {
		return false, fmt.Errorf("Resize: invalid viewport %dx%d", w, h)
	}
	if M.fragments != nil && w == M.width && h == M.height {
		return false, nil
	}
	b, err := M.alloc("fragments", w*h, FragmentStride, Append)
	if err != nil {
		return false, err
	}
	M.replace(&M.fragments, b)
	M.width, M.height = w, h
	M.log.Debug().Int("width", w).Int("height", h).Msg("fragment buffer reallocated")
	return true, nil
}

//Fragments returns the fragment (append) buffer, nil before the first Resize.
func (M *Manager) Fragments() Buffer { return M.fragments }

//Viewport returns the viewport size for which the fragment buffer was allocated.
func (M *Manager) Viewport() (int, int) { return M.width, M.height }

//DrawArgs returns the indirect draw arguments buffer, creating it on the first call.
func (M *Manager) DrawArgs() (Buffer, error) {
	if M.drawArgs != nil {
		return M.drawArgs, nil
	}
	b, err := M.alloc("drawArgs", 1, DrawArgsStride, IndirectArgs)
	if err != nil {
		return nil, err
	}
	if err := b.Write(0, Uint32s(nil, DrawArgsInit[:]...)); err != nil {
		b.Release()
		return nil, err
	}
	M.drawArgs = b
	return b, nil
}

//SetTypeTable uploads the radius and color lookup tables for the atom types in table.
func (M *Manager) SetTypeTable(table *molview.TypeTable) error {
	n := table.Len()
	if n == 0 {
		return fmt.Errorf("SetTypeTable: empty table")
	}
	radii, err := M.alloc("atomRadii", n, Float32Stride, Structured)
	if err != nil {
		return err
	}
	if err := radii.Write(0, Float32s(nil, table.Radii()...)); err != nil {
		radii.Release()
		return err
	}
	colors, err := M.alloc("atomColors", n, Vec4Stride, Structured)
	if err != nil {
		radii.Release()
		return err
	}
	cdata := make([]byte, 0, n*Vec4Stride)
	for _, c := range table.Colors() {
		cdata = Float32s(cdata, c[:]...)
	}
	if err := colors.Write(0, cdata); err != nil {
		radii.Release()
		colors.Release()
		return err
	}
	M.replace(&M.atomRadii, radii)
	M.replace(&M.atomColors, colors)
	M.lutSize = n
	return nil
}

//LookupTables returns the atom radius and color buffers, nil before SetTypeTable.
func (M *Manager) LookupTables() (radii, colors Buffer) { return M.atomRadii, M.atomColors }

//Types returns the buffers with the registered molecule types.
func (M *Manager) Types() TypeBuffers { return M.types }

//NTypes returns the number of registered molecule types
func (M *Manager) NTypes() int { return len(M.typeIndex) }

//TypeIndex returns the index of the molecule type name, and whether it is registered.
func (M *Manager) TypeIndex(name string) (int, bool) {
	i, ok := M.typeIndex[name]
	return i, ok
}

//grown returns a new buffer with the contents of old (which can be nil) followed by extra,
//which must be a whole number of records. old is not modified.
func (M *Manager) grown(old Buffer, name string, stride int, extra []byte) (Buffer, error) {
	var data []byte
	if old != nil {
		data = make([]byte, old.Desc().Size(), old.Desc().Size()+len(extra))
		if err := old.Read(data); err != nil {
			return nil, fmt.Errorf("reading back %s: %w", name, err)
		}
	}
	data = append(data, extra...)
	b, err := M.alloc(name, len(data)/stride, stride, Structured)
	if err != nil {
		return nil, err
	}
	if err := b.Write(0, data); err != nil {
		b.Release()
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	return b, nil
}

//RegisterType registers the molecule type name, with the atoms of its template (x, y, z, radius)
//and a color, and returns its index. Registering a name again just returns its index.
//Each new type grows the type buffers by reading back their contents, and rewriting them,
//with the new data appended, in newly allocated buffers. The atom start offsets are cumulative.
func (M *Manager) RegisterType(name string, atoms []mgl32.Vec4, color mgl32.Vec4) (int, error) {
	if i, ok := M.typeIndex[name]; ok {
		return i, nil
	}
	if len(atoms) == 0 {
		return -1, fmt.Errorf("RegisterType: type %s has no atoms", name)
	}
	n := len(M.typeIndex)
	if n+1 > M.capacity.Types {
		return -1, molview.ErrDecorate(molview.NewCapacityExceededError("molecule types", n+1, M.capacity.Types), "RegisterType")
	}
	if M.nTemplate+len(atoms) > M.capacity.TemplateAtoms {
		return -1, molview.ErrDecorate(molview.NewCapacityExceededError("template atoms", M.nTemplate+len(atoms), M.capacity.TemplateAtoms), "RegisterType")
	}
	T := &M.types
	steps := []struct {
		slot   *Buffer
		name   string
		stride int
		extra  []byte
	}{
		{&T.AtomCount, "molAtomCount", Int32Stride, Int32s(nil, int32(len(atoms)))},
		{&T.AtomStart, "molAtomStart", Int32Stride, Int32s(nil, int32(M.nTemplate))},
		{&T.Templates, "atomTemplates", Vec4Stride, Vec4s(nil, atoms...)},
		{&T.Colors, "molColors", Vec4Stride, Vec4s(nil, color)},
	}
	//the type buffers are swapped only when all the new ones are ready
	bufs := make([]Buffer, 0, len(steps))
	for _, v := range steps {
		b, err := M.grown(*v.slot, v.name, v.stride, v.extra)
		if err != nil {
			for _, r := range bufs {
				r.Release()
			}
			return -1, molview.ErrDecorate(err, "RegisterType")
		}
		bufs = append(bufs, b)
	}
	for i, v := range steps {
		M.replace(v.slot, bufs[i])
	}
	M.nTemplate += len(atoms)
	M.typeIndex[name] = n
	M.log.Info().Str("type", name).Int("index", n).Int("atoms", len(atoms)).Msg("molecule type registered")
	return n, nil
}

//Close releases all the buffers. It can be called more than once, and the
//Manager can't be used afterwards.
func (M *Manager) Close() {
	if M.closed {
		return
	}
	release := func(b *Buffer) { M.replace(b, nil) }
	for i := range M.entities {
		M.entities[i].each(release)
		M.counts[i] = 0
	}
	M.types.each(release)
	release(&M.fragments)
	release(&M.drawArgs)
	release(&M.atomRadii)
	release(&M.atomColors)
	M.closed = true
}
