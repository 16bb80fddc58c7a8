package vshader

import (
	"cmp"
	"iter"
	"log/slog"
	"slices"
	"strconv"
)

// BindingType is the kind of resource a [Binding] refers to.
type BindingType uint8

const (
	BindingUndefined BindingType = iota
	BindingUniformBuffer
	BindingSampler1D
	BindingSampler2D
	BindingSampler3D
)

func (bt BindingType) String() string {
	switch bt {
	case BindingUniformBuffer:
		return "uniform"
	case BindingSampler1D:
		return "sampler1D"
	case BindingSampler2D:
		return "sampler2D"
	case BindingSampler3D:
		return "sampler3D"
	}
	return "BindingType(" + strconv.Itoa(int(bt)) + ")"
}

// ParseBindingType parses the String representation of a binding type.
func ParseBindingType(s string) (BindingType, bool) {
	for bt := BindingUniformBuffer; bt <= BindingSampler3D; bt++ {
		if bt.String() == s {
			return bt, true
		}
	}
	return BindingUndefined, false
}

// IsSampler reports whether the binding is a combined texture sampler.
func (bt BindingType) IsSampler() bool { return bt >= BindingSampler1D && bt <= BindingSampler3D }

// SamplerType returns the data type of the sampler variable of a sampler binding.
func (bt BindingType) SamplerType() DataType {
	if !bt.IsSampler() {
		return DataTypeUndefined
	}
	return Sampler1D + DataType(bt-BindingSampler1D)
}

// Binding is a resource slot of a [DescriptorSet]. It is implemented by [*UniformBuffer],
// [*Sampler1DBinding], [*Sampler2DBinding] and [*Sampler3DBinding].
type Binding interface {
	// ID returns the user chosen binding id, unique within its set.
	ID() uint32
	BindingType() BindingType
	// Set returns the descriptor set holding the binding or nil if it was removed.
	Set() *DescriptorSet

	release()
}

type bindingBase struct {
	id  uint32
	set *DescriptorSet
}

func (bb *bindingBase) ID() uint32          { return bb.id }
func (bb *bindingBase) Set() *DescriptorSet { return bb.set }

// UniformBuffer is a uniform block binding whose members are laid out following std140 rules.
type UniformBuffer struct {
	bindingBase
	members []*UniformVariable
}

func (ub *UniformBuffer) BindingType() BindingType { return BindingUniformBuffer }

// AddMember appends a member of type dt to the buffer and returns the variable node reading it.
// It returns nil for samplers and invalid types or if the buffer was removed from its set.
func (ub *UniformBuffer) AddMember(dt DataType) *UniformVariable {
	if !dt.IsValid() || dt.IsSampler() || ub.set == nil {
		return nil
	}
	uv := &UniformVariable{variable: variable{kind: VariableUniform, dt: dt}, buffer: ub}
	uv.initPins(uv, nil, []DataType{dt})
	ub.set.script().register(uv, NodeVariable)
	ub.members = append(ub.members, uv)
	return uv
}

// RemoveMember destroys the member variable. Offsets of the following members are recomputed.
func (ub *UniformBuffer) RemoveMember(uv *UniformVariable) bool {
	idx := slices.Index(ub.members, uv)
	if idx < 0 {
		return false
	}
	ub.members = slices.Delete(ub.members, idx, idx+1)
	uv.buffer = nil
	uv.script.destroy(uv)
	return true
}

func (ub *UniformBuffer) MemberCount() int { return len(ub.members) }

// Member returns the i'th member or nil if i is out of range.
func (ub *UniformBuffer) Member(i int) *UniformVariable {
	if i < 0 || i >= len(ub.members) {
		return nil
	}
	return ub.members[i]
}

// Members returns a snapshot of the members in declaration order.
func (ub *UniformBuffer) Members() []*UniformVariable { return slices.Clone(ub.members) }

// Size returns the std140 size of the buffer in bytes, padded to a multiple of 16.
func (ub *UniformBuffer) Size() int {
	end := 0
	for _, m := range ub.members {
		end = alignUp(end, m.dt.Align()) + m.dt.Size()
	}
	return alignUp(end, 16)
}

func (ub *UniformBuffer) offset(uv *UniformVariable) int {
	off := 0
	for _, m := range ub.members {
		off = alignUp(off, m.dt.Align())
		if m == uv {
			return off
		}
		off += m.dt.Size()
	}
	return -1
}

func (ub *UniformBuffer) release() {
	for _, m := range ub.members {
		m.buffer = nil
		m.script.destroy(m)
	}
	ub.members = nil
	ub.set = nil
}

type samplerBinding struct {
	bindingBase
	sampler *SamplerVariable
}

// Sampler returns the variable node exposing the sampler to the graph.
func (sb *samplerBinding) Sampler() *SamplerVariable { return sb.sampler }

func (sb *samplerBinding) release() {
	if sb.sampler != nil {
		sb.sampler.binding = nil
		sb.sampler.script.destroy(sb.sampler)
		sb.sampler = nil
	}
	sb.set = nil
}

// Sampler1DBinding is a combined image sampler binding of a one dimensional texture.
type Sampler1DBinding struct{ samplerBinding }

// Sampler2DBinding is a combined image sampler binding of a two dimensional texture.
type Sampler2DBinding struct{ samplerBinding }

// Sampler3DBinding is a combined image sampler binding of a three dimensional texture.
type Sampler3DBinding struct{ samplerBinding }

func (*Sampler1DBinding) BindingType() BindingType { return BindingSampler1D }
func (*Sampler2DBinding) BindingType() BindingType { return BindingSampler2D }
func (*Sampler3DBinding) BindingType() BindingType { return BindingSampler3D }

var (
	_ Binding = (*UniformBuffer)(nil)
	_ Binding = (*Sampler1DBinding)(nil)
	_ Binding = (*Sampler2DBinding)(nil)
	_ Binding = (*Sampler3DBinding)(nil)
)

// DescriptorSet is a group of bindings keyed by id. Bindings are iterated in ascending id order.
type DescriptorSet struct {
	id       uint32
	sets     *DescriptorSets
	bindings []Binding
}

// ID returns the user chosen set id, unique within its script.
func (ds *DescriptorSet) ID() uint32 { return ds.id }

func (ds *DescriptorSet) script() *Script {
	if ds.sets == nil {
		return nil
	}
	return ds.sets.script
}

func (ds *DescriptorSet) search(id uint32) (int, bool) {
	return slices.BinarySearchFunc(ds.bindings, id, func(b Binding, id uint32) int {
		return cmp.Compare(b.ID(), id)
	})
}

// AddBinding adds a binding of type bt with the given id. It returns nil if the id is already
// used within the set, if bt is not a valid binding type or if the set was removed.
func (ds *DescriptorSet) AddBinding(bt BindingType, id uint32) Binding {
	s := ds.script()
	if s == nil {
		return nil
	}
	idx, found := ds.search(id)
	if found {
		Logger().Debug("duplicate binding id", slog.Uint64("set", uint64(ds.id)), slog.Uint64("binding", uint64(id)))
		return nil
	}
	base := bindingBase{id: id, set: ds}
	var b Binding
	var sb *samplerBinding
	switch bt {
	case BindingUniformBuffer:
		b = &UniformBuffer{bindingBase: base}
	case BindingSampler1D:
		v := &Sampler1DBinding{samplerBinding{bindingBase: base}}
		b, sb = v, &v.samplerBinding
	case BindingSampler2D:
		v := &Sampler2DBinding{samplerBinding{bindingBase: base}}
		b, sb = v, &v.samplerBinding
	case BindingSampler3D:
		v := &Sampler3DBinding{samplerBinding{bindingBase: base}}
		b, sb = v, &v.samplerBinding
	default:
		return nil
	}
	if sb != nil {
		dt := bt.SamplerType()
		sv := &SamplerVariable{variable: variable{kind: VariableSampler, dt: dt}, binding: b}
		sv.initPins(sv, nil, []DataType{dt})
		s.register(sv, NodeVariable)
		sb.sampler = sv
	}
	ds.bindings = slices.Insert(ds.bindings, idx, b)
	s.touch()
	return b
}

// AddUniformBuffer adds a uniform buffer binding. It returns nil if id is already in use.
func (ds *DescriptorSet) AddUniformBuffer(id uint32) *UniformBuffer {
	b, _ := ds.AddBinding(BindingUniformBuffer, id).(*UniformBuffer)
	return b
}

// AddSampler1D adds a 1D sampler binding. It returns nil if id is already in use.
func (ds *DescriptorSet) AddSampler1D(id uint32) *Sampler1DBinding {
	b, _ := ds.AddBinding(BindingSampler1D, id).(*Sampler1DBinding)
	return b
}

// AddSampler2D adds a 2D sampler binding. It returns nil if id is already in use.
func (ds *DescriptorSet) AddSampler2D(id uint32) *Sampler2DBinding {
	b, _ := ds.AddBinding(BindingSampler2D, id).(*Sampler2DBinding)
	return b
}

// AddSampler3D adds a 3D sampler binding. It returns nil if id is already in use.
func (ds *DescriptorSet) AddSampler3D(id uint32) *Sampler3DBinding {
	b, _ := ds.AddBinding(BindingSampler3D, id).(*Sampler3DBinding)
	return b
}

// RemoveBinding removes the binding with the given id along with the variable nodes reading it.
// Removing a nonexistent id is a no-op that returns false.
func (ds *DescriptorSet) RemoveBinding(id uint32) bool {
	idx, found := ds.search(id)
	if !found {
		return false
	}
	return ds.RemoveBindingAt(idx)
}

// RemoveBindingAt removes the binding at position i in iteration order.
func (ds *DescriptorSet) RemoveBindingAt(i int) bool {
	if i < 0 || i >= len(ds.bindings) {
		return false
	}
	b := ds.bindings[i]
	ds.bindings = slices.Delete(ds.bindings, i, i+1)
	b.release()
	if s := ds.script(); s != nil {
		s.touch()
	}
	return true
}

// Binding returns the binding with the given id or nil if it does not exist.
func (ds *DescriptorSet) Binding(id uint32) Binding {
	idx, found := ds.search(id)
	if !found {
		return nil
	}
	return ds.bindings[idx]
}

// BindingAt returns the binding at position i in ascending id order or nil if i is out of range.
func (ds *DescriptorSet) BindingAt(i int) Binding {
	if i < 0 || i >= len(ds.bindings) {
		return nil
	}
	return ds.bindings[i]
}

func (ds *DescriptorSet) BindingCount() int { return len(ds.bindings) }

// Bindings returns a snapshot of the bindings in ascending id order.
func (ds *DescriptorSet) Bindings() []Binding { return slices.Clone(ds.bindings) }

// All iterates over the bindings in ascending id order.
func (ds *DescriptorSet) All() iter.Seq2[uint32, Binding] {
	return func(yield func(uint32, Binding) bool) {
		for _, b := range ds.bindings {
			if !yield(b.ID(), b) {
				return
			}
		}
	}
}

// GetBinding returns the binding of set with the given id if it exists and is of type T.
// It returns the zero value of T on a kind mismatch.
func GetBinding[T Binding](set *DescriptorSet, id uint32) T {
	var zero T
	if set == nil {
		return zero
	}
	b, ok := set.Binding(id).(T)
	if !ok {
		return zero
	}
	return b
}

// DescriptorSets holds the descriptor sets of a script keyed by id. Sets are iterated in ascending id order.
type DescriptorSets struct {
	script *Script
	sets   []*DescriptorSet
}

func (dss *DescriptorSets) search(id uint32) (int, bool) {
	return slices.BinarySearchFunc(dss.sets, id, func(ds *DescriptorSet, id uint32) int {
		return cmp.Compare(ds.id, id)
	})
}

// AddSet adds an empty set with the given id. It returns nil if the id is already in use.
func (dss *DescriptorSets) AddSet(id uint32) *DescriptorSet {
	idx, found := dss.search(id)
	if found {
		Logger().Debug("duplicate descriptor set id", slog.Uint64("set", uint64(id)))
		return nil
	}
	ds := &DescriptorSet{id: id, sets: dss}
	dss.sets = slices.Insert(dss.sets, idx, ds)
	dss.script.touch()
	return ds
}

// RemoveSet removes the set with the given id and all of its bindings.
// Removing a nonexistent id is a no-op that returns false.
func (dss *DescriptorSets) RemoveSet(id uint32) bool {
	idx, found := dss.search(id)
	if !found {
		return false
	}
	return dss.RemoveSetAt(idx)
}

// RemoveSetAt removes the set at position i in iteration order.
func (dss *DescriptorSets) RemoveSetAt(i int) bool {
	if i < 0 || i >= len(dss.sets) {
		return false
	}
	ds := dss.sets[i]
	for len(ds.bindings) > 0 {
		ds.RemoveBindingAt(len(ds.bindings) - 1)
	}
	ds.sets = nil
	dss.sets = slices.Delete(dss.sets, i, i+1)
	dss.script.touch()
	return true
}

// Set returns the set with the given id or nil if it does not exist.
func (dss *DescriptorSets) Set(id uint32) *DescriptorSet {
	idx, found := dss.search(id)
	if !found {
		return nil
	}
	return dss.sets[idx]
}

// SetAt returns the set at position i in ascending id order or nil if i is out of range.
func (dss *DescriptorSets) SetAt(i int) *DescriptorSet {
	if i < 0 || i >= len(dss.sets) {
		return nil
	}
	return dss.sets[i]
}

func (dss *DescriptorSets) SetCount() int { return len(dss.sets) }

// Sets returns a snapshot of the sets in ascending id order.
func (dss *DescriptorSets) Sets() []*DescriptorSet { return slices.Clone(dss.sets) }

// All iterates over the sets in ascending id order.
func (dss *DescriptorSets) All() iter.Seq2[uint32, *DescriptorSet] {
	return func(yield func(uint32, *DescriptorSet) bool) {
		for _, ds := range dss.sets {
			if !yield(ds.id, ds) {
				return
			}
		}
	}
}

// BindingCount returns the total number of bindings across all sets.
func (dss *DescriptorSets) BindingCount() (n int) {
	for _, ds := range dss.sets {
		n += len(ds.bindings)
	}
	return n
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
