package glbuild

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/moltenforge/vshader"
)

// Target is the graphics API whose binding model and shading language dialect is generated.
type Target uint8

const (
	// TargetOpenGL generates GLSL 4.30 core with flat uniform block binding points and texture units.
	// Push constants are lowered to plain uniforms with explicit locations.
	TargetOpenGL Target = iota
	// TargetVulkan generates GLSL 4.50 with descriptor sets and a push_constant block.
	TargetVulkan
	// TargetWebGPU generates WGSL bind groups. A sampler binding occupies two consecutive
	// binding indices: the texture followed by its sampler.
	TargetWebGPU
)

func (t Target) String() string {
	switch t {
	case TargetOpenGL:
		return "opengl"
	case TargetVulkan:
		return "vulkan"
	case TargetWebGPU:
		return "webgpu"
	}
	return "Target(" + strconv.Itoa(int(t)) + ")"
}

// ParseTarget parses the String representation of a target.
func ParseTarget(s string) (Target, bool) {
	for t := TargetOpenGL; t <= TargetWebGPU; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func (t Target) defaultVersion() int {
	switch t {
	case TargetVulkan:
		return 450
	case TargetOpenGL:
		return 430
	}
	return 0
}

var (
	// ErrBindingConflict is returned when two stages declare the same (set, binding) with different kinds.
	ErrBindingConflict = errors.New("binding declared with conflicting types")
	ErrStageConflict   = errors.New("pipeline declares a stage more than once")
)

// StageMask is a bitmask of the stages a resource is visible to.
type StageMask uint8

func stageBit(s vshader.Stage) StageMask { return 1 << s }

// Has reports whether the stage is in the mask.
func (m StageMask) Has(s vshader.Stage) bool { return m&stageBit(s) != 0 }

// MappedDescriptorBinding is the backend location of a user declared binding.
type MappedDescriptorBinding struct {
	// Index is the backend binding slot. For OpenGL it is the uniform block binding point
	// or texture unit, for Vulkan and WebGPU the binding number within the set.
	Index uint32
	// SamplerIndex is the binding number of the sampler half of a WebGPU sampler binding.
	SamplerIndex uint32
	Type         vshader.BindingType
	Visibility   StageMask
}

// MappedDescriptorSet is the backend location of a user declared descriptor set.
type MappedDescriptorSet struct {
	// Index is the backend set number. Always 0 for OpenGL.
	Index    uint32
	Bindings map[uint32]MappedDescriptorBinding
}

// PushConstantLocation locates a push constant member in the backend.
type PushConstantLocation struct {
	Stage  vshader.Stage
	Member int
	Type   vshader.DataType
	// Offset is the byte offset of the member. Vulkan stages share one push constant range
	// so the offset is absolute within it. On WebGPU it is relative to the stage's uniform buffer.
	Offset int
	// Location is the explicit uniform location on OpenGL, -1 on other targets.
	Location int
}

// PushConstantRange is the byte range a stage's push constant block occupies.
type PushConstantRange struct {
	Stage  vshader.Stage
	Offset int
	Size   int
}

// pushRangeAlign aligns stage ranges to the largest member alignment so member offsets keep their alignment.
const pushRangeAlign = 16

// MappedDescriptorSets maps the possibly sparse (set, binding) ids chosen by the user onto dense
// backend binding indices, and push constant members onto offsets or uniform locations.
// It is shared by all stages of a pipeline.
type MappedDescriptorSets struct {
	Target        Target
	Sets          map[uint32]MappedDescriptorSet
	PushConstants []PushConstantLocation
	// PushConstantRanges holds one range per stage declaring push constants, in stage order.
	// On Vulkan ranges are consecutive and do not overlap.
	PushConstantRanges []PushConstantRange
	// UniformBufferCount and TextureCount are the number of OpenGL block binding points and texture units used.
	UniformBufferCount int
	TextureCount       int
}

// Lookup returns the backend binding for the user's (set, binding) ids.
func (m *MappedDescriptorSets) Lookup(set, binding uint32) (MappedDescriptorSet, MappedDescriptorBinding, bool) {
	ms, ok := m.Sets[set]
	if !ok {
		return MappedDescriptorSet{}, MappedDescriptorBinding{}, false
	}
	mb, ok := ms.Bindings[binding]
	return ms, mb, ok
}

// PushConstant returns the location of the push constant member of the given stage.
func (m *MappedDescriptorSets) PushConstant(stage vshader.Stage, member int) (PushConstantLocation, bool) {
	for _, pc := range m.PushConstants {
		if pc.Stage == stage && pc.Member == member {
			return pc, true
		}
	}
	return PushConstantLocation{}, false
}

// PushRange returns the push constant range of stage.
func (m *MappedDescriptorSets) PushRange(stage vshader.Stage) (PushConstantRange, bool) {
	for _, r := range m.PushConstantRanges {
		if r.Stage == stage {
			return r, true
		}
	}
	return PushConstantRange{}, false
}

// SetIDs returns the user set ids in ascending order.
func (m *MappedDescriptorSets) SetIDs() []uint32 {
	return slices.Sorted(maps.Keys(m.Sets))
}

// BindingIDs returns the user binding ids of set in ascending order.
func (m *MappedDescriptorSets) BindingIDs(set uint32) []uint32 {
	return slices.Sorted(maps.Keys(m.Sets[set].Bindings))
}

type declared struct {
	typ  vshader.BindingType
	mask StageMask
	// members of a uniform buffer as declared by the first stage.
	members []vshader.DataType
}

func uniformMembers(b vshader.Binding) []vshader.DataType {
	ub, ok := b.(*vshader.UniformBuffer)
	if !ok {
		return nil
	}
	members := make([]vshader.DataType, ub.MemberCount())
	for i, uv := range ub.Members() {
		members[i] = uv.DataType()
	}
	return members
}

// NewMapping builds the binding tables shared by the stages of one pipeline. Scripts may declare the
// same (set, binding) as long as the binding kind agrees, in which case it is visible to both stages.
// A uniform buffer shared by stages must declare the same member types in the same order.
func NewMapping(target Target, scripts ...*vshader.Script) (*MappedDescriptorSets, error) {
	decl := make(map[uint32]map[uint32]declared)
	var seen StageMask
	var errs []error
	for _, s := range scripts {
		if s == nil {
			continue
		}
		bit := stageBit(s.Stage())
		if seen&bit != 0 {
			return nil, fmt.Errorf("%s: %w", s.Stage(), ErrStageConflict)
		}
		seen |= bit
		for setID, set := range s.DescriptorSets().All() {
			bindings := decl[setID]
			if bindings == nil {
				bindings = make(map[uint32]declared)
				decl[setID] = bindings
			}
			for bID, b := range set.All() {
				d, exists := bindings[bID]
				members := uniformMembers(b)
				if exists && d.typ != b.BindingType() {
					errs = append(errs, fmt.Errorf("set %d binding %d: %s in one stage, %s in %s: %w", setID, bID, d.typ, b.BindingType(), s.Stage(), ErrBindingConflict))
					continue
				} else if exists && !slices.Equal(d.members, members) {
					errs = append(errs, fmt.Errorf("set %d binding %d: uniform members %v in one stage, %v in %s: %w", setID, bID, d.members, members, s.Stage(), ErrBindingConflict))
					continue
				}
				d.typ = b.BindingType()
				d.members = members
				d.mask |= bit
				bindings[bID] = d
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	m := &MappedDescriptorSets{
		Target: target,
		Sets:   make(map[uint32]MappedDescriptorSet, len(decl)),
	}
	setIDs := slices.Sorted(maps.Keys(decl))
	var ubos, textures uint32
	for setRank, setID := range setIDs {
		ms := MappedDescriptorSet{Bindings: make(map[uint32]MappedDescriptorBinding)}
		if target != TargetOpenGL {
			ms.Index = uint32(setRank)
		}
		var next uint32
		for _, bID := range slices.Sorted(maps.Keys(decl[setID])) {
			d := decl[setID][bID]
			mb := MappedDescriptorBinding{Type: d.typ, Visibility: d.mask}
			switch {
			case target == TargetOpenGL && d.typ == vshader.BindingUniformBuffer:
				mb.Index = ubos
				ubos++
			case target == TargetOpenGL:
				mb.Index = textures
				textures++
			case target == TargetWebGPU && d.typ.IsSampler():
				mb.Index = next
				mb.SamplerIndex = next + 1
				next += 2
			default:
				mb.Index = next
				next++
			}
			ms.Bindings[bID] = mb
		}
		m.Sets[setID] = ms
	}
	m.UniformBufferCount = int(ubos)
	m.TextureCount = int(textures)

	location, end := 0, 0
	var stages []*vshader.Script
	for _, s := range scripts {
		if s != nil && s.PushConstants().MemberCount() > 0 {
			stages = append(stages, s)
		}
	}
	slices.SortFunc(stages, func(a, b *vshader.Script) int { return cmp.Compare(a.Stage(), b.Stage()) })
	for _, s := range stages {
		pcs := s.PushConstants()
		r := PushConstantRange{Stage: s.Stage(), Size: pcs.Size()}
		if target == TargetVulkan {
			r.Offset = alignUp(end, pushRangeAlign)
			end = r.Offset + r.Size
		}
		m.PushConstantRanges = append(m.PushConstantRanges, r)
		for i, member := range pcs.Members() {
			loc := PushConstantLocation{
				Stage:    s.Stage(),
				Member:   i,
				Type:     member.DataType(),
				Offset:   r.Offset + pcs.Offset(i),
				Location: -1,
			}
			if target == TargetOpenGL {
				loc.Location = location
				location += member.DataType().LocationSpan()
			}
			m.PushConstants = append(m.PushConstants, loc)
		}
	}
	return m, nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
