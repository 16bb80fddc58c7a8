package wgslbuild

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
)

// BindGroupLayout holds the layout entries of one bind group.
type BindGroupLayout struct {
	Group   uint32
	Entries []gputypes.BindGroupLayoutEntry
}

// BindGroupLayouts returns the bind group layouts of a pipeline, ordered by group index.
// Sampler bindings produce a texture entry and a sampler entry. If any of scripts declares
// push constants a trailing group holds their uniform buffers, see [PushConstantGroup].
func BindGroupLayouts(m *glbuild.MappedDescriptorSets, scripts ...*vshader.Script) ([]BindGroupLayout, error) {
	if m.Target != glbuild.TargetWebGPU {
		return nil, fmt.Errorf("mapping built for %s, want %s", m.Target, glbuild.TargetWebGPU)
	}
	var layouts []BindGroupLayout
	for _, setID := range m.SetIDs() {
		ms := m.Sets[setID]
		layout := BindGroupLayout{Group: ms.Index}
		for _, bID := range m.BindingIDs(setID) {
			mb := ms.Bindings[bID]
			entry := gputypes.BindGroupLayoutEntry{Binding: mb.Index}
			if mb.Visibility.Has(vshader.StageVertex) {
				entry.Visibility |= gputypes.ShaderStageVertex
			}
			if mb.Visibility.Has(vshader.StageFragment) {
				entry.Visibility |= gputypes.ShaderStageFragment
			}
			if mb.Type == vshader.BindingUniformBuffer {
				entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
				layout.Entries = append(layout.Entries, entry)
				continue
			}
			smp := entry
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: viewDimension(mb.Type),
			}
			smp.Binding = mb.SamplerIndex
			smp.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
			layout.Entries = append(layout.Entries, entry, smp)
		}
		layouts = append(layouts, layout)
	}

	push := BindGroupLayout{Group: PushConstantGroup(m)}
	for _, s := range scripts {
		if s == nil || s.PushConstants().MemberCount() == 0 {
			continue
		}
		entry := gputypes.BindGroupLayoutEntry{
			Binding: uint32(s.Stage()),
			Buffer:  &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
		if s.Stage() == vshader.StageVertex {
			entry.Visibility = gputypes.ShaderStageVertex
		} else {
			entry.Visibility = gputypes.ShaderStageFragment
		}
		push.Entries = append(push.Entries, entry)
	}
	if len(push.Entries) > 0 {
		slices.SortFunc(push.Entries, func(a, b gputypes.BindGroupLayoutEntry) int { return cmp.Compare(a.Binding, b.Binding) })
		layouts = append(layouts, push)
	}
	return layouts, nil
}

func viewDimension(bt vshader.BindingType) gputypes.TextureViewDimension {
	switch bt {
	case vshader.BindingSampler1D:
		return gputypes.TextureViewDimension1D
	case vshader.BindingSampler3D:
		return gputypes.TextureViewDimension3D
	}
	return gputypes.TextureViewDimension2D
}

// VertexBufferLayout returns the layout of a single interleaved vertex buffer feeding the
// input interface of the vertex script s. Attributes are tightly packed in member order.
func VertexBufferLayout(s *vshader.Script) (gputypes.VertexBufferLayout, error) {
	if s.Stage() != vshader.StageVertex {
		return gputypes.VertexBufferLayout{}, fmt.Errorf("vertex buffer layout of %s script", s.Stage())
	}
	var attrs []gputypes.VertexAttribute
	var offset uint64
	for _, iv := range s.InputInterface().Members() {
		loc := uint32(iv.Location())
		switch dt := iv.DataType(); dt {
		case vshader.Mat4:
			// One attribute per column.
			for col := uint32(0); col < 4; col++ {
				attrs = append(attrs, gputypes.VertexAttribute{Format: gputypes.VertexFormatFloat32x4, Offset: offset, ShaderLocation: loc + col})
				offset += 16
			}
		default:
			format, ok := vertexFormat(dt)
			if !ok {
				return gputypes.VertexBufferLayout{}, fmt.Errorf("vertex input %d of type %s: %w", loc, dt, vshader.ErrInvalidType)
			}
			attrs = append(attrs, gputypes.VertexAttribute{Format: format, Offset: offset, ShaderLocation: loc})
			offset += uint64(dt.Size())
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

func vertexFormat(dt vshader.DataType) (format gputypes.VertexFormat, ok bool) {
	switch dt {
	case vshader.Int32:
		return gputypes.VertexFormatSint32, true
	case vshader.Float32:
		return gputypes.VertexFormatFloat32, true
	case vshader.Vec2:
		return gputypes.VertexFormatFloat32x2, true
	case vshader.Vec3:
		return gputypes.VertexFormatFloat32x3, true
	case vshader.Vec4:
		return gputypes.VertexFormatFloat32x4, true
	}
	return format, false
}
