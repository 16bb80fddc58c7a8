package vshader_test

import (
	"slices"
	"testing"

	"github.com/moltenforge/vshader"
)

func TestDescriptorSetIDs(t *testing.T) {
	s := vshader.NewFragmentScript()
	sets := s.DescriptorSets()
	if sets.AddSet(0) == nil {
		t.Fatal("first AddSet(0) returned nil")
	}
	if sets.AddSet(0) != nil {
		t.Fatal("duplicate AddSet(0) returned non-nil")
	}
	if sets.SetCount() != 1 {
		t.Fatal("want 1 set, got", sets.SetCount())
	}
	if sets.AddSet(1) == nil || sets.SetCount() != 2 {
		t.Fatal("AddSet(1) failed")
	}
	if !sets.RemoveSet(0) || sets.SetCount() != 1 {
		t.Fatal("RemoveSet(0) failed")
	}
	if sets.Set(0) != nil {
		t.Fatal("removed set still accessible")
	}
	if first := sets.SetAt(0); first == nil || first.ID() != 1 {
		t.Fatal("first remaining set should have id 1")
	}
	if sets.RemoveSet(42) || sets.SetCount() != 1 {
		t.Fatal("removing nonexistent set changed count")
	}
}

func TestDescriptorSetOrder(t *testing.T) {
	s := vshader.NewVertexScript()
	sets := s.DescriptorSets()
	for _, id := range []uint32{5, 1, 3} {
		sets.AddSet(id)
	}
	var got []uint32
	for id, set := range sets.All() {
		if set.ID() != id {
			t.Fatal("iteration id mismatch")
		}
		got = append(got, id)
	}
	if !slices.Equal(got, []uint32{1, 3, 5}) {
		t.Fatal("want ascending order, got", got)
	}
}

func TestBindingRemoval(t *testing.T) {
	s := vshader.NewFragmentScript()
	set := s.DescriptorSets().AddSet(0)
	for id := range uint32(32) {
		if set.AddUniformBuffer(id) == nil {
			t.Fatal("add binding", id)
		}
	}
	if set.BindingCount() != 32 {
		t.Fatal("want 32 bindings, got", set.BindingCount())
	}
	for _, id := range []uint32{10, 12, 13, 15, 0} {
		if !set.RemoveBinding(id) {
			t.Fatal("remove binding", id)
		}
	}
	if set.BindingCount() != 27 {
		t.Fatal("want 27 bindings, got", set.BindingCount())
	}
	if set.BindingAt(0).ID() != 1 {
		t.Fatal("want first binding id 1, got", set.BindingAt(0).ID())
	}
	if set.RemoveBinding(10) {
		t.Fatal("removed nonexistent binding")
	}
	prev := int64(-1)
	for id := range set.All() {
		if int64(id) <= prev {
			t.Fatal("bindings out of order")
		}
		prev = int64(id)
	}
}

func TestGetBindingKind(t *testing.T) {
	s := vshader.NewFragmentScript()
	set := s.DescriptorSets().AddSet(0)
	set.AddUniformBuffer(0)
	set.AddSampler2D(1)
	if set.BindingCount() != 2 {
		t.Fatal("want 2 bindings")
	}
	if vshader.GetBinding[*vshader.UniformBuffer](set, 0) == nil {
		t.Fatal("uniform buffer not found")
	}
	if vshader.GetBinding[*vshader.Sampler2DBinding](set, 0) != nil {
		t.Fatal("kind mismatch returned non-nil")
	}
	smp := vshader.GetBinding[*vshader.Sampler2DBinding](set, 1)
	if smp == nil || smp.Sampler().DataType() != vshader.Sampler2D {
		t.Fatal("sampler binding lookup failed")
	}
	if set.AddSampler3D(1) != nil {
		t.Fatal("duplicate binding id accepted")
	}
}

func TestBindingRemovalDestroysNodes(t *testing.T) {
	s := vshader.NewFragmentScript()
	set := s.DescriptorSets().AddSet(2)
	ub := set.AddUniformBuffer(0)
	tint := ub.AddMember(vshader.Vec4)
	smp := set.AddSampler2D(1)
	fn, _ := s.CreateFunction(vshader.FuncTexture2D, vshader.Sampler2D, vshader.Vec2)
	smp.Sampler().Output().Connect(fn.InputPin(0))
	if s.NodeCount() != 3 {
		t.Fatal("want 3 nodes, got", s.NodeCount())
	}
	// Destroying the sampler variable removes its binding.
	if !s.DestroyNode(smp.Sampler()) {
		t.Fatal("destroy sampler failed")
	}
	if set.Binding(1) != nil || fn.InputPin(0).IsConnected() {
		t.Fatal("sampler binding survived its variable")
	}
	if !s.DescriptorSets().RemoveSet(2) {
		t.Fatal("remove set failed")
	}
	if s.Contains(tint) || tint.Offset() != -1 || s.NodeCount() != 1 {
		t.Fatal("uniform member survived set removal")
	}
}

func TestUniformBufferLayout(t *testing.T) {
	s := vshader.NewVertexScript()
	ub := s.DescriptorSets().AddSet(0).AddUniformBuffer(0)
	f := ub.AddMember(vshader.Float32)
	v3 := ub.AddMember(vshader.Vec3)
	v2 := ub.AddMember(vshader.Vec2)
	m := ub.AddMember(vshader.Mat4)
	for _, test := range []struct {
		got, want int
	}{
		{f.Offset(), 0},
		{v3.Offset(), 16},
		{v2.Offset(), 32},
		{m.Offset(), 48},
		{ub.Size(), 112},
	} {
		if test.got != test.want {
			t.Errorf("want %d, got %d", test.want, test.got)
		}
	}
	if ub.AddMember(vshader.Sampler2D) != nil {
		t.Fatal("sampler uniform member accepted")
	}
}

func TestPushConstantOffsets(t *testing.T) {
	s := vshader.NewVertexScript()
	pc := s.PushConstants()
	m := pc.AddMember(vshader.Mat4)
	f := pc.AddMember(vshader.Float32)
	i := pc.AddMember(vshader.Int32)
	if m.Offset() != 0 || f.Offset() != 64 || i.Offset() != 68 || pc.Size() != 72 {
		t.Fatal("unexpected offsets", m.Offset(), f.Offset(), i.Offset(), pc.Size())
	}
	s.DestroyNode(f)
	if i.Offset() != 64 || pc.MemberCount() != 2 || f.Offset() != -1 {
		t.Fatal("offsets not updated after removal")
	}
	if pc.AddMember(vshader.Sampler1D) != nil {
		t.Fatal("sampler push constant accepted")
	}
}
