package wgslbuild_test

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/moltenforge/vshader/wgslbuild"
	"github.com/soypat/geometry/ms2"
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newVertexScript(t *testing.T) *vshader.Script {
	t.Helper()
	vs := vshader.NewVertexScript()
	pos := vs.InputInterface().AddMember(vshader.Vec3)
	color := vs.InputInterface().AddMember(vshader.Vec4)
	mvp := vs.DescriptorSets().AddSet(0).AddUniformBuffer(0).AddMember(vshader.Mat4)
	pack, err := vs.CreateFunction(vshader.FuncCreateVec4, vshader.Vec3, vshader.Float32)
	must(t, err)
	pack.InputPin(1).SetDefault(vshader.ValueOf[float32](1))
	mul, err := vs.CreateOperator(vshader.OpMul, vshader.Mat4, vshader.Vec4)
	must(t, err)
	out := vs.OutputInterface().AddMember(vshader.Vec4)
	must(t, vs.Connect(pos.Output(), pack.InputPin(0)))
	must(t, vs.Connect(mvp.Output(), mul.Left()))
	must(t, vs.Connect(pack.Output(), mul.Right()))
	must(t, vs.Connect(mul.Output(), vs.VertexOutput().Input()))
	must(t, vs.Connect(color.Output(), out.Input()))
	return vs
}

func newFragmentScript(t *testing.T) *vshader.Script {
	t.Helper()
	fs := vshader.NewFragmentScript()
	color := fs.InputInterface().AddMember(vshader.Vec4)
	fs.PushConstants().AddMember(vshader.Float32)
	gain := fs.PushConstants().AddMember(vshader.Float32)
	smp := fs.DescriptorSets().AddSet(2).AddSampler2D(4)
	sample, err := fs.CreateFunction(vshader.FuncTexture2D, vshader.Sampler2D, vshader.Vec2)
	must(t, err)
	sample.InputPin(1).SetDefault(vshader.ValueOf(ms2.Vec{X: 0.5, Y: 0.5}))
	mul, err := fs.CreateOperator(vshader.OpMul, vshader.Vec4, vshader.Vec4)
	must(t, err)
	scale, err := fs.CreateOperator(vshader.OpMul, vshader.Vec4, vshader.Float32)
	must(t, err)
	clamp, err := fs.CreateFunction(vshader.FuncClamp, vshader.Vec4, vshader.Float32, vshader.Float32)
	must(t, err)
	clamp.InputPin(1).SetDefault(vshader.ValueOf[float32](0))
	clamp.InputPin(2).SetDefault(vshader.ValueOf[float32](1))
	out := fs.OutputInterface().AddMember(vshader.Vec4)
	must(t, fs.Connect(smp.Sampler().Output(), sample.InputPin(0)))
	must(t, fs.Connect(sample.Output(), mul.Left()))
	must(t, fs.Connect(color.Output(), mul.Right()))
	must(t, fs.Connect(mul.Output(), scale.Left()))
	must(t, fs.Connect(gain.Output(), scale.Right()))
	must(t, fs.Connect(scale.Output(), clamp.InputPin(0)))
	must(t, fs.Connect(clamp.Output(), out.Input()))
	return fs
}

func assertContains(t *testing.T, src string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(src, w) {
			t.Errorf("missing %q in source:\n%s", w, src)
		}
	}
}

func TestWriteWGSLVertex(t *testing.T) {
	vs := newVertexScript(t)
	var sb strings.Builder
	_, res, err := wgslbuild.NewProgrammer().WriteWGSL(&sb, vs, nil)
	must(t, err)
	if res.Mapping.Target != glbuild.TargetWebGPU {
		t.Fatal("result mapping target", res.Mapping.Target)
	}
	assertContains(t, sb.String(),
		"struct UB_s0_b0 {\n\tm0: mat4x4<f32>,\n}\n",
		"@group(0) @binding(0) var<uniform> ub_s0_b0: UB_s0_b0;",
		"@builtin(position) position: vec4<f32>,\n\t@location(0) io_0: vec4<f32>,",
		"@vertex\nfn vs_main(@location(0) vin_0: vec3<f32>, @location(1) vin_1: vec4<f32>) -> VertexOutput {",
		"let t0: vec4<f32> = vec4<f32>(vin_0, 1.);",
		"let t1: vec4<f32> = ub_s0_b0.m0 * t0;",
		"out.position = t1;",
		"out.io_0 = vin_1;",
		"return out;",
	)
}

func TestWriteWGSLFragment(t *testing.T) {
	vs, fs := newVertexScript(t), newFragmentScript(t)
	m, err := glbuild.NewMapping(glbuild.TargetWebGPU, vs, fs)
	must(t, err)
	var sb strings.Builder
	_, _, err = wgslbuild.NewProgrammer(wgslbuild.WithEntryPoint(vshader.StageFragment, "main")).WriteWGSL(&sb, fs, m)
	must(t, err)
	assertContains(t, sb.String(),
		// Set 2 ranks after set 0, the texture takes binding 0 and its sampler binding 1.
		"@group(1) @binding(0) var tex_s2_b4: texture_2d<f32>;",
		"@group(1) @binding(1) var tex_s2_b4_smp: sampler;",
		"struct PushConstants {\n\tm0: f32,\n\tm1: f32,\n}",
		"@group(2) @binding(1) var<uniform> pc: PushConstants;",
		"@fragment\nfn main(@location(0) io_0: vec4<f32>) -> FragmentOutput {",
		"let t0: vec4<f32> = textureSample(tex_s2_b4, tex_s2_b4_smp, vec2<f32>(0.5, 0.5));",
		"let t1: vec4<f32> = t0 * io_0;",
		"let t2: vec4<f32> = t1 * pc.m1;",
		"let t3: vec4<f32> = clamp(t2, vec4<f32>(0.), vec4<f32>(1.));",
		"out.fout_0 = t3;",
	)
}

func TestWriteWGSLTargetMismatch(t *testing.T) {
	vs := newVertexScript(t)
	m, err := glbuild.NewMapping(glbuild.TargetVulkan, vs)
	must(t, err)
	_, _, err = wgslbuild.NewProgrammer().WriteWGSL(new(strings.Builder), vs, m)
	if err == nil {
		t.Fatal("expected error for vulkan mapping")
	}
}

func TestUniformPadding(t *testing.T) {
	fs := vshader.NewFragmentScript()
	ub := fs.DescriptorSets().AddSet(0).AddUniformBuffer(0)
	ub.AddMember(vshader.Float32)
	ub.AddMember(vshader.Vec4)
	ub.AddMember(vshader.Bool)
	var sb strings.Builder
	_, _, err := wgslbuild.NewProgrammer().WriteWGSL(&sb, fs, nil)
	must(t, err)
	// The float is padded up to the vec4 at offset 16, booleans are stored as u32.
	assertContains(t, sb.String(), "\t@size(16) m0: f32,\n\tm1: vec4<f32>,\n\tm2: u32,\n")
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		v    vshader.Value
		want string
	}{
		{vshader.ValueOf(true), "true"},
		{vshader.ValueOf[int32](-3), "-3i"},
		{vshader.ValueOf[float32](2.5), "2.5"},
		{vshader.ValueOf(vshader.Float4{X: 1, Y: 0, Z: -1, W: 0.25}), "vec4<f32>(1., 0., -1., 0.25)"},
	}
	for _, test := range tests {
		got := string(wgslbuild.AppendLiteral(nil, test.v))
		if got != test.want {
			t.Errorf("literal %s: want %q, got %q", test.v, test.want, got)
		}
	}
}

func TestBindGroupLayouts(t *testing.T) {
	vs, fs := newVertexScript(t), newFragmentScript(t)
	m, err := glbuild.NewMapping(glbuild.TargetWebGPU, vs, fs)
	must(t, err)
	layouts, err := wgslbuild.BindGroupLayouts(m, vs, fs)
	must(t, err)
	if len(layouts) != 3 {
		t.Fatal("want 3 bind groups, got", len(layouts))
	}
	ubo := layouts[0].Entries[0]
	if ubo.Buffer == nil || ubo.Buffer.Type != gputypes.BufferBindingTypeUniform || ubo.Visibility != gputypes.ShaderStageVertex {
		t.Errorf("unexpected uniform entry %+v", ubo)
	}
	tex := layouts[1].Entries
	if len(tex) != 2 || tex[0].Texture == nil || tex[1].Sampler == nil || tex[1].Binding != 1 {
		t.Errorf("unexpected sampler entries %+v", tex)
	}
	if tex[0].Texture.ViewDimension != gputypes.TextureViewDimension2D {
		t.Error("wrong view dimension")
	}
	push := layouts[2]
	if push.Group != wgslbuild.PushConstantGroup(m) || len(push.Entries) != 1 || push.Entries[0].Binding != 1 {
		t.Errorf("unexpected push constant group %+v", push)
	}
}

func TestVertexBufferLayout(t *testing.T) {
	vs := newVertexScript(t)
	vs.InputInterface().AddMember(vshader.Mat4)
	vs.InputInterface().AddMember(vshader.Int32)
	layout, err := wgslbuild.VertexBufferLayout(vs)
	must(t, err)
	if layout.ArrayStride != 12+16+64+4 {
		t.Fatal("unexpected stride", layout.ArrayStride)
	}
	if len(layout.Attributes) != 7 {
		t.Fatal("want 7 attributes, got", len(layout.Attributes))
	}
	last := layout.Attributes[6]
	if last.ShaderLocation != 6 || last.Offset != 92 || last.Format != gputypes.VertexFormatSint32 {
		t.Errorf("unexpected int attribute %+v", last)
	}
	if _, err := wgslbuild.VertexBufferLayout(vshader.NewFragmentScript()); err == nil {
		t.Error("expected error for fragment script")
	}
}

func TestCompileSPIRVInvalid(t *testing.T) {
	if _, err := wgslbuild.CompileSPIRV("fn main( {"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestCompileSPIRV(t *testing.T) {
	vs, fs := newVertexScript(t), newFragmentScript(t)
	m, err := glbuild.NewMapping(glbuild.TargetWebGPU, vs, fs)
	must(t, err)
	p := wgslbuild.NewProgrammer()
	for _, s := range []*vshader.Script{vs, fs} {
		words, res, err := p.CompileSPIRV(s, m)
		if err != nil {
			t.Fatalf("%s: %v", s.Stage(), err)
		}
		if len(words) < 5 {
			t.Fatalf("%s: module of %d words shorter than the SPIR-V header", s.Stage(), len(words))
		}
		if words[0] != 0x07230203 {
			t.Errorf("%s: bad SPIR-V magic %#x", s.Stage(), words[0])
		}
		if res.Stage() != s.Stage() || res.Mapping != m {
			t.Errorf("%s: unexpected result", s.Stage())
		}
	}
}
