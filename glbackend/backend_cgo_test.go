//go:build !tinygo && cgo

package glbackend_test

import (
	"errors"
	"image"
	"runtime"
	"testing"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbackend"
	"github.com/soypat/geometry/ms3"
)

func init() {
	// GL contexts are bound to the thread that created them.
	runtime.LockOSThread()
}

func TestShaderProgram(t *testing.T) {
	terminate, err := glbackend.Init1x1GLFW()
	if err != nil {
		t.Skip("no OpenGL context:", err)
	}
	defer terminate()

	vs := vshader.NewVertexScript()
	pos := vs.InputInterface().AddMember(vshader.Vec3)
	uv := vs.InputInterface().AddMember(vshader.Vec2)
	mvp := vs.DescriptorSets().AddSet(3).AddUniformBuffer(1).AddMember(vshader.Mat4)
	pack, _ := vs.CreateFunction(vshader.FuncCreateVec4, vshader.Vec3, vshader.Float32)
	pack.InputPin(1).SetDefault(vshader.ValueOf[float32](1))
	mul, _ := vs.CreateOperator(vshader.OpMul, vshader.Mat4, vshader.Vec4)
	vuv := vs.OutputInterface().AddMember(vshader.Vec2)
	vs.Connect(pos.Output(), pack.InputPin(0))
	vs.Connect(mvp.Output(), mul.Left())
	vs.Connect(pack.Output(), mul.Right())
	vs.Connect(mul.Output(), vs.VertexOutput().Input())
	vs.Connect(uv.Output(), vuv.Input())

	fs := vshader.NewFragmentScript()
	fuv := fs.InputInterface().AddMember(vshader.Vec2)
	tint := fs.PushConstants().AddMember(vshader.Vec4)
	smp := fs.DescriptorSets().AddSet(0).AddSampler2D(5)
	sample, _ := fs.CreateFunction(vshader.FuncTexture2D, vshader.Sampler2D, vshader.Vec2)
	tinted, _ := fs.CreateOperator(vshader.OpMul, vshader.Vec4, vshader.Vec4)
	out := fs.OutputInterface().AddMember(vshader.Vec4)
	fs.Connect(smp.Sampler().Output(), sample.InputPin(0))
	fs.Connect(fuv.Output(), sample.InputPin(1))
	fs.Connect(sample.Output(), tinted.Left())
	fs.Connect(tint.Output(), tinted.Right())
	fs.Connect(tinted.Output(), out.Input())

	prog, err := glbackend.CreateShaderProgram(vs, fs)
	if err != nil {
		t.Fatal(err)
	}
	defer prog.Delete()
	prog.Bind()
	defer prog.Unbind()

	ubo, err := glbackend.NewUniformBuffer(make([]byte, 64))
	if err != nil {
		t.Fatal(err)
	}
	defer ubo.Delete()
	if err := prog.BindUniformBuffer(3, 1, ubo); err != nil {
		t.Fatal(err)
	}
	if err := prog.BindUniformBuffer(0, 5, ubo); !errors.Is(err, vshader.ErrTypeMismatch) {
		t.Fatal("want type mismatch binding buffer to sampler, got", err)
	}
	tex, err := glbackend.NewTexture2D(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Delete()
	if err := prog.BindTexture(0, 5, tex); err != nil {
		t.Fatal(err)
	}
	if err := prog.SetPushConstant(vshader.StageFragment, 0, vshader.ValueOf(vshader.Float4{X: 1, Y: 1, Z: 1, W: 1})); err != nil {
		t.Fatal(err)
	}
	if err := prog.SetPushConstant(vshader.StageFragment, 0, vshader.ValueOf(ms3.Vec{})); err == nil {
		t.Fatal("expected error setting vec3 to vec4 push constant")
	}
	va, err := glbackend.NewVertexArray(vs, []float32{
		0, 0, 0, 0, 0,
		1, 0, 0, 1, 0,
		0, 1, 0, 0, 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer va.Delete()
	if err := va.Draw(); err != nil {
		t.Fatal(err)
	}
	if prog.Stale() {
		t.Fatal("fresh program reported stale")
	}
	fs.CreateConstant(vshader.ValueOf[float32](0))
	if !prog.Stale() {
		t.Fatal("mutation not detected")
	}
}
