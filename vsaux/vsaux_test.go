package vsaux_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/moltenforge/vshader/vsaux"
)

func newPipeline(t *testing.T) (vs, fs *vshader.Script) {
	t.Helper()
	vs = vshader.NewVertexScript()
	pos := vs.InputInterface().AddMember(vshader.Vec3)
	mvp := vs.DescriptorSets().AddSet(0).AddUniformBuffer(0).AddMember(vshader.Mat4)
	pack, err := vs.CreateFunction(vshader.FuncCreateVec4, vshader.Vec3, vshader.Float32)
	if err != nil {
		t.Fatal(err)
	}
	pack.InputPin(1).SetDefault(vshader.ValueOf[float32](1))
	mul, err := vs.CreateOperator(vshader.OpMul, vshader.Mat4, vshader.Vec4)
	if err != nil {
		t.Fatal(err)
	}
	must(t, vs.Connect(pos.Output(), pack.InputPin(0)))
	must(t, vs.Connect(mvp.Output(), mul.Left()))
	must(t, vs.Connect(pack.Output(), mul.Right()))
	must(t, vs.Connect(mul.Output(), vs.VertexOutput().Input()))

	fs = vshader.NewFragmentScript()
	tint := fs.CreateConstant(vsaux.ColorValue(color.NRGBA{R: 255, A: 255}))
	out := fs.OutputInterface().AddMember(vshader.Vec4)
	must(t, fs.Connect(tint.Output(), out.Input()))
	return vs, fs
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuildSources(t *testing.T) {
	vs, fs := newPipeline(t)
	for _, test := range []struct {
		target     glbuild.Target
		vert, frag string
	}{
		{target: glbuild.TargetOpenGL, vert: "#version 430 core\n", frag: "#version 430 core\n"},
		{target: glbuild.TargetVulkan, vert: "#version 450\n", frag: "#version 450\n"},
		{target: glbuild.TargetWebGPU, vert: "@vertex\n", frag: "@fragment\n"},
	} {
		t.Run(test.target.String(), func(t *testing.T) {
			var vbuf, fbuf strings.Builder
			m, err := vsaux.BuildSources(vs, fs, vsaux.BuildConfig{
				Target:         test.target,
				VertexOutput:   &vbuf,
				FragmentOutput: &fbuf,
				Silent:         true,
			})
			if err != nil {
				t.Fatal(err)
			}
			if m.Target != test.target {
				t.Errorf("mapping target %s, want %s", m.Target, test.target)
			}
			if !strings.Contains(vbuf.String(), test.vert) {
				t.Errorf("vertex source missing %q:\n%s", test.vert, vbuf.String())
			}
			if !strings.Contains(fbuf.String(), test.frag) {
				t.Errorf("fragment source missing %q:\n%s", test.frag, fbuf.String())
			}
		})
	}
}

func TestBuildSourcesSingleStage(t *testing.T) {
	_, fs := newPipeline(t)
	var fbuf bytes.Buffer
	_, err := vsaux.BuildSources(nil, fs, vsaux.BuildConfig{FragmentOutput: &fbuf, Silent: true})
	if err != nil {
		t.Fatal(err)
	}
	if fbuf.Len() == 0 {
		t.Fatal("no fragment source written")
	}
}

func TestBuildSourcesErrors(t *testing.T) {
	vs, fs := newPipeline(t)
	var buf bytes.Buffer
	for name, cfg := range map[string]vsaux.BuildConfig{
		"no output":      {},
		"spirv opengl":   {VertexOutput: &buf, SPIRV: true},
		"gpu on vulkan":  {VertexOutput: &buf, Target: glbuild.TargetVulkan, UseGPU: true},
		"missing script": {VertexOutput: &buf, FragmentOutput: &buf},
	} {
		t.Run(name, func(t *testing.T) {
			frag := fs
			if name == "missing script" {
				frag = nil
			}
			_, err := vsaux.BuildSources(vs, frag, cfg)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := vsaux.BuildSources(fs, vs, vsaux.BuildConfig{VertexOutput: &buf, FragmentOutput: &buf, Silent: true})
	if err == nil {
		t.Fatal("expected error for swapped stages")
	}
}

func TestColorValue(t *testing.T) {
	v := vsaux.ColorValue(color.NRGBA{R: 255, B: 255, A: 255})
	if v.DataType() != vshader.Vec4 {
		t.Fatalf("got %s, want vec4", v.DataType())
	}
	want := vshader.Float4{X: 1, Y: 0, Z: 1, W: 1}
	if got := v.Vec4(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	c := vsaux.Vec4Color(vshader.Float4{X: 2, Y: -1, Z: 1, W: 1})
	if c != (color.NRGBA{R: 255, G: 0, B: 255, A: 255}) {
		t.Errorf("unclamped color %v", c)
	}
}

func TestGradientTexture(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	img := vsaux.GradientTexture(16, red, blue)
	if img.Bounds() != image.Rect(0, 0, 16, 1) {
		t.Fatalf("bounds %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != red {
		t.Errorf("first texel %v, want %v", got, red)
	}
	if got := img.RGBAAt(15, 0); got != blue {
		t.Errorf("last texel %v, want %v", got, blue)
	}
	for x := 0; x < 16; x++ {
		if c := img.RGBAAt(x, 0); c.A != 255 {
			t.Errorf("texel %d not opaque: %v", x, c)
		}
	}
}

func TestTextLabel(t *testing.T) {
	img, err := vsaux.TextLabel("vshader", vsaux.LabelConfig{Size: 24, Padding: 2, Background: color.Black})
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() <= b.Dy() {
		t.Errorf("label should be wider than tall: %v", b)
	}
	lit := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("no text pixels drawn")
	}
	_, err = vsaux.TextLabel("", vsaux.LabelConfig{})
	if err == nil {
		t.Error("expected error for empty text")
	}
	_, err = vsaux.TextLabel("x", vsaux.LabelConfig{TTF: []byte("not a font")})
	if err == nil {
		t.Error("expected error for invalid font")
	}
}

func TestFitTexture(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 5))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	dst, err := vsaux.FitTexture(src, 8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Bounds() != image.Rect(0, 0, 8, 4) {
		t.Fatalf("bounds %v", dst.Bounds())
	}
	if got := dst.RGBAAt(4, 2); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("interior texel %v", got)
	}
	_, err = vsaux.FitTexture(src, 0, 4)
	if err == nil {
		t.Error("expected error for zero width")
	}
}

func TestUniformData(t *testing.T) {
	fs := vshader.NewFragmentScript()
	ub := fs.DescriptorSets().AddSet(0).AddUniformBuffer(0)
	ub.AddMember(vshader.Float32)
	ub.AddMember(vshader.Vec4)
	ub.AddMember(vshader.Mat4)
	var rowMajor [16]float64
	rowMajor[1] = 5 // Row 0, column 1.
	mat, err := vshader.ValueFromFloats(vshader.Mat4, rowMajor[:])
	must(t, err)
	data, err := vsaux.UniformData(ub,
		vshader.ValueOf[int32](2),
		vshader.ValueOf(vshader.Float4{X: 1, W: -1}),
		mat,
	)
	must(t, err)
	if len(data) != ub.Size() || len(data) != 96 {
		t.Fatalf("got %d bytes, want 96", len(data))
	}
	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}
	if f(0) != 2 {
		t.Errorf("converted scalar got %v", f(0))
	}
	if f(16) != 1 || f(28) != -1 {
		t.Errorf("vec4 got %v %v", f(16), f(28))
	}
	// Column 1 starts 16 bytes into the matrix.
	if f(32+16) != 5 || f(32+4) != 0 {
		t.Errorf("matrix not column major: %v %v", f(32+16), f(32+4))
	}

	_, err = vsaux.UniformData(ub, vshader.ValueOf[float32](1))
	if err == nil {
		t.Error("expected error for missing values")
	}
	_, err = vsaux.UniformData(ub, vshader.ValueOf(true), vshader.ValueOf(vshader.Float4{}), mat)
	if !errors.Is(err, vshader.ErrTypeMismatch) {
		t.Errorf("want type mismatch, got %v", err)
	}
}
