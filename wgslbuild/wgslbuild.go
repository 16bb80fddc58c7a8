// Package wgslbuild generates WGSL from shader graphs for the WebGPU binding model and
// compiles it to SPIR-V.
package wgslbuild

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"cogentcore.org/core/base/indent"
	"github.com/gogpu/naga"
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
)

const samplerSuffix = "_smp"

// Programmer implements WGSL generation for [vshader.Script] graphs.
type Programmer struct {
	cfg     config
	scratch []byte
}

// NewProgrammer returns a Programmer configured by opts.
func NewProgrammer(opts ...Option) *Programmer {
	return &Programmer{
		cfg:     newConfig(opts),
		scratch: make([]byte, 0, 1024),
	}
}

// WriteWGSL writes the WGSL module of the script's stage to w. The mapping must target
// [glbuild.TargetWebGPU] and be built from a set of scripts including s. If m is nil
// a mapping of s alone is used.
func (p *Programmer) WriteWGSL(w io.Writer, s *vshader.Script, m *glbuild.MappedDescriptorSets) (n int, _ *glbuild.Result, err error) {
	if s == nil {
		return 0, nil, errors.New("nil script")
	}
	if m == nil {
		m, err = glbuild.NewMapping(glbuild.TargetWebGPU, s)
		if err != nil {
			return 0, nil, err
		}
	} else if m.Target != glbuild.TargetWebGPU {
		return 0, nil, fmt.Errorf("mapping built for %s, want %s", m.Target, glbuild.TargetWebGPU)
	}
	prog, err := glbuild.Lower(s, p.cfg.lower...)
	if err != nil {
		return 0, nil, err
	}
	p.scratch, err = p.appendWGSL(p.scratch[:0], prog, m)
	if err != nil {
		return 0, nil, err
	}
	n, err = w.Write(p.scratch)
	if err != nil {
		return n, nil, err
	}
	vshader.Logger().Debug("generated wgsl", slog.String("stage", s.Stage().String()), slog.Int("instrs", len(prog.Instrs)), slog.Int("bytes", n))
	return n, &glbuild.Result{Program: prog, Mapping: m}, nil
}

// CompileSPIRV generates the WGSL module of s and compiles it to SPIR-V words.
func (p *Programmer) CompileSPIRV(s *vshader.Script, m *glbuild.MappedDescriptorSets) ([]uint32, *glbuild.Result, error) {
	var sb strings.Builder
	_, res, err := p.WriteWGSL(&sb, s, m)
	if err != nil {
		return nil, nil, err
	}
	spirv, err := CompileSPIRV(sb.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%s stage: %w", s.Stage(), err)
	}
	return spirv, res, nil
}

// CompileSPIRV compiles WGSL source to a SPIR-V module.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("spir-v module length %d not a multiple of 4", len(spirvBytes))
	}
	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// PushConstantGroup returns the bind group index holding the push constant blocks.
// WebGPU has no push constants so each stage's block is a uniform buffer in the group following
// the user's descriptor sets, at binding [vshader.Stage] (0 vertex, 1 fragment).
func PushConstantGroup(m *glbuild.MappedDescriptorSets) uint32 {
	return uint32(len(m.Sets))
}

func (p *Programmer) appendWGSL(b []byte, prog *glbuild.Program, m *glbuild.MappedDescriptorSets) ([]byte, error) {
	s := prog.Script()
	var err error
	b, err = appendResourceDecls(b, s, m)
	if err != nil {
		return b, err
	}
	b = appendPushConstantDecls(b, s, m)
	for _, cv := range prog.Constants {
		b = append(b, "const "...)
		b = glbuild.AppendConstantName(b, cv)
		b = append(b, ": "...)
		b = AppendTypename(b, cv.DataType())
		b = append(b, " = "...)
		b = AppendLiteral(b, cv.Value())
		b = append(b, ";\n"...)
	}

	outputs := s.OutputInterface().Members()
	hasOut := prog.Stage == vshader.StageVertex || len(outputs) > 0
	outStruct := "VertexOutput"
	if prog.Stage == vshader.StageFragment {
		outStruct = "FragmentOutput"
	}
	ind := indent.Tabs(1)
	if hasOut {
		b = append(b, "\nstruct "...)
		b = append(b, outStruct...)
		b = append(b, " {\n"...)
		if prog.Stage == vshader.StageVertex {
			b = append(b, ind...)
			b = append(b, "@builtin(position) position: vec4<f32>,\n"...)
		}
		for i, ov := range outputs {
			b = append(b, ind...)
			b = appendLocation(b, ov.Location(), prog.Stage == vshader.StageVertex && ov.DataType() == vshader.Int32)
			b = glbuild.AppendOutputName(b, prog.Stage, i)
			b = append(b, ": "...)
			b = AppendTypename(b, ov.DataType())
			b = append(b, ",\n"...)
		}
		b = append(b, "}\n"...)
	}

	b = append(b, '\n')
	if prog.Stage == vshader.StageVertex {
		b = append(b, "@vertex\n"...)
	} else {
		b = append(b, "@fragment\n"...)
	}
	b = append(b, "fn "...)
	b = append(b, p.cfg.entryPoint(prog.Stage)...)
	b = append(b, '(')
	for i, iv := range s.InputInterface().Members() {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = appendLocation(b, iv.Location(), prog.Stage == vshader.StageFragment && iv.DataType() == vshader.Int32)
		b = glbuild.AppendInputName(b, prog.Stage, i)
		b = append(b, ": "...)
		b = AppendTypename(b, iv.DataType())
	}
	b = append(b, ')')
	if hasOut {
		b = append(b, " -> "...)
		b = append(b, outStruct...)
	}
	b = append(b, " {\n"...)
	for i := range prog.Instrs {
		in := &prog.Instrs[i]
		b = append(b, ind...)
		b = append(b, "let "...)
		b = glbuild.AppendTempName(b, i)
		b = append(b, ": "...)
		b = AppendTypename(b, in.Type)
		b = append(b, " = "...)
		b = appendInstrExpr(b, prog, in)
		b = append(b, ";\n"...)
	}
	if hasOut {
		b = append(b, ind...)
		b = append(b, "var out: "...)
		b = append(b, outStruct...)
		b = append(b, ";\n"...)
		if prog.Stage == vshader.StageVertex {
			b = append(b, ind...)
			b = append(b, "out.position = "...)
			b = appendArg(b, prog, prog.Position)
			b = append(b, ";\n"...)
		}
		for i, arg := range prog.Outputs {
			b = append(b, ind...)
			b = append(b, "out."...)
			b = glbuild.AppendOutputName(b, prog.Stage, i)
			b = append(b, " = "...)
			b = appendArg(b, prog, arg)
			b = append(b, ";\n"...)
		}
		b = append(b, ind...)
		b = append(b, "return out;\n"...)
	}
	b = append(b, "}\n"...)
	return b, nil
}

func appendLocation(b []byte, loc int, flat bool) []byte {
	b = append(b, "@location("...)
	b = strconv.AppendInt(b, int64(loc), 10)
	b = append(b, ") "...)
	if flat {
		b = append(b, "@interpolate(flat) "...)
	}
	return b
}

func appendGroupBinding(b []byte, group, binding uint32) []byte {
	b = append(b, "@group("...)
	b = strconv.AppendUint(b, uint64(group), 10)
	b = append(b, ") @binding("...)
	b = strconv.AppendUint(b, uint64(binding), 10)
	return append(b, ") "...)
}

// member is a field of a host-shareable struct.
type member struct {
	dt     vshader.DataType
	offset int
}

// appendStruct declares a uniform struct. Members are padded with @size so that the WGSL layout
// matches the offsets computed by the graph.
func appendStruct(b []byte, name []byte, members []member, size int) []byte {
	b = append(b, "struct "...)
	b = append(b, name...)
	b = append(b, " {\n"...)
	for i, m := range members {
		b = append(b, indent.Tabs(1)...)
		end := size
		if i+1 < len(members) {
			end = members[i+1].offset
		}
		if span := end - m.offset; span > m.dt.Size() && i+1 < len(members) {
			b = append(b, "@size("...)
			b = strconv.AppendInt(b, int64(span), 10)
			b = append(b, ") "...)
		}
		b = glbuild.AppendMemberName(b, i)
		b = append(b, ": "...)
		b = appendHostTypename(b, m.dt)
		b = append(b, ",\n"...)
	}
	return append(b, "}\n"...)
}

func appendResourceDecls(b []byte, s *vshader.Script, m *glbuild.MappedDescriptorSets) ([]byte, error) {
	var name []byte
	for setID, set := range s.DescriptorSets().All() {
		for bID, binding := range set.All() {
			ms, mb, ok := m.Lookup(setID, bID)
			if !ok {
				return b, fmt.Errorf("set %d binding %d missing from mapping", setID, bID)
			}
			switch binding := binding.(type) {
			case *vshader.UniformBuffer:
				var members []member
				for _, uv := range binding.Members() {
					members = append(members, member{dt: uv.DataType(), offset: uv.Offset()})
				}
				name = glbuild.AppendUniformBlockName(name[:0], setID, bID)
				b = appendStruct(b, name, members, binding.Size())
				b = appendGroupBinding(b, ms.Index, mb.Index)
				b = append(b, "var<uniform> "...)
				b = glbuild.AppendUniformName(b, setID, bID)
				b = append(b, ": "...)
				b = append(b, name...)
				b = append(b, ";\n"...)
			default:
				b = appendGroupBinding(b, ms.Index, mb.Index)
				b = append(b, "var "...)
				b = glbuild.AppendSamplerName(b, setID, bID)
				b = append(b, ": "...)
				b = AppendTypename(b, binding.BindingType().SamplerType())
				b = append(b, ";\n"...)
				b = appendGroupBinding(b, ms.Index, mb.SamplerIndex)
				b = append(b, "var "...)
				b = glbuild.AppendSamplerName(b, setID, bID)
				b = append(b, samplerSuffix...)
				b = append(b, ": sampler;\n"...)
			}
		}
	}
	return b, nil
}

func appendPushConstantDecls(b []byte, s *vshader.Script, m *glbuild.MappedDescriptorSets) []byte {
	pcs := s.PushConstants()
	if pcs.MemberCount() == 0 {
		return b
	}
	members := make([]member, pcs.MemberCount())
	for i, pv := range pcs.Members() {
		members[i] = member{dt: pv.DataType(), offset: pv.Offset()}
	}
	b = appendStruct(b, []byte(glbuild.PushConstantBlock), members, pcs.Size())
	b = appendGroupBinding(b, PushConstantGroup(m), uint32(s.Stage()))
	b = append(b, "var<uniform> "...)
	b = append(b, glbuild.PushConstantInstance...)
	b = append(b, ": "...)
	b = append(b, glbuild.PushConstantBlock...)
	return append(b, ";\n"...)
}

func appendInstrExpr(b []byte, prog *glbuild.Program, in *glbuild.Instr) []byte {
	if in.Kind == vshader.NodeOperator {
		left, right := in.Args[0], in.Args[1]
		b = appendArg(b, prog, left)
		if in.Op == vshader.OpDiv && left.Want == vshader.Mat4 {
			// Matrices are not divisible, multiply by the reciprocal.
			b = append(b, " * (1. / "...)
			b = appendArg(b, prog, right)
			return append(b, ')')
		}
		b = append(b, ' ', in.Op.Symbol(), ' ')
		return appendArg(b, prog, right)
	}
	switch fn := in.Func; {
	case fn == vshader.FuncCreateVec2 || fn == vshader.FuncCreateVec3 || fn == vshader.FuncCreateVec4:
		b = AppendTypename(b, in.Type)
	case fn.IsTextureSample():
		return appendTextureSample(b, prog, in)
	case fn == vshader.FuncClamp && in.Type.IsVector() && in.Args[1].Want == vshader.Float32:
		// Bounds must match the clamped type.
		b = append(b, "clamp("...)
		b = appendArg(b, prog, in.Args[0])
		for _, bound := range in.Args[1:] {
			b = append(b, ", "...)
			b = AppendTypename(b, in.Type)
			b = append(b, '(')
			b = appendArg(b, prog, bound)
			b = append(b, ')')
		}
		return append(b, ')')
	default:
		b = append(b, fn.String()...)
	}
	b = append(b, '(')
	for i, arg := range in.Args {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = appendArg(b, prog, arg)
	}
	return append(b, ')')
}

func appendTextureSample(b []byte, prog *glbuild.Program, in *glbuild.Instr) []byte {
	tex, coord := in.Args[0], in.Args[1]
	if prog.Stage == vshader.StageFragment {
		b = append(b, "textureSample("...)
		b = appendArg(b, prog, tex)
		b = append(b, ", "...)
		b = appendArg(b, prog, tex)
		b = append(b, samplerSuffix...)
		b = append(b, ", "...)
		b = appendArg(b, prog, coord)
		return append(b, ')')
	}
	// Implicit derivatives are unavailable outside the fragment stage.
	if in.Func == vshader.FuncTexture1D {
		b = append(b, "textureLoad("...)
		b = appendArg(b, prog, tex)
		b = append(b, ", i32("...)
		b = appendArg(b, prog, coord)
		b = append(b, " * f32(textureDimensions("...)
		b = appendArg(b, prog, tex)
		return append(b, "))), 0)"...)
	}
	b = append(b, "textureSampleLevel("...)
	b = appendArg(b, prog, tex)
	b = append(b, ", "...)
	b = appendArg(b, prog, tex)
	b = append(b, samplerSuffix...)
	b = append(b, ", "...)
	b = appendArg(b, prog, coord)
	return append(b, ", 0.)"...)
}

func appendArg(b []byte, prog *glbuild.Program, arg glbuild.Arg) []byte {
	if arg.NeedsConversion() {
		b = AppendTypename(b, arg.Want)
		b = append(b, '(')
	}
	switch {
	case arg.Ref >= 0:
		b = glbuild.AppendTempName(b, arg.Ref)
	case arg.Var != nil:
		hostBool := arg.Type == vshader.Bool && isHostShared(arg.Var)
		if hostBool {
			b = append(b, '(')
		}
		b = glbuild.AppendVarName(b, glbuild.TargetWebGPU, prog, arg.Var)
		if hostBool {
			b = append(b, " != 0u)"...)
		}
	default:
		b = AppendLiteral(b, arg.Value)
	}
	if arg.NeedsConversion() {
		b = append(b, ')')
	}
	return b
}

func isHostShared(v vshader.Variable) bool {
	k := v.Kind()
	return k == vshader.VariableUniform || k == vshader.VariablePushConstant
}

// AppendTypename appends the WGSL name of dt.
func AppendTypename(b []byte, dt vshader.DataType) []byte {
	var name string
	switch dt {
	case vshader.Bool:
		name = "bool"
	case vshader.Int32:
		name = "i32"
	case vshader.Float32:
		name = "f32"
	case vshader.Vec2:
		name = "vec2<f32>"
	case vshader.Vec3:
		name = "vec3<f32>"
	case vshader.Vec4:
		name = "vec4<f32>"
	case vshader.Mat4:
		name = "mat4x4<f32>"
	case vshader.Sampler1D:
		name = "texture_1d<f32>"
	case vshader.Sampler2D:
		name = "texture_2d<f32>"
	case vshader.Sampler3D:
		name = "texture_3d<f32>"
	default:
		panic("unsupported wgsl type " + dt.String())
	}
	return append(b, name...)
}

// appendHostTypename appends the type of dt in uniform buffers, where booleans are not host-shareable.
func appendHostTypename(b []byte, dt vshader.DataType) []byte {
	if dt == vshader.Bool {
		return append(b, "u32"...)
	}
	return AppendTypename(b, dt)
}

// AppendLiteral appends the WGSL literal of v. Matrices are written in column-major order.
func AppendLiteral(b []byte, v vshader.Value) []byte {
	switch dt := v.DataType(); dt {
	case vshader.Bool:
		return strconv.AppendBool(b, v.Bool())
	case vshader.Int32:
		b = strconv.AppendInt(b, int64(v.Int()), 10)
		return append(b, 'i')
	case vshader.Float32:
		return glbuild.AppendFloat(b, '-', '.', v.Float())
	case vshader.Mat4:
		arr := v.Mat4Array()
		b = AppendTypename(b, dt)
		b = append(b, '(')
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if i > 0 || j > 0 {
					b = append(b, ", "...)
				}
				b = glbuild.AppendFloat(b, '-', '.', arr[j*4+i])
			}
		}
		return append(b, ')')
	default:
		b = AppendTypename(b, dt)
		b = append(b, '(')
		for i, f := range v.Floats() {
			if i > 0 {
				b = append(b, ", "...)
			}
			b = glbuild.AppendFloat(b, '-', '.', f)
		}
		return append(b, ')')
	}
}
