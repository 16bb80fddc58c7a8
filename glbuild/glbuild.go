package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"cogentcore.org/core/base/indent"
	"github.com/moltenforge/vshader"
)

// ErrUnsupportedTarget is returned when generating GLSL for a target that does not consume it.
var ErrUnsupportedTarget = errors.New("target does not support GLSL")

// Programmer implements GLSL generation for [vshader.Script] graphs.
type Programmer struct {
	cfg     config
	scratch []byte
}

// Result describes a generated shader stage.
type Result struct {
	Program *Program
	// Mapping holds the backend binding indices the generated source was written against.
	Mapping *MappedDescriptorSets
}

// Stage returns the pipeline stage of the generated source.
func (r *Result) Stage() vshader.Stage { return r.Program.Stage }

// Stale reports whether the script was mutated since the source was generated.
// Stale results must be regenerated before use.
func (r *Result) Stale() bool { return r.Program.Stale() }

// NewProgrammer returns a Programmer configured by opts.
func NewProgrammer(opts ...Option) *Programmer {
	return &Programmer{
		cfg:     newConfig(opts),
		scratch: make([]byte, 0, 1024),
	}
}

// NewDefaultProgrammer returns a Programmer generating GLSL 4.30 for OpenGL with constant folding
// and expression deduplication enabled.
func NewDefaultProgrammer() *Programmer {
	return NewProgrammer()
}

// Target returns the target the programmer generates source for.
func (p *Programmer) Target() Target { return p.cfg.target }

// Lower lowers s with the programmer's configuration.
func (p *Programmer) Lower(s *vshader.Script) (*Program, error) {
	return lower(s, &p.cfg)
}

// WriteGLSL writes the GLSL source of the script's stage to w. Binding indices are
// computed from the script alone, use [Programmer.WriteGLSLMapped] to share them across a pipeline.
func (p *Programmer) WriteGLSL(w io.Writer, s *vshader.Script) (int, *Result, error) {
	if s == nil {
		return 0, nil, errors.New("nil script")
	}
	m, err := NewMapping(p.cfg.target, s)
	if err != nil {
		return 0, nil, err
	}
	return p.WriteGLSLMapped(w, s, m)
}

// WriteGLSLMapped writes the GLSL source of the script's stage to w using the binding indices of m,
// which must have been built from a set of scripts including s.
func (p *Programmer) WriteGLSLMapped(w io.Writer, s *vshader.Script, m *MappedDescriptorSets) (n int, _ *Result, err error) {
	if p.cfg.target == TargetWebGPU {
		return 0, nil, fmt.Errorf("%s: %w", p.cfg.target, ErrUnsupportedTarget)
	} else if m == nil || m.Target != p.cfg.target {
		return 0, nil, errors.New("mapping missing or built for a different target")
	}
	prog, err := lower(s, &p.cfg)
	if err != nil {
		return 0, nil, err
	}
	if r, ok := m.PushRange(s.Stage()); ok && p.cfg.maxPushBytes > 0 && r.Offset+r.Size > p.cfg.maxPushBytes {
		return 0, nil, fmt.Errorf("%s push constants end at byte %d, limit is %d: %w", s.Stage(), r.Offset+r.Size, p.cfg.maxPushBytes, ErrPushConstantLayout)
	}
	p.scratch, err = p.appendGLSL(p.scratch[:0], prog, m)
	if err != nil {
		return 0, nil, err
	}
	n, err = w.Write(p.scratch)
	if err != nil {
		return n, nil, err
	}
	vshader.Logger().Debug("generated glsl", slog.String("stage", s.Stage().String()), slog.Int("instrs", len(prog.Instrs)), slog.Int("bytes", n))
	return n, &Result{Program: prog, Mapping: m}, nil
}

func (p *Programmer) appendGLSL(b []byte, prog *Program, m *MappedDescriptorSets) ([]byte, error) {
	target := p.cfg.target
	s := prog.script
	b = append(b, "#version "...)
	b = strconv.AppendInt(b, int64(p.cfg.version), 10)
	if target == TargetOpenGL {
		b = append(b, " core"...)
	}
	b = append(b, '\n')

	for i, iv := range s.InputInterface().Members() {
		b = appendLocation(b, iv.Location())
		if prog.Stage == vshader.StageFragment && iv.DataType() == vshader.Int32 {
			b = append(b, "flat "...)
		}
		b = append(b, "in "...)
		b = AppendTypename(b, iv.DataType())
		b = append(b, ' ')
		b = AppendInputName(b, prog.Stage, i)
		b = append(b, ";\n"...)
	}
	for i, ov := range s.OutputInterface().Members() {
		b = appendLocation(b, ov.Location())
		if prog.Stage == vshader.StageVertex && ov.DataType() == vshader.Int32 {
			b = append(b, "flat "...)
		}
		b = append(b, "out "...)
		b = AppendTypename(b, ov.DataType())
		b = append(b, ' ')
		b = AppendOutputName(b, prog.Stage, i)
		b = append(b, ";\n"...)
	}

	var err error
	b, err = appendResourceDecls(b, target, s, m)
	if err != nil {
		return b, err
	}
	b, err = appendPushConstantDecls(b, target, s, m)
	if err != nil {
		return b, err
	}
	for _, cv := range prog.Constants {
		b = append(b, "const "...)
		b = AppendTypename(b, cv.DataType())
		b = append(b, ' ')
		b = AppendConstantName(b, cv)
		b = append(b, " = "...)
		b = AppendLiteral(b, cv.Value())
		b = append(b, ";\n"...)
	}

	ind := indent.Tabs(1)
	b = append(b, "\nvoid main() {\n"...)
	for i := range prog.Instrs {
		in := &prog.Instrs[i]
		b = append(b, ind...)
		b = AppendTypename(b, in.Type)
		b = append(b, ' ')
		b = AppendTempName(b, i)
		b = append(b, " = "...)
		b = appendInstrExpr(b, target, prog, in)
		b = append(b, ";\n"...)
	}
	if prog.Stage == vshader.StageVertex {
		b = append(b, ind...)
		b = append(b, "gl_Position = "...)
		b = appendArg(b, target, prog, prog.Position)
		b = append(b, ";\n"...)
	}
	for i, arg := range prog.Outputs {
		b = append(b, ind...)
		b = AppendOutputName(b, prog.Stage, i)
		b = append(b, " = "...)
		b = appendArg(b, target, prog, arg)
		b = append(b, ";\n"...)
	}
	b = append(b, "}\n"...)
	return b, nil
}

func appendLocation(b []byte, loc int) []byte {
	b = append(b, "layout(location="...)
	b = strconv.AppendInt(b, int64(loc), 10)
	return append(b, ") "...)
}

func appendResourceDecls(b []byte, target Target, s *vshader.Script, m *MappedDescriptorSets) ([]byte, error) {
	for setID, set := range s.DescriptorSets().All() {
		for bID, binding := range set.All() {
			ms, mb, ok := m.Lookup(setID, bID)
			if !ok {
				return b, fmt.Errorf("set %d binding %d missing from mapping", setID, bID)
			}
			b = append(b, "layout("...)
			if target == TargetVulkan {
				b = append(b, "set="...)
				b = strconv.AppendUint(b, uint64(ms.Index), 10)
				b = append(b, ", "...)
			}
			b = append(b, "binding="...)
			b = strconv.AppendUint(b, uint64(mb.Index), 10)
			switch binding := binding.(type) {
			case *vshader.UniformBuffer:
				b = append(b, ", std140) uniform "...)
				b = AppendUniformBlockName(b, setID, bID)
				b = append(b, " {\n"...)
				for i, member := range binding.Members() {
					b = append(b, indent.Tabs(1)...)
					b = AppendTypename(b, member.DataType())
					b = append(b, ' ')
					b = AppendMemberName(b, i)
					b = append(b, ";\n"...)
				}
				b = append(b, "} "...)
				b = AppendUniformName(b, setID, bID)
				b = append(b, ";\n"...)
			default:
				b = append(b, ") uniform "...)
				b = AppendTypename(b, binding.BindingType().SamplerType())
				b = append(b, ' ')
				b = AppendSamplerName(b, setID, bID)
				b = append(b, ";\n"...)
			}
		}
	}
	return b, nil
}

func appendPushConstantDecls(b []byte, target Target, s *vshader.Script, m *MappedDescriptorSets) ([]byte, error) {
	members := s.PushConstants().Members()
	if len(members) == 0 {
		return b, nil
	}
	if target == TargetOpenGL {
		for i, member := range members {
			loc, ok := m.PushConstant(s.Stage(), i)
			if !ok {
				return b, fmt.Errorf("push constant %d missing from mapping", i)
			}
			b = appendLocation(b, loc.Location)
			b = append(b, "uniform "...)
			b = AppendTypename(b, member.DataType())
			b = append(b, ' ')
			b = AppendPushConstantName(b, target, s.Stage(), i)
			b = append(b, ";\n"...)
		}
		return b, nil
	}
	b = append(b, "layout(push_constant) uniform "...)
	b = append(b, PushConstantBlock...)
	b = append(b, " {\n"...)
	for i, member := range members {
		loc, ok := m.PushConstant(s.Stage(), i)
		if !ok {
			return b, fmt.Errorf("push constant %d missing from mapping", i)
		}
		b = append(b, indent.Tabs(1)...)
		b = append(b, "layout(offset="...)
		b = strconv.AppendInt(b, int64(loc.Offset), 10)
		b = append(b, ") "...)
		b = AppendTypename(b, member.DataType())
		b = append(b, ' ')
		b = AppendMemberName(b, i)
		b = append(b, ";\n"...)
	}
	b = append(b, "} "...)
	b = append(b, PushConstantInstance...)
	b = append(b, ";\n"...)
	return b, nil
}

func appendInstrExpr(b []byte, target Target, prog *Program, in *Instr) []byte {
	if in.Kind == vshader.NodeOperator {
		b = appendArg(b, target, prog, in.Args[0])
		b = append(b, ' ', in.Op.Symbol(), ' ')
		return appendArg(b, target, prog, in.Args[1])
	}
	b = append(b, glslFuncName(in.Func)...)
	b = append(b, '(')
	for i, arg := range in.Args {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = appendArg(b, target, prog, arg)
	}
	return append(b, ')')
}

func appendArg(b []byte, target Target, prog *Program, arg Arg) []byte {
	if arg.NeedsConversion() {
		b = AppendTypename(b, arg.Want)
		b = append(b, '(')
	}
	switch {
	case arg.Ref >= 0:
		b = AppendTempName(b, arg.Ref)
	case arg.Var != nil:
		b = AppendVarName(b, target, prog, arg.Var)
	default:
		b = AppendLiteral(b, arg.Value)
	}
	if arg.NeedsConversion() {
		b = append(b, ')')
	}
	return b
}

func glslFuncName(fn vshader.FunctionKind) string {
	if fn.IsTextureSample() {
		return "texture"
	}
	return fn.String()
}

// AppendTypename appends the GLSL name of dt.
func AppendTypename(b []byte, dt vshader.DataType) []byte {
	switch dt {
	case vshader.Int32:
		return append(b, "int"...)
	case vshader.Float32:
		return append(b, "float"...)
	}
	return append(b, dt.String()...)
}

// AppendLiteral appends the GLSL literal of v. Matrices are written in column-major order.
func AppendLiteral(b []byte, v vshader.Value) []byte {
	switch dt := v.DataType(); dt {
	case vshader.Bool:
		return strconv.AppendBool(b, v.Bool())
	case vshader.Int32:
		return strconv.AppendInt(b, int64(v.Int()), 10)
	case vshader.Float32:
		return AppendFloat(b, '-', '.', v.Float())
	case vshader.Mat4:
		arr := v.Mat4Array()
		return appendMatLiteral(b, "mat4", 4, 4, arr[:])
	default:
		b = AppendTypename(b, dt)
		b = append(b, '(')
		b = AppendFloats(b, ',', '-', '.', v.Floats()...)
		return append(b, ')')
	}
}

func appendMatLiteral(b []byte, typename string, row, col int, arr []float32) []byte {
	b = append(b, typename...)
	b = append(b, '(')
	for i := 0; i < row; i++ {
		for j := 0; j < col; j++ {
			v := arr[j*row+i] // Column major access, as per OpenGL standard.
			b = AppendFloat(b, '-', '.', v)
			last := i == row-1 && j == col-1
			if !last {
				b = append(b, ',')
			}
		}
	}
	return append(b, ')')
}

const decimalDigits = 9

// AppendFloat appends v with a decimal point and trailing zeroes trimmed.
// neg and decimal replace the minus sign and decimal point for languages that spell them differently.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]

	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}

// FormatScript returns a human readable rendition of the graph reachable from the script's outputs,
// one root per line with upstream nodes nested as calls. Cycles are printed as "<cycle>" and
// unconnected inputs as their default value or "?".
func FormatScript(s *vshader.Script) string {
	if s == nil {
		panic("nil script")
	}
	var sb strings.Builder
	onStack := make(map[vshader.NodeID]bool)
	var visit func(in *vshader.InputPin)
	visit = func(in *vshader.InputPin) {
		up := in.Upstream()
		if up == nil {
			if def, ok := in.Default(); ok {
				sb.WriteString(def.String())
			} else {
				sb.WriteByte('?')
			}
			return
		}
		n := up.Node()
		if onStack[n.ID()] {
			sb.WriteString("<cycle>")
			return
		}
		onStack[n.ID()] = true
		defer delete(onStack, n.ID())
		switch n := n.(type) {
		case *vshader.Constant:
			sb.WriteString(n.Value().String())
			return
		case *vshader.Operator:
			sb.WriteString(n.Op().String())
		case *vshader.Function:
			sb.WriteString(n.Func().String())
		case vshader.Variable:
			sb.WriteString(n.Kind().String())
			if lbl := n.Label(); lbl != "" {
				sb.WriteByte(':')
				sb.WriteString(lbl)
			} else {
				sb.WriteByte('#')
				sb.WriteString(strconv.Itoa(n.ID().Index()))
			}
			return
		}
		sb.WriteByte('(')
		for i, arg := range n.InputPins() {
			if i > 0 {
				sb.WriteString(", ")
			}
			visit(arg)
		}
		sb.WriteByte(')')
	}
	ind := indent.String(indent.Tab, 1, 0)
	sb.WriteString(s.Stage().String())
	sb.WriteByte('\n')
	if vo := s.VertexOutput(); vo != nil {
		sb.WriteString(ind)
		sb.WriteString("position = ")
		visit(vo.Input())
		sb.WriteByte('\n')
	}
	for i, ov := range s.OutputInterface().Members() {
		sb.WriteString(ind)
		sb.WriteString("out")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(" = ")
		visit(ov.Input())
		sb.WriteByte('\n')
	}
	return sb.String()
}
