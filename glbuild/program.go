package glbuild

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/moltenforge/vshader"
)

var (
	ErrCycle              = errors.New("graph contains a cycle")
	ErrUnconnectedInput   = errors.New("input pin unconnected and has no default value")
	ErrTypeMismatch       = errors.New("connected pins have incompatible types")
	ErrSamplerDimension   = errors.New("sampler binding dimension does not match sampling function")
	ErrNoPosition         = errors.New("vertex output position left unconnected")
	ErrPushConstantLayout = errors.New("invalid push constant layout")
	ErrForeignVariable    = errors.New("variable not declared by script")
)

// Arg is an operand of an [Instr] or a stage output. It is exactly one of a reference to a previous
// instruction, a read of a declared variable or a literal value.
type Arg struct {
	// Ref is the index of the producing instruction in [Program.Instrs] or -1.
	Ref int
	// Var is the variable read when Ref is -1. Nil for literals.
	Var vshader.Variable
	// Value is the literal operand when Ref is -1 and Var is nil.
	Value vshader.Value
	// Type is the type of the source and Want the type expected by the consumer.
	// They differ only for implicit conversions.
	Type, Want vshader.DataType
}

// IsLiteral reports whether the argument is a constant literal.
func (a Arg) IsLiteral() bool { return a.Ref < 0 && a.Var == nil }

// NeedsConversion reports whether the source value must be converted to the wanted type.
func (a Arg) NeedsConversion() bool { return a.Type != a.Want }

func (a Arg) equal(b Arg) bool {
	return a.Ref == b.Ref && a.Var == b.Var && a.Value == b.Value && a.Type == b.Type && a.Want == b.Want
}

// Instr computes a single operator or function node of the graph.
type Instr struct {
	// Node is the graph node lowered to the instruction. Identical nodes merged
	// into the instruction are not recorded.
	Node vshader.Node
	// Kind is either [vshader.NodeOperator] or [vshader.NodeFunction].
	Kind vshader.NodeType
	Op   vshader.OperatorKind
	Func vshader.FunctionKind
	Type vshader.DataType
	Args []Arg
}

func (in *Instr) equal(other *Instr) bool {
	return in.Kind == other.Kind && in.Op == other.Op && in.Func == other.Func &&
		in.Type == other.Type && slices.EqualFunc(in.Args, other.Args, Arg.equal)
}

// VarInfo locates a declared variable within its stage interfaces or resources.
type VarInfo struct {
	Kind vshader.VariableKind
	// Member is the index within the input/output interface, uniform buffer or push constant block.
	Member int
	// Set and Binding are the user ids of uniform and sampler variables.
	Set, Binding uint32
}

// Program is the lowered, validated form of a [vshader.Script]: the computations reachable from the
// stage outputs in dependency order.
type Program struct {
	Stage vshader.Stage
	// Version is the script version that was lowered.
	Version uint64
	Instrs  []Instr
	// Position is the clip-space position written by a vertex program.
	Position Arg
	// Outputs holds one argument per member of the script's output interface.
	Outputs []Arg
	// Constants are the constant variables read by the program in first-use order.
	Constants []*vshader.ConstantVariable
	Vars      map[vshader.NodeID]VarInfo
	script    *vshader.Script
}

// Script returns the lowered script.
func (p *Program) Script() *vshader.Script { return p.script }

// Stale reports whether the script was mutated after being lowered.
func (p *Program) Stale() bool { return p.script.Version() != p.Version }

const (
	white = iota
	gray
	black
)

type frame struct {
	node vshader.Node
	next int
}

// Lower validates the graph of s and lowers it into a [Program]. Graph errors are collected
// across the whole script and returned joined. No program is returned on error.
func Lower(s *vshader.Script, opts ...Option) (*Program, error) {
	cfg := newConfig(opts)
	return lower(s, &cfg)
}

func lower(s *vshader.Script, cfg *config) (*Program, error) {
	if s == nil {
		return nil, errors.New("nil script")
	}
	var roots []*vshader.InputPin
	if vo := s.VertexOutput(); vo != nil {
		roots = append(roots, vo.Input())
	}
	outputs := s.OutputInterface().Members()
	for _, ov := range outputs {
		roots = append(roots, ov.Input())
	}
	order, err := topoSort(roots)
	if err != nil {
		return nil, err
	}

	l := lowerer{
		cfg:   cfg,
		prog:  &Program{Stage: s.Stage(), Version: s.Version(), script: s, Vars: declareVars(s)},
		instr: make(map[vshader.NodeID]Arg, len(order)),
		dedup: make(map[uint64][]int),
	}
	var errs []error
	errs = append(errs, checkPushConstants(s, cfg)...)
	for _, n := range order {
		errs = append(errs, l.lowerNode(n)...)
	}
	if vo := s.VertexOutput(); vo != nil {
		if vo.Input().Upstream() == nil {
			errs = append(errs, fmt.Errorf("%s: %w", vshader.Describe(vo), ErrNoPosition))
		} else {
			arg, err := l.arg(vo.Input())
			errs = append(errs, err)
			l.prog.Position = arg
		}
	}
	for _, ov := range outputs {
		arg, err := l.arg(ov.Input())
		errs = append(errs, err)
		l.prog.Outputs = append(l.prog.Outputs, arg)
	}
	if err := errors.Join(errs...); err != nil {
		vshader.Logger().Warn("script lowering failed", slog.String("stage", s.Stage().String()), slog.String("err", err.Error()))
		return nil, err
	}
	return l.prog, nil
}

// topoSort returns the operator and function nodes reachable from roots in dependency order.
// The traversal is iterative to support arbitrarily deep graphs.
func topoSort(roots []*vshader.InputPin) ([]vshader.Node, error) {
	color := make(map[vshader.NodeID]uint8)
	var order []vshader.Node
	var stack []frame
	var errs []error
	for _, root := range roots {
		up := root.Upstream()
		if up == nil || color[up.Node().ID()] != white {
			continue
		}
		color[up.Node().ID()] = gray
		stack = append(stack, frame{node: up.Node()})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < top.node.InputPinCount() {
				in := top.node.InputPin(top.next)
				top.next++
				up := in.Upstream()
				if up == nil {
					continue
				}
				child := up.Node()
				switch color[child.ID()] {
				case gray:
					errs = append(errs, fmt.Errorf("%s input %d: %w", vshader.Describe(in.Node()), in.Index(), ErrCycle))
				case white:
					color[child.ID()] = gray
					stack = append(stack, frame{node: child})
				}
				continue
			}
			color[top.node.ID()] = black
			if t := top.node.Type(); t == vshader.NodeOperator || t == vshader.NodeFunction {
				order = append(order, top.node)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return order, nil
}

func declareVars(s *vshader.Script) map[vshader.NodeID]VarInfo {
	vars := make(map[vshader.NodeID]VarInfo)
	for i, iv := range s.InputInterface().Members() {
		vars[iv.ID()] = VarInfo{Kind: vshader.VariableInput, Member: i}
	}
	for i, ov := range s.OutputInterface().Members() {
		vars[ov.ID()] = VarInfo{Kind: vshader.VariableOutput, Member: i}
	}
	for i, pv := range s.PushConstants().Members() {
		vars[pv.ID()] = VarInfo{Kind: vshader.VariablePushConstant, Member: i}
	}
	for setID, set := range s.DescriptorSets().All() {
		for bID, b := range set.All() {
			switch b := b.(type) {
			case *vshader.UniformBuffer:
				for i, uv := range b.Members() {
					vars[uv.ID()] = VarInfo{Kind: vshader.VariableUniform, Member: i, Set: setID, Binding: bID}
				}
			case interface{ Sampler() *vshader.SamplerVariable }:
				vars[b.Sampler().ID()] = VarInfo{Kind: vshader.VariableSampler, Member: -1, Set: setID, Binding: bID}
			}
		}
	}
	return vars
}

func checkPushConstants(s *vshader.Script, cfg *config) (errs []error) {
	pcs := s.PushConstants()
	for i, m := range pcs.Members() {
		off := pcs.Offset(i)
		if off%m.DataType().Align() != 0 {
			errs = append(errs, fmt.Errorf("push constant %d (%s) at offset %d not aligned to %d: %w", i, m.DataType(), off, m.DataType().Align(), ErrPushConstantLayout))
		}
	}
	if size := pcs.Size(); cfg.maxPushBytes > 0 && size > cfg.maxPushBytes {
		errs = append(errs, fmt.Errorf("push constant block of %d bytes exceeds limit of %d: %w", size, cfg.maxPushBytes, ErrPushConstantLayout))
	}
	return errs
}

type lowerer struct {
	cfg  *config
	prog *Program
	// instr maps lowered operator and function nodes to the argument reading their result.
	instr map[vshader.NodeID]Arg
	// dedup maps instruction hashes to candidate instruction indices.
	dedup   map[uint64][]int
	scratch []byte
}

func (l *lowerer) lowerNode(n vshader.Node) (errs []error) {
	ins := n.InputPins()
	args := make([]Arg, len(ins))
	for i, in := range ins {
		arg, err := l.arg(in)
		if err != nil {
			errs = append(errs, err)
		}
		args[i] = arg
	}
	instr := Instr{Node: n, Kind: n.Type(), Args: args}
	switch n := n.(type) {
	case *vshader.Operator:
		instr.Op = n.Op()
		instr.Type = n.DataType()
	case *vshader.Function:
		instr.Func = n.Func()
		instr.Type = n.DataType()
		if n.Func().IsTextureSample() {
			errs = append(errs, checkSampler(n)...)
		}
	default:
		panic(fmt.Sprintf("unexpected node %T in lowering order", n))
	}
	if len(errs) > 0 {
		return errs
	}
	if l.cfg.fold {
		if v, ok := fold(&instr); ok {
			l.instr[n.ID()] = Arg{Ref: -1, Value: v, Type: v.DataType(), Want: v.DataType()}
			return nil
		}
	}
	idx := -1
	if l.cfg.dedupe {
		h := l.hashInstr(&instr)
		for _, cand := range l.dedup[h] {
			if l.prog.Instrs[cand].equal(&instr) {
				idx = cand
				break
			}
		}
		if idx < 0 {
			l.dedup[h] = append(l.dedup[h], len(l.prog.Instrs))
		}
	}
	if idx < 0 {
		idx = len(l.prog.Instrs)
		l.prog.Instrs = append(l.prog.Instrs, instr)
	}
	l.instr[n.ID()] = Arg{Ref: idx, Type: instr.Type, Want: instr.Type}
	return nil
}

func checkSampler(fn *vshader.Function) []error {
	up := fn.InputPin(0).Upstream()
	if up == nil {
		return nil // Reported as unconnected.
	}
	sv, ok := up.Node().(*vshader.SamplerVariable)
	if !ok {
		return []error{fmt.Errorf("%s: sampler input fed by %s: %w", vshader.Describe(fn), vshader.Describe(up.Node()), ErrSamplerDimension)}
	}
	b := sv.Binding()
	if b == nil || b.BindingType().SamplerType() != fn.Func().SamplerType() {
		return []error{fmt.Errorf("%s: %s reads %s: %w", vshader.Describe(fn), fn.Func(), sv.DataType(), ErrSamplerDimension)}
	}
	return nil
}

// arg resolves the operand feeding pin in.
func (l *lowerer) arg(in *vshader.InputPin) (Arg, error) {
	want := in.DataType()
	up := in.Upstream()
	if up == nil {
		def, ok := in.Default()
		if !ok {
			return Arg{Ref: -1}, fmt.Errorf("%s input %d (%s): %w", vshader.Describe(in.Node()), in.Index(), want, ErrUnconnectedInput)
		}
		return Arg{Ref: -1, Value: def, Type: want, Want: want}, nil
	}
	if !vshader.CanConnect(up.DataType(), want) {
		return Arg{Ref: -1}, fmt.Errorf("%s input %d: %s to %s: %w", vshader.Describe(in.Node()), in.Index(), up.DataType(), want, ErrTypeMismatch)
	}
	src := up.Node()
	var arg Arg
	switch n := src.(type) {
	case *vshader.Constant:
		arg = Arg{Ref: -1, Value: n.Value(), Type: n.DataType()}
	case *vshader.ConstantVariable:
		if !slices.Contains(l.prog.Constants, n) {
			l.prog.Constants = append(l.prog.Constants, n)
		}
		arg = Arg{Ref: -1, Var: n, Type: n.DataType()}
	case vshader.Variable:
		if _, declared := l.prog.Vars[n.ID()]; !declared {
			return Arg{Ref: -1}, fmt.Errorf("%s: %w", vshader.Describe(n), ErrForeignVariable)
		}
		arg = Arg{Ref: -1, Var: n, Type: n.DataType()}
	default:
		var ok bool
		arg, ok = l.instr[src.ID()]
		if !ok {
			// Upstream failed to lower, its error was already reported.
			return Arg{Ref: -1}, nil
		}
	}
	arg.Want = want
	if arg.IsLiteral() && arg.NeedsConversion() {
		arg.Value, _ = arg.Value.Convert(want)
		arg.Type = want
	}
	return arg, nil
}

func (l *lowerer) hashInstr(in *Instr) uint64 {
	b := l.scratch[:0]
	b = append(b, byte(in.Kind), byte(in.Op), byte(in.Func), byte(in.Type))
	for _, a := range in.Args {
		b = binary.LittleEndian.AppendUint64(b, uint64(int64(a.Ref)))
		b = append(b, byte(a.Type), byte(a.Want))
		if a.Var != nil {
			b = binary.LittleEndian.AppendUint32(b, uint32(a.Var.ID().Index()))
		} else if a.IsLiteral() {
			b = appendValueBits(b, a.Value)
		}
	}
	l.scratch = b
	return hash(b, 0)
}

func appendValueBits(b []byte, v vshader.Value) []byte {
	switch v.DataType() {
	case vshader.Bool:
		if v.Bool() {
			return append(b, 1)
		}
		return append(b, 0)
	case vshader.Int32:
		return binary.LittleEndian.AppendUint32(b, uint32(v.Int()))
	}
	for _, f := range v.Floats() {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}
