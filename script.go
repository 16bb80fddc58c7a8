package vshader

import (
	"fmt"
	"log/slog"
	"slices"

	"cogentcore.org/core/base/keylist"
)

// Stage is the pipeline stage a [Script] describes.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

type slot struct {
	node Node
	gen  uint32
}

// Script owns the node graph of one shader stage along with the stage's input and output
// interfaces, descriptor sets and push constants. Nodes are created and destroyed
// exclusively through the script. A Script is not safe for concurrent use.
type Script struct {
	stage Stage
	// slots is the node arena indexed by NodeID.index.
	slots []slot
	free  []uint32
	// nodes holds the live nodes in creation order.
	nodes   keylist.List[NodeID, Node]
	version uint64

	inputs  InputInterface
	outputs OutputInterface
	sets    DescriptorSets
	push    PushConstants
	vout    *VertexOutput
}

// NewScript returns an empty script for the given stage. Vertex scripts are created with their
// [VertexOutput] sentinel node.
func NewScript(stage Stage) *Script {
	s := &Script{stage: stage}
	s.inputs.script = s
	s.outputs.script = s
	s.sets.script = s
	s.push.script = s
	if stage == StageVertex {
		vo := &VertexOutput{}
		vo.pinned = true
		vo.label = "position"
		vo.initPins(vo, []DataType{Vec4}, nil)
		s.register(vo, NodeOutput)
		s.vout = vo
	}
	return s
}

// NewVertexScript is shorthand for NewScript(StageVertex).
func NewVertexScript() *Script { return NewScript(StageVertex) }

// NewFragmentScript is shorthand for NewScript(StageFragment).
func NewFragmentScript() *Script { return NewScript(StageFragment) }

// Stage returns the pipeline stage of the script.
func (s *Script) Stage() Stage { return s.stage }

// Version returns a counter incremented on every mutation of the script,
// including connections, default values and constant values.
func (s *Script) Version() uint64 { return s.version }

func (s *Script) touch() { s.version++ }

// VertexOutput returns the position sentinel node of a vertex script or nil for other stages.
func (s *Script) VertexOutput() *VertexOutput { return s.vout }

// InputInterface returns the ordered inputs consumed by the stage.
func (s *Script) InputInterface() *InputInterface { return &s.inputs }

// OutputInterface returns the ordered outputs produced by the stage.
func (s *Script) OutputInterface() *OutputInterface { return &s.outputs }

// DescriptorSets returns the resource bindings of the stage.
func (s *Script) DescriptorSets() *DescriptorSets { return &s.sets }

// PushConstants returns the push constant block of the stage.
func (s *Script) PushConstants() *PushConstants { return &s.push }

// NodeCount returns the number of live nodes, the vertex output sentinel included.
func (s *Script) NodeCount() int { return s.nodes.Len() }

// Nodes returns a snapshot of the live nodes in creation order.
func (s *Script) Nodes() []Node { return slices.Clone(s.nodes.Values) }

// Node returns the live node with the given id or nil if it does not exist.
func (s *Script) Node(id NodeID) Node {
	if !id.IsValid() || int(id.index) >= len(s.slots) {
		return nil
	}
	sl := s.slots[id.index]
	if sl.gen != id.gen {
		return nil
	}
	return sl.node
}

// Contains reports whether n is a live node owned by s.
func (s *Script) Contains(n Node) bool {
	return n != nil && n.Script() == s && s.Node(n.ID()) == n
}

func (s *Script) register(n Node, typ NodeType) {
	var idx uint32
	if len(s.free) > 0 {
		idx = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{gen: 1})
	}
	sl := &s.slots[idx]
	sl.node = n
	nb := n.base()
	nb.script = s
	nb.typ = typ
	nb.id = NodeID{index: idx, gen: sl.gen}
	if err := s.nodes.Add(nb.id, n); err != nil {
		// Slot generations make ids unique, a duplicate means the arena is corrupt.
		panic("vshader: register " + nb.id.String() + ": " + err.Error())
	}
	s.touch()
}

// destroy severs every edge of n and releases its slot.
func (s *Script) destroy(n Node) {
	nb := n.base()
	for _, in := range nb.inputs {
		in.DisconnectAll()
	}
	for _, out := range nb.outputs {
		out.DisconnectAll()
	}
	s.nodes.DeleteByKey(nb.id)
	sl := &s.slots[nb.id.index]
	sl.node = nil
	sl.gen++
	s.free = append(s.free, nb.id.index)
	Logger().Debug("node destroyed", slog.String("node", nodeString(n)))
	nb.script = nil
	s.touch()
}

// DestroyNode disconnects every pin of n and removes it from the script.
// Variables are also removed from the interface, buffer or push constant block declaring them
// and destroying a sampler variable removes its binding.
// DestroyNode returns false if n is not a live node of s or is the vertex output sentinel.
func (s *Script) DestroyNode(n Node) bool {
	if !s.Contains(n) || n.base().pinned {
		return false
	}
	switch v := n.(type) {
	case *InputVariable:
		return s.inputs.RemoveMember(v)
	case *OutputVariable:
		return s.outputs.RemoveMember(v)
	case *UniformVariable:
		return v.buffer.RemoveMember(v)
	case *PushConstantVariable:
		return s.push.RemoveMember(v)
	case *SamplerVariable:
		return v.binding.Set().RemoveBinding(v.binding.ID())
	}
	s.destroy(n)
	return true
}

// CreateConstant creates a constant node holding v. It returns nil if v is not a valid value.
func (s *Script) CreateConstant(v Value) *Constant {
	if !v.IsValid() {
		return nil
	}
	c := &Constant{value: v}
	c.initPins(c, nil, []DataType{v.typ})
	s.register(c, NodeConstant)
	return c
}

// CreateConstantVariable creates a named stage constant initialized to v.
// It returns nil if v is not a valid value.
func (s *Script) CreateConstantVariable(label string, v Value) *ConstantVariable {
	if !v.IsValid() {
		return nil
	}
	cv := &ConstantVariable{variable: variable{kind: VariableConstant, dt: v.typ}, value: v}
	cv.label = label
	cv.initPins(cv, nil, []DataType{v.typ})
	s.register(cv, NodeVariable)
	return cv
}

// CreateOperator creates an operator node applying op to operands of the given types.
// The result type is looked up in the supported operator table.
func (s *Script) CreateOperator(op OperatorKind, left, right DataType) (*Operator, error) {
	out, ok := OperatorResult(op, left, right)
	if !ok {
		return nil, fmt.Errorf("operator %s(%s, %s) unsupported: %w", op, left, right, ErrTypeMismatch)
	}
	o := &Operator{op: op}
	o.initPins(o, []DataType{left, right}, []DataType{out})
	s.register(o, NodeOperator)
	return o, nil
}

// CreateFunction creates a function node for the overload of fn taking the given input types.
func (s *Script) CreateFunction(fn FunctionKind, in ...DataType) (*Function, error) {
	sig, ok := LookupFunction(fn, in...)
	if !ok {
		return nil, fmt.Errorf("function %s%s unsupported: %w", fn, Signature{In: in}.argString(), ErrTypeMismatch)
	}
	f := &Function{fn: fn}
	f.initPins(f, sig.In, []DataType{sig.Out})
	s.register(f, NodeFunction)
	return f, nil
}

// Connect connects out to in, replacing any existing upstream connection of in.
// Unlike [Pin.Connect] it returns an error describing why a connection was rejected.
// On error no edge state is modified.
func (s *Script) Connect(out *OutputPin, in *InputPin) error {
	return s.connect(out, in)
}

// ConnectPins connects two pins of opposite direction given in any order.
func (s *Script) ConnectPins(a, b Pin) error {
	switch pa := a.(type) {
	case *OutputPin:
		if pb, ok := b.(*InputPin); ok {
			return s.connect(pa, pb)
		}
	case *InputPin:
		if pb, ok := b.(*OutputPin); ok {
			return s.connect(pb, pa)
		}
	default:
		return ErrNilPin
	}
	if b == nil {
		return ErrNilPin
	}
	return ErrDirection
}

func (s *Script) connect(out *OutputPin, in *InputPin) error {
	if out == nil || in == nil {
		return ErrNilPin
	}
	if !s.Contains(out.owner) || !s.Contains(in.owner) {
		return ErrForeignNode
	}
	if !CanConnect(out.typ, in.typ) {
		err := fmt.Errorf("connect %s to %s: %w", out, in, ErrTypeMismatch)
		Logger().Debug("rejected connection", slog.String("err", err.Error()))
		return err
	}
	prev := in.Upstream()
	if prev == out {
		return nil
	} else if prev != nil {
		prev.removeLink(in.ref())
	}
	in.link = out.ref()
	out.links = append(out.links, in.ref())
	s.touch()
	return nil
}

func (s *Script) disconnect(out *OutputPin, in *InputPin) {
	out.removeLink(in.ref())
	if in.link == out.ref() {
		in.link = pinRef{}
	}
	s.touch()
}

func (s *Script) resolveOutput(r pinRef) *OutputPin {
	n := s.Node(r.node)
	if n == nil {
		return nil
	}
	return n.OutputPin(r.index)
}

func (s *Script) resolveInput(r pinRef) *InputPin {
	n := s.Node(r.node)
	if n == nil {
		return nil
	}
	return n.InputPin(r.index)
}

// EdgeCount returns the number of connections between live nodes of the script.
func (s *Script) EdgeCount() (n int) {
	for _, node := range s.nodes.Values {
		for _, in := range node.base().inputs {
			if in.Upstream() != nil {
				n++
			}
		}
	}
	return n
}
