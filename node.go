package vshader

import (
	"fmt"
	"strconv"
)

// NodeType tags the variant of a [Node].
type NodeType uint8

const (
	NodeConstant NodeType = iota
	NodeVariable
	NodeOperator
	NodeFunction
	NodeOutput
)

func (nt NodeType) String() string {
	switch nt {
	case NodeConstant:
		return "Constant"
	case NodeVariable:
		return "Variable"
	case NodeOperator:
		return "Operator"
	case NodeFunction:
		return "Function"
	case NodeOutput:
		return "Output"
	}
	return "NodeType(" + strconv.Itoa(int(nt)) + ")"
}

// NodeID identifies a node within its [Script]. IDs of destroyed nodes are never reissued
// since the slot generation is bumped on destruction. The zero NodeID is invalid.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsValid reports whether id was issued by a script. It does not report whether the node is still alive,
// use [Script.Node] for that.
func (id NodeID) IsValid() bool { return id.gen != 0 }

func (id NodeID) String() string {
	return "n" + strconv.FormatUint(uint64(id.index), 10) + "g" + strconv.FormatUint(uint64(id.gen), 10)
}

// Index returns the slot index of the node, unique among the live nodes of a script.
func (id NodeID) Index() int { return int(id.index) }

// Node is a vertex of the shader graph. The set of node variants is closed:
// [*Constant], [*InputVariable], [*OutputVariable], [*ConstantVariable], [*UniformVariable],
// [*SamplerVariable], [*PushConstantVariable], [*Operator], [*Function] and [*VertexOutput].
type Node interface {
	ID() NodeID
	Type() NodeType
	// Script returns the script owning the node or nil if the node was destroyed.
	Script() *Script
	// Label returns the user provided label of the node, used in diagnostics.
	Label() string
	SetLabel(label string)
	InputPinCount() int
	OutputPinCount() int
	// InputPin returns the i'th input pin or nil if i is out of range.
	InputPin(i int) *InputPin
	// OutputPin returns the i'th output pin or nil if i is out of range.
	OutputPin(i int) *OutputPin
	InputPins() []*InputPin
	OutputPins() []*OutputPin

	base() *nodeBase
}

type nodeBase struct {
	script  *Script
	id      NodeID
	typ     NodeType
	label   string
	inputs  []*InputPin
	outputs []*OutputPin
	// pinned nodes may not be destroyed through Script.DestroyNode.
	pinned bool
}

func (nb *nodeBase) ID() NodeID          { return nb.id }
func (nb *nodeBase) Type() NodeType      { return nb.typ }
func (nb *nodeBase) Script() *Script     { return nb.script }
func (nb *nodeBase) Label() string       { return nb.label }
func (nb *nodeBase) InputPinCount() int  { return len(nb.inputs) }
func (nb *nodeBase) OutputPinCount() int { return len(nb.outputs) }
func (nb *nodeBase) base() *nodeBase     { return nb }

func (nb *nodeBase) SetLabel(label string) { nb.label = label }

func (nb *nodeBase) InputPin(i int) *InputPin {
	if i < 0 || i >= len(nb.inputs) {
		return nil
	}
	return nb.inputs[i]
}

func (nb *nodeBase) OutputPin(i int) *OutputPin {
	if i < 0 || i >= len(nb.outputs) {
		return nil
	}
	return nb.outputs[i]
}

func (nb *nodeBase) InputPins() []*InputPin   { return append([]*InputPin(nil), nb.inputs...) }
func (nb *nodeBase) OutputPins() []*OutputPin { return append([]*OutputPin(nil), nb.outputs...) }

// initPins creates the pins of self with the argument data types.
func (nb *nodeBase) initPins(self Node, ins []DataType, outs []DataType) {
	nb.inputs = make([]*InputPin, len(ins))
	for i, dt := range ins {
		nb.inputs[i] = &InputPin{owner: self, index: i, typ: dt}
	}
	nb.outputs = make([]*OutputPin, len(outs))
	for i, dt := range outs {
		nb.outputs[i] = &OutputPin{owner: self, index: i, typ: dt}
	}
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	if lbl := n.Label(); lbl != "" {
		return fmt.Sprintf("%s[%s %q]", n.Type(), n.ID(), lbl)
	}
	return fmt.Sprintf("%s[%s]", n.Type(), n.ID())
}

// Describe returns a short human readable identification of n for diagnostics.
func Describe(n Node) string { return nodeString(n) }

// Constant holds a mutable value and exposes it on its single output pin.
type Constant struct {
	nodeBase
	value Value
}

// Value returns the stored value.
func (c *Constant) Value() Value { return c.value }

// SetValue replaces the stored value. The value must be convertible to the constant's type.
// Graph topology is not affected.
func (c *Constant) SetValue(v Value) bool {
	cv, ok := v.Convert(c.value.typ)
	if !ok {
		return false
	}
	c.value = cv
	if c.script != nil {
		c.script.touch()
	}
	return true
}

// DataType returns the type of the constant.
func (c *Constant) DataType() DataType { return c.value.typ }

// Output returns the constant's output pin.
func (c *Constant) Output() *OutputPin { return c.outputs[0] }

// Operator applies an arithmetic operation to its left and right inputs.
type Operator struct {
	nodeBase
	op OperatorKind
}

// Op returns the arithmetic operation of the node.
func (o *Operator) Op() OperatorKind   { return o.op }
func (o *Operator) Left() *InputPin    { return o.inputs[0] }
func (o *Operator) Right() *InputPin   { return o.inputs[1] }
func (o *Operator) Output() *OutputPin { return o.outputs[0] }
func (o *Operator) DataType() DataType { return o.outputs[0].typ }

// Function applies a built-in function to its inputs.
type Function struct {
	nodeBase
	fn FunctionKind
}

func (f *Function) Func() FunctionKind { return f.fn }
func (f *Function) Output() *OutputPin { return f.outputs[0] }
func (f *Function) DataType() DataType { return f.outputs[0].typ }

// Signature returns the overload the function node was created with.
func (f *Function) Signature() Signature {
	sig := Signature{Out: f.outputs[0].typ, In: make([]DataType, len(f.inputs))}
	for i, in := range f.inputs {
		sig.In[i] = in.typ
	}
	return sig
}

// VertexOutput is the terminal node of a vertex script receiving the clip-space position.
// Every vertex script has exactly one, created with the script and never destroyed.
type VertexOutput struct {
	nodeBase
}

// Input returns the position input pin.
func (vo *VertexOutput) Input() *InputPin { return vo.inputs[0] }

var (
	_ Node = (*Constant)(nil)
	_ Node = (*Operator)(nil)
	_ Node = (*Function)(nil)
	_ Node = (*VertexOutput)(nil)
)
