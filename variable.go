package vshader

import "strconv"

// VariableKind distinguishes the declaration buckets of variable nodes.
type VariableKind uint8

const (
	// VariableInput is a value supplied by the previous stage or vertex data.
	VariableInput VariableKind = iota
	// VariableOutput is a value produced for the next stage or the framebuffer.
	VariableOutput
	// VariableConstant is a value fixed at declaration.
	VariableConstant
	// VariableUniform is a member of a uniform buffer binding.
	VariableUniform
	// VariableSampler is the texture sampler of a sampler binding.
	VariableSampler
	// VariablePushConstant is a member of the push constant block.
	VariablePushConstant
)

func (vk VariableKind) String() string {
	switch vk {
	case VariableInput:
		return "input"
	case VariableOutput:
		return "output"
	case VariableConstant:
		return "constant"
	case VariableUniform:
		return "uniform"
	case VariableSampler:
		return "sampler"
	case VariablePushConstant:
		return "pushconstant"
	}
	return "VariableKind(" + strconv.Itoa(int(vk)) + ")"
}

// Variable is implemented by all nodes of type [NodeVariable].
type Variable interface {
	Node
	Kind() VariableKind
	DataType() DataType
}

type variable struct {
	nodeBase
	kind VariableKind
	dt   DataType
}

func (v *variable) Kind() VariableKind { return v.kind }
func (v *variable) DataType() DataType { return v.dt }

// InputVariable is a member of a script's [InputInterface]. It has a single output pin.
type InputVariable struct {
	variable
	iface *InputInterface
}

// Output returns the pin carrying the input value.
func (iv *InputVariable) Output() *OutputPin { return iv.outputs[0] }

// Location returns the interface location of the variable or -1 if it was removed.
func (iv *InputVariable) Location() int {
	if iv.iface == nil {
		return -1
	}
	return iv.iface.location(iv)
}

// OutputVariable is a member of a script's [OutputInterface]. It has a single input pin
// which may carry a default value used when it is left unconnected.
type OutputVariable struct {
	variable
	iface *OutputInterface
}

// Input returns the pin receiving the output value.
func (ov *OutputVariable) Input() *InputPin { return ov.inputs[0] }

// Location returns the interface location of the variable or -1 if it was removed.
func (ov *OutputVariable) Location() int {
	if ov.iface == nil {
		return -1
	}
	return ov.iface.location(ov)
}

// ConstantVariable is a named constant declared at stage scope.
type ConstantVariable struct {
	variable
	value Value
}

func (cv *ConstantVariable) Output() *OutputPin { return cv.outputs[0] }
func (cv *ConstantVariable) Value() Value       { return cv.value }

// SetValue replaces the declared value, which must be convertible to the variable's type.
func (cv *ConstantVariable) SetValue(v Value) bool {
	conv, ok := v.Convert(cv.dt)
	if !ok {
		return false
	}
	cv.value = conv
	if cv.script != nil {
		cv.script.touch()
	}
	return true
}

// UniformVariable is a member of a [UniformBuffer] binding.
type UniformVariable struct {
	variable
	buffer *UniformBuffer
}

func (uv *UniformVariable) Output() *OutputPin { return uv.outputs[0] }

// Buffer returns the uniform buffer holding the member or nil if it was removed.
func (uv *UniformVariable) Buffer() *UniformBuffer { return uv.buffer }

// Offset returns the std140 byte offset of the member within its buffer or -1 if it was removed.
func (uv *UniformVariable) Offset() int {
	if uv.buffer == nil {
		return -1
	}
	return uv.buffer.offset(uv)
}

// SamplerVariable exposes the texture sampler of a sampler binding on its output pin.
type SamplerVariable struct {
	variable
	binding Binding
}

func (sv *SamplerVariable) Output() *OutputPin { return sv.outputs[0] }

// Binding returns the sampler binding backing the variable or nil if it was removed.
func (sv *SamplerVariable) Binding() Binding { return sv.binding }

// PushConstantVariable is a member of a script's [PushConstants] block.
type PushConstantVariable struct {
	variable
	block *PushConstants
}

func (pv *PushConstantVariable) Output() *OutputPin { return pv.outputs[0] }

// Offset returns the byte offset of the member in the push constant block or -1 if it was removed.
func (pv *PushConstantVariable) Offset() int {
	if pv.block == nil {
		return -1
	}
	return pv.block.offset(pv)
}

var (
	_ Variable = (*InputVariable)(nil)
	_ Variable = (*OutputVariable)(nil)
	_ Variable = (*ConstantVariable)(nil)
	_ Variable = (*UniformVariable)(nil)
	_ Variable = (*SamplerVariable)(nil)
	_ Variable = (*PushConstantVariable)(nil)
)
