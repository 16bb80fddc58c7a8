package glbuild

import (
	"strconv"

	"github.com/moltenforge/vshader"
)

// Identifier prefixes of generated declarations. Generated names are derived from declaration
// positions and user ids so that every stage of a pipeline agrees on them.
const (
	vertexInputPrefix  = "vin_"
	varyingPrefix      = "io_"
	fragOutputPrefix   = "fout_"
	uniformBlockPrefix = "UB_"
	uniformPrefix      = "ub_"
	samplerPrefix      = "tex_"
	constantPrefix     = "k"
	tempPrefix         = "t"
	memberPrefix       = "m"
	// PushConstantInstance is the instance name of the push constant block.
	PushConstantInstance = "pc"
	// PushConstantBlock is the block or struct type name of the push constant block.
	PushConstantBlock = "PushConstants"
)

// AppendInputName appends the identifier of the i'th input of a stage.
func AppendInputName(b []byte, stage vshader.Stage, i int) []byte {
	if stage == vshader.StageVertex {
		b = append(b, vertexInputPrefix...)
	} else {
		b = append(b, varyingPrefix...)
	}
	return strconv.AppendInt(b, int64(i), 10)
}

// AppendOutputName appends the identifier of the i'th output of a stage.
func AppendOutputName(b []byte, stage vshader.Stage, i int) []byte {
	if stage == vshader.StageVertex {
		b = append(b, varyingPrefix...)
	} else {
		b = append(b, fragOutputPrefix...)
	}
	return strconv.AppendInt(b, int64(i), 10)
}

func appendSetBinding(b []byte, prefix string, set, binding uint32) []byte {
	b = append(b, prefix...)
	b = append(b, 's')
	b = strconv.AppendUint(b, uint64(set), 10)
	b = append(b, "_b"...)
	return strconv.AppendUint(b, uint64(binding), 10)
}

// AppendUniformBlockName appends the block type name of the uniform buffer at (set, binding).
func AppendUniformBlockName(b []byte, set, binding uint32) []byte {
	return appendSetBinding(b, uniformBlockPrefix, set, binding)
}

// AppendUniformName appends the instance name of the uniform buffer at (set, binding).
func AppendUniformName(b []byte, set, binding uint32) []byte {
	return appendSetBinding(b, uniformPrefix, set, binding)
}

// AppendSamplerName appends the identifier of the sampler or texture at (set, binding).
func AppendSamplerName(b []byte, set, binding uint32) []byte {
	return appendSetBinding(b, samplerPrefix, set, binding)
}

// AppendMemberName appends the field name of the i'th member of a block.
func AppendMemberName(b []byte, i int) []byte {
	b = append(b, memberPrefix...)
	return strconv.AppendInt(b, int64(i), 10)
}

// AppendPushConstantName appends the expression reading the i'th push constant of stage.
// OpenGL has no push constants so members are standalone uniforms in the program's
// shared namespace and carry the stage in their name: pc_v_m0, pc_f_m0.
func AppendPushConstantName(b []byte, target Target, stage vshader.Stage, i int) []byte {
	b = append(b, PushConstantInstance...)
	if target == TargetOpenGL {
		b = append(b, '_')
		b = appendStageLetter(b, stage)
		b = append(b, '_')
	} else {
		b = append(b, '.')
	}
	return AppendMemberName(b, i)
}

func appendStageLetter(b []byte, stage vshader.Stage) []byte {
	if stage == vshader.StageVertex {
		return append(b, 'v')
	}
	return append(b, 'f')
}

// AppendConstantName appends the identifier of a constant variable.
func AppendConstantName(b []byte, cv *vshader.ConstantVariable) []byte {
	b = append(b, constantPrefix...)
	return strconv.AppendInt(b, int64(cv.ID().Index()), 10)
}

// AppendTempName appends the identifier of the result of the i'th instruction.
func AppendTempName(b []byte, i int) []byte {
	b = append(b, tempPrefix...)
	return strconv.AppendInt(b, int64(i), 10)
}

// AppendVarName appends the expression reading variable v of program p.
func AppendVarName(b []byte, target Target, p *Program, v vshader.Variable) []byte {
	if cv, ok := v.(*vshader.ConstantVariable); ok {
		return AppendConstantName(b, cv)
	}
	info := p.Vars[v.ID()]
	switch info.Kind {
	case vshader.VariableInput:
		return AppendInputName(b, p.Stage, info.Member)
	case vshader.VariableOutput:
		return AppendOutputName(b, p.Stage, info.Member)
	case vshader.VariableUniform:
		b = AppendUniformName(b, info.Set, info.Binding)
		b = append(b, '.')
		return AppendMemberName(b, info.Member)
	case vshader.VariableSampler:
		return AppendSamplerName(b, info.Set, info.Binding)
	case vshader.VariablePushConstant:
		return AppendPushConstantName(b, target, p.Stage, info.Member)
	}
	return b
}
