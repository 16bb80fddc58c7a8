package vshader

import (
	"slices"
	"strconv"
)

// OperatorKind is the arithmetic operation of an [Operator] node.
type OperatorKind uint8

const (
	OpAdd OperatorKind = iota
	OpSub
	OpMul
	OpDiv
	numOperators
)

func (op OperatorKind) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	}
	return "OperatorKind(" + strconv.Itoa(int(op)) + ")"
}

// Symbol returns the infix symbol of the operation as written in shading languages.
func (op OperatorKind) Symbol() byte {
	return "+-*/?"[min(op, numOperators)]
}

// ParseOperatorKind parses the String representation of an operator kind.
func ParseOperatorKind(s string) (OperatorKind, bool) {
	for op := OperatorKind(0); op < numOperators; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

type opKey struct {
	op          OperatorKind
	left, right DataType
}

// operatorTable is the allow-list of operand types for each operator and the resulting type.
var operatorTable = func() map[opKey]DataType {
	t := make(map[opKey]DataType)
	all := []OperatorKind{OpAdd, OpSub, OpMul, OpDiv}
	for _, op := range all {
		for _, dt := range []DataType{Int32, Float32, Vec2, Vec3, Vec4} {
			t[opKey{op, dt, dt}] = dt
		}
		for _, vec := range []DataType{Vec2, Vec3, Vec4} {
			t[opKey{op, vec, Float32}] = vec
			t[opKey{op, Float32, vec}] = vec
		}
	}
	t[opKey{OpAdd, Mat4, Mat4}] = Mat4
	t[opKey{OpSub, Mat4, Mat4}] = Mat4
	t[opKey{OpMul, Mat4, Mat4}] = Mat4
	t[opKey{OpMul, Mat4, Vec4}] = Vec4
	t[opKey{OpMul, Vec4, Mat4}] = Vec4
	t[opKey{OpMul, Mat4, Float32}] = Mat4
	t[opKey{OpMul, Float32, Mat4}] = Mat4
	t[opKey{OpDiv, Mat4, Float32}] = Mat4
	return t
}()

// OperatorResult returns the result type of op applied to operands of type left and right.
// It returns false if the combination is not supported.
func OperatorResult(op OperatorKind, left, right DataType) (DataType, bool) {
	dt, ok := operatorTable[opKey{op, left, right}]
	return dt, ok
}

// FunctionKind is the built-in function of a [Function] node.
type FunctionKind uint8

const (
	FuncCreateVec2 FunctionKind = iota
	FuncCreateVec3
	FuncCreateVec4
	FuncCos
	FuncSin
	FuncTan
	FuncMin
	FuncMax
	FuncCross
	FuncDot
	FuncTexture1D
	FuncTexture2D
	FuncTexture3D
	FuncNormalize
	FuncLength
	FuncAbs
	FuncPow
	FuncClamp
	FuncMix
	numFunctions
)

var functionNames = [numFunctions]string{
	FuncCreateVec2: "vec2",
	FuncCreateVec3: "vec3",
	FuncCreateVec4: "vec4",
	FuncCos:        "cos",
	FuncSin:        "sin",
	FuncTan:        "tan",
	FuncMin:        "min",
	FuncMax:        "max",
	FuncCross:      "cross",
	FuncDot:        "dot",
	FuncTexture1D:  "texture1D",
	FuncTexture2D:  "texture2D",
	FuncTexture3D:  "texture3D",
	FuncNormalize:  "normalize",
	FuncLength:     "length",
	FuncAbs:        "abs",
	FuncPow:        "pow",
	FuncClamp:      "clamp",
	FuncMix:        "mix",
}

func (fn FunctionKind) String() string {
	if fn < numFunctions {
		return functionNames[fn]
	}
	return "FunctionKind(" + strconv.Itoa(int(fn)) + ")"
}

// ParseFunctionKind parses the String representation of a function kind.
func ParseFunctionKind(s string) (FunctionKind, bool) {
	for fn := FunctionKind(0); fn < numFunctions; fn++ {
		if functionNames[fn] == s {
			return fn, true
		}
	}
	return 0, false
}

// IsTextureSample reports whether fn reads from a bound texture.
func (fn FunctionKind) IsTextureSample() bool {
	return fn >= FuncTexture1D && fn <= FuncTexture3D
}

// SamplerType returns the sampler data type consumed by a texture sampling function.
func (fn FunctionKind) SamplerType() DataType {
	if !fn.IsTextureSample() {
		return DataTypeUndefined
	}
	return Sampler1D + DataType(fn-FuncTexture1D)
}

// Signature is one supported overload of a function: its input types in pin order and its output type.
type Signature struct {
	Out DataType
	In  []DataType
}

func (sig Signature) matches(in []DataType) bool { return slices.Equal(sig.In, in) }

func (sig Signature) clone() Signature {
	sig.In = slices.Clone(sig.In)
	return sig
}

func (sig Signature) String() string {
	return sig.argString() + " " + sig.Out.String()
}

func (sig Signature) argString() string {
	b := []byte{'('}
	for i, dt := range sig.In {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, dt.String()...)
	}
	return string(append(b, ')'))
}

func sig(out DataType, in ...DataType) Signature { return Signature{Out: out, In: in} }

var floatTypes = []DataType{Float32, Vec2, Vec3, Vec4}

// functionTable holds every supported overload per function.
var functionTable = func() [numFunctions][]Signature {
	var t [numFunctions][]Signature
	t[FuncCreateVec2] = []Signature{sig(Vec2, Float32, Float32)}
	t[FuncCreateVec3] = []Signature{
		sig(Vec3, Float32, Float32, Float32),
		sig(Vec3, Vec2, Float32),
		sig(Vec3, Float32, Vec2),
	}
	t[FuncCreateVec4] = []Signature{
		sig(Vec4, Float32, Float32, Float32, Float32),
		sig(Vec4, Vec3, Float32),
		sig(Vec4, Float32, Vec3),
		sig(Vec4, Vec2, Vec2),
		sig(Vec4, Vec2, Float32, Float32),
	}
	for _, dt := range floatTypes {
		for _, fn := range []FunctionKind{FuncCos, FuncSin, FuncTan, FuncNormalize, FuncAbs} {
			if fn == FuncNormalize && dt == Float32 {
				continue
			}
			t[fn] = append(t[fn], sig(dt, dt))
		}
		t[FuncMin] = append(t[FuncMin], sig(dt, dt, dt))
		t[FuncMax] = append(t[FuncMax], sig(dt, dt, dt))
		t[FuncPow] = append(t[FuncPow], sig(dt, dt, dt))
		t[FuncClamp] = append(t[FuncClamp], sig(dt, dt, dt, dt))
		t[FuncMix] = append(t[FuncMix], sig(dt, dt, dt, Float32))
		t[FuncLength] = append(t[FuncLength], sig(Float32, dt))
		if dt != Float32 {
			t[FuncDot] = append(t[FuncDot], sig(Float32, dt, dt))
			t[FuncMix] = append(t[FuncMix], sig(dt, dt, dt, dt))
			t[FuncClamp] = append(t[FuncClamp], sig(dt, dt, Float32, Float32))
		}
	}
	t[FuncAbs] = append(t[FuncAbs], sig(Int32, Int32))
	t[FuncMin] = append(t[FuncMin], sig(Int32, Int32, Int32))
	t[FuncMax] = append(t[FuncMax], sig(Int32, Int32, Int32))
	t[FuncCross] = []Signature{sig(Vec3, Vec3, Vec3)}
	t[FuncTexture1D] = []Signature{sig(Vec4, Sampler1D, Float32)}
	t[FuncTexture2D] = []Signature{sig(Vec4, Sampler2D, Vec2)}
	t[FuncTexture3D] = []Signature{sig(Vec4, Sampler3D, Vec3)}
	return t
}()

// LookupFunction returns the overload of fn with the given input types.
func LookupFunction(fn FunctionKind, in ...DataType) (Signature, bool) {
	if fn >= numFunctions {
		return Signature{}, false
	}
	for _, s := range functionTable[fn] {
		if s.matches(in) {
			return s.clone(), true
		}
	}
	return Signature{}, false
}

// FunctionSignatures returns all supported overloads of fn.
func FunctionSignatures(fn FunctionKind) []Signature {
	if fn >= numFunctions {
		return nil
	}
	sigs := make([]Signature, len(functionTable[fn]))
	for i, s := range functionTable[fn] {
		sigs[i] = s.clone()
	}
	return sigs
}
