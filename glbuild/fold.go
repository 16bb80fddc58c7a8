package glbuild

import (
	"github.com/chewxy/math32"
	"github.com/moltenforge/vshader"
)

// fold evaluates instructions over literal operands. Only componentwise float operations,
// integer arithmetic and vector packing are folded; matrix math and texture reads are left to the GPU.
func fold(in *Instr) (vshader.Value, bool) {
	if in.Type == vshader.Mat4 || !in.Type.IsValid() {
		return vshader.Value{}, false
	}
	args := make([][]float32, len(in.Args))
	for i, a := range in.Args {
		if !a.IsLiteral() || !a.Value.IsValid() || a.Value.DataType() == vshader.Mat4 || a.Value.DataType().IsSampler() {
			return vshader.Value{}, false
		}
		args[i] = a.Value.Floats()
	}
	if in.Kind == vshader.NodeOperator {
		if in.Type == vshader.Int32 {
			return foldInt(in.Op, in.Args[0].Value.Int(), in.Args[1].Value.Int())
		}
		return foldOperator(in.Op, in.Type, args[0], args[1])
	}
	if in.Type == vshader.Int32 {
		return foldIntFunction(in.Func, in.Args)
	}
	return foldFunction(in.Func, in.Type, args)
}

func foldInt(op vshader.OperatorKind, a, b int32) (vshader.Value, bool) {
	var r int32
	switch op {
	case vshader.OpAdd:
		r = a + b
	case vshader.OpSub:
		r = a - b
	case vshader.OpMul:
		r = a * b
	case vshader.OpDiv:
		if b == 0 {
			return vshader.Value{}, false
		}
		r = a / b
	}
	return vshader.ValueOf(r), true
}

// broadcast returns the i'th component of a scalar or vector operand.
func broadcast(v []float32, i int) float32 {
	if len(v) == 1 {
		return v[0]
	}
	return v[i]
}

func foldOperator(op vshader.OperatorKind, out vshader.DataType, a, b []float32) (vshader.Value, bool) {
	n := out.Components()
	res := make([]float64, n)
	for i := range res {
		x, y := broadcast(a, i), broadcast(b, i)
		var r float32
		switch op {
		case vshader.OpAdd:
			r = x + y
		case vshader.OpSub:
			r = x - y
		case vshader.OpMul:
			r = x * y
		case vshader.OpDiv:
			r = x / y
		}
		res[i] = float64(r)
	}
	return valueFromComponents(out, res)
}

func foldFunction(fn vshader.FunctionKind, out vshader.DataType, args [][]float32) (vshader.Value, bool) {
	if out == vshader.Int32 {
		return vshader.Value{}, false
	}
	n := out.Components()
	res := make([]float64, 0, n)
	unary := func(f func(float32) float32) {
		for i := 0; i < n; i++ {
			res = append(res, float64(f(args[0][i])))
		}
	}
	binary := func(f func(a, b float32) float32) {
		for i := 0; i < n; i++ {
			res = append(res, float64(f(broadcast(args[0], i), broadcast(args[1], i))))
		}
	}
	switch fn {
	case vshader.FuncCreateVec2, vshader.FuncCreateVec3, vshader.FuncCreateVec4:
		for _, a := range args {
			for _, c := range a {
				res = append(res, float64(c))
			}
		}
	case vshader.FuncCos:
		unary(math32.Cos)
	case vshader.FuncSin:
		unary(math32.Sin)
	case vshader.FuncTan:
		unary(math32.Tan)
	case vshader.FuncAbs:
		unary(math32.Abs)
	case vshader.FuncMin:
		binary(math32.Min)
	case vshader.FuncMax:
		binary(math32.Max)
	case vshader.FuncPow:
		binary(math32.Pow)
	case vshader.FuncClamp:
		for i := 0; i < n; i++ {
			v := math32.Max(broadcast(args[1], i), args[0][i])
			res = append(res, float64(math32.Min(broadcast(args[2], i), v)))
		}
	case vshader.FuncMix:
		for i := 0; i < n; i++ {
			x, y, t := args[0][i], args[1][i], broadcast(args[2], i)
			res = append(res, float64(x*(1-t)+y*t))
		}
	case vshader.FuncDot:
		res = append(res, float64(dot(args[0], args[1])))
	case vshader.FuncLength:
		res = append(res, float64(math32.Sqrt(dot(args[0], args[0]))))
	case vshader.FuncNormalize:
		l := math32.Sqrt(dot(args[0], args[0]))
		if l == 0 {
			return vshader.Value{}, false
		}
		unary(func(c float32) float32 { return c / l })
	case vshader.FuncCross:
		a, b := args[0], args[1]
		res = append(res,
			float64(a[1]*b[2]-a[2]*b[1]),
			float64(a[2]*b[0]-a[0]*b[2]),
			float64(a[0]*b[1]-a[1]*b[0]),
		)
	default:
		return vshader.Value{}, false
	}
	return valueFromComponents(out, res)
}

func foldIntFunction(fn vshader.FunctionKind, args []Arg) (vshader.Value, bool) {
	a := args[0].Value.Int()
	switch fn {
	case vshader.FuncAbs:
		return vshader.ValueOf(max(a, -a)), true
	case vshader.FuncMin:
		return vshader.ValueOf(min(a, args[1].Value.Int())), true
	case vshader.FuncMax:
		return vshader.ValueOf(max(a, args[1].Value.Int())), true
	}
	return vshader.Value{}, false
}

func dot(a, b []float32) (sum float32) {
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func valueFromComponents(dt vshader.DataType, comps []float64) (vshader.Value, bool) {
	for _, c := range comps {
		if math32.IsNaN(float32(c)) || math32.IsInf(float32(c), 0) {
			return vshader.Value{}, false
		}
	}
	v, err := vshader.ValueFromFloats(dt, comps)
	return v, err == nil
}
