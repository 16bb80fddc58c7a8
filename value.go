package vshader

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Float4 is a 4 component float32 vector, commonly a homogeneous position or an RGBA color.
type Float4 struct {
	X, Y, Z, W float32
}

// Array returns the vector components in XYZW order.
func (v Float4) Array() [4]float32 { return [4]float32{v.X, v.Y, v.Z, v.W} }

// Scalar is the set of Go types that map directly onto a non-sampler [DataType].
type Scalar interface {
	bool | int32 | float32 | ms2.Vec | ms3.Vec | Float4 | ms3.Mat4
}

// DataTypeOf returns the DataType corresponding to the Go type T.
func DataTypeOf[T Scalar]() DataType {
	var z T
	switch any(z).(type) {
	case bool:
		return Bool
	case int32:
		return Int32
	case float32:
		return Float32
	case ms2.Vec:
		return Vec2
	case ms3.Vec:
		return Vec3
	case Float4:
		return Vec4
	case ms3.Mat4:
		return Mat4
	}
	return DataTypeUndefined
}

// Value is a constant of any non-sampler [DataType]. The zero Value is invalid.
type Value struct {
	typ DataType
	b   bool
	i   int32
	f   [16]float32 // Row-major for matrices.
}

// ValueOf returns a Value holding v with its DataType derived from T.
func ValueOf[T Scalar](v T) Value {
	switch c := any(v).(type) {
	case bool:
		return Value{typ: Bool, b: c}
	case int32:
		return Value{typ: Int32, i: c}
	case float32:
		return Value{typ: Float32, f: [16]float32{c}}
	case ms2.Vec:
		return Value{typ: Vec2, f: [16]float32{c.X, c.Y}}
	case ms3.Vec:
		return Value{typ: Vec3, f: [16]float32{c.X, c.Y, c.Z}}
	case Float4:
		return Value{typ: Vec4, f: [16]float32{c.X, c.Y, c.Z, c.W}}
	case ms3.Mat4:
		return Value{typ: Mat4, f: c.Array()}
	}
	panic("unreachable")
}

// ZeroValue returns the zero value of dt. Samplers have no value and return the invalid Value.
func ZeroValue(dt DataType) Value {
	if !dt.IsValid() || dt.IsSampler() {
		return Value{}
	}
	return Value{typ: dt}
}

// ValueFromFloats builds a Value of type dt from its components in order.
// Booleans are true for non-zero components and matrices are given in row-major order.
func ValueFromFloats(dt DataType, comps []float64) (Value, error) {
	if !dt.IsValid() || dt.IsSampler() {
		return Value{}, fmt.Errorf("no constant value for %s", dt)
	}
	if len(comps) != dt.Components() {
		return Value{}, fmt.Errorf("%s requires %d components, got %d", dt, dt.Components(), len(comps))
	}
	v := Value{typ: dt}
	switch dt {
	case Bool:
		v.b = comps[0] != 0
	case Int32:
		v.i = int32(comps[0])
	default:
		for i, c := range comps {
			v.f[i] = float32(c)
		}
	}
	return v, nil
}

// DataType returns the type of the value.
func (v Value) DataType() DataType { return v.typ }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.typ != DataTypeUndefined }

func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int32     { return v.i }
func (v Value) Float() float32 { return v.f[0] }
func (v Value) Vec2() ms2.Vec  { return ms2.Vec{X: v.f[0], Y: v.f[1]} }
func (v Value) Vec3() ms3.Vec  { return ms3.Vec{X: v.f[0], Y: v.f[1], Z: v.f[2]} }
func (v Value) Vec4() Float4   { return Float4{X: v.f[0], Y: v.f[1], Z: v.f[2], W: v.f[3]} }

// Mat4Array returns the matrix elements in row-major order.
func (v Value) Mat4Array() [16]float32 { return v.f }

func (v Value) floats() []float32 { return v.f[:v.typ.Components()] }

// Floats returns the components of a float scalar, vector or matrix.
// Matrices are returned in row-major order.
func (v Value) Floats() []float32 {
	switch v.typ {
	case Float32, Vec2, Vec3, Vec4, Mat4:
		return append([]float32(nil), v.floats()...)
	case Int32:
		return []float32{float32(v.i)}
	case Bool:
		if v.b {
			return []float32{1}
		}
		return []float32{0}
	}
	return nil
}

// Convert returns v converted to dt following the implicit conversion rules.
func (v Value) Convert(dt DataType) (Value, bool) {
	if v.typ == dt {
		return v, true
	} else if v.typ == Int32 && dt == Float32 {
		return ValueOf(float32(v.i)), true
	}
	return Value{}, false
}

func (v Value) String() string {
	switch v.typ {
	case Bool:
		return fmt.Sprintf("%t", v.b)
	case Int32:
		return fmt.Sprintf("%d", v.i)
	case DataTypeUndefined:
		return "<invalid>"
	}
	return fmt.Sprintf("%s%v", v.typ, v.floats())
}
