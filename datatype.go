package vshader

import "strconv"

// DataType is the closed set of value types a [Pin] or value-producing [Node] can carry.
// A node's pin data types are fixed when the node is created.
type DataType uint8

const (
	DataTypeUndefined DataType = iota
	Bool
	Int32
	Float32
	Vec2
	Vec3
	Vec4
	Mat4
	Sampler1D
	Sampler2D
	Sampler3D
	numDataTypes
)

var dataTypeNames = [numDataTypes]string{
	DataTypeUndefined: "undefined",
	Bool:              "bool",
	Int32:             "int32",
	Float32:           "float32",
	Vec2:              "vec2",
	Vec3:              "vec3",
	Vec4:              "vec4",
	Mat4:              "mat4",
	Sampler1D:         "sampler1D",
	Sampler2D:         "sampler2D",
	Sampler3D:         "sampler3D",
}

func (dt DataType) String() string {
	if dt < numDataTypes {
		return dataTypeNames[dt]
	}
	return "DataType(" + strconv.Itoa(int(dt)) + ")"
}

// ParseDataType returns the DataType whose String representation is s.
func ParseDataType(s string) (DataType, bool) {
	for i := DataType(1); i < numDataTypes; i++ {
		if dataTypeNames[i] == s {
			return i, true
		}
	}
	return DataTypeUndefined, false
}

// IsValid reports whether dt is one of the defined data types.
func (dt DataType) IsValid() bool { return dt > DataTypeUndefined && dt < numDataTypes }

// IsSampler reports whether dt is a texture sampler handle.
func (dt DataType) IsSampler() bool { return dt >= Sampler1D && dt <= Sampler3D }

// IsFloat reports whether dt is a 32 bit float scalar, vector or matrix.
func (dt DataType) IsFloat() bool { return dt >= Float32 && dt <= Mat4 }

// IsVector reports whether dt is a float vector type.
func (dt DataType) IsVector() bool { return dt >= Vec2 && dt <= Vec4 }

// Components returns the number of scalar components of dt. Samplers have no components.
func (dt DataType) Components() int {
	switch dt {
	case Bool, Int32, Float32:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	case Mat4:
		return 16
	}
	return 0
}

// Size returns the size in bytes of a value of type dt in host memory.
// Booleans are 4 bytes wide as in GPU memory. Samplers are opaque and have size zero.
func (dt DataType) Size() int {
	if dt.IsSampler() {
		return 0
	}
	return 4 * dt.Components()
}

// Align returns the base alignment of dt in std140/std430 buffer layouts.
func (dt DataType) Align() int {
	switch dt {
	case Bool, Int32, Float32:
		return 4
	case Vec2:
		return 8
	case Vec3, Vec4, Mat4:
		return 16
	}
	return 0
}

// LocationSpan returns the number of consecutive interface locations
// a variable of type dt occupies.
func (dt DataType) LocationSpan() int {
	if dt == Mat4 {
		return 4
	}
	return 1
}

// SamplerDimension returns the dimensionality of a sampler data type or 0 if dt is not a sampler.
func (dt DataType) SamplerDimension() int {
	if !dt.IsSampler() {
		return 0
	}
	return int(dt-Sampler1D) + 1
}

// canConvert reports whether a value of type from may feed a pin of type to.
// Only the int to float widening is performed implicitly.
func canConvert(from, to DataType) bool {
	return from == to || (from == Int32 && to == Float32)
}

// CanConnect reports whether an output pin of type from may be connected to an input pin of type to,
// either because the types are equal or because an implicit conversion exists.
func CanConnect(from, to DataType) bool {
	return from.IsValid() && to.IsValid() && canConvert(from, to)
}
