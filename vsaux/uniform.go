package vsaux

import (
	"encoding/binary"
	"fmt"

	math "github.com/chewxy/math32"
	"github.com/moltenforge/vshader"
)

// UniformData packs one value per member of ub into a std140 buffer of ub.Size() bytes,
// ready for uploading with glbackend.NewUniformBuffer. Values are converted to the member
// type following the implicit conversion rules.
func UniformData(ub *vshader.UniformBuffer, values ...vshader.Value) ([]byte, error) {
	members := ub.Members()
	if len(values) != len(members) {
		return nil, fmt.Errorf("uniform buffer has %d members, got %d values", len(members), len(values))
	}
	buf := make([]byte, ub.Size())
	for i, uv := range members {
		v, ok := values[i].Convert(uv.DataType())
		if !ok {
			return nil, fmt.Errorf("member %d: %s to %s: %w", i, values[i].DataType(), uv.DataType(), vshader.ErrTypeMismatch)
		}
		putValue(buf[uv.Offset():], v)
	}
	return buf, nil
}

// putValue writes v in host shared layout. Matrices are stored column major.
func putValue(b []byte, v vshader.Value) {
	switch v.DataType() {
	case vshader.Bool:
		var u uint32
		if v.Bool() {
			u = 1
		}
		binary.LittleEndian.PutUint32(b, u)
	case vshader.Int32:
		binary.LittleEndian.PutUint32(b, uint32(v.Int()))
	case vshader.Mat4:
		arr := v.Mat4Array()
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				binary.LittleEndian.PutUint32(b[4*(j*4+i):], math.Float32bits(arr[i*4+j]))
			}
		}
	default:
		for i, f := range v.Floats() {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
		}
	}
}
