package vsaux

import (
	"image"
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/moltenforge/vshader"
	"github.com/soypat/glgl/math/ms1"
)

// A great portion of logic in this file taken from Esme Lamb's (@dedelala)
// excellent color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// ColorVec4 converts c to straight (non premultiplied) RGBA components on the range 0..1.
func ColorVec4(c color.Color) vshader.Float4 {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	return vshader.Float4{
		X: float32(nc.R) / math.MaxUint8,
		Y: float32(nc.G) / math.MaxUint8,
		Z: float32(nc.B) / math.MaxUint8,
		W: float32(nc.A) / math.MaxUint8,
	}
}

// ColorValue returns c as a Vec4 constant suitable for pin defaults and constant nodes.
func ColorValue(c color.Color) vshader.Value {
	return vshader.ValueOf(ColorVec4(c))
}

// Vec4Color converts RGBA components on the range 0..1 to a color. Components are clamped.
func Vec4Color(v vshader.Float4) color.NRGBA {
	return color.NRGBA{
		R: uint8(ms1.Clamp(v.X, 0, 1) * math.MaxUint8),
		G: uint8(ms1.Clamp(v.Y, 0, 1) * math.MaxUint8),
		B: uint8(ms1.Clamp(v.Z, 0, 1) * math.MaxUint8),
		A: uint8(ms1.Clamp(v.W, 0, 1) * math.MaxUint8),
	}
}

// GradientTexture returns a width x 1 image interpolating from c0 to c1 in HSV space,
// for use as a lookup table behind a sampler binding.
func GradientTexture(width int, c0, c1 color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, 1))
	a := toHSV(ColorVec4(c0))
	b := toHSV(ColorVec4(c1))
	for x := 0; x < width; x++ {
		var t float32
		if width > 1 {
			t = float32(x) / float32(width-1)
		}
		c := Vec4Color(a.interp(b, t).rgb())
		img.SetRGBA(x, 0, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	}
	return img
}

// hsv holds hue, saturation and brightness on the range 0..1.
type hsv struct{ h, s, v float32 }

// interp takes the shorter way around the hue circle.
func (c hsv) interp(to hsv, t float32) hsv {
	h0, h1 := c.h, to.h
	if h1-h0 > 0.5 {
		h0++
	} else if h0-h1 > 0.5 {
		h1++
	}
	h := ms1.Interp(h0, h1, t)
	return hsv{
		h: h - math.Floor(h),
		s: ms1.Interp(c.s, to.s, t),
		v: ms1.Interp(c.v, to.v, t),
	}
}

func (c hsv) rgb() vshader.Float4 {
	chroma := c.s * c.v
	h6 := c.h * 6
	x := chroma * (1 - math.Abs(math.Mod(h6, 2)-1))
	var r, g, b float32
	switch int(h6) % 6 {
	case 0:
		r, g = chroma, x
	case 1:
		r, g = x, chroma
	case 2:
		g, b = chroma, x
	case 3:
		g, b = x, chroma
	case 4:
		r, b = x, chroma
	case 5:
		r, b = chroma, x
	}
	m := c.v - chroma
	return vshader.Float4{X: r + m, Y: g + m, Z: b + m, W: 1}
}

func toHSV(c vshader.Float4) (out hsv) {
	hi := max(c.X, c.Y, c.Z)
	lo := min(c.X, c.Y, c.Z)
	chroma := hi - lo
	out.v = hi
	if hi > 0 {
		out.s = chroma / hi
	}
	if chroma == 0 {
		return out
	}
	switch hi {
	case c.X:
		out.h = (c.Y - c.Z) / chroma
	case c.Y:
		out.h = 2 + (c.Z-c.X)/chroma
	default:
		out.h = 4 + (c.X-c.Y)/chroma
	}
	out.h /= 6
	if out.h < 0 {
		out.h++
	}
	return out
}
