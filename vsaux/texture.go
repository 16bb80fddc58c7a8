package vsaux

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// FitTexture scales src to a width x height RGBA image using Catmull-Rom resampling.
// Useful for conforming arbitrary images to power-of-two sampler textures.
func FitTexture(src image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("non-positive texture dimensions")
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// LabelConfig configures [TextLabel]. The zero value renders
// white 16 point Go Regular text on a transparent background.
type LabelConfig struct {
	// TTF is the font blob. If nil Go Regular is used.
	TTF []byte
	// Size is the font size in points at 72 DPI.
	Size       float64
	Foreground color.Color
	Background color.Color
	// Padding in pixels around the text on every side.
	Padding int
}

// TextLabel rasterizes a single line of text into an RGBA image sized to fit it,
// suitable for uploading as a sampler texture.
func TextLabel(text string, cfg LabelConfig) (*image.RGBA, error) {
	if text == "" {
		return nil, errors.New("empty label text")
	} else if cfg.Padding < 0 {
		return nil, errors.New("negative label padding")
	}
	ttf := cfg.TTF
	if ttf == nil {
		ttf = goregular.TTF
	}
	size := cfg.Size
	if size == 0 {
		size = 16
	}
	fg := cfg.Foreground
	if fg == nil {
		fg = color.White
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()

	metrics := face.Metrics()
	advance := font.MeasureString(face, text)
	w := advance.Ceil() + 2*cfg.Padding
	h := (metrics.Ascent + metrics.Descent).Ceil() + 2*cfg.Padding
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if cfg.Background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(cfg.Background), image.Point{}, draw.Src)
	}
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(cfg.Padding),
			Y: fixed.I(cfg.Padding) + metrics.Ascent,
		},
	}
	drawer.DrawString(text)
	return img, nil
}
