package vsaux

import (
	"context"
	"image"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbackend"
	"github.com/moltenforge/vshader/glbuild"
)

// Binding identifies a resource by the user set and binding ids declared in a graph.
type Binding struct {
	Set, Binding uint32
}

// PreviewConfig configures [Preview].
type PreviewConfig struct {
	Width, Height int
	Title         string
	// Context stops the preview when done. May be nil.
	Context context.Context
	// Vertices are tightly packed float attributes following the vertex input interface.
	Vertices []float32
	// UniformBuffers holds the initial std140 contents of each uniform buffer.
	UniformBuffers map[Binding][]byte
	Textures       map[Binding]*image.RGBA
	// OnFrame is called before every frame is drawn with the bound program and
	// the seconds elapsed since the preview started. Push constants are usually set here.
	OnFrame func(prog *glbackend.ShaderProgram, seconds float64) error
	Options []glbuild.Option
}

// Preview opens a window and draws the vertex and fragment graphs every frame until the
// window is closed or the context is done. It must be called from the main goroutine.
func Preview(vertex, fragment *vshader.Script, cfg PreviewConfig) error {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	if cfg.Title == "" {
		cfg.Title = "vshader preview"
	}
	return preview(vertex, fragment, cfg)
}
