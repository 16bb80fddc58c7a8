//go:build tinygo || !cgo

package glbackend

import (
	"errors"
	"image"
	"unsafe"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
)

var errNoCGO = errors.New("OpenGL backend requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW window so that user can start working with the GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// RenderTarget is a window with a current OpenGL 4.6 core context.
type RenderTarget struct{}

// NewRenderTarget creates a window and makes its context current.
func NewRenderTarget(cfg RenderTargetConfig) (*RenderTarget, error) {
	return nil, errNoCGO
}

func (rt *RenderTarget) Size() (width, height int)    { return 0, 0 }
func (rt *RenderTarget) NativeHandle() unsafe.Pointer { return nil }
func (rt *RenderTarget) Close()                       {}

// ShaderProgram is a linked vertex and fragment program generated from shader graphs.
type ShaderProgram struct{}

// CreateShaderProgram generates GLSL for both scripts against one shared mapping and links them.
func CreateShaderProgram(vertex, fragment *vshader.Script, opts ...glbuild.Option) (*ShaderProgram, error) {
	if _, err := checkPipeline(vertex, fragment); err != nil {
		return nil, err
	}
	return nil, errNoCGO
}

func (sp *ShaderProgram) Bind()                                  {}
func (sp *ShaderProgram) Unbind()                                {}
func (sp *ShaderProgram) Delete()                                {}
func (sp *ShaderProgram) Mapping() *glbuild.MappedDescriptorSets { return nil }
func (sp *ShaderProgram) Stale() bool                            { return true }

func (sp *ShaderProgram) BindUniformBuffer(set, binding uint32, buf *UniformBuffer) error {
	return errNoCGO
}

func (sp *ShaderProgram) BindTexture(set, binding uint32, tex *Texture) error {
	return errNoCGO
}

func (sp *ShaderProgram) SetPushConstant(stage vshader.Stage, member int, v vshader.Value) error {
	return errNoCGO
}

// UniformBuffer is a GPU buffer backing a uniform block.
type UniformBuffer struct{}

// NewUniformBuffer uploads data to a new uniform buffer.
func NewUniformBuffer(data []byte) (*UniformBuffer, error) { return nil, errNoCGO }

func (ub *UniformBuffer) Update(offset int, data []byte) error { return errNoCGO }
func (ub *UniformBuffer) Delete()                              {}

// Texture is a GPU texture for sampler bindings.
type Texture struct{}

// NewTexture2D uploads img to a new linearly filtered 2D texture.
func NewTexture2D(img *image.RGBA) (*Texture, error) { return nil, errNoCGO }

func (tex *Texture) Delete() {}

// VertexArray holds interleaved float vertex data laid out after a vertex script's input interface.
type VertexArray struct{}

// NewVertexArray uploads tightly packed vertices for the vertex script's input interface.
func NewVertexArray(vertex *vshader.Script, data []float32) (*VertexArray, error) {
	return nil, errNoCGO
}

func (va *VertexArray) Draw() error { return errNoCGO }
func (va *VertexArray) Delete()     {}
