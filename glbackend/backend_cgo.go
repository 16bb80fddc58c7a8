//go:build !tinygo && cgo

package glbackend

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW starts a 1x1 sized GLFW window so that user can start working with the GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "vshader",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// RenderTarget is a window with a current OpenGL 4.6 core context.
type RenderTarget struct {
	window *glfw.Window
}

// NewRenderTarget creates a window and makes its context current.
func NewRenderTarget(cfg RenderTargetConfig) (*RenderTarget, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("render target needs positive size")
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	if cfg.Hidden {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("initialize OpenGL: %w", err)
	}
	return &RenderTarget{window: window}, nil
}

// Size returns the framebuffer size in pixels.
func (rt *RenderTarget) Size() (width, height int) {
	return rt.window.GetFramebufferSize()
}

// NativeHandle returns the platform window handle.
func (rt *RenderTarget) NativeHandle() unsafe.Pointer {
	return rt.window.Handle()
}

// Window returns the underlying GLFW window.
func (rt *RenderTarget) Window() *glfw.Window { return rt.window }

// Close destroys the window and terminates GLFW.
func (rt *RenderTarget) Close() {
	rt.window.Destroy()
	glfw.Terminate()
}

// ShaderProgram is a linked vertex and fragment program generated from shader graphs.
type ShaderProgram struct {
	prog    glgl.Program
	mapping *glbuild.MappedDescriptorSets
	results [2]*glbuild.Result
}

// CreateShaderProgram generates GLSL for both scripts against one shared mapping and links them.
// The target option is ignored, programs are always generated for OpenGL.
func CreateShaderProgram(vertex, fragment *vshader.Script, opts ...glbuild.Option) (*ShaderProgram, error) {
	m, err := checkPipeline(vertex, fragment)
	if err != nil {
		return nil, err
	}
	programmer := glbuild.NewProgrammer(openGLOptions(opts)...)
	var vsrc, fsrc bytes.Buffer
	_, vres, err := programmer.WriteGLSLMapped(&vsrc, vertex, m)
	if err != nil {
		return nil, fmt.Errorf("vertex stage: %w", err)
	}
	_, fres, err := programmer.WriteGLSLMapped(&fsrc, fragment, m)
	if err != nil {
		return nil, fmt.Errorf("fragment stage: %w", err)
	}
	vsrc.WriteByte(0)
	fsrc.WriteByte(0)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vsrc.String(),
		Fragment: fsrc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s\n%s\n%w", vsrc.Bytes()[:vsrc.Len()-1], fsrc.Bytes()[:fsrc.Len()-1], err)
	}
	vshader.Logger().Info("shader program created", slog.Int("uniformBuffers", m.UniformBufferCount), slog.Int("textures", m.TextureCount))
	return &ShaderProgram{
		prog:    prog,
		mapping: m,
		results: [2]*glbuild.Result{vres, fres},
	}, nil
}

// Bind makes the program current.
func (sp *ShaderProgram) Bind() { sp.prog.Bind() }

// Unbind clears the current program.
func (sp *ShaderProgram) Unbind() { sp.prog.Unbind() }

// Delete releases the program.
func (sp *ShaderProgram) Delete() { sp.prog.Delete() }

// Mapping returns the binding indices the program was generated against.
func (sp *ShaderProgram) Mapping() *glbuild.MappedDescriptorSets { return sp.mapping }

// Stale reports whether either script was mutated after the program was created.
func (sp *ShaderProgram) Stale() bool {
	return sp.results[0].Stale() || sp.results[1].Stale()
}

// BindUniformBuffer binds buf to the uniform buffer declared at (set, binding).
func (sp *ShaderProgram) BindUniformBuffer(set, binding uint32, buf *UniformBuffer) error {
	mb, err := lookupBinding(sp.mapping, set, binding, false)
	if err != nil {
		return err
	}
	gl.BindBufferBase(gl.UNIFORM_BUFFER, mb.Index, buf.id)
	return glgl.Err()
}

// BindTexture binds tex to the sampler declared at (set, binding).
func (sp *ShaderProgram) BindTexture(set, binding uint32, tex *Texture) error {
	mb, err := lookupBinding(sp.mapping, set, binding, true)
	if err != nil {
		return err
	}
	if tex.typ != mb.Type {
		return fmt.Errorf("set %d binding %d: %s texture bound to %s: %w", set, binding, tex.typ, mb.Type, vshader.ErrTypeMismatch)
	}
	gl.ActiveTexture(gl.TEXTURE0 + mb.Index)
	gl.BindTexture(tex.target, tex.id)
	return glgl.Err()
}

// SetPushConstant writes a push constant member of stage. The program must be bound.
func (sp *ShaderProgram) SetPushConstant(stage vshader.Stage, member int, v vshader.Value) error {
	pcl, v, err := checkPushConstant(sp.mapping, stage, member, v)
	if err != nil {
		return err
	}
	loc := int32(pcl.Location)
	switch v.DataType() {
	case vshader.Bool:
		var b int32
		if v.Bool() {
			b = 1
		}
		gl.Uniform1i(loc, b)
	case vshader.Int32:
		gl.Uniform1i(loc, v.Int())
	case vshader.Float32:
		gl.Uniform1f(loc, v.Float())
	case vshader.Vec2:
		f := v.Floats()
		gl.Uniform2f(loc, f[0], f[1])
	case vshader.Vec3:
		f := v.Floats()
		gl.Uniform3f(loc, f[0], f[1], f[2])
	case vshader.Vec4:
		f := v.Floats()
		gl.Uniform4f(loc, f[0], f[1], f[2], f[3])
	case vshader.Mat4:
		arr := v.Mat4Array()
		gl.UniformMatrix4fv(loc, 1, true, &arr[0]) // Values are row major.
	}
	return glgl.Err()
}

// UniformBuffer is a GPU buffer backing a uniform block.
type UniformBuffer struct {
	id   uint32
	size int
}

// NewUniformBuffer uploads data to a new uniform buffer. Data must follow the std140 layout
// reported by [vshader.UniformBuffer.Size] and member offsets.
func NewUniformBuffer(data []byte) (*UniformBuffer, error) {
	if len(data) == 0 {
		return nil, errors.New("empty uniform buffer")
	}
	ub := &UniformBuffer{size: len(data)}
	gl.GenBuffers(1, &ub.id)
	if ub.id == 0 {
		return nil, glErrOrMessage("zero id for uniform buffer")
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, ub.id)
	gl.BufferData(gl.UNIFORM_BUFFER, len(data), gl.Ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return ub, glgl.Err()
}

// Update overwrites the buffer contents starting at offset.
func (ub *UniformBuffer) Update(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > ub.size {
		return fmt.Errorf("update of %d bytes at %d overflows %d byte buffer", len(data), offset, ub.size)
	} else if len(data) == 0 {
		return nil
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, ub.id)
	gl.BufferSubData(gl.UNIFORM_BUFFER, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return glgl.Err()
}

// Delete releases the buffer.
func (ub *UniformBuffer) Delete() { gl.DeleteBuffers(1, &ub.id) }

// Texture is a GPU texture for sampler bindings.
type Texture struct {
	id     uint32
	target uint32
	typ    vshader.BindingType
}

// NewTexture2D uploads img to a new linearly filtered 2D texture.
func NewTexture2D(img *image.RGBA) (*Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty texture image")
	}
	tex := &Texture{target: gl.TEXTURE_2D, typ: vshader.BindingSampler2D}
	gl.GenTextures(1, &tex.id)
	if tex.id == 0 {
		return nil, glErrOrMessage("zero id for texture")
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, glgl.Err()
}

// Delete releases the texture.
func (tex *Texture) Delete() { gl.DeleteTextures(1, &tex.id) }

// VertexArray holds interleaved float vertex data laid out after a vertex script's input interface.
type VertexArray struct {
	vao, vbo uint32
	count    int32
}

// NewVertexArray uploads tightly packed vertices whose attributes follow the members of the
// vertex script's input interface in order. Integer inputs are not supported.
func NewVertexArray(vertex *vshader.Script, data []float32) (*VertexArray, error) {
	members := vertex.InputInterface().Members()
	stride := 0
	for _, iv := range members {
		if !iv.DataType().IsFloat() {
			return nil, fmt.Errorf("vertex input of type %s: %w", iv.DataType(), vshader.ErrInvalidType)
		}
		stride += iv.DataType().Size()
	}
	if stride == 0 || len(data) == 0 || (4*len(data))%stride != 0 {
		return nil, errors.New("vertex data does not match input interface")
	}
	va := &VertexArray{count: int32(4 * len(data) / stride)}
	gl.GenVertexArrays(1, &va.vao)
	gl.BindVertexArray(va.vao)
	gl.GenBuffers(1, &va.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, va.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	offset := 0
	for _, iv := range members {
		dt := iv.DataType()
		loc := uint32(iv.Location())
		// Matrices take one location per column.
		cols, rows := 1, dt.Components()
		if dt == vshader.Mat4 {
			cols, rows = 4, 4
		}
		for c := 0; c < cols; c++ {
			gl.EnableVertexAttribArray(loc + uint32(c))
			gl.VertexAttribPointerWithOffset(loc+uint32(c), int32(rows), gl.FLOAT, false, int32(stride), uintptr(offset))
			offset += 4 * rows
		}
	}
	gl.BindVertexArray(0)
	return va, glgl.Err()
}

// Draw draws the vertices as triangles with the currently bound program.
func (va *VertexArray) Draw() error {
	gl.BindVertexArray(va.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, va.count)
	gl.BindVertexArray(0)
	return glgl.Err()
}

// Delete releases the vertex array and its buffer.
func (va *VertexArray) Delete() {
	gl.DeleteBuffers(1, &va.vbo)
	gl.DeleteVertexArrays(1, &va.vao)
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
