//go:build !tinygo && cgo

package vsaux

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbackend"
)

func preview(vertex, fragment *vshader.Script, cfg PreviewConfig) error {
	if len(cfg.Vertices) == 0 {
		return errors.New("preview requires vertex data")
	}
	rt, err := glbackend.NewRenderTarget(glbackend.RenderTargetConfig{
		Title:  cfg.Title,
		Width:  cfg.Width,
		Height: cfg.Height,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	prog, err := glbackend.CreateShaderProgram(vertex, fragment, cfg.Options...)
	if err != nil {
		return err
	}
	defer prog.Delete()
	prog.Bind()
	for b, data := range cfg.UniformBuffers {
		ubo, err := glbackend.NewUniformBuffer(data)
		if err != nil {
			return err
		}
		defer ubo.Delete()
		err = prog.BindUniformBuffer(b.Set, b.Binding, ubo)
		if err != nil {
			return err
		}
	}
	for b, img := range cfg.Textures {
		tex, err := glbackend.NewTexture2D(img)
		if err != nil {
			return err
		}
		defer tex.Delete()
		err = prog.BindTexture(b.Set, b.Binding, tex)
		if err != nil {
			return err
		}
	}
	va, err := glbackend.NewVertexArray(vertex, cfg.Vertices)
	if err != nil {
		return err
	}
	defer va.Delete()

	window := rt.Window()
	ctx := cfg.Context
	start := glfw.GetTime()
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := rt.Size()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		if cfg.OnFrame != nil {
			err = cfg.OnFrame(prog, glfw.GetTime()-start)
			if err != nil {
				return fmt.Errorf("frame callback: %w", err)
			}
		}
		err = va.Draw()
		if err != nil {
			return err
		}
		window.SwapBuffers()
		glfw.PollEvents()
		// Limit frame rate.
		time.Sleep(time.Second / 60)
	}
	return nil
}
