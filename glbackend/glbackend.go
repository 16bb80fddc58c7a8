// Package glbackend runs compiled shader graphs on OpenGL 4.6. It links the GLSL of a vertex and
// fragment script into a program and binds resources by the (set, binding) ids declared in the graph.
// All functions must be called from the goroutine owning the current GL context.
package glbackend

import (
	"errors"
	"fmt"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
)

var (
	errNotVertex   = errors.New("first script must be a vertex script")
	errNotFragment = errors.New("second script must be a fragment script")
)

// RenderTargetConfig configures the window backing a [RenderTarget].
type RenderTargetConfig struct {
	Title         string
	Width, Height int
	// Hidden creates an invisible window for offscreen rendering.
	Hidden bool
}

// openGLOptions returns opts followed by the OpenGL target option without writing to the caller's array.
func openGLOptions(opts []glbuild.Option) []glbuild.Option {
	return append(opts[:len(opts):len(opts)], glbuild.WithTarget(glbuild.TargetOpenGL))
}

// checkPipeline validates the scripts of a pipeline and returns the shared OpenGL mapping.
func checkPipeline(vertex, fragment *vshader.Script) (*glbuild.MappedDescriptorSets, error) {
	if vertex == nil || vertex.Stage() != vshader.StageVertex {
		return nil, errNotVertex
	} else if fragment == nil || fragment.Stage() != vshader.StageFragment {
		return nil, errNotFragment
	}
	return glbuild.NewMapping(glbuild.TargetOpenGL, vertex, fragment)
}

// checkPushConstant resolves a push constant write to its uniform location, converting v to
// the member type when allowed.
func checkPushConstant(m *glbuild.MappedDescriptorSets, stage vshader.Stage, member int, v vshader.Value) (glbuild.PushConstantLocation, vshader.Value, error) {
	loc, ok := m.PushConstant(stage, member)
	if !ok {
		return loc, v, fmt.Errorf("%s push constant %d not declared", stage, member)
	}
	cv, ok := v.Convert(loc.Type)
	if !ok {
		return loc, v, fmt.Errorf("%s push constant %d: %s to %s: %w", stage, member, v.DataType(), loc.Type, vshader.ErrTypeMismatch)
	}
	return loc, cv, nil
}

// lookupBinding resolves a user binding to its mapped binding, checking the kind.
func lookupBinding(m *glbuild.MappedDescriptorSets, set, binding uint32, sampler bool) (glbuild.MappedDescriptorBinding, error) {
	_, mb, ok := m.Lookup(set, binding)
	if !ok {
		return mb, fmt.Errorf("set %d binding %d not declared", set, binding)
	}
	if mb.Type.IsSampler() != sampler {
		return mb, fmt.Errorf("set %d binding %d is a %s: %w", set, binding, mb.Type, vshader.ErrTypeMismatch)
	}
	return mb, nil
}
