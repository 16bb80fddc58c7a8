// Package vsaux contains helpers for getting started with vshader quickly: building
// pipeline sources in one call, preparing textures and previewing graphs in a window.
// Applications with specific needs should drive glbuild, wgslbuild and glbackend directly.
package vsaux

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbackend"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/moltenforge/vshader/wgslbuild"
)

type BuildConfig struct {
	Target         glbuild.Target
	VertexOutput   io.Writer
	FragmentOutput io.Writer
	// SPIRV writes little endian SPIR-V words compiled from the WGSL instead of WGSL text.
	// Only valid for [glbuild.TargetWebGPU].
	SPIRV bool
	// Options configure lowering of both stages. The target option is set from Target.
	Options []glbuild.Option
	// UseGPU links the generated OpenGL program on a hidden GL context to validate it.
	// Only valid for [glbuild.TargetOpenGL].
	UseGPU bool
	Silent bool
	// Logger receives progress messages. If nil [slog.Default] is used.
	Logger *slog.Logger
}

// BuildSources is an auxiliary function to aid users in generating the sources of a vertex and
// fragment pipeline in one call. Both stages are generated against one shared binding mapping,
// which is returned so the host can bind resources with matching indices.
// Either script may be nil if its output writer is also nil.
func BuildSources(vertex, fragment *vshader.Script, cfg BuildConfig) (_ *glbuild.MappedDescriptorSets, err error) {
	if cfg.VertexOutput == nil && cfg.FragmentOutput == nil {
		return nil, errors.New("BuildSources requires output parameter in config")
	} else if cfg.SPIRV && cfg.Target != glbuild.TargetWebGPU {
		return nil, fmt.Errorf("SPIR-V output requires webgpu target, got %s", cfg.Target)
	} else if cfg.UseGPU && cfg.Target != glbuild.TargetOpenGL {
		return nil, fmt.Errorf("GPU validation requires opengl target, got %s", cfg.Target)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := func(msg string, args ...any) {
		if !cfg.Silent {
			logger.Info(msg, args...)
		}
	}
	stages := []struct {
		script *vshader.Script
		w      io.Writer
		want   vshader.Stage
	}{
		{script: vertex, w: cfg.VertexOutput, want: vshader.StageVertex},
		{script: fragment, w: cfg.FragmentOutput, want: vshader.StageFragment},
	}
	var scripts []*vshader.Script
	for _, st := range stages {
		if st.script == nil {
			if st.w != nil {
				return nil, fmt.Errorf("%s output set without %s script", st.want, st.want)
			}
			continue
		} else if st.script.Stage() != st.want {
			return nil, fmt.Errorf("expected %s script, got %s", st.want, st.script.Stage())
		}
		scripts = append(scripts, st.script)
	}

	watch := stopwatch()
	m, err := glbuild.NewMapping(cfg.Target, scripts...)
	if err != nil {
		return nil, fmt.Errorf("mapping descriptor sets: %w", err)
	}
	log("mapped descriptor sets", "target", cfg.Target, "sets", len(m.Sets), "elapsed", watch())

	for _, st := range stages {
		if st.w == nil {
			continue
		}
		watch = stopwatch()
		n, err := writeStage(st.w, st.script, m, &cfg)
		if err != nil {
			return nil, fmt.Errorf("writing %s %s: %w", cfg.Target, st.want, err)
		}
		log("wrote shader", "stage", st.want, "output", outputName(st.w), "bytes", n, "elapsed", watch())
	}

	if cfg.UseGPU {
		if vertex == nil || fragment == nil {
			return nil, errors.New("GPU validation requires both vertex and fragment scripts")
		}
		watch = stopwatch()
		terminate, err := glbackend.Init1x1GLFW()
		if err != nil {
			return nil, err
		}
		defer terminate()
		prog, err := glbackend.CreateShaderProgram(vertex, fragment, cfg.Options...)
		if err != nil {
			return nil, fmt.Errorf("linking program: %w", err)
		}
		prog.Delete()
		log("linked OpenGL program", "elapsed", watch())
	}
	return m, nil
}

func writeStage(w io.Writer, s *vshader.Script, m *glbuild.MappedDescriptorSets, cfg *BuildConfig) (int, error) {
	if cfg.Target != glbuild.TargetWebGPU {
		opts := append(cfg.Options[:len(cfg.Options):len(cfg.Options)], glbuild.WithTarget(cfg.Target))
		n, _, err := glbuild.NewProgrammer(opts...).WriteGLSLMapped(w, s, m)
		return n, err
	}
	p := wgslbuild.NewProgrammer(wgslbuild.WithLowering(cfg.Options...))
	if !cfg.SPIRV {
		n, _, err := p.WriteWGSL(w, s, m)
		return n, err
	}
	words, _, err := p.CompileSPIRV(s, m)
	if err != nil {
		return 0, err
	}
	err = binary.Write(w, binary.LittleEndian, words)
	if err != nil {
		return 0, err
	}
	return 4 * len(words), nil
}

// WriteSources writes the GLSL or WGSL of a pipeline to files named after base.
// OpenGL and Vulkan produce base.vert and base.frag, WebGPU produces base.vert.wgsl and base.frag.wgsl.
func WriteSources(base string, vertex, fragment *vshader.Script, cfg BuildConfig) error {
	vext, fext := Extensions(cfg.Target, cfg.SPIRV)
	vfp, err := os.Create(base + vext)
	if err != nil {
		return err
	}
	defer vfp.Close()
	ffp, err := os.Create(base + fext)
	if err != nil {
		return err
	}
	defer ffp.Close()
	cfg.VertexOutput, cfg.FragmentOutput = vfp, ffp
	_, err = BuildSources(vertex, fragment, cfg)
	if err != nil {
		return err
	}
	return errors.Join(vfp.Sync(), ffp.Sync())
}

// Extensions returns the conventional file extensions of vertex and fragment sources.
func Extensions(target glbuild.Target, spirv bool) (vertex, fragment string) {
	switch {
	case target == glbuild.TargetWebGPU && spirv:
		return ".vert.spv", ".frag.spv"
	case target == glbuild.TargetWebGPU:
		return ".vert.wgsl", ".frag.wgsl"
	}
	return ".vert", ".frag"
}

// WritePNGFile saves img to a PNG file with said filename. Useful for inspecting
// textures generated by [TextLabel], [FitTexture] and [GradientTexture].
func WritePNGFile(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

func outputName(w io.Writer) string {
	switch v := w.(type) {
	case *os.File:
		return v.Name()
	case *strings.Builder:
		return "string"
	}
	return fmt.Sprintf("%T", w)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
