// Command vshaderc compiles shader graph documents to GLSL, WGSL or SPIR-V.
//
// Usage:
//
//	vshaderc [flags] graph.toml [graph.yaml]
//
// Each document describes one stage. When a vertex and a fragment document are given
// they are compiled as one pipeline sharing a single binding mapping.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
	"github.com/moltenforge/vshader/vsaux"
	"github.com/moltenforge/vshader/vsfile"
)

func init() {
	runtime.LockOSThread() // In case we wish to use OpenGL.
}

func run() error {
	var (
		target   string
		output   string
		convert  string
		version  int
		noFold   bool
		spirv    bool
		useGPU   bool
		verbose  bool
		describe bool
	)
	flag.StringVar(&target, "target", "opengl", "target API: opengl, vulkan or webgpu")
	flag.StringVar(&output, "o", "", "output base name. Stage sources are written to <base>.vert and <base>.frag with a target dependent suffix. If not set sources are written to stdout")
	flag.StringVar(&convert, "convert", "", "write the normalized graph of a single input document to this .toml or .yaml file and exit")
	flag.IntVar(&version, "version", 0, "GLSL version. Zero picks the target default")
	flag.BoolVar(&noFold, "nofold", false, "disable constant folding")
	flag.BoolVar(&spirv, "spirv", false, "compile WGSL to SPIR-V. Requires webgpu target and -o")
	flag.BoolVar(&useGPU, "gpu", false, "link the generated program on an OpenGL context to validate it")
	flag.BoolVar(&verbose, "v", false, "log compiler diagnostics")
	flag.BoolVar(&describe, "describe", false, "print the reachable graph of each document and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] graph.toml [graph.yaml]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		return errors.New("expected one or two graph documents")
	}
	if verbose {
		vshader.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	tgt, ok := glbuild.ParseTarget(target)
	if !ok {
		return fmt.Errorf("unknown target %q", target)
	}

	var stages [2]*vshader.Script
	for _, path := range flag.Args() {
		s, err := vsfile.Load(path)
		if err != nil {
			return err
		}
		if stages[s.Stage()] != nil {
			return fmt.Errorf("%s: second %s document", path, s.Stage())
		}
		stages[s.Stage()] = s
	}
	vertex, fragment := stages[vshader.StageVertex], stages[vshader.StageFragment]

	if describe {
		for _, s := range stages {
			if s != nil {
				fmt.Print(glbuild.FormatScript(s))
			}
		}
		return nil
	}
	if convert != "" {
		if flag.NArg() != 1 {
			return errors.New("-convert takes a single document")
		}
		s := vertex
		if s == nil {
			s = fragment
		}
		g, err := vsfile.FromScript(s)
		if err != nil {
			return err
		}
		return vsfile.SaveGraph(convert, g)
	}

	cfg := vsaux.BuildConfig{
		Target: tgt,
		SPIRV:  spirv,
		UseGPU: useGPU,
		Silent: !verbose,
		Options: []glbuild.Option{
			glbuild.WithVersion(version),
			glbuild.WithConstantFolding(!noFold),
		},
	}
	if output == "" {
		if spirv {
			return errors.New("-spirv requires -o")
		}
		if vertex != nil {
			cfg.VertexOutput = os.Stdout
		}
		if fragment != nil {
			cfg.FragmentOutput = os.Stdout
		}
		_, err := vsaux.BuildSources(vertex, fragment, cfg)
		return err
	}

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	create := func(s *vshader.Script, ext string) (io.Writer, error) {
		if s == nil {
			return nil, nil
		}
		fp, err := os.Create(output + ext)
		if err != nil {
			return nil, err
		}
		closers = append(closers, fp)
		return fp, nil
	}
	vext, fext := vsaux.Extensions(tgt, spirv)
	var err error
	cfg.VertexOutput, err = create(vertex, vext)
	if err != nil {
		return err
	}
	cfg.FragmentOutput, err = create(fragment, fext)
	if err != nil {
		return err
	}
	_, err = vsaux.BuildSources(vertex, fragment, cfg)
	return err
}

func main() {
	err := run()
	if err != nil {
		log.Fatal(err)
	}
}
