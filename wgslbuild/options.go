package wgslbuild

import (
	"github.com/moltenforge/vshader"
	"github.com/moltenforge/vshader/glbuild"
)

// Option configures a [Programmer].
type Option func(*config)

type config struct {
	vertexEntry   string
	fragmentEntry string
	lower         []glbuild.Option
}

func newConfig(opts []Option) config {
	cfg := config{
		vertexEntry:   "vs_main",
		fragmentEntry: "fs_main",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	// Always lower against the WebGPU binding model.
	cfg.lower = append(cfg.lower, glbuild.WithTarget(glbuild.TargetWebGPU))
	return cfg
}

func (cfg *config) entryPoint(stage vshader.Stage) string {
	if stage == vshader.StageVertex {
		return cfg.vertexEntry
	}
	return cfg.fragmentEntry
}

// WithEntryPoint sets the entry point function name generated for stage.
// Defaults are "vs_main" and "fs_main".
func WithEntryPoint(stage vshader.Stage, name string) Option {
	return func(c *config) {
		if stage == vshader.StageVertex {
			c.vertexEntry = name
		} else {
			c.fragmentEntry = name
		}
	}
}

// WithLowering forwards graph lowering options such as [glbuild.WithConstantFolding].
// The target option is ignored.
func WithLowering(opts ...glbuild.Option) Option {
	return func(c *config) {
		c.lower = append(c.lower, opts...)
	}
}
