package glbuild

// Option configures lowering and source generation.
type Option func(*config)

type config struct {
	target       Target
	version      int
	fold         bool
	dedupe       bool
	maxPushBytes int
}

func defaultConfig() config {
	return config{
		target:       TargetOpenGL,
		fold:         true,
		dedupe:       true,
		maxPushBytes: 128,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.version == 0 {
		cfg.version = cfg.target.defaultVersion()
	}
	return cfg
}

// WithTarget selects the binding model and GLSL dialect generated. The default is [TargetOpenGL].
func WithTarget(t Target) Option {
	return func(c *config) {
		c.target = t
	}
}

// WithVersion overrides the #version directive. Zero selects the target's default,
// 430 for OpenGL and 450 for Vulkan.
func WithVersion(version int) Option {
	return func(c *config) {
		c.version = version
	}
}

// WithConstantFolding enables or disables evaluation of operators and functions whose inputs
// are all constants at compile time. Enabled by default.
func WithConstantFolding(enable bool) Option {
	return func(c *config) {
		c.fold = enable
	}
}

// WithDedupe enables or disables merging of identical expressions. Enabled by default.
func WithDedupe(enable bool) Option {
	return func(c *config) {
		c.dedupe = enable
	}
}

// WithMaxPushConstantSize sets the maximum size in bytes of a stage's push constant block.
// Vulkan guarantees at least 128 bytes, the default.
func WithMaxPushConstantSize(size int) Option {
	return func(c *config) {
		c.maxPushBytes = size
	}
}
