package entities

// Allocator names accepted by FilterConfig.Allocator.
const (
	AllocatorHeap = "heap"
	AllocatorMmap = "mmap"
)

// FilterConfig is the user configuration of one filter instance.
type FilterConfig struct {
	// Library is the path of the interpreter runtime library.
	Library string `json:"pylib" yaml:"pylib" toml:"pylib" validate:"required" jsonschema:"title=Runtime library,description=Path of the interpreter shared library"`

	// Script is the path of the user script.
	Script string `json:"script" yaml:"script" toml:"script" validate:"required" jsonschema:"title=Script,description=Path of the script that defines the filter class"`

	// Class is the name of the filter class inside the script.
	Class string `json:"class" yaml:"class" toml:"class" validate:"required" jsonschema:"title=Class,description=Name of the filter class"`

	// InitArg is passed as the single constructor argument.
	InitArg string `json:"init_arg,omitempty" yaml:"init_arg,omitempty" toml:"init_arg,omitempty" jsonschema:"title=Constructor argument"`

	// Home overrides the interpreter home directory.
	Home string `json:"home,omitempty" yaml:"home,omitempty" toml:"home,omitempty" jsonschema:"title=Interpreter home"`

	// SearchPaths are appended to the guest module search path.
	SearchPaths []string `json:"search_paths,omitempty" yaml:"search_paths,omitempty" toml:"search_paths,omitempty" jsonschema:"title=Extra search paths"`

	// DefaultFormat is used when the filter declares no format list.
	DefaultFormat string `json:"default_format,omitempty" yaml:"default_format,omitempty" toml:"default_format,omitempty" jsonschema:"title=Default pixel format,default=rgb24"`

	// Allocator selects the frame allocator.
	Allocator string `json:"allocator,omitempty" yaml:"allocator,omitempty" toml:"allocator,omitempty" validate:"omitempty,oneof=heap mmap" jsonschema:"enum=heap,enum=mmap,default=heap"`

	// LogLevel is the logging verbosity level.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// OutWidth and OutHeight force the output size when both are set.
	OutWidth  int `json:"out_w,omitempty" yaml:"out_w,omitempty" toml:"out_w,omitempty" validate:"gte=0" jsonschema:"minimum=0"`
	OutHeight int `json:"out_h,omitempty" yaml:"out_h,omitempty" toml:"out_h,omitempty" validate:"gte=0" jsonschema:"minimum=0"`

	// Scale multiplies the input size when no explicit output size is set.
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty" toml:"scale,omitempty" validate:"gte=0" jsonschema:"minimum=0,default=1"`
}

// DefaultFilterConfig returns a FilterConfig with defaults applied.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		DefaultFormat: "rgb24",
		Allocator:     AllocatorHeap,
		LogLevel:      "info",
		Scale:         1,
	}
}

// ApplyDefaults fills zero-valued optional fields.
func (c *FilterConfig) ApplyDefaults() {
	d := DefaultFilterConfig()
	if c.DefaultFormat == "" {
		c.DefaultFormat = d.DefaultFormat
	}
	if c.Allocator == "" {
		c.Allocator = d.Allocator
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Scale == 0 {
		c.Scale = d.Scale
	}
}

// OutputSize returns the negotiated output size for the given input size.
func (c *FilterConfig) OutputSize(inW, inH int) (int, int) {
	if c.OutWidth > 0 && c.OutHeight > 0 {
		return c.OutWidth, c.OutHeight
	}
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	return int(float64(inW)*scale + 0.5), int(float64(inH)*scale + 0.5)
}
