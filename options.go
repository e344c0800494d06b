package compute

import "github.com/gogpu/compute/gpucore"

// Option configures a Context during creation.
//
// Example:
//
//	// Best available backend
//	ctx, err := compute.New()
//
//	// A specific registered backend
//	ctx, err := compute.New(compute.WithBackendName("software"))
type Option func(*options)

type options struct {
	backend     gpucore.Backend
	backendName string
	compile     gpucore.CompileOptions
}

func defaultOptions() options {
	return options{
		compile: gpucore.CompileOptions{
			FastMath:        true,
			LanguageVersion: DefaultLanguageVersion,
		},
	}
}

// DefaultLanguageVersion is the kernel language revision requested when
// compiling.
const DefaultLanguageVersion = "1.3"

// WithBackend uses b instead of a registered backend.
func WithBackend(b gpucore.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackendName selects a backend registered in package backend.
func WithBackendName(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithLanguageVersion overrides the kernel language revision.
// Fast-math stays enabled.
func WithLanguageVersion(v string) Option {
	return func(o *options) {
		o.compile.LanguageVersion = v
	}
}

// WithCompileOptions replaces the options every Compile passes to the
// backend.
func WithCompileOptions(opts gpucore.CompileOptions) Option {
	return func(o *options) {
		o.compile = opts
	}
}
