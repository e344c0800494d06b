package compute

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
)

// kernel is a compiled module and the functions resolved from it.
type kernel struct {
	handle    Handle
	lib       gpucore.Library
	functions map[Handle]*function
}

func (k *kernel) release() {
	k.functions = nil
	k.lib.Release()
}

// function is a resolved entry point. Immutable.
type function struct {
	handle Handle
	name   string
	fn     gpucore.Function
}

// Compile compiles source on the device with fast-math enabled and returns
// the kernel handle. On a compiler error it returns a *CompileError and
// records the diagnostic for CompileError.
func (c *Context) Compile(dev Handle, source string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := c.lookupDevice(dev)
	if err != nil {
		return 0, err
	}

	lib, err := d.dev.NewLibrary(source, c.compile)
	if err != nil {
		diag := err.Error()
		c.setCompileError(diag)
		Logger().Debug("compute: compile failed", "device", dev, "error", diag)
		return 0, &CompileError{Diagnostic: diag}
	}
	c.setCompileError("")

	k := &kernel{
		handle:    handles.nextHandle(),
		lib:       lib,
		functions: make(map[Handle]*function),
	}
	d.kernels[k.handle] = k

	Logger().Debug("compute: kernel compiled", "device", dev, "kernel", k.handle)
	return k.handle, nil
}

// CompileError returns the diagnostic of the most recent failed Compile,
// or "" if the most recent Compile succeeded. Each Compile overwrites it.
func (c *Context) CompileError() string {
	c.compileErrMu.Lock()
	defer c.compileErrMu.Unlock()
	return c.compileErr
}

func (c *Context) setCompileError(s string) {
	c.compileErrMu.Lock()
	c.compileErr = s
	c.compileErrMu.Unlock()
}

// CloseKernel releases the kernel and invalidates its functions.
func (c *Context) CloseKernel(dev, kern Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, k, err := c.lookupKernel(dev, kern)
	if err != nil {
		return err
	}
	delete(d.kernels, kern)
	k.release()
	return nil
}

// ResolveFunction resolves the entry point called name in the kernel.
func (c *Context) ResolveFunction(dev, kern Handle, name string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, k, err := c.lookupKernel(dev, kern)
	if err != nil {
		return 0, err
	}
	fn, ok := k.lib.Function(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}

	f := &function{
		handle: handles.nextHandle(),
		name:   name,
		fn:     fn,
	}
	k.functions[f.handle] = f
	return f.handle, nil
}

// FunctionNames lists the entry points available in the kernel.
func (c *Context) FunctionNames(dev, kern Handle) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, k, err := c.lookupKernel(dev, kern)
	if err != nil {
		return nil, err
	}
	return k.lib.FunctionNames(), nil
}

// CloseFunction forgets a resolved function.
func (c *Context) CloseFunction(dev, kern, fn Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, k, err := c.lookupKernel(dev, kern)
	if err != nil {
		return err
	}
	if _, ok := k.functions[fn]; !ok {
		return fmt.Errorf("%w: %d", ErrFunctionNotFound, fn)
	}
	delete(k.functions, fn)
	return nil
}

// lookupKernel resolves a device and one of its kernels. c.mu must be held.
func (c *Context) lookupKernel(dev, kern Handle) (*device, *kernel, error) {
	d, err := c.lookupDevice(dev)
	if err != nil {
		return nil, nil, err
	}
	k, ok := d.kernels[kern]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrKernelNotFound, kern)
	}
	return d, k, nil
}
