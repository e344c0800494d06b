// Package compute manages GPU compute resources through opaque integer
// handles, so that callers which cannot hold native GPU objects (foreign
// function bridges, scripting runtimes) can still compile kernels, allocate
// buffers and dispatch work.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/compute"
//	    _ "github.com/gogpu/compute/backend/native"
//	)
//
//	ctx, err := compute.New()
//	if err != nil { ... }
//	defer ctx.Close()
//
//	dev, name, _ := ctx.OpenDevice(-1)
//	kern, err := ctx.Compile(dev, src)
//	if err != nil {
//	    log.Fatal(ctx.CompileError())
//	}
//	fn, _ := ctx.ResolveFunction(dev, kern, "main")
//	in, inData, _ := ctx.OpenBuffer(dev, 16, []byte{...})
//	out, outData, _ := ctx.OpenBuffer(dev, 16, nil)
//
//	run, _ := ctx.Submit(dev, kern, fn, []compute.Handle{in, out}, 4)
//	ctx.CloseRun(run) // blocks until the work is done
//	fmt.Println(outData)
//
// # Entities
//
// A Device owns Kernels and Buffers. A Kernel owns Functions. Runs are
// tracked per Context and outlive everything else: closing a buffer or
// kernel does not affect a run that was already submitted. Every entity
// is named by a [Handle], unique across kinds and never reused.
//
// CloseDevice refuses to close a device with open buffers but releases
// open kernels implicitly.
//
// # Runs
//
// Submit returns as soon as the work is queued. The backend reports
// completion on its own goroutine. CloseRun blocks until completion if
// necessary and then forgets the run; RunStatus polls without blocking.
// Buffers bound to a run must not be touched until it has completed.
//
// # Errors
//
// Every error carries a numeric [Code] (see [CodeOf]) for callers across
// the C boundary. Object API codes start at -1000; the [Legacy] pipeline
// uses the small negative range.
//
// # Logging
//
// compute is silent by default. Use [SetLogger] to route diagnostics to a
// [log/slog] logger.
package compute
