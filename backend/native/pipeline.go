package native

import (
	"fmt"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// pipeline is a compute pipeline for one entry point together with the
// layouts it was created with.
type pipeline struct {
	dev       *device
	fn        *function
	bgl       hal.BindGroupLayout
	layout    hal.PipelineLayout
	compute   hal.ComputePipeline
	workgroup [3]uint32
	released  bool
}

func newPipeline(d *device, fn *function) (*pipeline, error) {
	lib := fn.lib
	if lib.destroyed {
		return nil, fmt.Errorf("pipeline %q: library released", fn.name)
	}
	p := &pipeline{dev: d, fn: fn, workgroup: fn.workgroup}

	var err error
	p.bgl, err = d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   fn.name,
		Entries: lib.bindings,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group layout: %w", err)
	}
	p.layout, err = d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            fn.name,
		BindGroupLayouts: []hal.BindGroupLayout{p.bgl},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	p.compute, err = d.hal.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  fn.name,
		Layout: p.layout,
		Compute: hal.ComputeState{
			Module:     lib.module,
			EntryPoint: fn.name,
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("compute pipeline: %w", err)
	}
	return p, nil
}

// ExecutionWidth is the workgroup x dimension.
func (p *pipeline) ExecutionWidth() int { return int(max(p.workgroup[0], 1)) }

// MaxTotalThreadsPerThreadgroup is the workgroup size. WGSL fixes it at
// compile time, so it is also the only valid group size.
func (p *pipeline) MaxTotalThreadsPerThreadgroup() int { return p.threads() }

func (p *pipeline) threads() int {
	n := 1
	for _, d := range p.workgroup {
		n *= int(max(d, 1))
	}
	return n
}

// Release destroys the pipeline, then its layouts.
func (p *pipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.compute != nil {
		p.dev.hal.DestroyComputePipeline(p.compute)
	}
	if p.layout != nil {
		p.dev.hal.DestroyPipelineLayout(p.layout)
	}
	if p.bgl != nil {
		p.dev.hal.DestroyBindGroupLayout(p.bgl)
	}
}

var _ gpucore.PipelineState = (*pipeline)(nil)
