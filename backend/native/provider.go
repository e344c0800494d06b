package native

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by providers that expose HAL objects next to
// their public WebGPU types.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// ProviderBackend is a single-device gpucore.Backend over a device owned by
// a gpucontext.DeviceProvider, such as a windowing application that already
// holds a GPU device. Kernels then share that device and its queue.
type ProviderBackend struct {
	hal      hal.Device
	queue    hal.Queue
	info     gpucore.DeviceInfo
	submitMu sync.Mutex
}

// FromProvider wraps the provider's device. The device is never destroyed
// by the returned backend.
func FromProvider(p gpucontext.DeviceProvider) (*ProviderBackend, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrNotHALDevice)
	}
	var dev, q any = p.Device(), p.Queue()
	if hp, ok := p.(halProvider); ok {
		dev, q = hp.HalDevice(), hp.HalQueue()
	}
	hd, ok := dev.(hal.Device)
	if !ok || hd == nil {
		return nil, fmt.Errorf("%w: device is %T", ErrNotHALDevice, dev)
	}
	hq, ok := q.(hal.Queue)
	if !ok || hq == nil {
		return nil, fmt.Errorf("%w: queue is %T", ErrNotHALDevice, q)
	}

	ai := p.AdapterInfo()
	unified := ai.Type == gpucontext.AdapterTypeIntegrated || ai.Type == gpucontext.AdapterTypeSoftware
	info := gpucore.DeviceInfo{
		Name:                         ai.Name,
		RecommendedMaxWorkingSetSize: clampInt64(gputypes.DefaultLimits().MaxBufferSize),
		HasUnifiedMemory:             unified,
	}
	if unified {
		if mem := hostMemory(); mem > 0 {
			info.RecommendedMaxWorkingSetSize = clampInt64(mem)
		}
	}
	slogger().Info("native: using provider device", "adapter", ai.Name, "type", ai.Type.String())
	return &ProviderBackend{hal: hd, queue: hq, info: info}, nil
}

// Name implements gpucore.Backend.
func (b *ProviderBackend) Name() string { return "provider" }

// SetLogger sets the logger for the native backend package.
func (b *ProviderBackend) SetLogger(l *slog.Logger) { setLogger(l) }

// Devices implements gpucore.Backend.
func (b *ProviderBackend) Devices() ([]gpucore.DeviceInfo, error) {
	return []gpucore.DeviceInfo{b.info}, nil
}

// OpenDevice implements gpucore.Backend. Index 0 and negative indices open
// the provider's device.
func (b *ProviderBackend) OpenDevice(index int) (gpucore.Device, error) {
	if index > 0 {
		return nil, gpucore.ErrNoDevice
	}
	d := newDevice(b.hal, b.queue, b.info, gputypes.DefaultLimits(), true)
	d.submitMu = &b.submitMu
	return d, nil
}

var _ gpucore.Backend = (*ProviderBackend)(nil)
