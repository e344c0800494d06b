package native

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/compute/backend"
	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// variantNames maps HAL APIs to registry names.
var variantNames = map[gputypes.Backend]string{
	gputypes.BackendMetal:  backend.Metal,
	gputypes.BackendVulkan: backend.Vulkan,
	gputypes.BackendDX12:   backend.DX12,
	gputypes.BackendGL:     backend.GLES,
	gputypes.BackendEmpty:  backend.Software,
}

// backends holds one lazily initialized Backend per HAL API.
var (
	backendsMu sync.Mutex
	backends   = make(map[gputypes.Backend]*Backend)
)

func init() {
	for _, variant := range hal.AvailableBackends() {
		name, ok := variantNames[variant]
		if !ok {
			continue
		}
		backend.Register(name, factory(variant))
	}
}

// factory returns a registry factory that yields the shared Backend for
// variant, or nil when the API cannot be initialized on this machine.
func factory(variant gputypes.Backend) backend.Factory {
	return func() gpucore.Backend {
		b := Get(variant)
		if err := b.init(); err != nil {
			slogger().Debug("native: backend unavailable", "backend", b.name, "error", err)
			return nil
		}
		return b
	}
}

// Get returns the shared Backend for a HAL API. The HAL instance is created
// on first use.
func Get(variant gputypes.Backend) *Backend {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	b, ok := backends[variant]
	if !ok {
		name, known := variantNames[variant]
		if !known {
			name = variant.String()
		}
		b = &Backend{variant: variant, name: name}
		backends[variant] = b
	}
	return b
}

// Backend is a gpucore.Backend over one HAL API.
//
// Thread Safety: Backend is safe for concurrent use.
type Backend struct {
	variant gputypes.Backend
	name    string

	once     sync.Once
	instance hal.Instance
	adapters []hal.ExposedAdapter
	err      error
}

// Name implements gpucore.Backend.
func (b *Backend) Name() string { return b.name }

// SetLogger sets the logger for the native backend package.
// Called by compute.SetLogger.
func (b *Backend) SetLogger(l *slog.Logger) { setLogger(l) }

func (b *Backend) init() error {
	b.once.Do(func() {
		hb, ok := hal.GetBackend(b.variant)
		if !ok {
			b.err = fmt.Errorf("%w: %s", ErrHALUnavailable, b.name)
			return
		}
		instance, err := hb.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			b.err = fmt.Errorf("%w: %s: %w", ErrHALUnavailable, b.name, err)
			return
		}
		adapters := instance.EnumerateAdapters(nil)
		if len(adapters) == 0 {
			instance.Destroy()
			b.err = fmt.Errorf("%w: %s", ErrNoGPU, b.name)
			return
		}
		b.instance = instance
		b.adapters = adapters
		slogger().Info("native: backend initialized", "backend", b.name, "adapters", len(adapters))
	})
	return b.err
}

// Devices implements gpucore.Backend.
func (b *Backend) Devices() ([]gpucore.DeviceInfo, error) {
	if err := b.init(); err != nil {
		return nil, err
	}
	infos := make([]gpucore.DeviceInfo, len(b.adapters))
	for i := range b.adapters {
		infos[i] = describe(&b.adapters[i])
	}
	return infos, nil
}

// OpenDevice implements gpucore.Backend. A negative index opens the default
// adapter: the first discrete GPU, else the first integrated GPU, else the
// first adapter.
func (b *Backend) OpenDevice(index int) (gpucore.Device, error) {
	if err := b.init(); err != nil {
		return nil, fmt.Errorf("%w: %w", gpucore.ErrNoDevice, err)
	}
	if index < 0 {
		index = defaultAdapter(b.adapters)
	}
	if index >= len(b.adapters) {
		return nil, gpucore.ErrNoDevice
	}

	ea := &b.adapters[index]
	open, err := ea.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("native: open %q: %w", ea.Info.Name, err)
	}
	slogger().Info("native: device opened",
		"backend", b.name,
		"adapter", ea.Info.Name,
		"type", ea.Info.DeviceType.String())
	return newDevice(open.Device, open.Queue, describe(ea), ea.Capabilities.Limits, false), nil
}

func defaultAdapter(adapters []hal.ExposedAdapter) int {
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return i
			}
		}
	}
	return 0
}

// describe builds the device descriptor for an adapter. Integrated and CPU
// adapters share host memory, so their working set is the host RAM size
// when it can be determined.
func describe(ea *hal.ExposedAdapter) gpucore.DeviceInfo {
	unified := ea.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU ||
		ea.Info.DeviceType == gputypes.DeviceTypeCPU

	ws := ea.Capabilities.Limits.MaxBufferSize
	if unified {
		if mem := hostMemory(); mem > 0 {
			ws = mem
		}
	}
	return gpucore.DeviceInfo{
		Name:                         ea.Info.Name,
		RecommendedMaxWorkingSetSize: clampInt64(ws),
		HasUnifiedMemory:             unified,
	}
}

func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
