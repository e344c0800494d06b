package backend

import (
	"reflect"
	"testing"

	"github.com/gogpu/compute/gpucore"
)

type stubBackend struct{ name string }

func (s stubBackend) Name() string                           { return s.name }
func (s stubBackend) Devices() ([]gpucore.DeviceInfo, error) { return nil, nil }
func (s stubBackend) OpenDevice(int) (gpucore.Device, error) { return nil, gpucore.ErrNoDevice }

func stubFactory(name string) Factory {
	return func() gpucore.Backend { return stubBackend{name} }
}

func nilFactory() gpucore.Backend { return nil }

// withRegistry runs fn with an empty registry and restores it afterwards.
func withRegistry(t *testing.T, fn func()) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]Factory)
	registryMu.Unlock()
	defer func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	}()
	fn()
}

func TestRegisterAndGet(t *testing.T) {
	withRegistry(t, func() {
		Register("custom", stubFactory("custom"))
		if !IsRegistered("custom") {
			t.Fatal("IsRegistered(custom) = false")
		}
		b := Get("custom")
		if b == nil || b.Name() != "custom" {
			t.Fatalf("Get(custom) = %v", b)
		}
		if Get("missing") != nil {
			t.Error("Get(missing) should be nil")
		}
		Unregister("custom")
		if IsRegistered("custom") {
			t.Error("custom still registered after Unregister")
		}
	})
}

func TestAvailableOrder(t *testing.T) {
	withRegistry(t, func() {
		Register("zeta", stubFactory("zeta"))
		Register(Software, stubFactory(Software))
		Register(Vulkan, stubFactory(Vulkan))
		Register("alpha", stubFactory("alpha"))

		got := Available()
		want := []string{Vulkan, Software, "alpha", "zeta"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Available() = %v, want %v", got, want)
		}
	})
}

func TestDefault(t *testing.T) {
	tests := []struct {
		name     string
		register map[string]Factory
		want     string
	}{
		{"empty", nil, ""},
		{"software only", map[string]Factory{Software: stubFactory(Software)}, Software},
		{"vulkan preferred", map[string]Factory{
			Software: stubFactory(Software),
			Vulkan:   stubFactory(Vulkan),
		}, Vulkan},
		{"unusable skipped", map[string]Factory{
			Metal:    nilFactory,
			Software: stubFactory(Software),
		}, Software},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t, func() {
				for name, f := range tt.register {
					Register(name, f)
				}
				b := Default()
				got := ""
				if b != nil {
					got = b.Name()
				}
				if got != tt.want {
					t.Errorf("Default() = %q, want %q", got, tt.want)
				}
			})
		})
	}
}

func TestMustDefaultPanics(t *testing.T) {
	withRegistry(t, func() {
		defer func() {
			if recover() == nil {
				t.Error("MustDefault() did not panic with empty registry")
			}
		}()
		MustDefault()
	})
}
