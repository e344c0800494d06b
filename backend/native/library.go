package native

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"
)

// spirvVersions maps CompileOptions.LanguageVersion to a SPIR-V target.
// The empty string selects 1.3.
var spirvVersions = map[string]spirv.Version{
	"":    spirv.Version1_3,
	"1.0": spirv.Version1_0,
	"1.1": spirv.Version1_1,
	"1.2": spirv.Version1_2,
	"1.3": spirv.Version1_3,
	"1.4": spirv.Version1_4,
	"1.5": spirv.Version1_5,
	"1.6": spirv.Version1_6,
}

// library is a compiled WGSL module. All entry points share one HAL
// shader module and one group 0 binding layout.
type library struct {
	dev       *device
	module    hal.ShaderModule
	entries   map[string][3]uint32
	names     []string
	bindings  []gputypes.BindGroupLayoutEntry
	destroyed bool
}

// function names a compute entry point of a library.
type function struct {
	lib       *library
	name      string
	workgroup [3]uint32
}

func (f *function) Name() string { return f.name }

// compileLibrary compiles WGSL source through naga to SPIR-V and creates the
// HAL shader module. Errors carry the compiler diagnostic text.
// FastMath has no naga equivalent and is accepted as is.
func compileLibrary(d *device, source string, opts gpucore.CompileOptions) (*library, error) {
	version, ok := spirvVersions[opts.LanguageVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguageVersion, opts.LanguageVersion)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, err
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, err
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Message
		}
		return nil, fmt.Errorf("validation: %s", strings.Join(msgs, "; "))
	}

	code, err := naga.GenerateSPIRV(module, spirv.Options{Version: version})
	if err != nil {
		return nil, fmt.Errorf("spirv: %w", err)
	}

	lib := &library{
		dev:      d,
		entries:  make(map[string][3]uint32),
		bindings: reflectBindings(module),
	}
	for _, ep := range module.EntryPoints {
		if ep.Stage != ir.StageCompute {
			continue
		}
		lib.entries[ep.Name] = ep.Workgroup
		lib.names = append(lib.names, ep.Name)
	}

	lib.module, err = d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "compute library",
		Source: hal.ShaderSource{SPIRV: spirvWords(code)},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module: %w", err)
	}
	slogger().Debug("native: library compiled",
		"entry_points", len(lib.names),
		"bindings", len(lib.bindings),
		"spirv_bytes", len(code))
	return lib, nil
}

// spirvWords converts SPIR-V bytes to little-endian 32-bit words.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

// reflectBindings derives the group 0 layout from the module's resource
// variables, ordered by binding number.
func reflectBindings(module *ir.Module) []gputypes.BindGroupLayoutEntry {
	var entries []gputypes.BindGroupLayoutEntry
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil || gv.Binding.Group != 0 {
			continue
		}
		var kind gputypes.BufferBindingType
		switch {
		case gv.Space == ir.SpaceUniform:
			kind = gputypes.BufferBindingTypeUniform
		case gv.Space == ir.SpaceStorage && gv.Access == ir.StorageRead:
			kind = gputypes.BufferBindingTypeReadOnlyStorage
		case gv.Space == ir.SpaceStorage:
			kind = gputypes.BufferBindingTypeStorage
		default:
			continue
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    gv.Binding.Binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: kind},
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	return entries
}

func (l *library) Function(name string) (gpucore.Function, bool) {
	wg, ok := l.entries[name]
	if !ok {
		return nil, false
	}
	return &function{lib: l, name: name, workgroup: wg}, true
}

func (l *library) FunctionNames() []string {
	names := make([]string, len(l.names))
	copy(names, l.names)
	return names
}

// Release destroys the shader module. Pipelines created from the library
// keep working.
func (l *library) Release() {
	if l.destroyed {
		return
	}
	l.destroyed = true
	l.dev.hal.DestroyShaderModule(l.module)
}
