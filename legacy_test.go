package compute

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/compute/gpucore"
)

func newTestLegacy(t *testing.T) *Legacy {
	t.Helper()
	ctx, _ := newTestContext(t)
	l := NewLegacy(ctx)
	t.Cleanup(func() { _ = l.Release() })
	return l
}

func TestLegacyPipeline(t *testing.T) {
	l := newTestLegacy(t)

	if err := l.Init(-1); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := l.Compile(testSource, "add_one"); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if got := l.OutputFormat(); got != FormatUnknown {
		t.Errorf("OutputFormat() before Alloc = %v, want unknown", got)
	}
	input := []byte{1, 2, 3, 4, 5}
	if err := l.Alloc(5, input, FormatU8, 5, FormatU8); err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if got := l.OutputFormat(); got != FormatU8 {
		t.Errorf("OutputFormat() = %v, want u8", got)
	}
	if err := l.Run(5); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := l.State(); got != LegacyReadyToRetrieve {
		t.Fatalf("State() = %v, want %v", got, LegacyReadyToRetrieve)
	}
	out := make([]byte, 5)
	if err := l.Retrieve(5, out); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !bytes.Equal(out, []byte{2, 3, 4, 5, 6}) {
		t.Errorf("output = %v, want [2 3 4 5 6]", out)
	}

	// Run again on the same buffers.
	if err := l.Run(5); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
}

func TestLegacyStateOrder(t *testing.T) {
	l := newTestLegacy(t)
	out := make([]byte, 4)

	steps := []struct {
		name string
		call func() error
		want error
	}{
		{"compile before init", func() error { return l.Compile(testSource, "copy") }, ErrNotReadyToCompile},
		{"alloc before init", func() error { return l.Alloc(1, []byte{0}, FormatU8, 1, FormatU8) }, ErrNotReadyToCompute},
		{"run before init", func() error { return l.Run(1) }, ErrNotReadyToRun},
		{"retrieve before init", func() error { return l.Retrieve(1, out) }, ErrNotReadyToRetrieve},
		{"init", func() error { return l.Init(-1) }, nil},
		{"alloc before compile", func() error { return l.Alloc(1, []byte{0}, FormatU8, 1, FormatU8) }, ErrNotReadyToCompute},
		{"run before compile", func() error { return l.Run(1) }, ErrNotReadyToRun},
		{"compile", func() error { return l.Compile(testSource, "copy") }, nil},
		{"run before alloc", func() error { return l.Run(1) }, ErrNotReadyToRun},
		{"retrieve before alloc", func() error { return l.Retrieve(1, out) }, ErrNotReadyToRetrieve},
		{"alloc", func() error { return l.Alloc(4, []byte{1, 2, 3, 4}, FormatU8, 4, FormatU8) }, nil},
		{"retrieve before run", func() error { return l.Retrieve(4, out) }, ErrNotReadyToRetrieve},
		{"run", func() error { return l.Run(4) }, nil},
		{"retrieve wrong count", func() error { return l.Retrieve(3, out) }, ErrIncorrectOutputCount},
		{"retrieve", func() error { return l.Retrieve(4, out) }, nil},
		{"recompile", func() error { return l.Compile(testSource, "add_one") }, nil},
		{"run after recompile", func() error { return l.Run(4) }, ErrNotReadyToRun},
		{"release", func() error { return l.Release() }, nil},
		{"compile after release", func() error { return l.Compile(testSource, "copy") }, ErrNotReadyToCompile},
	}
	for _, s := range steps {
		err := s.call()
		if s.want == nil && err != nil {
			t.Fatalf("%s: error = %v", s.name, err)
		}
		if s.want != nil && !errors.Is(err, s.want) {
			t.Fatalf("%s: error = %v, want %v", s.name, err, s.want)
		}
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Errorf("output = %v", out)
	}
}

func TestLegacyCompileErrors(t *testing.T) {
	l := newTestLegacy(t)
	if err := l.Init(-1); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	err := l.Compile(invalidSource, "copy")
	wantCode(t, err, CodeFailedToCompile)
	if l.CompileError() == "" {
		t.Error("CompileError() is empty after a failed compile")
	}
	if l.State() != LegacyReadyToCompile {
		t.Errorf("State() = %v after failed compile", l.State())
	}

	err = l.Compile(testSource, "missing")
	wantCode(t, err, CodeFailedToFindFunction)
	if l.State() != LegacyReadyToCompile {
		t.Errorf("State() = %v after missing function", l.State())
	}
}

func TestLegacyAllocErrors(t *testing.T) {
	l := newTestLegacy(t)
	if err := l.Init(-1); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := l.Compile(testSource, "copy"); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name    string
		inCount int
		input   []byte
		in, out Format
		want    Code
	}{
		{"bad input format", 1, []byte{0}, FormatUnknown, FormatU8, CodeUnsupportedInputFormat},
		{"bad output format", 1, []byte{0}, FormatU8, Format(42), CodeUnsupportedOutput},
		{"short input", 2, make([]byte, 7), FormatF32, FormatF32, CodeInvalidArgument},
		{"f64 ok", 2, make([]byte, 16), FormatF64, FormatF64, Success},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Alloc(tt.inCount, tt.input, tt.in, 2, tt.out)
			wantCode(t, err, tt.want)
		})
	}
}

func TestLegacyInitNoDevice(t *testing.T) {
	ctx, fake := newTestContext(t)
	fake.SetDevices()
	l := NewLegacy(ctx)

	err := l.Init(-1)
	wantCode(t, err, CodeCannotCreateDevice)
	if l.State() != LegacyUninitialized {
		t.Errorf("State() = %v", l.State())
	}

	fake.SetDevices(gpucore.DeviceInfo{Name: "only"})
	wantCode(t, l.Init(3), CodeCannotCreateDevice)
	if err := l.Init(0); err != nil {
		t.Fatalf("Init(0) error = %v", err)
	}
}

func TestLegacyReleaseFreesResources(t *testing.T) {
	ctx, fake := newTestContext(t)
	l := NewLegacy(ctx)
	if err := l.Init(-1); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := l.Compile(testSource, "copy"); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := l.Alloc(2, []byte{1, 2}, FormatU8, 2, FormatU8); err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	// Re-alloc and re-init replace resources instead of leaking them.
	if err := l.Alloc(2, []byte{1, 2}, FormatU8, 2, FormatU8); err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if err := l.Init(-1); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if n := fake.Live(); n != 0 {
		t.Errorf("Live() = %d after Release", n)
	}
}

func TestLegacyStateString(t *testing.T) {
	if got := LegacyReadyToRun.String(); got != "ready to run" {
		t.Errorf("String() = %q", got)
	}
	if got := LegacyState(9).String(); got != "LegacyState(9)" {
		t.Errorf("String() = %q", got)
	}
}
