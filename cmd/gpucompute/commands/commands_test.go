package commands

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/gogpu/compute"
	"github.com/gogpu/compute/backend"
	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/compute/internal/fakegpu"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		on      bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"off", 0, false, false},
		{"debug", slog.LevelDebug, true, false},
		{"INFO", slog.LevelInfo, true, false},
		{"warn", slog.LevelWarn, true, false},
		{"error", slog.LevelError, true, false},
		{"loud", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, on, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want || on != tt.on {
				t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.in, got, on, tt.want, tt.on)
			}
		})
	}
}

func TestFormatValues(t *testing.T) {
	f32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(f32, math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(f32[4:], math.Float32bits(-2))

	tests := []struct {
		name   string
		format compute.Format
		data   []byte
		limit  int
		want   string
	}{
		{"i8", compute.FormatI8, []byte{0xff, 0x01}, -1, "-1 1"},
		{"u8", compute.FormatU8, []byte{0xff, 0x01}, -1, "255 1"},
		{"i16", compute.FormatI16, []byte{0xfe, 0xff}, -1, "-2"},
		{"u32", compute.FormatU32, []byte{1, 0, 0, 0, 2, 0, 0, 0}, -1, "1 2"},
		{"f32", compute.FormatF32, f32, -1, "1.5 -2"},
		{"f16 one", compute.FormatF16, []byte{0x00, 0x3c}, -1, "1"},
		{"f16 negative half", compute.FormatF16, []byte{0x00, 0xb8}, -1, "-0.5"},
		{"f16 max", compute.FormatF16, []byte{0xff, 0x7b}, -1, "65504"},
		{"f16 subnormal", compute.FormatF16, []byte{0x01, 0x00}, -1, "5.9604645e-08"},
		{"f16 infinity", compute.FormatF16, []byte{0x00, 0x7c}, -1, "+Inf"},
		{"limit", compute.FormatU8, []byte{1, 2, 3, 4}, 2, "1 2"},
		{"partial element dropped", compute.FormatU16, []byte{1, 0, 2}, -1, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Join(formatValues(tt.format, tt.data, tt.limit), " ")
			if got != tt.want {
				t.Errorf("formatValues() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageEncoder(t *testing.T) {
	for _, name := range []string{"out.png", "out.BMP", "out.tif", "out.tiff"} {
		if _, err := imageEncoder(name); err != nil {
			t.Errorf("imageEncoder(%q) error = %v", name, err)
		}
	}
	if _, err := imageEncoder("out.jpg"); !errors.Is(err, compute.ErrInvalidArgument) {
		t.Errorf("imageEncoder(out.jpg) = %v, want ErrInvalidArgument", err)
	}
}

func TestLocaleTag(t *testing.T) {
	tests := []struct {
		lcAll, lang string
		want        language.Tag
	}{
		{"", "", language.English},
		{"C", "", language.English},
		{"de_DE.UTF-8", "", language.MustParse("de-DE")},
		{"", "fr_FR", language.MustParse("fr-FR")},
	}
	for _, tt := range tests {
		t.Setenv("LC_ALL", tt.lcAll)
		t.Setenv("LC_NUMERIC", "")
		t.Setenv("LANG", tt.lang)
		if got := localeTag(); got != tt.want {
			t.Errorf("localeTag() with LC_ALL=%q LANG=%q = %v, want %v", tt.lcAll, tt.lang, got, tt.want)
		}
	}
}

// registerFake makes a fake backend selectable with --backend fake-cli.
func registerFake(t *testing.T) *fakegpu.Backend {
	t.Helper()
	fake := fakegpu.New()
	backend.Register("fake-cli", func() gpucore.Backend { return fake })
	t.Cleanup(func() { backend.Unregister("fake-cli") })
	return fake
}

func TestLegacyCommand(t *testing.T) {
	fake := registerFake(t)
	fake.SetKernel("add_one", func(i int, bufs [][]byte) {
		if (i+1)*4 > len(bufs[1]) {
			return
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(bufs[0][i*4:]))
		binary.LittleEndian.PutUint32(bufs[1][i*4:], math.Float32bits(v+1))
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"legacy", "--backend", "fake-cli", "--log-level", "off", "-n", "100"})
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("legacy: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 2 {
		t.Errorf("legacy printed %q, want elapsed time and throughput", out.String())
	}
}

func TestRenderJulia(t *testing.T) {
	fake := fakegpu.New()
	fake.SetKernel("julia", func(i int, bufs [][]byte) {
		if (i+1)*4 > len(bufs[1]) {
			return
		}
		binary.LittleEndian.PutUint32(bufs[1][i*4:], 0xff000000|uint32(i))
	})
	ctx, err := compute.New(compute.WithBackend(fake))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ctx.Close()

	img, err := renderJulia(ctx, juliaParams{width: 4, height: 3, cx: -1.2, cy: 0.05, iterations: 10, radius: 100})
	if err != nil {
		t.Fatalf("renderJulia: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("bounds = %v, want 4x3", b)
	}
	c := img.RGBAAt(1, 2)
	if c.R != 9 || c.A != 0xff {
		t.Errorf("pixel (1,2) = %+v, want R=9 A=255", c)
	}
}

func TestDevicesCommand(t *testing.T) {
	registerFake(t)
	t.Setenv("LC_ALL", "en_US.UTF-8")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"devices", "--backend", "fake-cli", "--log-level", "off"})
	defer rootCmd.SetOut(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("devices: %v", err)
	}
	for _, want := range []string{"fake-cli: 1 device(s)", "[0] Fake GPU", "1,073,741,824 bytes", "unified"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("devices output missing %q:\n%s", want, out.String())
		}
	}
}
