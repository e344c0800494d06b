package commands

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/gogpu/compute"
)

// juliaSource colours each pixel by how many iterations stay inside the
// escape radius. params: width, height, cx, cy, iterations, radius.
const juliaSource = `
@group(0) @binding(0) var<storage, read> params: array<f32>;
@group(0) @binding(1) var<storage, read_write> pixels: array<u32>;

@compute @workgroup_size(64)
fn julia(@builtin(global_invocation_id) id: vec3<u32>) {
    let w = u32(params[0]);
    let h = u32(params[1]);
    let i = id.x;
    if (i >= w * h) {
        return;
    }

    var zi = -2.0 + 4.0 * f32(i % w) / max(f32(w) - 1.0, 1.0);
    var zr = -2.0 + 4.0 * f32(i / w) / max(f32(h) - 1.0, 1.0);
    let r2 = params[5] * params[5];
    let n = u32(params[4]);

    var inside = 0.0;
    for (var k = 0u; k < n; k = k + 1u) {
        let zi2 = zi * zi - zr * zr + params[2];
        let zr2 = 2.0 * zi * zr + params[3];
        zi = zi2;
        zr = zr2;
        if (zi * zi + zr * zr < r2) {
            inside = inside + 1.0;
        }
    }

    let r = u32(255.0 * (0.5 + 0.5 * sin(inside * 0.7)));
    let g = u32(255.0 * (0.5 + 0.5 * sin(inside * 1.1)));
    let b = u32(255.0 * (0.5 + 0.5 * sin(inside * 1.3)));
    pixels[i] = r | (g << 8u) | (b << 16u) | (255u << 24u);
}
`

type juliaParams struct {
	width, height int
	cx, cy        float64
	iterations    int
	radius        float64
}

var julia = juliaParams{width: 1024, height: 1024, cx: -1.2, cy: 0.05, iterations: 1000, radius: 100}

var juliaCmd = &cobra.Command{
	Use:   "julia [OUTPUT]",
	Short: "Render a Julia set image",
	Long: `Render a Julia set on the GPU and save it as PNG, BMP or TIFF, chosen by
the output file extension (default julia.png).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJulia,
}

func init() {
	juliaCmd.Flags().IntVar(&julia.width, "width", julia.width, "image width in pixels")
	juliaCmd.Flags().IntVar(&julia.height, "height", julia.height, "image height in pixels")
	juliaCmd.Flags().Float64Var(&julia.cx, "cx", julia.cx, "real part of c")
	juliaCmd.Flags().Float64Var(&julia.cy, "cy", julia.cy, "imaginary part of c")
	juliaCmd.Flags().IntVar(&julia.iterations, "iterations", julia.iterations, "iterations per pixel")
	juliaCmd.Flags().Float64Var(&julia.radius, "radius", julia.radius, "escape radius")

	rootCmd.AddCommand(juliaCmd)
}

func runJulia(cmd *cobra.Command, args []string) error {
	output := "julia.png"
	if len(args) == 1 {
		output = args[0]
	}
	encode, err := imageEncoder(output)
	if err != nil {
		return err
	}
	if julia.width <= 0 || julia.height <= 0 || julia.iterations <= 0 {
		return fmt.Errorf("%w: width, height and iterations must be positive", compute.ErrInvalidArgument)
	}

	ctx, err := openContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	start := time.Now()
	img, err := renderJulia(ctx, julia)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "rendered %dx%d in %v\n", julia.width, julia.height, time.Since(start))

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renderJulia runs the kernel on the configured device. The kernel writes
// little-endian RGBA words, which is image.RGBA's byte layout.
func renderJulia(ctx *compute.Context, p juliaParams) (*image.RGBA, error) {
	dev, _, err := openDevice(ctx)
	if err != nil {
		return nil, err
	}
	kern, err := ctx.Compile(dev, juliaSource)
	if err != nil {
		return nil, err
	}
	fn, err := ctx.ResolveFunction(dev, kern, "julia")
	if err != nil {
		return nil, err
	}

	values := []float64{float64(p.width), float64(p.height), p.cx, p.cy, float64(p.iterations), p.radius}
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(float32(v)))
	}
	params, _, err := ctx.OpenBuffer(dev, len(raw), raw)
	if err != nil {
		return nil, err
	}
	count := p.width * p.height
	pixels, _, err := ctx.OpenBuffer(dev, count*4, nil)
	if err != nil {
		return nil, err
	}

	run, err := ctx.Submit(dev, kern, fn, []compute.Handle{params, pixels}, count)
	if err != nil {
		return nil, err
	}
	if err := ctx.CloseRun(run); err != nil {
		return nil, err
	}

	data, err := ctx.Buffer(dev, pixels)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, data)
	return img, nil
}

// imageEncoder picks an encoder from the file extension.
func imageEncoder(path string) (func(io.Writer, image.Image) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, m image.Image) error {
			return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported image type %q (want .png, .bmp or .tiff)", compute.ErrInvalidArgument, filepath.Ext(path))
}
