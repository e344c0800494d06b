package commands

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/compute"
)

const addOneSource = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> output: array<f32>;

@compute @workgroup_size(64)
fn add_one(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i < arrayLength(&output)) {
        output[i] = input[i] + 1.0;
    }
}
`

var legacyCount int

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Run the add-one demo through the single-slot pipeline",
	Long: `Initialise the single-slot pipeline, compile an add_one kernel, run it
over 0, 1, 2, ... as f32 and report the elapsed time and throughput.`,
	Args: cobra.NoArgs,
	RunE: runLegacy,
}

func init() {
	legacyCmd.Flags().IntVarP(&legacyCount, "count", "n", 1_000_000, "number of elements")
	rootCmd.AddCommand(legacyCmd)
}

func runLegacy(cmd *cobra.Command, args []string) error {
	if legacyCount <= 0 {
		return fmt.Errorf("%w: count must be positive", compute.ErrInvalidArgument)
	}
	ctx, err := openContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	l := compute.NewLegacy(ctx)
	defer l.Release()
	if err := l.Init(viper.GetInt("device")); err != nil {
		return err
	}
	if err := l.Compile(addOneSource, "add_one"); err != nil {
		if msg := l.CompileError(); msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
		return err
	}

	in := make([]byte, 4*legacyCount)
	for i := range legacyCount {
		binary.LittleEndian.PutUint32(in[i*4:], math.Float32bits(float32(i)))
	}
	out := make([]byte, len(in))

	start := time.Now()
	if err := l.Alloc(legacyCount, in, compute.FormatF32, legacyCount, compute.FormatF32); err != nil {
		return err
	}
	if err := l.Run(legacyCount); err != nil {
		return err
	}
	if err := l.Retrieve(legacyCount, out); err != nil {
		return err
	}
	elapsed := time.Since(start)

	for i := range legacyCount {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if want := float32(i) + 1; got != want {
			return fmt.Errorf("element %d = %g, want %g", i, got, want)
		}
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, elapsed.Seconds())
	fmt.Fprintln(w, float64(legacyCount)/elapsed.Seconds())
	return nil
}
