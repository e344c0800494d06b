package commands

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/x448/float16"

	"github.com/gogpu/compute"
)

var (
	runFunction  string
	runInput     string
	runOutput    string
	runInFormat  string
	runOutFormat string
	runCount     int
	runPrint     int
)

var runCmd = &cobra.Command{
	Use:   "run KERNEL.wgsl",
	Short: "Run a kernel function over a binary input file",
	Long: `Compile a WGSL kernel, bind the input file to slot 0 and a fresh output
buffer to slot 1, and dispatch the function once per element.

The element count defaults to the number of input elements. The output is
written to --output, or printed as decoded values when no file is given.`,
	Example: `  gpucompute run square.wgsl -f square -i in.f32 --in-format f32 -o out.f32`,
	Args:    cobra.ExactArgs(1),
	RunE:    runKernel,
}

func init() {
	runCmd.Flags().StringVarP(&runFunction, "function", "f", "", "kernel function name")
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "input file (raw little-endian elements)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output file (default: print values)")
	runCmd.Flags().StringVar(&runInFormat, "in-format", "f32", "input element format")
	runCmd.Flags().StringVar(&runOutFormat, "out-format", "", "output element format (default: input format)")
	runCmd.Flags().IntVarP(&runCount, "count", "n", -1, "number of elements to process (default: input length)")
	runCmd.Flags().IntVar(&runPrint, "print", 16, "maximum number of output values to print")
	_ = runCmd.MarkFlagRequired("function")

	rootCmd.AddCommand(runCmd)
}

func runKernel(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	inFmt, err := compute.ParseFormat(runInFormat)
	if err != nil {
		return err
	}
	outFmt := inFmt
	if runOutFormat != "" {
		if outFmt, err = compute.ParseFormat(runOutFormat); err != nil {
			return err
		}
	}

	var input []byte
	if runInput != "" {
		if input, err = os.ReadFile(runInput); err != nil {
			return err
		}
	}
	inCount := len(input) / inFmt.Stride()
	count := runCount
	if count < 0 {
		count = inCount
	}

	ctx, err := openContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	dev, name, err := openDevice(ctx)
	if err != nil {
		return err
	}
	kern, err := ctx.Compile(dev, string(source))
	if err != nil {
		return err
	}
	fn, err := ctx.ResolveFunction(dev, kern, runFunction)
	if err != nil {
		names, _ := ctx.FunctionNames(dev, kern)
		return fmt.Errorf("%w (available: %s)", err, strings.Join(names, ", "))
	}

	in, _, err := ctx.OpenBuffer(dev, inCount*inFmt.Stride(), input)
	if err != nil {
		return err
	}
	out, _, err := ctx.OpenBuffer(dev, count*outFmt.Stride(), nil)
	if err != nil {
		return err
	}

	start := time.Now()
	run, err := ctx.Submit(dev, kern, fn, []compute.Handle{in, out}, count)
	if err != nil {
		return err
	}
	if err := ctx.CloseRun(run); err != nil {
		return err
	}
	elapsed := time.Since(start)

	result, err := ctx.Buffer(dev, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d elements in %v\n", name, count, elapsed)

	if runOutput != "" {
		return os.WriteFile(runOutput, result, 0o644)
	}
	values := formatValues(outFmt, result, runPrint)
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(values, " "))
	return nil
}

// formatValues decodes up to limit little-endian elements of format f.
// A negative limit decodes every element.
func formatValues(f compute.Format, data []byte, limit int) []string {
	stride := f.Stride()
	if stride == 0 {
		return nil
	}
	n := len(data) / stride
	if limit >= 0 && n > limit {
		n = limit
	}
	values := make([]string, n)
	for i := range values {
		b := data[i*stride:]
		switch f {
		case compute.FormatI8:
			values[i] = strconv.FormatInt(int64(int8(b[0])), 10)
		case compute.FormatU8:
			values[i] = strconv.FormatUint(uint64(b[0]), 10)
		case compute.FormatI16:
			values[i] = strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(b))), 10)
		case compute.FormatU16:
			values[i] = strconv.FormatUint(uint64(binary.LittleEndian.Uint16(b)), 10)
		case compute.FormatI32:
			values[i] = strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(b))), 10)
		case compute.FormatU32:
			values[i] = strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10)
		case compute.FormatI64:
			values[i] = strconv.FormatInt(int64(binary.LittleEndian.Uint64(b)), 10)
		case compute.FormatU64:
			values[i] = strconv.FormatUint(binary.LittleEndian.Uint64(b), 10)
		case compute.FormatF16:
			values[i] = strconv.FormatFloat(float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()), 'g', -1, 32)
		case compute.FormatF32:
			values[i] = strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 'g', -1, 32)
		case compute.FormatF64:
			values[i] = strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 'g', -1, 64)
		}
	}
	return values
}
