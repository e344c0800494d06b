// Command gpucompute runs compute kernels on the GPU from the command line.
package main

import (
	"os"

	"github.com/gogpu/compute/cmd/gpucompute/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
