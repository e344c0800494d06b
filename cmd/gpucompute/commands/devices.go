package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/compute"
	"github.com/gogpu/compute/backend"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List compute devices",
	Long: `List the devices of every registered backend, or only of the backend
selected with --backend.

Memory sizes are printed with the digit grouping of the current locale
($LC_ALL, $LC_NUMERIC or $LANG).`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	p := message.NewPrinter(localeTag())
	out := cmd.OutOrStdout()

	names := backend.Available()
	if name := viper.GetString("backend"); name != "" {
		names = []string{name}
	}
	if len(names) == 0 {
		return compute.ErrBackendNotAvailable
	}

	for _, name := range names {
		ctx, err := compute.New(compute.WithBackendName(name))
		if err != nil {
			p.Fprintf(out, "%s: unavailable (%v)\n", name, err)
			continue
		}
		infos, err := ctx.Devices()
		_ = ctx.Close()
		if err != nil {
			p.Fprintf(out, "%s: %v\n", name, err)
			continue
		}
		p.Fprintf(out, "%s: %d device(s)\n", name, len(infos))
		for i, info := range infos {
			memory := "dedicated"
			if info.HasUnifiedMemory {
				memory = "unified"
			}
			p.Fprintf(out, "  [%d] %s\n", i, info.Name)
			p.Fprintf(out, "      working set: %d bytes (%s memory)\n", info.RecommendedMaxWorkingSetSize, memory)
			if info.MaxTransferRate > 0 {
				p.Fprintf(out, "      transfer rate: %d bytes/s\n", info.MaxTransferRate)
			}
		}
	}
	return nil
}

// localeTag returns the user's locale from the POSIX environment,
// defaulting to English.
func localeTag() language.Tag {
	for _, env := range []string{"LC_ALL", "LC_NUMERIC", "LANG"} {
		v := os.Getenv(env)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			return tag
		}
	}
	return language.English
}
