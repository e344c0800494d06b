package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/compute"
	_ "github.com/gogpu/compute/backend/native"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gpucompute",
	Short: "Run compute kernels on the GPU",
	Long: `gpucompute compiles WGSL compute kernels and runs them over binary
buffers on any GPU reachable through Vulkan, Metal, DX12 or GLES, or on the
built-in CPU software backend.

Settings are read from $HOME/.gpucompute/config.yaml and from GPUCOMPUTE_*
environment variables; flags take precedence.`,
	Version:       "0.2.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging(viper.GetString("log_level"))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gpucompute/config.yaml)")
	rootCmd.PersistentFlags().StringP("backend", "b", "", "backend name (default: best available)")
	rootCmd.PersistentFlags().IntP("device", "d", -1, "device index (-1 selects the default device)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")

	// Bind flags to viper
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".gpucompute"))
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("GPUCOMPUTE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}
}

// parseLevel maps a level name to a slog level. "off" and "" disable logging.
func parseLevel(name string) (slog.Level, bool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "off", "none":
		return 0, false, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, false, fmt.Errorf("invalid log level %q", name)
	}
	return lvl, true, nil
}

func configureLogging(name string) error {
	lvl, on, err := parseLevel(name)
	if err != nil {
		return err
	}
	if !on {
		compute.SetLogger(nil)
		return nil
	}
	compute.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// openContext creates a compute context on the configured backend.
func openContext() (*compute.Context, error) {
	var opts []compute.Option
	if name := viper.GetString("backend"); name != "" {
		opts = append(opts, compute.WithBackendName(name))
	}
	return compute.New(opts...)
}

// openDevice opens the configured device on ctx.
func openDevice(ctx *compute.Context) (compute.Handle, string, error) {
	return ctx.OpenDevice(viper.GetInt("device"))
}
