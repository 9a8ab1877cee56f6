package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"semtok/internal/config"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

// Version will be set during the build process using ldflags
var Version = ""

type globals struct {
	configPath string
	logfile    string
	logFormat  string
	verbose    int
	fs         afero.Fs
}

func main() {
	os.Exit(report(os.Stderr, run()))
}

// report writes err to w and returns the exit code. Logging may not be
// configured yet, so errors bypass the logger.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "semtok: %s\n", err)
	return 1
}

func run() error {
	g := &globals{fs: afero.NewOsFs()}

	rootCmd := &cobra.Command{
		Use:           "semtok",
		Short:         "Semantic tokens from tree-sitter highlight queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(g.verbose, g.logfile, g.logFormat)
		},
	}
	rootCmd.Version = version()

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&g.logfile, "logfile", "", "write logs to this file instead of stderr")
	flags.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")
	flags.CountVarP(&g.verbose, "verbose", "v", "more verbose logging, repeat for more")

	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newTokensCommand(g))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}
	return nil
}

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "unknown"
}

// loadConfig returns the defaults, or the configuration file when one was
// given, validated.
func (g *globals) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if g.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(g.fs, g.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
