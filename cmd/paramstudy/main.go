package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nvandessel/paramstudy/internal/config"
	"github.com/nvandessel/paramstudy/internal/logging"
	"github.com/nvandessel/paramstudy/internal/schema"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paramstudy",
		Short: "Parameter study generation for simulation workflows",
		Long: `paramstudy builds parameter studies: named, hashed sets of input
parameters for simulation build graphs.

Studies are generated from a schema (YAML, or HCL for .hcl files) as a
cartesian product, a Latin hypercube, a Sobol sequence, or a custom list of
sets, and are written as YAML, Arrow IPC, or SQLite. A previous study can
be merged in so reruns extend an existing study instead of replacing it.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace (default from config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGeneratorCmd(schema.CartesianProduct),
		newGeneratorCmd(schema.LatinHypercube),
		newGeneratorCmd(schema.SobolSequence),
		newGeneratorCmd(schema.CustomStudy),
		newPrintStudyCmd(),
		newTargetsCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// loadConfig returns the validated configuration with --log-level applied.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes operational logs to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
