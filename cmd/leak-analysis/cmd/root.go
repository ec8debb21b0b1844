package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leak-analysis/pkg/config"
	"github.com/leak-analysis/pkg/errors"
	"github.com/leak-analysis/pkg/pprof"
	"github.com/leak-analysis/pkg/telemetry"
	"github.com/leak-analysis/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Self-profiling flags
	pprofEnabled  bool
	pprofDir      string
	pprofProfiles string

	cfg               *config.Config
	logger            utils.Logger
	telemetryShutdown telemetry.ShutdownFunc
	pprofSession      *pprof.Session
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "leak-analysis",
	Short: "Find reference-count leaks in data store traces",
	Long: `leak-analysis reads the diagnostic trace lines a distributed data store
prints while it runs, rebuilds the graph of data it held, and reports the
data whose read or write reference counts never reached zero.

Graphs can be printed, exported as JSON or DOT, explored interactively with
bounded-radius connectivity queries, and saved to a database for later.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return errors.Wrap(errors.CodeConfigError, "failed to load configuration", err)
		}
		cfg = loaded

		logLevel := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			logLevel = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			fileLogger, err := utils.NewFileLogger(logLevel, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
			logger = fileLogger
		} else {
			// stdout is reserved for listings and documents
			logger = utils.NewDefaultLogger(logLevel, cmd.ErrOrStderr())
		}

		shutdown, err := telemetry.Init(cmd.Context(), Version)
		if err != nil {
			logger.Warn("Telemetry disabled: %v", err)
			shutdown = func(context.Context) error { return nil }
		}
		telemetryShutdown = shutdown

		if pprofEnabled {
			profiles, err := pprof.ParseProfiles(pprofProfiles)
			if err != nil {
				return errors.Wrap(errors.CodeInvalidInput, "bad --pprof-profiles", err)
			}
			session, err := pprof.Begin(pprofDir, cmd.Name(), profiles)
			if err != nil {
				return err
			}
			pprofSession = session
			logger.Info("Profiling %s into %s", cmd.Name(), pprofDir)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pprofSession != nil {
			files, err := pprofSession.End()
			if err != nil {
				logger.Warn("Failed to write profiles: %v", err)
			}
			logger.Info("Wrote %d profiles to %s", len(files), pprofSession.Dir())
			pprofSession = nil
		}
		if telemetryShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetryShutdown(ctx); err != nil {
				logger.Warn("Failed to flush telemetry: %v", err)
			}
			telemetryShutdown = nil
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it until
// it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(errors.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Profile the analyzer while it runs")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for pprof data")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	binName := BinName()
	rootCmd.Example = `  # List every leaked datum with its refcounts
  ` + binName + ` leaks turbine.log

  # Explore a trace interactively
  ` + binName + ` explore rank0.log rank1.log.gz

  # Export the leak graph as compressed JSON and upload it
  ` + binName + ` export turbine.log --leaks-only -o leaks.json.zst --upload

  # Save a snapshot and explore it later without re-parsing
  ` + binName + ` snapshot turbine.log --name nightly
  ` + binName + ` explore --snapshot nightly`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
