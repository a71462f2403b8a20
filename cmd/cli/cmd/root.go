package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jindex/pkg/config"
	"github.com/jindex/pkg/telemetry"
	"github.com/jindex/pkg/utils"
	"github.com/jindex/pkg/writer"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	outputFormat string

	cfg    *config.Config
	logger utils.Logger

	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jindex",
	Short: "Build and query Java class indexes",
	Long: `jindex reads jar files and class directories into a compact class index.

The index answers class, package and method name searches, subtype and
implementation queries and override lookups. Indexes are saved to a single
file, can be served over HTTP and published to local or COS storage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if logger, err = newLogger(cfg.Log); err != nil {
			return err
		}
		utils.SetGlobalLogger(logger)

		shutdownTelemetry, err = telemetry.Init(cmd.Context(), nil)
		if err != nil {
			logger.Warn("Tracing disabled: %v", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(context.Background()); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: config.yaml in ., ./configs or /etc/jindex)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json or yaml")

	binName := BinName()
	rootCmd.Example = `  # Index a set of jars
  ` + binName + ` build -n app lib/*.jar build/classes

  # Search classes by name
  ` + binName + ` query classes -i app.jidx HashM

  # Find implementations of an interface
  ` + binName + ` query impls -i app.jidx java/util/Map

  # Serve an index over HTTP
  ` + binName + ` serve app.jidx --addr :8080`
}

func newLogger(logCfg config.LogConfig) (utils.Logger, error) {
	level := utils.ParseLogLevel(logCfg.Level)
	if verbose {
		level = utils.LevelDebug
	}
	if logCfg.OutputPath != "" {
		return utils.NewFileLogger(level, logCfg.OutputPath)
	}
	return utils.NewDefaultLogger(level, os.Stderr), nil
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return utils.OrNull(logger)
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// printResult writes v in the selected structured format, or calls text
// for the plain text format.
func printResult[T any](cmd *cobra.Command, v T, text func(w io.Writer)) error {
	if outputFormat == "" || outputFormat == "text" {
		text(cmd.OutOrStdout())
		return nil
	}

	format, err := writer.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	w, err := writer.New[T](format)
	if err != nil {
		return err
	}
	return w.Write(v, cmd.OutOrStdout())
}
