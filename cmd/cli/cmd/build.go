package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/index"
	"github.com/jindex/internal/service"
	"github.com/jindex/pkg/pprof"
)

var (
	// Build command flags
	buildName        string
	buildOutput      string
	buildWorkers     int
	buildCompression string
	buildLevel       string
	buildProgress    bool
	buildInclude     []string
	buildExclude     []string
	buildExcludeJDK  bool
	buildPprofDir    string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [flags] <jar|dir>...",
	Short: "Build a class index from jar files and class directories",
	Long: `Read every class of the given jar files and class directories and write
a class index file.

Classes that cannot be read are skipped. A missing or corrupt archive fails
the build. When a class appears in several archives, the first one wins.
With database.enabled the build is recorded in the build history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildName, "name", "n", "", "Index name (default: first source without extension)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Index file (default: <build.output_dir>/<name>.jidx)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "Number of workers (default: build.workers, 0 = one per CPU)")
	buildCmd.Flags().StringVar(&buildCompression, "compression", "", "Payload compression: zstd, gzip or none")
	buildCmd.Flags().StringVar(&buildLevel, "level", "", "Compression level: fastest, default or best")
	buildCmd.Flags().BoolVar(&buildProgress, "progress", false, "Report archive progress")
	buildCmd.Flags().StringSliceVar(&buildInclude, "include", nil, "Only index these packages, e.g. com.acme.* (repeatable)")
	buildCmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "Skip these packages (repeatable)")
	buildCmd.Flags().BoolVar(&buildExcludeJDK, "exclude-jdk", false, "Skip the packages of the Java platform")
	buildCmd.Flags().StringVar(&buildPprofDir, "pprof-dir", "", "Write CPU and heap profiles of the build to this directory")
}

// buildReport is the structured output of the build command.
type buildReport struct {
	ID       string              `json:"id" yaml:"id"`
	Name     string              `json:"name" yaml:"name"`
	Path     string              `json:"path" yaml:"path"`
	Stats    index.Stats         `json:"stats" yaml:"stats"`
	TimeInfo index.BuildTimeInfo `json:"time_info" yaml:"time_info"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	if cmd.Flags().Changed("workers") {
		cfg.Build.Workers = buildWorkers
	}
	if buildCompression != "" {
		cfg.Build.Compression = buildCompression
	}
	if buildLevel != "" {
		cfg.Build.CompressionLevel = buildLevel
	}
	if len(buildInclude) > 0 {
		cfg.Build.IncludePackages = buildInclude
	}
	if len(buildExclude) > 0 {
		cfg.Build.ExcludePackages = append(cfg.Build.ExcludePackages, buildExclude...)
	}
	if buildExcludeJDK {
		cfg.Build.ExcludeJDK = true
	}
	if buildPprofDir != "" {
		cfg.Pprof.Enabled = true
		cfg.Pprof.OutputDir = buildPprofDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.Initialize(cmd.Context()); err != nil {
		return err
	}

	req := service.BuildRequest{Name: buildName, Sources: args, Output: buildOutput}
	if buildProgress {
		req.OnProgress = func(completed, total int64) {
			log.Info("Read %d/%d archives", completed, total)
		}
	}

	var result *service.BuildResult
	err = pprof.Run(cfg.Pprof, log, func() error {
		result, err = svc.Build(cmd.Context(), req)
		return err
	})
	if err != nil {
		return err
	}

	report := buildReport{
		ID:       result.Build.ID,
		Name:     result.Build.Name,
		Path:     result.Path,
		Stats:    result.Build.Stats,
		TimeInfo: result.Build.TimeInfo,
	}
	return printResult(cmd, report, func(w io.Writer) {
		fmt.Fprintf(w, "Index %s written to %s\n", report.Name, report.Path)
		fmt.Fprintf(w, "Build ID: %s\n", report.ID)
		printStats(w, report.Stats)
		fmt.Fprintln(w, report.TimeInfo)
	})
}

func printStats(w io.Writer, stats index.Stats) {
	fmt.Fprintf(w, "Classes: %d\n", stats.Classes)
	fmt.Fprintf(w, "Packages: %d\n", stats.Packages)
	fmt.Fprintf(w, "Fields: %d\n", stats.Fields)
	fmt.Fprintf(w, "Methods: %d\n", stats.Methods)
	fmt.Fprintf(w, "Constant pool: %d bytes\n", stats.PoolBytes)
	if stats.UnresolvedReferences > 0 {
		fmt.Fprintf(w, "Unresolved references: %d\n", stats.UnresolvedReferences)
	}
}
