package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/index"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type versionInfo struct {
	Version       string `json:"version" yaml:"version"`
	GitCommit     string `json:"git_commit" yaml:"git_commit"`
	BuildTime     string `json:"build_time" yaml:"build_time"`
	GoVersion     string `json:"go_version" yaml:"go_version"`
	Platform      string `json:"platform" yaml:"platform"`
	FormatVersion uint16 `json:"index_format_version" yaml:"index_format_version"`
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the build version, git commit and the index file format version.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := versionInfo{
			Version:       Version,
			GitCommit:     GitCommit,
			BuildTime:     BuildTime,
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			FormatVersion: index.FormatVersion,
		}
		return printResult(cmd, info, func(w io.Writer) {
			fmt.Fprintf(w, "%s version %s\n", BinName(), info.Version)
			fmt.Fprintf(w, "  Git Commit:   %s\n", info.GitCommit)
			fmt.Fprintf(w, "  Build Time:   %s\n", info.BuildTime)
			fmt.Fprintf(w, "  Go Version:   %s\n", info.GoVersion)
			fmt.Fprintf(w, "  OS/Arch:      %s\n", info.Platform)
			fmt.Fprintf(w, "  Index Format: %d\n", info.FormatVersion)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
