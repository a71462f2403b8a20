package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/service"
)

var (
	// Publish command flags
	publishName    string
	publishBuildID string
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <index-file>",
	Short: "Upload an index file to the configured storage",
	Long: `Upload an index file to local or COS storage under
<storage.key_prefix>/<name>/<build-id>.jidx and as <name>/latest.jidx.

When build history is enabled and --build-id names a recorded build, the
build records the published URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVarP(&publishName, "name", "n", "", "Index name (default: file name without extension)")
	publishCmd.Flags().StringVar(&publishBuildID, "build-id", "", "Build ID (default: a new ID)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	svc, err := service.New(cfg, GetLogger())
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.Initialize(cmd.Context()); err != nil {
		return err
	}

	result, err := svc.Publish(cmd.Context(), service.PublishRequest{
		Path:    args[0],
		Name:    publishName,
		BuildID: publishBuildID,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, result, func(w io.Writer) {
		fmt.Fprintf(w, "Published %s\n", result.URL)
		fmt.Fprintf(w, "Latest: %s\n", result.LatestKey)
	})
}
