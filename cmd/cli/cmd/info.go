package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/api"
	"github.com/jindex/internal/service"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <index-file>",
	Short: "Show the size and build timings of an index file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg, GetLogger())
		if err != nil {
			return err
		}
		idx, err := svc.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		info := api.IndexInfo{
			Name:     service.DefaultName(args[0]),
			Stats:    idx.Stats(),
			TimeInfo: idx.TimeInfo(),
		}
		return printResult(cmd, info, func(w io.Writer) {
			fmt.Fprintf(w, "Index: %s\n", info.Name)
			printStats(w, info.Stats)
			fmt.Fprintf(w, "Load time: %dms\n", info.TimeInfo.DeserializationMillis)
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
