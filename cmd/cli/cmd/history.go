package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/repository"
	"github.com/jindex/internal/service"
)

var (
	// History command flags
	historyName   string
	historyStatus string
	historyLimit  int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded index builds",
	Long:  `List recorded index builds, newest first. Requires database.enabled.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <build-id>",
	Short: "Show one recorded build",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().StringVarP(&historyName, "name", "n", "", "Only builds of this index")
	historyCmd.Flags().StringVarP(&historyStatus, "status", "s", "", "Only builds with this status: running, succeeded or failed")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", repository.DefaultListLimit, "Maximum builds")
}

func historyService(cmd *cobra.Command) (*service.Service, error) {
	svc, err := service.New(cfg, GetLogger())
	if err != nil {
		return nil, err
	}
	if err := svc.Initialize(cmd.Context()); err != nil {
		return nil, err
	}
	return svc, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := historyService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	builds, err := svc.History(cmd.Context(), repository.BuildFilter{
		Name:   historyName,
		Status: repository.BuildStatus(historyStatus),
		Limit:  historyLimit,
	})
	if err != nil {
		return err
	}
	return printResult(cmd, builds, func(w io.Writer) {
		for _, b := range builds {
			fmt.Fprintf(w, "%s  %-9s  %-20s  %s  %d classes\n",
				b.ID, b.Status, b.Name, b.CreatedAt.Format(time.RFC3339), b.Stats.Classes)
		}
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	svc, err := historyService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	build, err := svc.GetBuild(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, build, func(w io.Writer) {
		fmt.Fprintf(w, "Build %s (%s)\n", build.ID, build.Status)
		fmt.Fprintf(w, "Name: %s\n", build.Name)
		for _, src := range build.Sources {
			fmt.Fprintf(w, "Source: %s\n", src)
		}
		fmt.Fprintf(w, "Created: %s\n", build.CreatedAt.Format(time.RFC3339))
		if build.FinishedAt != nil {
			fmt.Fprintf(w, "Finished: %s\n", build.FinishedAt.Format(time.RFC3339))
		}
		if build.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", build.Error)
		}
		if build.IndexPath != "" {
			fmt.Fprintf(w, "Index: %s\n", build.IndexPath)
		}
		if build.IndexURL != "" {
			fmt.Fprintf(w, "Published: %s\n", build.IndexURL)
		}
		printStats(w, build.Stats)
		fmt.Fprintln(w, build.TimeInfo)
	})
}
