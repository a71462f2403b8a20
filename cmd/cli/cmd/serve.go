package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jindex/internal/api"
	"github.com/jindex/internal/service"
	"github.com/jindex/internal/storage"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/utils"
)

var (
	// Serve command flags
	serveAddr  string
	serveFetch string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [index-file]",
	Short: "Serve an index over HTTP",
	Long: `Load an index file and answer queries over HTTP.

Endpoints:
  GET /api/info
  GET /api/classes?q=<query>&mode=&match=&limit=
  GET /api/class?class=<package/Name>
  GET /api/packages?q=<query>
  GET /api/methods?prefix=<prefix>&limit=
  GET /api/implementations?class=<package/Name>[&direct=true][&method=&descriptor=]
  GET /api/base-methods?class=<package/Name>&method=<name>[&descriptor=]

With --fetch the latest published index of that name is downloaded from
storage first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = `  # Serve a local index
  ` + binName + ` serve app.jidx

  # Serve the latest published index of "app" on port 9090
  ` + binName + ` serve --fetch app --addr :9090`

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: server.addr)")
	serveCmd.Flags().StringVar(&serveFetch, "fetch", "", "Fetch the latest published index with this name")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	ctx := cmd.Context()

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}

	path, name, err := resolveServeIndex(ctx, svc, args)
	if err != nil {
		return err
	}
	idx, err := svc.Load(ctx, path)
	if err != nil {
		return err
	}

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	server, err := api.NewServer(idx, name, cfg, log)
	if err != nil {
		return err
	}
	return runUntilSignal(server, log)
}

func resolveServeIndex(ctx context.Context, svc *service.Service, args []string) (path, name string, err error) {
	if serveFetch == "" {
		if len(args) == 0 {
			return "", "", apperrors.New(apperrors.CodeInvalidInput, "an index file or --fetch is required")
		}
		return args[0], service.DefaultName(args[0]), nil
	}

	dir, err := os.MkdirTemp("", "jindex-serve-")
	if err != nil {
		return "", "", err
	}
	path = filepath.Join(dir, serveFetch+storage.IndexFileExt)
	if err := svc.Fetch(ctx, serveFetch, path); err != nil {
		return "", "", err
	}
	return path, serveFetch, nil
}

// runUntilSignal starts server and shuts it down on SIGINT or SIGTERM.
func runUntilSignal(server *api.Server, log utils.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		log.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
