package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/etlaudit/pkg/api"
	"github.com/ethpandaops/etlaudit/pkg/cache"
	"github.com/ethpandaops/etlaudit/pkg/coordinator"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/server"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	serveRefresh bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored snapshot over HTTP",
	Long:  `Starts the read-only API over the snapshot, plus the optional metrics, health and pprof servers.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveRefresh, "refresh", false, "fetch a fresh snapshot before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := applyConfigLogLevel(cmd, config); err != nil {
		return err
	}

	config.API.Enabled = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source coordinator.Service

	if serveRefresh {
		svc, err := newCoordinator(config)
		if err != nil {
			return err
		}

		if _, _, err := svc.Rebuild(ctx); err != nil && !errors.Is(err, models.ErrNoRecords) {
			return err
		}

		source = svc
	} else {
		// read-only: Cached never reaches the runner
		source = coordinator.NewService(logger, nil, cache.NewSnapshot(logger, &config.Cache))
	}

	srv, err := server.NewServer(logger, &config.Server, api.NewService(&config.API, source, logger))
	if err != nil {
		return err
	}

	logger.WithField("addr", config.API.Addr).Info("Serving snapshot")

	return srv.Start(ctx)
}
