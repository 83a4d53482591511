package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/etlaudit/pkg/cache"
	"github.com/ethpandaops/etlaudit/pkg/coordinator"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/observability"
	"github.com/ethpandaops/etlaudit/pkg/scheduler"
	"github.com/ethpandaops/etlaudit/pkg/slack"
	"github.com/ethpandaops/etlaudit/pkg/stats"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	fetchUseCache bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch ETL notifications from Slack and store the snapshot",
	Long: `Deletes any existing snapshot, fetches every ETL notification in the
configured range, stores the extracted records and prints an overview.
With --use-cache an existing snapshot is reused instead.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolVar(&fetchUseCache, "use-cache", false, "reuse an existing snapshot instead of refetching")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := applyConfigLogLevel(cmd, config); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.StartMetricsServer(ctx, config.Server.MetricsAddr)

	svc, err := newCoordinator(config)
	if err != nil {
		return err
	}

	load := svc.Rebuild
	if fetchUseCache {
		load = svc.Load
	}

	records, result, err := load(ctx)
	if errors.Is(err, models.ErrNoRecords) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No ETL data found")
		return nil
	}

	if err != nil {
		return err
	}

	if result != nil && result.Partial() {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d chunk errors, results are partial\n", len(result.Errors))
	}

	return stats.WriteOverview(cmd.OutOrStdout(), stats.NewOverview(records))
}

// newCoordinator wires the Slack fetcher, scheduler and snapshot together
func newCoordinator(config *Config) (coordinator.Service, error) {
	client, err := slack.NewClient(&config.Slack)
	if err != nil {
		return nil, fmt.Errorf("invalid slack configuration: %w", err)
	}

	fetcher := slack.NewFetcher(logger, client, &config.Slack)

	sched, err := scheduler.NewScheduler(logger, fetcher, &config.Scheduler)
	if err != nil {
		return nil, err
	}

	snapshot := cache.NewSnapshot(logger, &config.Cache)

	return coordinator.NewService(logger, sched, snapshot), nil
}
