package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethpandaops/etlaudit/pkg/cache"
	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/stats"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	statsTitle string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary statistics of the stored snapshot",
	Long:  `Reads the snapshot written by fetch and prints the distribution of loads and rows per day.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsTitle, "title", stats.DefaultTitle, "table title")
}

func runStats(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true

	config, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := applyConfigLogLevel(cmd, config); err != nil {
		return err
	}

	snapshot := cache.NewSnapshot(logger, &config.Cache)

	records, err := snapshot.Load(cmd.Context())
	if errors.Is(err, models.ErrSnapshotNotFound) {
		return fmt.Errorf("%w, run `etlaudit fetch` first", err)
	}

	if err != nil {
		return err
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No ETL data found")
		return nil
	}

	if age, err := snapshot.Age(); err == nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s: %s records, written %s\n",
			snapshot.Path(), humanize.Comma(int64(len(records))), humanize.Time(time.Now().Add(-age)))
	}

	return stats.WriteTable(cmd.OutOrStdout(), statsTitle, stats.NewReport(records))
}
