// Package cmd contains the CLI commands for etlaudit
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile string
	logger  *logrus.Logger
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "etlaudit",
	Short: "ETL load auditor - collect ETL notifications from Slack and summarize them",
	Long: `etlaudit pages through a Slack channel's history, extracts the table load
counts reported by ETL notification messages, caches them as a Parquet
snapshot and reports daily load statistics.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal, panic)")

	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "./config.yaml"
	}

	// Set log level
	logLevel, err := rootCmd.PersistentFlags().GetString("log-level")
	if err != nil {
		logLevel = "info" // Default to info if error
	}
	level, parseErr := logrus.ParseLevel(logLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// applyConfigLogLevel uses the config file level unless --log-level was given
func applyConfigLogLevel(cmd *cobra.Command, cfg *Config) error {
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		return nil
	}

	level, err := logrus.ParseLevel(cfg.Logging)
	if err != nil {
		return fmt.Errorf("invalid logging level %q: %w", cfg.Logging, err)
	}

	logger.SetLevel(level)

	return nil
}
