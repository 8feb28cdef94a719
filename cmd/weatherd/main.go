package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "weatherd",
	Short: "weatherd - event-sourced weather monitoring service",
	Long: `weatherd periodically pulls observations, forecasts, and active
alerts for a set of registered forecast zones from an external weather
provider, recording everything as an append-only event log and serving
materialized views of the latest weather per zone and the status of each
update run.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"weatherd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("store", "./weather.db", "Path to the BoltDB event log file")
	rootCmd.PersistentFlags().String("postgres-dsn", "", "Postgres DSN; when set, the event log and projections run against Postgres instead of BoltDB")
	rootCmd.PersistentFlags().String("provider-base-url", "", "Base URL of the external weather provider; empty uses the deterministic fixture client")
	rootCmd.PersistentFlags().String("user-agent", "weatherd (https://github.com/dmrolfs/weather-monitor)", "User-Agent header sent on every provider request")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(weatherCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
