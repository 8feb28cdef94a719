package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/dmrolfs/weather-monitor/pkg/metrics"
	"github.com/dmrolfs/weather-monitor/pkg/projections"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/dmrolfs/weather-monitor/pkg/tracing"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// zoneWeatherFilter selects every zone-slice event across every zone, for
// the Postgres zone_weather projection listener.
var zoneWeatherFilter = eventlog.ByType(
	zone.EventObservationUpdated,
	zone.EventForecastUpdated,
	zone.EventAlertActivated,
	zone.EventAlertDeactivated,
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the weather monitor daemon: poll monitored zones and serve materialized views",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().Duration("poll-interval", 10*time.Minute, "How often to run the update-all-monitored-zones saga")
	runCmd.Flags().Duration("listener-poll-interval", time.Second, "Poll interval projection/view listeners use against the event log")
	runCmd.Flags().String("metrics-addr", ":9090", "Address the /metrics and /healthz HTTP endpoints listen on")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := log.WithComponent("weatherd")

	dep, err := openDeployment(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dep.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("error closing event log on shutdown")
		}
	}()

	listenerInterval, _ := cmd.Flags().GetDuration("listener-poll-interval")

	zoneView := projections.NewMonitoredZonesView()
	dep.API.Zones = zoneView
	go zoneView.Run(ctx, dep.Store, listenerInterval) //nolint:errcheck // Run logs its own terminal error

	if dep.ZoneWeather != nil {
		go runListener(ctx, dep.Store, zoneWeatherFilter, listenerInterval, func(e eventlog.Event) error {
			return dep.ZoneWeather.Handle(ctx, e)
		})
	}
	if dep.History != nil {
		go runListener(ctx, dep.Store, projections.Filter, listenerInterval, func(e eventlog.Event) error {
			return dep.History.Handle(ctx, e)
		})
	}

	trace := tracing.New("audit-trail", zerolog.DebugLevel, eventlog.Filter{})
	go func() {
		if err := trace.Run(ctx, dep.Store, listenerInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("tracing listener halted")
		}
	}()

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	metricsServer := startMetricsServer(metricsAddr, logger)
	defer shutdownMetricsServer(metricsServer, logger)
	metrics.RegisterComponent("eventlog", true, "")
	metrics.RegisterComponent("provider", true, "")

	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	logger.Info().Dur("poll_interval", pollInterval).Str("metrics_addr", metricsAddr).Msg("weatherd starting")

	runPollLoop(ctx, dep, pollInterval, logger)

	logger.Info().Msg("shutdown signal received, waiting for in-flight orchestrator tasks")
	if err := dep.Orchestrator.Wait(); err != nil {
		logger.Warn().Err(err).Msg("orchestrator reported an error while draining")
	}
	return nil
}

// runPollLoop fires StartUpdate for every currently monitored zone every
// poll interval, and once more immediately on start. A missing or failed
// cycle is logged, not fatal: the saga itself, not the daemon process,
// owns failure handling for an individual update run.
func runPollLoop(ctx context.Context, dep *deployment, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	triggerUpdate(ctx, dep, logger)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			triggerUpdate(ctx, dep, logger)
		}
	}
}

func triggerUpdate(ctx context.Context, dep *deployment, logger zerolog.Logger) {
	state, err := registrar.DeriveState(ctx, dep.Store)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read monitored zones")
		return
	}
	zones := state.List()
	if len(zones) == 0 {
		logger.Debug().Msg("no zones monitored, skipping poll cycle")
		return
	}

	metrics.SagasStartedTotal.Inc()
	updateID, err := dep.API.UpdateWeather(ctx, zones)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to start update saga")
		return
	}
	if updateID == nil {
		return
	}
	logger.Info().Str("update_id", string(*updateID)).Int("zones", len(zones)).Msg("update saga started")
}

func runListener(ctx context.Context, store eventlog.Store, filter eventlog.Filter, interval time.Duration, handler func(eventlog.Event) error) {
	logger := log.WithComponent("listener")
	if err := store.Subscribe(ctx, filter, 0, interval, handler); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("listener halted")
	}
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}

func shutdownMetricsServer(server *http.Server, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown error")
	}
}
