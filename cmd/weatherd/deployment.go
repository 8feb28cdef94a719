package main

import (
	"context"
	"fmt"

	"github.com/dmrolfs/weather-monitor/pkg/command"
	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/noaa"
	"github.com/dmrolfs/weather-monitor/pkg/orchestrator"
	"github.com/dmrolfs/weather-monitor/pkg/projections"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// deployment bundles everything a CLI subcommand or the run daemon needs
// to talk to the event log and the weather provider. Which concrete
// Store/ZoneWeatherSource backs it depends on --postgres-dsn: set, it's
// Postgres (pgx pool for the log, sqlx over the same driver for the
// zone_weather/update_weather_history projections); unset, it's an
// embedded BoltDB file with no separate projection store -- reads replay
// the log directly (command.EventLogZoneWeatherSource).
type deployment struct {
	Store       eventlog.Store
	API         *command.API
	Orchestrator *orchestrator.Orchestrator
	ZoneWeather *projections.ZoneWeatherProjection // nil in BoltDB mode
	History     *projections.UpdateWeatherHistoryProjection // nil in BoltDB mode
	closeFn     func() error
}

func (d *deployment) Close() error {
	if d.closeFn != nil {
		return d.closeFn()
	}
	return nil
}

func openDeployment(ctx context.Context, cmd *cobra.Command) (*deployment, error) {
	postgresDSN, _ := cmd.Flags().GetString("postgres-dsn")
	storePath, _ := cmd.Flags().GetString("store")

	weatherClient, err := newWeatherClient(cmd)
	if err != nil {
		return nil, err
	}

	if postgresDSN != "" {
		return openPostgresDeployment(ctx, postgresDSN, weatherClient)
	}
	return openBoltDeployment(storePath, weatherClient)
}

func openBoltDeployment(storePath string, weatherClient noaa.WeatherServices) (*deployment, error) {
	store, err := eventlog.OpenBoltStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("weatherd: open bolt store: %w", err)
	}

	orch := orchestrator.New(store, weatherClient)
	api := &command.API{
		Store:       store,
		ZoneWeather: command.EventLogZoneWeatherSource{Store: store},
		UpdateHook:  orch.Hook,
	}

	return &deployment{
		Store:        store,
		API:          api,
		Orchestrator: orch,
		closeFn:      store.Close,
	}, nil
}

func openPostgresDeployment(ctx context.Context, dsn string, weatherClient noaa.WeatherServices) (*deployment, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("weatherd: connect postgres pool: %w", err)
	}

	store := eventlog.NewPgStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("weatherd: ensure event log schema: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")

	zoneWeather := projections.NewZoneWeatherProjection(db)
	if err := zoneWeather.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("weatherd: ensure zone_weather schema: %w", err)
	}

	history := projections.NewUpdateWeatherHistoryProjection(db)
	if err := history.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("weatherd: ensure update_weather_history schema: %w", err)
	}

	orch := orchestrator.New(store, weatherClient)
	api := &command.API{
		Store:        store,
		ZoneWeather:  zoneWeather,
		UpdateStatus: history,
		UpdateHook:   orch.Hook,
	}

	return &deployment{
		Store:        store,
		API:          api,
		Orchestrator: orch,
		ZoneWeather:  zoneWeather,
		History:      history,
		closeFn: func() error {
			_ = db.Close()
			pool.Close()
			return nil
		},
	}, nil
}

func newWeatherClient(cmd *cobra.Command) (noaa.WeatherServices, error) {
	baseURL, _ := cmd.Flags().GetString("provider-base-url")
	if baseURL == "" {
		return noaa.NewFixtureClient(), nil
	}
	userAgent, _ := cmd.Flags().GetString("user-agent")
	client, err := noaa.NewHTTPClient(baseURL, userAgent)
	if err != nil {
		return nil, fmt.Errorf("weatherd: build provider client: %w", err)
	}
	return client, nil
}
