package tracing_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
	"github.com/dmrolfs/weather-monitor/pkg/tracing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestProcessor_RunStopsOnCancel(t *testing.T) {
	store := eventlog.NewMemStore()
	_, err := registrar.MonitorForecastZone(context.Background(), store, "otis", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	proc := tracing.New("test-tracer", zerolog.DebugLevel, registrar.Filter)
	err = proc.Run(ctx, store, 5*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
