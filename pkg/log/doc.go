/*
Package log provides structured logging for the weather monitor using
zerolog: a package-global Logger plus child-logger constructors for
this domain's own tags (component, zone, update_id).

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("orchestrator")
	logger.Info().Str("update_id", string(updateID)).Msg("saga started")

	zoneLogger := log.WithZone(string(zone))
	updateLogger := log.WithUpdateID(string(updateID))

# Fields

Components tag their loggers with WithComponent plus WithZone and/or
WithUpdateID as appropriate. The provider HTTP client logs each
response at debug (warn for 4xx/5xx) and each retry at warn; the
orchestrator logs provider and command failures at warn and
shutdown-canceled calls at debug; listeners log a halt at error. The
event-append path and the event-log stores do not log.

# Configuration

Init(Config{Level, JSONOutput, Output}) sets the package-global Logger.
JSONOutput selects structured JSON (for log aggregation) over a
human-readable console writer (for local development); Output defaults
to os.Stdout. Level/JSONOutput are normally bound to cmd/weatherd's
--log-level/--log-json flags.
*/
package log
