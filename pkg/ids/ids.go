// Package ids defines the opaque identifiers and tagged-identifier
// conventions shared by every aggregate in the weather domain.
package ids

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ZoneCode is an opaque, non-empty, case-sensitive forecast zone
// identifier, e.g. "otis" or "neo".
type ZoneCode string

func (z ZoneCode) String() string { return string(z) }

// ZoneType classifies the kind of zone a ZoneCode names when parsed from
// a provider URL. It plays no role in equality or ordering of ZoneCode
// itself.
type ZoneType string

const (
	ZoneTypePublic   ZoneType = "public"
	ZoneTypeCounty   ZoneType = "county"
	ZoneTypeForecast ZoneType = "forecast"
)

// ParseZoneCode accepts either a bare zone code or a provider URL whose
// last two path segments are <zone-type>/<code>, matching the rule used
// both for identifier parsing and for alert affected-zone
// entries. A bare code yields a zero-value ZoneType.
func ParseZoneCode(raw string) (ZoneType, ZoneCode, error) {
	if raw == "" {
		return "", "", fmt.Errorf("ids: empty zone code representation")
	}

	if !strings.HasPrefix(raw, "http") {
		return "", ZoneCode(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("ids: parse zone url %q: %w", raw, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("ids: url %q is not a zone identifier", raw)
	}

	code := ZoneCode(segments[len(segments)-1])
	zoneType := ZoneType(strings.ToLower(segments[len(segments)-2]))
	return zoneType, code, nil
}

// UpdateID identifies one run of the "update all monitored zones" saga,
// generated as a time-ordered UUIDv7 so identifiers stay roughly
// sortable by creation order.
type UpdateID string

func (u UpdateID) String() string { return string(u) }

// NewUpdateID generates a fresh, sortable update run identifier.
func NewUpdateID() UpdateID {
	id, err := uuid.NewV7()
	if err != nil {
		// uuid.NewV7 only fails if the system's random source is broken;
		// fall back to a random v4 rather than panic a command path.
		id = uuid.New()
	}
	return UpdateID(id.String())
}

// RegistrarStreamID is the fixed stream identifier for the registrar
// aggregate. It is a domain convention ("one registrar stream exists"),
// not a language-level singleton.
const RegistrarStreamID = "<singleton>"
