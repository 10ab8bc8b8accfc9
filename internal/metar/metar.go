// Package metar fetches and normalizes METAR weather observations. An
// upstream provider is consulted when configured; any upstream failure is
// absorbed into a deterministic fallback record so callers never see a
// weather error, only a record marked source=fallback.
package metar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"flight_assistant/internal/wind"
)

// ErrInvalidStation marks a malformed ICAO identifier. This is the only
// error Fetch surfaces to callers.
var ErrInvalidStation = errors.New("invalid ICAO station")

// Flight categories.
const (
	CategoryVFR     = "VFR"
	CategoryMVFR    = "MVFR"
	CategoryIFR     = "IFR"
	CategoryLIFR    = "LIFR"
	CategoryUnknown = "UNKNOWN"
)

// Record sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

var icaoRe = regexp.MustCompile(`^[A-Z]{4}$`)

// Record is a normalized METAR observation.
type Record struct {
	Station        string   `json:"station"`
	Time           string   `json:"time"`
	Raw            string   `json:"raw"`
	WindDirection  *int     `json:"wind_direction"`
	WindSpeed      *int     `json:"wind_speed"`
	WindGust       *int     `json:"wind_gust"`
	TemperatureC   *float64 `json:"temperature_c"`
	DewpointC      *float64 `json:"dewpoint_c"`
	VisibilitySM   *float64 `json:"visibility_sm"`
	Altimeter      *string  `json:"altimeter"`
	FlightCategory string   `json:"flight_category"`
	Source         string   `json:"source"`
}

// WindString renders the record's wind in the canonical "DDD @ SS" form,
// with gust appended when present. Calm or missing wind renders as "".
func (r *Record) WindString() string {
	if r == nil || r.WindSpeed == nil {
		return ""
	}
	var dir, gust *float64
	if r.WindDirection != nil {
		d := float64(*r.WindDirection)
		dir = &d
	}
	speed := float64(*r.WindSpeed)
	if r.WindGust != nil {
		g := float64(*r.WindGust)
		gust = &g
	}
	return wind.Format(dir, &speed, gust)
}

// HasWind reports whether both direction and speed are present.
func (r *Record) HasWind() bool {
	return r != nil && r.WindDirection != nil && r.WindSpeed != nil
}

// NormalizeStation uppercases and validates an ICAO identifier.
func NormalizeStation(icao string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(icao))
	if !icaoRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStation, icao)
	}
	return s, nil
}
