package wind

import "strings"

// stationVariations holds magnetic variation (declination) in degrees for
// stations where runway/wind comparisons need true-to-magnetic conversion.
// East is positive. Stations absent here get no correction.
var stationVariations = map[string]float64{
	"KDEN": 7.5,
	"KBDU": 7.5,
}

// StationVariation returns the magnetic variation for an ICAO station, or
// nil when the station is unknown.
func StationVariation(icao string) *float64 {
	v, ok := stationVariations[strings.ToUpper(strings.TrimSpace(icao))]
	if !ok {
		return nil
	}
	return &v
}
