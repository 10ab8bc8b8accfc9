// Package runway picks the best landing runway for a given wind: the
// candidate with the smallest crosswind component, ties broken by the
// larger headwind. Headings come from the designator tens-of-degrees rule.
package runway

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"flight_assistant/internal/wind"
)

// DefaultMaxCrosswindKt is the advisory crosswind limit noted in the
// selection rationale when exceeded.
const DefaultMaxCrosswindKt = 10.0

// ErrNoRunways is returned when no candidate has a derivable heading.
var ErrNoRunways = errors.New("no valid runways")

// Candidate is one evaluated runway.
type Candidate struct {
	Designator  string  `json:"designator"`
	HeadingDeg  float64 `json:"heading_mag"`
	AngleDeg    float64 `json:"angle_deg"`
	CrosswindKt float64 `json:"crosswind_kt"`
	HeadwindKt  float64 `json:"headwind_kt"`
}

// Selection is the outcome of a runway choice. Rationale is human-readable
// and not meant to be parsed.
type Selection struct {
	Airport     string      `json:"airport"`
	Designator  string      `json:"designator"`
	HeadingDeg  int         `json:"runway_heading"`
	AngleDeg    float64     `json:"angle_deg"`
	CrosswindKt float64     `json:"crosswind_kt"`
	HeadwindKt  float64     `json:"headwind_kt"`
	Rationale   string      `json:"rationale"`
	Candidates  []Candidate `json:"candidates,omitempty"`
	Synthetic   bool        `json:"synthetic,omitempty"`
}

// Options tune a selection.
type Options struct {
	Runways         []string // candidate designators; nil uses the catalog
	MaxCrosswindKt  float64  // advisory limit; 0 means DefaultMaxCrosswindKt
	UseGust         bool
	MagneticEnabled bool
	Variation       *float64 // overrides the station variation table
}

// runwayCatalog lists runway designators per airport for the stations the
// fallback weather catalog knows about.
var runwayCatalog = map[string][]string{
	"KDEN": {"08", "17L", "17R", "26", "35L", "35R"},
	"KBDU": {"08", "26"},
	"KMCO": {"17L", "17R", "18L", "18R", "35L", "35R", "36L", "36R"},
	"RPLL": {"06", "24", "13", "31"},
}

// CatalogFor returns the known runways for an airport, or nil.
func CatalogFor(icao string) []string {
	return runwayCatalog[strings.ToUpper(strings.TrimSpace(icao))]
}

// HeadingFromDesignator infers the magnetic heading from a runway
// designator using the tens-of-degrees rule ("26" -> 260, "17L" -> 170).
func HeadingFromDesignator(designator string) (float64, bool) {
	var digits strings.Builder
	for _, ch := range designator {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	var num int
	fmt.Sscanf(digits.String(), "%d", &num)
	return math.Mod(float64(num*10), 360), true
}

// SyntheticDesignator derives a headwind-aligned runway number straight
// from the wind direction, for airports with no catalog entry.
func SyntheticDesignator(windDir float64) (string, float64) {
	hdg := math.Mod(math.Round(windDir/10)*10, 360)
	num := int(hdg) / 10
	if num == 0 {
		num = 36
		hdg = 360
	}
	return fmt.Sprintf("%02d", num), math.Mod(hdg, 360)
}

// Select evaluates candidates against the wind and returns the best one.
// windDir is a true direction; when magnetic correction is enabled and the
// station's variation is known, it is converted before comparison.
func Select(station string, windDir, windSpeed float64, gust *float64, opts Options) (*Selection, error) {
	maxCross := opts.MaxCrosswindKt
	if maxCross == 0 {
		maxCross = DefaultMaxCrosswindKt
	}

	speed := windSpeed
	if opts.UseGust && gust != nil && *gust > speed {
		speed = *gust
	}

	dir := windDir
	if opts.MagneticEnabled {
		variation := opts.Variation
		if variation == nil {
			variation = wind.StationVariation(station)
		}
		dir = wind.TrueToMagnetic(dir, variation)
	}

	designators := opts.Runways
	synthetic := false
	if len(designators) == 0 {
		designators = CatalogFor(station)
	}
	if len(designators) == 0 {
		d, _ := SyntheticDesignator(dir)
		designators = []string{d}
		synthetic = true
	}

	var candidates []Candidate
	for _, d := range designators {
		hdg, ok := HeadingFromDesignator(d)
		if !ok {
			continue
		}
		comps := wind.Resolve(speed, dir, hdg)
		candidates = append(candidates, Candidate{
			Designator:  d,
			HeadingDeg:  hdg,
			AngleDeg:    comps.AngleDeg,
			CrosswindKt: comps.CrosswindKt,
			HeadwindKt:  comps.HeadwindKt,
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoRunways
	}

	// Crosswinds within a hair of each other are a tie; reciprocal runways
	// produce such pairs and the headwind one must win.
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if math.Abs(ci.CrosswindKt-cj.CrosswindKt) > 1e-9 {
			return ci.CrosswindKt < cj.CrosswindKt
		}
		return ci.HeadwindKt > cj.HeadwindKt
	})
	best := candidates[0]

	word := "headwind"
	if best.HeadwindKt < 0 {
		word = "tailwind"
	}
	rationale := fmt.Sprintf("Runway %s favored, %.1f kt %s, %.1f kt crosswind",
		best.Designator, math.Abs(best.HeadwindKt), word, best.CrosswindKt)
	if best.CrosswindKt > maxCross {
		rationale += fmt.Sprintf(" (exceeds %g kt limit)", maxCross)
	}

	return &Selection{
		Airport:     station,
		Designator:  best.Designator,
		HeadingDeg:  int(best.HeadingDeg),
		AngleDeg:    best.AngleDeg,
		CrosswindKt: best.CrosswindKt,
		HeadwindKt:  best.HeadwindKt,
		Rationale:   rationale,
		Candidates:  candidates,
		Synthetic:   synthetic,
	}, nil
}
