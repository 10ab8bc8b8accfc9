package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flight_assistant/internal/metar"
	"flight_assistant/internal/tools"
)

// Decision kinds.
const (
	DecideTool  = "tool"
	DecideFinal = "final"
	DecideAbort = "abort"
)

// Decision is the decider's next step: call a tool, answer, or give up.
type Decision struct {
	Kind    string
	Thought string
	Tool    string
	Args    tools.Args
	Text    string
	Reason  string
}

// Decider produces the next Decision for the loop state.
type Decider interface {
	Decide(ctx context.Context, st *State) (Decision, error)
}

// Query classes the pattern decider recognizes.
const (
	classMetar   = "metar"
	classLanding = "landing"
	classGeneric = "generic"
)

var toolKeywords = []string{
	"crosswind", "wind", "metar", "taf", "runway", "landing",
	"gust", "headwind", "tailwind", "weather",
}

var landingKeywords = []string{"crosswind", "landing", "runway"}

var icaoQueryRe = regexp.MustCompile(`\b([Kk][A-Za-z]{3}|[A-Z]{4})\b`)

var runwayQueryRe = regexp.MustCompile(`(?i)\brunway\s+(\d{1,3})\s*([LRC])?\b`)

// airportNames maps spoken airport names to ICAO codes.
var airportNames = map[string]string{
	"denver":        "KDEN",
	"boulder":       "KBDU",
	"manila":        "RPLL",
	"orlando":       "KMCO",
	"jfk":           "KJFK",
	"atlanta":       "KATL",
	"chicago":       "KORD",
	"san francisco": "KSFO",
	"seattle":       "KSEA",
	"miami":         "KMIA",
}

// PatternDecider is the deterministic decider used in tests and whenever no
// LLM is configured. It classifies the query, runs the minimum tool chain
// for the class, and templates a final answer from the observed results.
type PatternDecider struct{}

// Decide implements Decider.
func (d *PatternDecider) Decide(_ context.Context, st *State) (Decision, error) {
	class := classify(st.Query)

	if class == classGeneric {
		return Decision{Kind: DecideFinal, Thought: "No weather tools needed; answering directly.", Text: genericResponse(st.Query)}, nil
	}

	// Step 1: fetch weather for the target airport. A location hint from
	// the request fills in when the query itself names no airport.
	if st.TrackedMetar == nil {
		icao := extractICAO(st.Query)
		if icao == "" && st.Location != "" {
			icao = extractICAO(st.Location)
		}
		if icao == "" {
			icao = "KDEN"
		}
		return Decision{
			Kind:    DecideTool,
			Thought: fmt.Sprintf("Query needs weather data; fetching METAR for %s.", icao),
			Tool:    "fetch_metar",
			Args:    tools.Args{"icao_code": icao},
		}, nil
	}

	// Step 2: for landing queries with usable wind, pick a runway.
	if class == classLanding && st.TrackedSelection == nil && st.TrackedMetar.HasWind() && !st.toolFailed("select_best_runway") {
		args := tools.Args{
			"icao_code": st.TrackedMetar.Station,
			"wind":      st.TrackedMetar.WindString(),
		}
		if designator, ok := runwayFromQuery(st.Query); ok {
			args["runways"] = []string{designator}
		}
		return Decision{
			Kind:    DecideTool,
			Thought: "Wind observed; selecting the best runway for the landing analysis.",
			Tool:    "select_best_runway",
			Args:    args,
		}, nil
	}

	// Step 3: answer from what was observed.
	return Decision{
		Kind:    DecideFinal,
		Thought: "Tool results collected; composing the answer.",
		Text:    composeWeatherAnswer(st, class == classLanding),
	}, nil
}

func classify(query string) string {
	q := strings.ToLower(query)
	needsTools := false
	for _, kw := range toolKeywords {
		if strings.Contains(q, kw) {
			needsTools = true
			break
		}
	}
	if !needsTools {
		return classGeneric
	}
	for _, kw := range landingKeywords {
		if strings.Contains(q, kw) {
			return classLanding
		}
	}
	return classMetar
}

// extractICAO finds an airport in the query, either as a literal ICAO code
// or a known airport name.
func extractICAO(query string) string {
	if m := icaoQueryRe.FindStringSubmatch(query); m != nil {
		return strings.ToUpper(m[1])
	}
	q := strings.ToLower(query)
	for name, icao := range airportNames {
		if strings.Contains(q, name) {
			return icao
		}
	}
	return ""
}

// runwayFromQuery pulls an explicit runway out of the query. Numbers up to
// 36 are designators ("runway 26"); larger ones are headings ("runway 260").
func runwayFromQuery(query string) (string, bool) {
	m := runwayQueryRe.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	suffix := strings.ToUpper(m[2])
	if num > 36 {
		num = (num % 360) / 10
	}
	if num == 0 {
		num = 36
	}
	return fmt.Sprintf("%02d%s", num, suffix), true
}

// composeWeatherAnswer renders the tracked METAR (and landing analysis when
// present) as a formal report. The crosswind figure comes from the runway
// selection, which used the same math the verifier replays.
func composeWeatherAnswer(st *State, landing bool) string {
	rec := st.TrackedMetar
	if rec == nil || rec.Raw == "" {
		return "Could not retrieve METAR data for the requested airport. Please verify the airport code."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Station: %s\n", rec.Station)
	if rec.Time != "" {
		fmt.Fprintf(&b, "Report: %s\n", rec.Time)
	}
	fmt.Fprintf(&b, "METAR: %s\n", rec.Raw)

	if rec.HasWind() {
		fmt.Fprintf(&b, "Wind: %03d at %d knots", *rec.WindDirection, *rec.WindSpeed)
		if rec.WindGust != nil && *rec.WindGust > *rec.WindSpeed {
			fmt.Fprintf(&b, ", gusting %d knots", *rec.WindGust)
		}
		b.WriteString("\n")
	}

	if landing && st.TrackedSelection != nil {
		sel := st.TrackedSelection
		fmt.Fprintf(&b, "Landing analysis: runway %s in use (heading %d).\n", sel.Designator, sel.HeadingDeg)
		fmt.Fprintf(&b, "The crosswind is %.1f kt and the headwind is %.1f kt.\n", sel.CrosswindKt, sel.HeadwindKt)
	}

	if rec.TemperatureC != nil {
		fmt.Fprintf(&b, "Temperature: %g C", *rec.TemperatureC)
		if rec.DewpointC != nil {
			fmt.Fprintf(&b, " | Dewpoint: %g C", *rec.DewpointC)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Conditions: %s", rec.FlightCategory)
	if rec.Source == metar.SourceFallback {
		b.WriteString("\nNote: cached fallback data; live weather unavailable.")
	}
	return b.String()
}

func genericResponse(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, greeting := range []string{"hello", "hi", "hey", "greetings"} {
		if strings.Contains(q, greeting) {
			return "Hello! I'm a flight assistant. I can help with METAR weather reports " +
				"(try \"metar KDEN\"), runway and crosswind analysis (try \"crosswind at KJFK\"), " +
				"and general flight planning questions. What can I help you with?"
		}
	}

	if q == "help" || q == "?" {
		return "Flight assistant help. Try asking: \"metar KMCO\" for current weather, " +
			"\"what's the wind at KJFK\", \"crosswind for KSFO\", or " +
			"\"is RPLL good for landing\". I specialize in aviation weather and runway operations."
	}

	return "I'm a specialized flight assistant focused on aviation weather and runway operations. " +
		"Please ask about METAR reports, weather conditions, or runways at specific airports. " +
		"Try: \"metar KDEN\" or \"weather at Denver\"."
}
