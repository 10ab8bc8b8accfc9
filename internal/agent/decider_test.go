package agent

import (
	"context"
	"strings"
	"testing"

	"flight_assistant/internal/metar"
	"flight_assistant/internal/runway"
)

var selectionFixture = runway.Selection{
	Airport:     "KDEN",
	Designator:  "26",
	HeadingDeg:  260,
	AngleDeg:    47.5,
	CrosswindKt: 7.37,
	HeadwindKt:  6.76,
}

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"metar KDEN", classMetar},
		{"what's the weather at Denver", classMetar},
		{"any gusts at KBDU", classMetar},
		{"crosswind at KDEN", classLanding},
		{"can I land on runway 26", classLanding},
		{"is KMCO good for landing", classLanding},
		{"hello there", classGeneric},
		{"book me a hotel", classGeneric},
	}
	for _, tt := range tests {
		if got := classify(tt.query); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestExtractICAO(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"metar KDEN", "KDEN"},
		{"metar kden please", "KDEN"},
		{"conditions at RPLL today", "RPLL"},
		{"weather in Denver", "KDEN"},
		{"weather in boulder colorado", "KBDU"},
		{"weather at orlando", "KMCO"},
		{"any weather", ""},
	}
	for _, tt := range tests {
		if got := extractICAO(tt.query); got != tt.want {
			t.Errorf("extractICAO(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestRunwayFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"landing on runway 26", "26", true},
		{"landing on runway 260", "26", true},
		{"runway 17L crosswind", "17L", true},
		{"runway 8", "08", true},
		{"runway 0", "36", true},
		{"no runway mentioned here at all", "", false},
		{"crosswind at KDEN", "", false},
	}
	for _, tt := range tests {
		got, ok := runwayFromQuery(tt.query)
		if got != tt.want || ok != tt.ok {
			t.Errorf("runwayFromQuery(%q) = %q, %v, want %q, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}

// "no runway mentioned here at all" still classifies as landing; the
// designator extraction must not fire on the bare word.
func TestPatternDeciderSequence(t *testing.T) {
	d := &PatternDecider{}
	st := &State{Query: "crosswind for landing at KDEN runway 260"}

	dec, err := d.Decide(context.Background(), st)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Kind != DecideTool || dec.Tool != "fetch_metar" {
		t.Fatalf("first decision = %+v, want fetch_metar", dec)
	}
	if got := dec.Args.String("icao_code"); got != "KDEN" {
		t.Errorf("icao_code = %q, want KDEN", got)
	}

	dir, speed := 220, 10
	st.TrackedMetar = &metar.Record{
		Station: "KDEN", Raw: "raw", WindDirection: &dir, WindSpeed: &speed,
		FlightCategory: metar.CategoryVFR,
	}
	dec, _ = d.Decide(context.Background(), st)
	if dec.Kind != DecideTool || dec.Tool != "select_best_runway" {
		t.Fatalf("second decision = %+v, want select_best_runway", dec)
	}
	if got := dec.Args.String("wind"); got != "220 @ 10" {
		t.Errorf("wind = %q, want 220 @ 10", got)
	}
	if got := dec.Args.StringSlice("runways"); len(got) != 1 || got[0] != "26" {
		t.Errorf("runways = %v, want [26]", got)
	}
}

func TestPatternDeciderSkipsRunwayWithoutWind(t *testing.T) {
	d := &PatternDecider{}
	st := &State{
		Query:        "crosswind at ZZZZ",
		TrackedMetar: &metar.Record{Station: "ZZZZ", Raw: "raw", FlightCategory: metar.CategoryUnknown},
	}
	dec, err := d.Decide(context.Background(), st)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Kind != DecideFinal {
		t.Fatalf("decision = %+v, want a final answer when wind is unusable", dec)
	}
}

func TestGenericResponses(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"hello", "Hello!"},
		{"help", "Flight assistant help"},
		{"recommend a restaurant", "specialized flight assistant"},
	}
	for _, tt := range tests {
		if got := genericResponse(tt.query); !strings.Contains(got, tt.want) {
			t.Errorf("genericResponse(%q) missing %q: %s", tt.query, tt.want, got)
		}
	}
}

func TestComposeWeatherAnswerClaimsSelectionFigure(t *testing.T) {
	dir, speed := 220, 10
	st := &State{
		Query: "crosswind for landing at KDEN",
		TrackedMetar: &metar.Record{
			Station: "KDEN", Raw: "KDEN 181853Z 22010KT", Time: "181853Z",
			WindDirection: &dir, WindSpeed: &speed, FlightCategory: metar.CategoryVFR,
		},
	}
	st.TrackedSelection = &selectionFixture
	got := composeWeatherAnswer(st, true)
	if !strings.Contains(got, "crosswind is 7.4 kt") {
		t.Errorf("answer missing selection crosswind: %s", got)
	}
	if !strings.Contains(got, "runway 26") {
		t.Errorf("answer missing runway: %s", got)
	}
}
