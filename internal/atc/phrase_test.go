package atc

import (
	"errors"
	"testing"

	"flight_assistant/internal/metar"
)

func ip(v int) *int { return &v }

func TestNumberToWords(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{260, "two six zero"},
		{13, "one three"},
		{1, "one"},
		{0, "zero"},
		{908, "nine zero eight"},
	}

	for _, tt := range tests {
		if got := NumberToWords(tt.in); got != tt.want {
			t.Errorf("NumberToWords(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWindToPhrase(t *testing.T) {
	if got := WindToPhrase(260, 13, nil); got != "wind two six zero at one three" {
		t.Errorf("WindToPhrase = %q", got)
	}
	if got := WindToPhrase(260, 13, ip(20)); got != "wind two six zero at one three gusts two zero" {
		t.Errorf("WindToPhrase with gust = %q", got)
	}
}

func TestRunwayToPhrase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"26", "runway two six"},
		{"17L", "runway one seven left"},
		{"08R", "runway zero eight right"},
		{"35C", "runway three five center"},
		{"X", ""},
	}

	for _, tt := range tests {
		if got := RunwayToPhrase(tt.in); got != tt.want {
			t.Errorf("RunwayToPhrase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateLandingClearance(t *testing.T) {
	rec := &metar.Record{
		Station:        "KDEN",
		WindDirection:  ip(260),
		WindSpeed:      ip(13),
		WindGust:       ip(20),
		FlightCategory: metar.CategoryVFR,
	}

	p, err := Generate(rec, "26", PhraseLandingClearance, "Denver Tower")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "wind two six zero at one three gusts two zero, runway two six, cleared to land"
	if p.Main != want {
		t.Errorf("Main = %q, want %q", p.Main, want)
	}
	if p.FullTransmission != "Denver Tower "+want {
		t.Errorf("FullTransmission = %q", p.FullTransmission)
	}
	if p.Components["conditions"] != "visual flight rules" {
		t.Errorf("conditions = %q", p.Components["conditions"])
	}
}

func TestGenerateApproach(t *testing.T) {
	rec := &metar.Record{
		Station:        "RPLL",
		WindDirection:  ip(90),
		WindSpeed:      ip(8),
		FlightCategory: metar.CategoryVFR,
	}

	p, err := Generate(rec, "06", PhraseApproach, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "expect runway zero six, conditions visual flight rules"
	if p.Main != want {
		t.Errorf("Main = %q, want %q", p.Main, want)
	}
	if p.Components["callsign"] != "RPLL" {
		t.Errorf("callsign = %q, want RPLL", p.Components["callsign"])
	}
}

func TestGenerateErrors(t *testing.T) {
	rec := &metar.Record{Station: "KDEN", WindDirection: ip(260), WindSpeed: ip(13)}
	if _, err := Generate(rec, "26", "hold_short_banter", ""); !errors.Is(err, ErrUnknownPhraseType) {
		t.Errorf("err = %v, want ErrUnknownPhraseType", err)
	}
	if _, err := Generate(&metar.Record{Station: "KDEN"}, "26", PhraseWindAdvisory, ""); err == nil {
		t.Error("expected error for missing wind")
	}
}
