package guardrail

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"flight_assistant/internal/metar"
)

func ip(v int) *int         { return &v }
func fp(v float64) *float64 { return &v }

func kdenMetar() *metar.Record {
	return &metar.Record{
		Station:        "KDEN",
		WindDirection:  ip(220),
		WindSpeed:      ip(10),
		FlightCategory: metar.CategoryVFR,
		Source:         metar.SourceFallback,
	}
}

func TestVerifyPasses(t *testing.T) {
	v := New(Config{MagneticEnabled: true})
	// KDEN variation 7.5E: wind 212.5 magnetic vs runway 260 gives 47.5
	// degrees and 7.37 kt.
	res := v.Verify("The crosswind is 7.4 kt.", kdenMetar(), fp(260))
	if res.Status != StatusPassed {
		t.Fatalf("Status = %q (%s), want passed", res.Status, res.Reason)
	}
	if res.Truth == nil || math.Abs(*res.Truth-7.37) > 0.01 {
		t.Errorf("Truth = %v, want ~7.37", res.Truth)
	}
	if res.Discrepancy == nil || *res.Discrepancy > 0.1 {
		t.Errorf("Discrepancy = %v, want small", res.Discrepancy)
	}
}

func TestVerifyFailsAndBuildsReflectionPrompt(t *testing.T) {
	v := New(Config{MagneticEnabled: true})
	res := v.Verify("The crosswind is 20 knots.", kdenMetar(), fp(260))
	if res.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.Discrepancy == nil || math.Abs(*res.Discrepancy-12.63) > 0.05 {
		t.Errorf("Discrepancy = %v, want ~12.63", res.Discrepancy)
	}
	p := res.ReflectionPrompt
	for _, want := range []string{"220 @ 10", "260", "47.5", "sin", "7.37"} {
		if !strings.Contains(p, want) {
			t.Errorf("ReflectionPrompt missing %q: %s", want, p)
		}
	}
}

// The threshold is inclusive: a discrepancy of exactly T passes.
func TestVerifyBoundaryPasses(t *testing.T) {
	v := New(Config{})
	rec := &metar.Record{Station: "ZZZZ", WindDirection: ip(90), WindSpeed: ip(10)}
	// Runway 09: angle 0, truth 0. Claim of exactly 3.0 sits on the boundary.
	res := v.Verify("crosswind is 3.0 kt", rec, fp(90))
	if res.Status != StatusPassed {
		t.Fatalf("Status = %q, want passed at the boundary", res.Status)
	}
	res = v.Verify("crosswind is 3.1 kt", rec, fp(90))
	if res.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed just past the boundary", res.Status)
	}
}

// Any missing input skips verification regardless of the others.
func TestVerifySkipStable(t *testing.T) {
	v := New(Config{})
	full := kdenMetar()
	noDir := kdenMetar()
	noDir.WindDirection = nil
	noSpeed := kdenMetar()
	noSpeed.WindSpeed = nil

	tests := []struct {
		name   string
		answer string
		rec    *metar.Record
		runway *float64
	}{
		{"no claim", "Weather looks fine for landing.", full, fp(260)},
		{"no metar", "crosswind is 5 kt", nil, fp(260)},
		{"no runway", "crosswind is 5 kt", full, nil},
		{"no wind direction", "crosswind is 5 kt", noDir, fp(260)},
		{"no wind speed", "crosswind is 5 kt", noSpeed, fp(260)},
	}

	for _, tt := range tests {
		res := v.Verify(tt.answer, tt.rec, tt.runway)
		if res.Status != StatusSkipped {
			t.Errorf("%s: Status = %q, want skipped (%s)", tt.name, res.Status, res.Reason)
		}
	}
}

// Larger discrepancies can only move the outcome from pass to fail.
func TestVerifyMonotoneInDiscrepancy(t *testing.T) {
	v := New(Config{})
	rec := &metar.Record{Station: "ZZZZ", WindDirection: ip(90), WindSpeed: ip(10)}
	runway := fp(180) // angle 90, truth 10.0

	prevFailed := false
	for claim := 10.0; claim <= 20.0; claim += 0.5 {
		res := v.Verify(fmt.Sprintf("crosswind is %.1f kt", claim), rec, runway)
		failed := res.Status == StatusFailed
		if prevFailed && !failed {
			t.Fatalf("verification not monotone: claim %.1f passed after a smaller claim failed", claim)
		}
		prevFailed = failed
	}
	if !prevFailed {
		t.Fatal("largest discrepancy should have failed")
	}
}

func TestVerifyGustPolicy(t *testing.T) {
	rec := &metar.Record{Station: "ZZZZ", WindDirection: ip(90), WindSpeed: ip(10), WindGust: ip(20)}
	runway := fp(180) // angle 90

	sustained := New(Config{})
	if res := sustained.Verify("crosswind is 10 kt", rec, runway); res.Status != StatusPassed {
		t.Errorf("sustained policy: Status = %q, want passed", res.Status)
	}

	gusty := New(Config{UseGust: true})
	res := gusty.Verify("crosswind is 10 kt", rec, runway)
	if res.Truth == nil || math.Abs(*res.Truth-20) > 1e-9 {
		t.Errorf("gust policy Truth = %v, want 20", res.Truth)
	}
	if res.Status != StatusFailed {
		t.Errorf("gust policy: Status = %q, want failed", res.Status)
	}
}

func TestVerifyWithoutMagneticCorrection(t *testing.T) {
	v := New(Config{MagneticEnabled: false})
	res := v.Verify("crosswind is 6.4 kt", kdenMetar(), fp(260))
	if res.Status != StatusPassed {
		t.Fatalf("Status = %q, want passed", res.Status)
	}
	if res.Truth == nil || math.Abs(*res.Truth-6.43) > 0.01 {
		t.Errorf("Truth = %v, want ~6.43 without correction", res.Truth)
	}
}

func TestSafeFailText(t *testing.T) {
	truth := 7.3728
	msg := SafeFailText("KDEN", "220 @ 10", &truth, "1724500000000-abcd1234")
	for _, want := range []string{"KDEN", "220 @ 10", "7.37 kt", "verify independently", "1724500000000-abcd1234"} {
		if !strings.Contains(msg, want) {
			t.Errorf("SafeFailText missing %q: %s", want, msg)
		}
	}

	if msg := SafeFailText("", "", nil, ""); msg == "" {
		t.Error("SafeFailText must always return text")
	}
}
